// Package cache coordinates the read caches: namespaced keys, TTL'd reads,
// and prefix invalidation after committed writes. A broken cache backend
// degrades to always-miss and never fails a read or write.
package cache

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"assettrack/internal/asset/query"
)

// Key namespaces. Keys are built from ordered parameters, never ad hoc
// concatenation, so prefix invalidation cannot collide across namespaces.
const (
	nsDetail  = "assets:detail:"
	nsList    = "assets:list:"
	nsSummary = "assets:summary:"
	nsMoves   = "assets:moves:"
	nsHistory = "assets:history:"
)

// DetailKey addresses one asset's detail read.
func DetailKey(id uuid.UUID) string {
	return nsDetail + id.String()
}

// DetailPrefix invalidates every cached read of one asset's detail.
func DetailPrefix(id uuid.UUID) string {
	return nsDetail + id.String()
}

// ListKey encodes a listing request. Parameter order is fixed so equal
// requests always map to the same key.
func ListKey(p query.Params) string {
	p = p.Normalize()
	var from, to string
	if p.From != nil {
		from = p.From.Format("2006-01-02")
	}
	if p.To != nil {
		to = p.To.Format("2006-01-02")
	}
	return nsList + fmt.Sprintf("t=%s&f=%s&c=%s&s=%s&from=%s&to=%s&del=%t&p=%d&n=%d",
		p.Term, strings.Join(p.Fields, ","), p.Category, p.Status,
		from, to, p.IncludeDeleted, p.Page, p.PageSize)
}

// ListPrefix invalidates the whole list/search key family. Any field change
// can alter filtered or sorted results, so list keys are never invalidated
// selectively.
const ListPrefix = nsList

// SummaryKey encodes a summary request over the same filters as a listing.
func SummaryKey(p query.Params) string {
	p.Page, p.PageSize = 1, 1
	return nsSummary + strings.TrimPrefix(ListKey(p), nsList)
}

// SummaryPrefix invalidates the dashboard/summary key family.
const SummaryPrefix = nsSummary

// MovesKey addresses one asset's move history.
func MovesKey(id uuid.UUID) string {
	return nsMoves + id.String()
}

// MovesPrefix invalidates every cached move history.
const MovesPrefix = nsMoves

// HistoryKey addresses one asset's audit trail read.
func HistoryKey(id uuid.UUID) string {
	return nsHistory + id.String()
}

// HistoryPrefix invalidates one asset's cached audit trail.
func HistoryPrefix(id uuid.UUID) string {
	return nsHistory + id.String()
}
