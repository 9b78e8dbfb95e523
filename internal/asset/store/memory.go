package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	"assettrack/internal/asset/query"
	"assettrack/pkg/platform/sentinel"
)

// Memory is the in-memory implementation of every store plus the transaction
// runner. It keeps full rollback semantics: RunInTx snapshots all state before
// the callback and restores it when the callback fails, so unit tests exercise
// the same atomicity guarantees as PostgreSQL.
//
// Writes always replace entries with clones and reads always return clones, so
// a snapshot is never aliased by later mutation.
type Memory struct {
	mu sync.Mutex

	assets  map[uuid.UUID]*models.Asset
	history map[uuid.UUID][]*models.HistoryEvent
	custody map[uuid.UUID][]*models.Custody
	leases  map[uuid.UUID][]*models.Lease
	moves   map[uuid.UUID][]*models.MoveRecord
}

// NewMemory constructs an empty in-memory store set.
func NewMemory() *Memory {
	return &Memory{
		assets:  make(map[uuid.UUID]*models.Asset),
		history: make(map[uuid.UUID][]*models.HistoryEvent),
		custody: make(map[uuid.UUID][]*models.Custody),
		leases:  make(map[uuid.UUID][]*models.Lease),
		moves:   make(map[uuid.UUID][]*models.MoveRecord),
	}
}

// Stores returns the store bundle backed by this Memory.
func (m *Memory) Stores() Stores {
	return Stores{
		Assets:  (*memoryAssets)(m),
		History: (*memoryHistory)(m),
		Custody: (*memoryCustody)(m),
		Leases:  (*memoryLeases)(m),
		Moves:   (*memoryMoves)(m),
	}
}

type memTxKey struct{}

func inTx(ctx context.Context) bool {
	held, _ := ctx.Value(memTxKey{}).(bool)
	return held
}

// lock acquires the store mutex unless the context already runs inside
// RunInTx, which holds it for the whole transaction.
func (m *Memory) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// RunInTx implements tx.Runner with serializable, all-or-nothing semantics.
func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	assets  map[uuid.UUID]*models.Asset
	history map[uuid.UUID][]*models.HistoryEvent
	custody map[uuid.UUID][]*models.Custody
	leases  map[uuid.UUID][]*models.Lease
	moves   map[uuid.UUID][]*models.MoveRecord
}

func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{
		assets:  copyMap(m.assets),
		history: copySliceMap(m.history),
		custody: copySliceMap(m.custody),
		leases:  copySliceMap(m.leases),
		moves:   copySliceMap(m.moves),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.assets = s.assets
	m.history = s.history
	m.custody = s.custody
	m.leases = s.leases
	m.moves = s.moves
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copySliceMap[K comparable, V any](in map[K][]V) map[K][]V {
	out := make(map[K][]V, len(in))
	for k, v := range in {
		out[k] = append([]V(nil), v...)
	}
	return out
}

// ----------------------------------------------------------------------------
// AssetStore
// ----------------------------------------------------------------------------

type memoryAssets Memory

func (m *memoryAssets) Insert(ctx context.Context, asset *models.Asset) error {
	defer (*Memory)(m).lock(ctx)()

	if m.tagHeld(asset.Tag, asset.ID) {
		return sentinel.ErrConflict
	}
	m.assets[asset.ID] = asset.Clone()
	return nil
}

func (m *memoryAssets) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.Asset, error) {
	defer (*Memory)(m).lock(ctx)()

	asset, ok := m.assets[id]
	if !ok || (asset.IsDeleted && !includeDeleted) {
		return nil, sentinel.ErrNotFound
	}
	return asset.Clone(), nil
}

func (m *memoryAssets) TagInUse(ctx context.Context, tag string, excludeID uuid.UUID) (bool, error) {
	defer (*Memory)(m).lock(ctx)()
	return m.tagHeld(tag, excludeID), nil
}

func (m *memoryAssets) tagHeld(tag string, excludeID uuid.UUID) bool {
	for _, existing := range m.assets {
		if existing.ID != excludeID && !existing.IsDeleted && strings.EqualFold(existing.Tag, tag) {
			return true
		}
	}
	return false
}

func (m *memoryAssets) Update(ctx context.Context, asset *models.Asset) error {
	defer (*Memory)(m).lock(ctx)()

	if _, ok := m.assets[asset.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if m.tagHeld(asset.Tag, asset.ID) {
		return sentinel.ErrConflict
	}
	m.assets[asset.ID] = asset.Clone()
	return nil
}

func (m *memoryAssets) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer (*Memory)(m).lock(ctx)()

	asset, ok := m.assets[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := asset.Clone()
	updated.IsDeleted = true
	updated.DeletedAt = &at
	updated.UpdatedAt = at
	m.assets[id] = updated
	return nil
}

func (m *memoryAssets) Delete(ctx context.Context, id uuid.UUID) error {
	defer (*Memory)(m).lock(ctx)()

	if _, ok := m.assets[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.assets, id)
	return nil
}

func (m *memoryAssets) List(ctx context.Context, pred query.Predicate, limit, offset int) ([]*models.Asset, error) {
	defer (*Memory)(m).lock(ctx)()

	matched := m.matching(pred)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	out := make([]*models.Asset, len(matched))
	for i, a := range matched {
		out[i] = a.Clone()
	}
	return out, nil
}

func (m *memoryAssets) Count(ctx context.Context, pred query.Predicate) (int, error) {
	defer (*Memory)(m).lock(ctx)()
	return len(m.matching(pred)), nil
}

func (m *memoryAssets) Summarize(ctx context.Context, pred query.Predicate) (query.Summary, error) {
	defer (*Memory)(m).lock(ctx)()

	summary := query.Summary{ByStatus: make(map[string]int)}
	for _, asset := range m.matching(pred) {
		summary.TotalCount++
		summary.ByStatus[string(asset.Status)]++
		if asset.Cost != "" {
			if v, err := strconv.ParseFloat(asset.Cost, 64); err == nil {
				summary.TotalCost += v
			}
		}
	}
	return summary, nil
}

func (m *memoryAssets) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	defer (*Memory)(m).lock(ctx)()

	var ids []uuid.UUID
	for id, asset := range m.assets {
		if asset.IsDeleted && asset.DeletedAt != nil && asset.DeletedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// matching returns predicate matches in stable tag-then-ID order.
func (m *memoryAssets) matching(pred query.Predicate) []*models.Asset {
	var matched []*models.Asset
	for _, asset := range m.assets {
		if pred.Match(asset) {
			matched = append(matched, asset)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Tag != matched[j].Tag {
			return matched[i].Tag < matched[j].Tag
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return matched
}

// ----------------------------------------------------------------------------
// HistoryStore
// ----------------------------------------------------------------------------

type memoryHistory Memory

func (m *memoryHistory) Append(ctx context.Context, event *models.HistoryEvent) error {
	defer (*Memory)(m).lock(ctx)()

	copied := *event
	m.history[event.AssetID] = append(m.history[event.AssetID], &copied)
	return nil
}

func (m *memoryHistory) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.HistoryEvent, error) {
	defer (*Memory)(m).lock(ctx)()

	events := m.history[assetID]
	out := make([]*models.HistoryEvent, len(events))
	for i, e := range events {
		copied := *e
		out[i] = &copied
	}
	// Oldest first; insertion order breaks created-at ties so a multi-field
	// edit reads back in the order its events were written.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ----------------------------------------------------------------------------
// CustodyStore
// ----------------------------------------------------------------------------

type memoryCustody Memory

func (m *memoryCustody) Insert(ctx context.Context, custody *models.Custody) error {
	defer (*Memory)(m).lock(ctx)()

	copied := *custody
	m.custody[custody.AssetID] = append(m.custody[custody.AssetID], &copied)
	return nil
}

func (m *memoryCustody) FindActive(ctx context.Context, assetID uuid.UUID) (*models.Custody, error) {
	defer (*Memory)(m).lock(ctx)()

	var active *models.Custody
	for _, c := range m.custody[assetID] {
		if c.CheckedIn != nil {
			continue
		}
		if active == nil || c.CheckedOut.After(active.CheckedOut) {
			active = c
		}
	}
	if active == nil {
		return nil, sentinel.ErrNotFound
	}
	copied := *active
	return &copied, nil
}

func (m *memoryCustody) Update(ctx context.Context, custody *models.Custody) error {
	defer (*Memory)(m).lock(ctx)()

	rows := m.custody[custody.AssetID]
	for i, c := range rows {
		if c.ID == custody.ID {
			copied := *custody
			rows[i] = &copied
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (m *memoryCustody) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.Custody, error) {
	defer (*Memory)(m).lock(ctx)()

	rows := m.custody[assetID]
	out := make([]*models.Custody, len(rows))
	for i, c := range rows {
		copied := *c
		out[i] = &copied
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckedOut.After(out[j].CheckedOut)
	})
	return out, nil
}

func (m *memoryCustody) DeleteByAsset(ctx context.Context, assetID uuid.UUID) error {
	defer (*Memory)(m).lock(ctx)()
	delete(m.custody, assetID)
	return nil
}

// ----------------------------------------------------------------------------
// LeaseStore
// ----------------------------------------------------------------------------

type memoryLeases Memory

func (m *memoryLeases) Insert(ctx context.Context, lease *models.Lease) error {
	defer (*Memory)(m).lock(ctx)()

	copied := *lease
	m.leases[lease.AssetID] = append(m.leases[lease.AssetID], &copied)
	return nil
}

func (m *memoryLeases) FindActiveAt(ctx context.Context, assetID uuid.UUID, at time.Time) (*models.Lease, error) {
	defer (*Memory)(m).lock(ctx)()

	for _, l := range m.leases[assetID] {
		if l.ActiveAt(at) {
			copied := *l
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (m *memoryLeases) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.Lease, error) {
	defer (*Memory)(m).lock(ctx)()

	rows := m.leases[assetID]
	out := make([]*models.Lease, len(rows))
	for i, l := range rows {
		copied := *l
		out[i] = &copied
	}
	return out, nil
}

func (m *memoryLeases) DeleteByAsset(ctx context.Context, assetID uuid.UUID) error {
	defer (*Memory)(m).lock(ctx)()
	delete(m.leases, assetID)
	return nil
}

// ----------------------------------------------------------------------------
// MoveStore
// ----------------------------------------------------------------------------

type memoryMoves Memory

func (m *memoryMoves) Insert(ctx context.Context, record *models.MoveRecord) error {
	defer (*Memory)(m).lock(ctx)()

	copied := *record
	m.moves[record.AssetID] = append(m.moves[record.AssetID], &copied)
	return nil
}

func (m *memoryMoves) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.MoveRecord, error) {
	defer (*Memory)(m).lock(ctx)()

	rows := m.moves[assetID]
	out := make([]*models.MoveRecord, len(rows))
	for i, r := range rows {
		copied := *r
		out[i] = &copied
	}
	// Newest first by business date.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].MoveDate.Equal(out[j].MoveDate) {
			return out[i].MoveDate.After(out[j].MoveDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
