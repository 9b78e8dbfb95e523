// Package store persists the asset domain. Stores are interface-driven so the
// service layer can run against the in-memory implementation in unit tests and
// PostgreSQL in production without rewiring business code. Stores return
// sentinel errors; services translate them into coded domain errors.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	"assettrack/internal/asset/query"
)

// AssetStore owns current asset state. Mutating methods participate in the
// caller's transaction when one is carried in context.
type AssetStore interface {
	// Insert fails with sentinel.ErrConflict when the tag is already used
	// by a non-deleted asset.
	Insert(ctx context.Context, asset *models.Asset) error
	// FindByID returns sentinel.ErrNotFound for unknown IDs and, unless
	// includeDeleted is set, for soft-deleted assets.
	FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.Asset, error)
	// TagInUse reports whether tag is held by any non-deleted asset other
	// than excludeID.
	TagInUse(ctx context.Context, tag string, excludeID uuid.UUID) (bool, error)
	// Update rewrites the full row. sentinel.ErrNotFound when absent,
	// sentinel.ErrConflict on a tag collision.
	Update(ctx context.Context, asset *models.Asset) error
	// MarkDeleted sets the soft-delete flag and timestamp.
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error
	// Delete physically removes the row.
	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, pred query.Predicate, limit, offset int) ([]*models.Asset, error)
	Count(ctx context.Context, pred query.Predicate) (int, error)
	Summarize(ctx context.Context, pred query.Predicate) (query.Summary, error)
	// ListDeletedBefore returns IDs of soft-deleted assets whose deletion
	// timestamp is older than cutoff, for the retention purge.
	ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// HistoryStore is append-only. Events are never updated or deleted here;
// administrative purge is out of band.
type HistoryStore interface {
	Append(ctx context.Context, event *models.HistoryEvent) error
	// ListByAsset returns events oldest first, preserving append order
	// within a single mutation's batch.
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.HistoryEvent, error)
}

// CustodyStore manages checkout assignments.
type CustodyStore interface {
	Insert(ctx context.Context, custody *models.Custody) error
	// FindActive returns the most recent custody row lacking a check-in,
	// or sentinel.ErrNotFound.
	FindActive(ctx context.Context, assetID uuid.UUID) (*models.Custody, error)
	Update(ctx context.Context, custody *models.Custody) error
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.Custody, error)
	DeleteByAsset(ctx context.Context, assetID uuid.UUID) error
}

// LeaseStore manages external lease assignments.
type LeaseStore interface {
	Insert(ctx context.Context, lease *models.Lease) error
	// FindActiveAt returns a lease active as of the given instant (null end
	// date, or end date at or after it), or sentinel.ErrNotFound.
	FindActiveAt(ctx context.Context, assetID uuid.UUID, at time.Time) (*models.Lease, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.Lease, error)
	DeleteByAsset(ctx context.Context, assetID uuid.UUID) error
}

// MoveStore persists immutable move records.
type MoveStore interface {
	Insert(ctx context.Context, record *models.MoveRecord) error
	// ListByAsset returns records newest first by business move date.
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.MoveRecord, error)
}

// Stores bundles every store of the domain for wiring convenience.
type Stores struct {
	Assets  AssetStore
	History HistoryStore
	Custody CustodyStore
	Leases  LeaseStore
	Moves   MoveStore
}
