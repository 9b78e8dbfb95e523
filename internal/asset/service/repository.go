package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/cache"
	"assettrack/internal/asset/diff"
	"assettrack/internal/asset/models"
	"assettrack/internal/asset/query"
	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/requestcontext"
)

// Create registers a new asset and records its "added" lifecycle event in the
// same transaction. The tag must be unique among non-deleted assets.
func (s *Service) Create(ctx context.Context, patch models.AssetPatch) (*models.Asset, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	asset, err := models.NewAsset(uuid.New(), patch, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		inUse, err := s.stores.Assets.TagInUse(ctx, asset.Tag, uuid.Nil)
		if err != nil {
			return fmt.Errorf("check tag: %w", err)
		}
		if inUse {
			return dErrors.Newf(dErrors.CodeConflict, "tag %q is already in use", asset.Tag)
		}
		if err := s.stores.Assets.Insert(ctx, asset); err != nil {
			return wrapStoreErr(err, "asset not found",
				fmt.Sprintf("tag %q is already in use", asset.Tag))
		}
		_, err = s.writeHistory(ctx, asset.ID, models.EventAdded, nil, time.Time{})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMutation("create")
	s.invalidateAsset(ctx, asset.ID)
	s.logger.InfoContext(ctx, "asset created",
		"asset_id", asset.ID, "tag", asset.Tag, "actor", actor(ctx))
	return asset, nil
}

// Update applies a sparse patch. Only fields that actually change are written
// and audited; a patch that changes nothing leaves the row untouched,
// including its updated-at timestamp, and returns zero events.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch models.AssetPatch) (*models.Asset, []*models.HistoryEvent, error) {
	if err := patch.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		after  *models.Asset
		events []*models.HistoryEvent
	)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		before, err := s.stores.Assets.FindByID(ctx, id, false)
		if err != nil {
			return wrapStoreErr(err, "asset not found", "")
		}
		after, events, err = s.applyPatch(ctx, before, patch, time.Time{})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if len(events) > 0 {
		s.metrics.ObserveMutation("update")
		s.invalidateAsset(ctx, id)
	}
	return after, events, nil
}

// applyPatch diffs, persists and audits one staged change. It must run inside
// the caller's transaction; Move reuses it with the move's business date as
// the event date. Returns the (possibly unchanged) asset and the events
// written, which are empty when the patch is a no-op.
func (s *Service) applyPatch(ctx context.Context, before *models.Asset, patch models.AssetPatch, eventDate time.Time) (*models.Asset, []*models.HistoryEvent, error) {
	changes := diff.Changes(before, patch)
	if len(changes) == 0 {
		return before, nil, nil
	}

	if patch.Tag.Valid && patch.Tag.Value != before.Tag {
		inUse, err := s.stores.Assets.TagInUse(ctx, patch.Tag.Value, before.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("check tag: %w", err)
		}
		if inUse {
			return nil, nil, dErrors.Newf(dErrors.CodeConflict, "tag %q is already in use", patch.Tag.Value)
		}
	}

	after := patch.Apply(before)
	after.UpdatedAt = requestcontext.Now(ctx)
	if err := s.stores.Assets.Update(ctx, after); err != nil {
		return nil, nil, wrapStoreErr(err, "asset not found",
			fmt.Sprintf("tag %q is already in use", after.Tag))
	}

	events, err := s.writeHistory(ctx, before.ID, models.EventEdited, changes, eventDate)
	if err != nil {
		return nil, nil, err
	}
	return after, events, nil
}

// SoftDelete flags the asset deleted and records the lifecycle event. The row
// survives for the retention window; history and moves are never touched.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.stores.Assets.FindByID(ctx, id, false); err != nil {
			return wrapStoreErr(err, "asset not found", "")
		}
		if _, err := s.writeHistory(ctx, id, models.EventDeleted, nil, time.Time{}); err != nil {
			return err
		}
		if err := s.stores.Assets.MarkDeleted(ctx, id, requestcontext.Now(ctx)); err != nil {
			return wrapStoreErr(err, "asset not found", "")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveMutation("soft_delete")
	s.invalidateAsset(ctx, id)
	s.logger.InfoContext(ctx, "asset soft-deleted", "asset_id", id, "actor", actor(ctx))
	return nil
}

// HardDelete removes the asset row and its custody and lease rows. The audit
// trail and move records are retained: the history of an asset outlives the
// asset. The lifecycle event is written before removal, in the same
// transaction.
func (s *Service) HardDelete(ctx context.Context, id uuid.UUID) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.stores.Assets.FindByID(ctx, id, true); err != nil {
			return wrapStoreErr(err, "asset not found", "")
		}
		if _, err := s.writeHistory(ctx, id, models.EventDeleted, nil, time.Time{}); err != nil {
			return err
		}
		return s.removeAssetRows(ctx, id)
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveMutation("hard_delete")
	s.invalidateAsset(ctx, id, cache.MovesPrefix)
	s.logger.InfoContext(ctx, "asset hard-deleted", "asset_id", id, "actor", actor(ctx))
	return nil
}

func (s *Service) removeAssetRows(ctx context.Context, id uuid.UUID) error {
	if err := s.stores.Custody.DeleteByAsset(ctx, id); err != nil {
		return fmt.Errorf("delete custody rows: %w", err)
	}
	if err := s.stores.Leases.DeleteByAsset(ctx, id); err != nil {
		return fmt.Errorf("delete lease rows: %w", err)
	}
	if err := s.stores.Assets.Delete(ctx, id); err != nil {
		return wrapStoreErr(err, "asset not found", "")
	}
	return nil
}

// PurgeExpired physically removes soft-deleted assets whose retention window
// has elapsed. The soft delete already recorded the lifecycle event, so the
// purge writes no additional history. Returns the number of assets removed.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-retention)
	ids, err := s.stores.Assets.ListDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired assets: %w", err)
	}

	purged := 0
	for _, id := range ids {
		err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
			return s.removeAssetRows(ctx, id)
		})
		if err != nil {
			// Keep going; the next tick retries whatever failed.
			s.logger.ErrorContext(ctx, "purge failed", "asset_id", id, "error", err)
			continue
		}
		s.invalidateAsset(ctx, id, cache.MovesPrefix)
		purged++
	}
	if purged > 0 {
		s.metrics.ObserveMutation("purge")
		s.logger.InfoContext(ctx, "purged expired assets", "count", purged)
	}
	return purged, nil
}

// Get returns one asset, served from the detail cache when possible.
// Soft-deleted assets are only visible when includeDeleted is set, and those
// reads bypass the cache.
func (s *Service) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.Asset, error) {
	load := func(ctx context.Context) (*models.Asset, error) {
		asset, err := s.stores.Assets.FindByID(ctx, id, includeDeleted)
		return asset, wrapStoreErr(err, "asset not found", "")
	}
	if includeDeleted {
		return load(ctx)
	}
	return cache.Fetch(ctx, s.cache, cache.DetailKey(id), s.detailTTL, load)
}

// ListResult is one page of assets with its aggregate.
type ListResult struct {
	Items      []*models.Asset `json:"items"`
	TotalCount int             `json:"total_count"`
	Summary    query.Summary   `json:"summary"`
}

// List runs a filtered, paginated listing and its matching aggregate in one
// pass, cached as a unit under the encoded parameters.
func (s *Service) List(ctx context.Context, params query.Params) (ListResult, error) {
	params = params.Normalize()
	return cache.Fetch(ctx, s.cache, cache.ListKey(params), s.listTTL, func(ctx context.Context) (ListResult, error) {
		pred := query.Build(params)
		items, err := s.stores.Assets.List(ctx, pred, params.PageSize, params.Offset())
		if err != nil {
			return ListResult{}, fmt.Errorf("list assets: %w", err)
		}
		summary, err := s.stores.Assets.Summarize(ctx, pred)
		if err != nil {
			return ListResult{}, fmt.Errorf("summarize assets: %w", err)
		}
		return ListResult{Items: items, TotalCount: summary.TotalCount, Summary: summary}, nil
	})
}

// Summary computes the aggregate alone, cached on a slower clock than detail
// reads since dashboards tolerate more staleness.
func (s *Service) Summary(ctx context.Context, params query.Params) (query.Summary, error) {
	params = params.Normalize()
	return cache.Fetch(ctx, s.cache, cache.SummaryKey(params), s.summaryTTL, func(ctx context.Context) (query.Summary, error) {
		return s.stores.Assets.Summarize(ctx, query.Build(params))
	})
}

// History returns the asset's full audit trail, oldest first. The trail is
// readable for soft-deleted assets; only a completely unknown ID is an error.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*models.HistoryEvent, error) {
	return cache.Fetch(ctx, s.cache, cache.HistoryKey(id), s.detailTTL, func(ctx context.Context) ([]*models.HistoryEvent, error) {
		events, err := s.stores.History.ListByAsset(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list history: %w", err)
		}
		if len(events) == 0 {
			if _, err := s.stores.Assets.FindByID(ctx, id, true); err != nil {
				return nil, wrapStoreErr(err, "asset not found", "")
			}
		}
		return events, nil
	})
}
