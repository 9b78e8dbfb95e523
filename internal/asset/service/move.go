package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/cache"
	"assettrack/internal/asset/models"
	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/platform/sentinel"
	"assettrack/pkg/requestcontext"
)

// Move executes one move operation as a single transaction: lease
// precondition, kind-specific side effects, staged field changes with their
// history events, and the immutable move record. Validation failures are
// reported before the transaction opens; the lease check runs inside it so
// the answer cannot go stale between check and commit.
func (s *Service) Move(ctx context.Context, req models.MoveRequest) (*models.MoveRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	moveDate := models.DateOf(req.MoveDate).Time

	var record *models.MoveRecord
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		asset, err := s.stores.Assets.FindByID(ctx, req.AssetID, false)
		if err != nil {
			return wrapStoreErr(err, "asset not found", "")
		}

		if err := s.checkLease(ctx, req.AssetID, moveDate); err != nil {
			return err
		}

		record = &models.MoveRecord{
			ID:        uuid.New(),
			AssetID:   req.AssetID,
			Kind:      req.Target.Kind(),
			MoveDate:  moveDate,
			Reason:    req.Reason,
			Notes:     req.Notes,
			Actor:     actor(ctx),
			CreatedAt: requestcontext.Now(ctx),
		}

		patch, err := s.stageMove(ctx, asset, req.Target, record)
		if err != nil {
			return err
		}
		if !patch.IsZero() {
			if _, _, err := s.applyPatch(ctx, asset, patch, moveDate); err != nil {
				return err
			}
		}

		if err := s.stores.Moves.Insert(ctx, record); err != nil {
			return fmt.Errorf("insert move record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMove(string(record.Kind))
	// The move record itself changed even when every field was already at
	// its target value, so the moves cache is always invalidated.
	s.invalidateAsset(ctx, req.AssetID, cache.MovesPrefix)
	s.logger.InfoContext(ctx, "move recorded",
		"asset_id", req.AssetID, "kind", record.Kind, "actor", record.Actor)
	return record, nil
}

// checkLease rejects the move when an external lease is active as of the move
// date. The error names the lessee so the caller can resolve the conflict.
func (s *Service) checkLease(ctx context.Context, assetID uuid.UUID, at time.Time) error {
	lease, err := s.stores.Leases.FindActiveAt(ctx, assetID, at)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check lease: %w", err)
	}
	if lease.LeaseEnd != nil {
		return dErrors.Newf(dErrors.CodeConflict,
			"asset is leased to %s until %s", lease.Lessee, lease.LeaseEnd.Format(models.DateLayout))
	}
	return dErrors.Newf(dErrors.CodeConflict, "asset is leased to %s", lease.Lessee)
}

// stageMove applies the kind-specific transition: it fills the record's
// target column, performs custody side effects, and returns the field patch
// to stage through the normal update path. Unchanged fields yield an empty
// patch and therefore no history events.
func (s *Service) stageMove(ctx context.Context, asset *models.Asset, target models.MoveTarget, record *models.MoveRecord) (models.AssetPatch, error) {
	var patch models.AssetPatch
	switch t := target.(type) {
	case models.LocationTarget:
		record.TargetLocation = t.Location
		patch.Location = models.Set(t.Location)

	case models.DepartmentTarget:
		record.TargetDepartment = t.Department
		patch.Department = models.Set(t.Department)

	case models.EmployeeTarget:
		record.TargetEmployeeID = t.EmployeeID
		opened, err := s.assignCustody(ctx, asset.ID, t.EmployeeID, record.MoveDate)
		if err != nil {
			return patch, err
		}
		// Status transitions only when a custody row is opened; reassigning
		// an already-open row leaves whatever status the asset carries.
		if opened {
			patch.Status = models.Set(models.StatusCheckedOut)
		}

	default:
		return patch, dErrors.Newf(dErrors.CodeValidation, "unsupported move kind %q", target.Kind())
	}
	return patch, nil
}

// assignCustody reassigns the open custody row to the employee, or opens a
// new one when none is active. A move never leaves two open custody rows.
// The returned flag reports whether a row was opened.
func (s *Service) assignCustody(ctx context.Context, assetID uuid.UUID, employeeID string, moveDate time.Time) (bool, error) {
	now := requestcontext.Now(ctx)
	current, err := s.stores.Custody.FindActive(ctx, assetID)
	switch {
	case err == nil:
		current.EmployeeID = employeeID
		current.CheckedOut = moveDate
		current.UpdatedAt = now
		if err := s.stores.Custody.Update(ctx, current); err != nil {
			return false, fmt.Errorf("reassign custody: %w", err)
		}
		return false, nil
	case errors.Is(err, sentinel.ErrNotFound):
		custody := &models.Custody{
			ID:         uuid.New(),
			AssetID:    assetID,
			EmployeeID: employeeID,
			CheckedOut: moveDate,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.stores.Custody.Insert(ctx, custody); err != nil {
			return false, fmt.Errorf("open custody: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("find active custody: %w", err)
	}
}

// ListMoves returns the asset's move history, newest first, from cache when
// fresh. Moves remain readable after a soft delete.
func (s *Service) ListMoves(ctx context.Context, assetID uuid.UUID) ([]*models.MoveRecord, error) {
	return cache.Fetch(ctx, s.cache, cache.MovesKey(assetID), s.detailTTL, func(ctx context.Context) ([]*models.MoveRecord, error) {
		records, err := s.stores.Moves.ListByAsset(ctx, assetID)
		if err != nil {
			return nil, fmt.Errorf("list moves: %w", err)
		}
		if len(records) == 0 {
			if _, err := s.stores.Assets.FindByID(ctx, assetID, true); err != nil {
				return nil, wrapStoreErr(err, "asset not found", "")
			}
		}
		return records, nil
	})
}
