package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/platform/sentinel"
	"assettrack/pkg/requestcontext"
)

// Checkout opens a custody row for the employee and flips the asset to
// checked_out. At most one custody row per asset may be open; a second
// checkout is a conflict naming the current holder.
func (s *Service) Checkout(ctx context.Context, assetID uuid.UUID, employeeID string, date time.Time, note string) (*models.Custody, error) {
	if employeeID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "employee_id is required")
	}
	if date.IsZero() {
		date = requestcontext.Now(ctx)
	}
	date = models.DateOf(date).Time

	var custody *models.Custody
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		asset, err := s.stores.Assets.FindByID(ctx, assetID, false)
		if err != nil {
			return wrapStoreErr(err, "asset not found", "")
		}

		current, err := s.stores.Custody.FindActive(ctx, assetID)
		switch {
		case err == nil:
			return dErrors.Newf(dErrors.CodeConflict,
				"asset is already checked out to %s", current.EmployeeID)
		case !errors.Is(err, sentinel.ErrNotFound):
			return fmt.Errorf("find active custody: %w", err)
		}

		now := requestcontext.Now(ctx)
		custody = &models.Custody{
			ID:         uuid.New(),
			AssetID:    assetID,
			EmployeeID: employeeID,
			CheckedOut: date,
			Note:       note,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.stores.Custody.Insert(ctx, custody); err != nil {
			return fmt.Errorf("open custody: %w", err)
		}

		var patch models.AssetPatch
		patch.Status = models.Set(models.StatusCheckedOut)
		if _, _, err := s.applyPatch(ctx, asset, patch, date); err != nil {
			return err
		}
		_, err = s.writeHistory(ctx, assetID, models.EventCheckout, nil, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMutation("checkout")
	s.invalidateAsset(ctx, assetID)
	s.logger.InfoContext(ctx, "asset checked out",
		"asset_id", assetID, "employee_id", employeeID, "actor", actor(ctx))
	return custody, nil
}

// CheckIn closes the open custody row and returns the asset to available.
// A check-in with no open custody is a conflict, not a silent no-op.
func (s *Service) CheckIn(ctx context.Context, assetID uuid.UUID, date time.Time, note string) (*models.Custody, error) {
	if date.IsZero() {
		date = requestcontext.Now(ctx)
	}
	date = models.DateOf(date).Time

	var custody *models.Custody
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		asset, err := s.stores.Assets.FindByID(ctx, assetID, false)
		if err != nil {
			return wrapStoreErr(err, "asset not found", "")
		}

		custody, err = s.stores.Custody.FindActive(ctx, assetID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeConflict, "asset is not checked out")
			}
			return fmt.Errorf("find active custody: %w", err)
		}

		custody.CheckedIn = &date
		if note != "" {
			custody.Note = note
		}
		custody.UpdatedAt = requestcontext.Now(ctx)
		if err := s.stores.Custody.Update(ctx, custody); err != nil {
			return fmt.Errorf("close custody: %w", err)
		}

		var patch models.AssetPatch
		patch.Status = models.Set(models.StatusAvailable)
		if _, _, err := s.applyPatch(ctx, asset, patch, date); err != nil {
			return err
		}
		_, err = s.writeHistory(ctx, assetID, models.EventCheckin, nil, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMutation("checkin")
	s.invalidateAsset(ctx, assetID)
	s.logger.InfoContext(ctx, "asset checked in", "asset_id", assetID, "actor", actor(ctx))
	return custody, nil
}

// ListCustody returns the asset's custody history, most recent first.
func (s *Service) ListCustody(ctx context.Context, assetID uuid.UUID) ([]*models.Custody, error) {
	if _, err := s.stores.Assets.FindByID(ctx, assetID, true); err != nil {
		return nil, wrapStoreErr(err, "asset not found", "")
	}
	rows, err := s.stores.Custody.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("list custody: %w", err)
	}
	return rows, nil
}

// CreateLease records an external lease. An open-ended or future-ending lease
// blocks moves for its duration.
func (s *Service) CreateLease(ctx context.Context, assetID uuid.UUID, lessee string, start time.Time, end *time.Time) (*models.Lease, error) {
	if lessee == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "lessee is required")
	}
	if start.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "lease start is required")
	}
	start = models.DateOf(start).Time
	if end != nil {
		e := models.DateOf(*end).Time
		if e.Before(start) {
			return nil, dErrors.New(dErrors.CodeValidation, "lease end precedes lease start")
		}
		end = &e
	}

	lease := &models.Lease{
		ID:         uuid.New(),
		AssetID:    assetID,
		Lessee:     lessee,
		LeaseStart: start,
		LeaseEnd:   end,
		CreatedAt:  requestcontext.Now(ctx),
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.stores.Assets.FindByID(ctx, assetID, false); err != nil {
			return wrapStoreErr(err, "asset not found", "")
		}
		return s.stores.Leases.Insert(ctx, lease)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "lease recorded",
		"asset_id", assetID, "lessee", lessee, "actor", actor(ctx))
	return lease, nil
}

// ListLeases returns the asset's lease history.
func (s *Service) ListLeases(ctx context.Context, assetID uuid.UUID) ([]*models.Lease, error) {
	if _, err := s.stores.Assets.FindByID(ctx, assetID, true); err != nil {
		return nil, wrapStoreErr(err, "asset not found", "")
	}
	rows, err := s.stores.Leases.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	return rows, nil
}
