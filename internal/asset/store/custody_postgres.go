package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	"assettrack/pkg/platform/sentinel"
)

// PostgresCustody persists checkout assignments.
type PostgresCustody struct {
	db *sql.DB
}

// NewPostgresCustody constructs a PostgreSQL-backed custody store.
func NewPostgresCustody(db *sql.DB) *PostgresCustody {
	return &PostgresCustody{db: db}
}

func (s *PostgresCustody) Insert(ctx context.Context, custody *models.Custody) error {
	_, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO custody
			(id, asset_id, employee_id, checked_out_at, checked_in_at, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		custody.ID, custody.AssetID, custody.EmployeeID, custody.CheckedOut,
		nullTime(custody.CheckedIn), custody.Note, custody.CreatedAt, custody.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert custody: %w", err)
	}
	return nil
}

// FindActive selects the newest open custody row FOR UPDATE so an
// employee-assignment move and a concurrent check-in serialize on it.
func (s *PostgresCustody) FindActive(ctx context.Context, assetID uuid.UUID) (*models.Custody, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, asset_id, employee_id, checked_out_at, checked_in_at, note, created_at, updated_at
		FROM custody
		WHERE asset_id = $1 AND checked_in_at IS NULL
		ORDER BY checked_out_at DESC, created_at DESC
		LIMIT 1
		FOR UPDATE`, assetID)

	custody, err := scanCustody(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active custody: %w", err)
	}
	return custody, nil
}

func (s *PostgresCustody) Update(ctx context.Context, custody *models.Custody) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `
		UPDATE custody SET
			employee_id = $2, checked_out_at = $3, checked_in_at = $4,
			note = $5, updated_at = $6
		WHERE id = $1`,
		custody.ID, custody.EmployeeID, custody.CheckedOut,
		nullTime(custody.CheckedIn), custody.Note, custody.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update custody: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update custody: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresCustody) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.Custody, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, `
		SELECT id, asset_id, employee_id, checked_out_at, checked_in_at, note, created_at, updated_at
		FROM custody
		WHERE asset_id = $1
		ORDER BY checked_out_at DESC, created_at DESC`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list custody: %w", err)
	}
	defer rows.Close()

	var records []*models.Custody
	for rows.Next() {
		custody, err := scanCustody(rows)
		if err != nil {
			return nil, fmt.Errorf("list custody: %w", err)
		}
		records = append(records, custody)
	}
	return records, rows.Err()
}

func (s *PostgresCustody) DeleteByAsset(ctx context.Context, assetID uuid.UUID) error {
	if _, err := execer(ctx, s.db).ExecContext(ctx,
		`DELETE FROM custody WHERE asset_id = $1`, assetID); err != nil {
		return fmt.Errorf("delete custody: %w", err)
	}
	return nil
}

func scanCustody(row rowScanner) (*models.Custody, error) {
	var (
		custody   models.Custody
		checkedIn sql.NullTime
	)
	err := row.Scan(&custody.ID, &custody.AssetID, &custody.EmployeeID,
		&custody.CheckedOut, &checkedIn, &custody.Note,
		&custody.CreatedAt, &custody.UpdatedAt)
	if err != nil {
		return nil, err
	}
	custody.CheckedIn = timePtr(checkedIn)
	return &custody, nil
}
