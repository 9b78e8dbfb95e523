package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	"assettrack/pkg/platform/sentinel"
)

// PostgresLeases persists external lease assignments.
type PostgresLeases struct {
	db *sql.DB
}

// NewPostgresLeases constructs a PostgreSQL-backed lease store.
func NewPostgresLeases(db *sql.DB) *PostgresLeases {
	return &PostgresLeases{db: db}
}

func (s *PostgresLeases) Insert(ctx context.Context, lease *models.Lease) error {
	_, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO leases (id, asset_id, lessee, lease_start, lease_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		lease.ID, lease.AssetID, lease.Lessee, lease.LeaseStart,
		nullTime(lease.LeaseEnd), lease.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lease: %w", err)
	}
	return nil
}

// FindActiveAt runs inside the move transaction so a lease inserted by a
// concurrent request cannot slip between the check and the write.
func (s *PostgresLeases) FindActiveAt(ctx context.Context, assetID uuid.UUID, at time.Time) (*models.Lease, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, asset_id, lessee, lease_start, lease_end, created_at
		FROM leases
		WHERE asset_id = $1 AND (lease_end IS NULL OR lease_end >= $2)
		ORDER BY lease_start DESC
		LIMIT 1`, assetID, at)

	lease, err := scanLease(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active lease: %w", err)
	}
	return lease, nil
}

func (s *PostgresLeases) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.Lease, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, `
		SELECT id, asset_id, lessee, lease_start, lease_end, created_at
		FROM leases
		WHERE asset_id = $1
		ORDER BY lease_start DESC`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	defer rows.Close()

	var leases []*models.Lease
	for rows.Next() {
		lease, err := scanLease(rows)
		if err != nil {
			return nil, fmt.Errorf("list leases: %w", err)
		}
		leases = append(leases, lease)
	}
	return leases, rows.Err()
}

func (s *PostgresLeases) DeleteByAsset(ctx context.Context, assetID uuid.UUID) error {
	if _, err := execer(ctx, s.db).ExecContext(ctx,
		`DELETE FROM leases WHERE asset_id = $1`, assetID); err != nil {
		return fmt.Errorf("delete leases: %w", err)
	}
	return nil
}

func scanLease(row rowScanner) (*models.Lease, error) {
	var (
		lease    models.Lease
		leaseEnd sql.NullTime
	)
	err := row.Scan(&lease.ID, &lease.AssetID, &lease.Lessee,
		&lease.LeaseStart, &leaseEnd, &lease.CreatedAt)
	if err != nil {
		return nil, err
	}
	lease.LeaseEnd = timePtr(leaseEnd)
	return &lease, nil
}
