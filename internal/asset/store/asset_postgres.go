package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	"assettrack/internal/asset/query"
	"assettrack/pkg/platform/sentinel"
)

// PostgresAssets persists asset state in PostgreSQL. Tag uniqueness among
// non-deleted assets is enforced by a partial unique index, so concurrent
// creates race safely at the database rather than in application code.
type PostgresAssets struct {
	db *sql.DB
}

// NewPostgresAssets constructs a PostgreSQL-backed asset store.
func NewPostgresAssets(db *sql.DB) *PostgresAssets {
	return &PostgresAssets{db: db}
}

const assetColumns = `id, tag, name, serial, model, category, manufacturer,
	location, department, supplier, notes, cost, status,
	purchase_date, warranty_until, is_deleted, deleted_at, created_at, updated_at`

func (s *PostgresAssets) Insert(ctx context.Context, asset *models.Asset) error {
	_, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		asset.ID, asset.Tag, asset.Name, asset.Serial, asset.Model,
		asset.Category, asset.Manufacturer, asset.Location, asset.Department,
		asset.Supplier, asset.Notes, nullString(asset.Cost), string(asset.Status),
		nullTime(asset.PurchaseDate), nullTime(asset.WarrantyUntil),
		asset.IsDeleted, nullTime(asset.DeletedAt), asset.CreatedAt, asset.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (s *PostgresAssets) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.Asset, error) {
	q := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	if !includeDeleted {
		q += ` AND NOT is_deleted`
	}
	row := execer(ctx, s.db).QueryRowContext(ctx, q, id)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find asset: %w", err)
	}
	return asset, nil
}

func (s *PostgresAssets) TagInUse(ctx context.Context, tag string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := execer(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM assets
			WHERE lower(tag) = lower($1) AND id <> $2 AND NOT is_deleted
		)`, tag, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tag: %w", err)
	}
	return exists, nil
}

func (s *PostgresAssets) Update(ctx context.Context, asset *models.Asset) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `
		UPDATE assets SET
			tag = $2, name = $3, serial = $4, model = $5, category = $6,
			manufacturer = $7, location = $8, department = $9, supplier = $10,
			notes = $11, cost = $12, status = $13, purchase_date = $14,
			warranty_until = $15, is_deleted = $16, deleted_at = $17,
			updated_at = $18
		WHERE id = $1`,
		asset.ID, asset.Tag, asset.Name, asset.Serial, asset.Model,
		asset.Category, asset.Manufacturer, asset.Location, asset.Department,
		asset.Supplier, asset.Notes, nullString(asset.Cost), string(asset.Status),
		nullTime(asset.PurchaseDate), nullTime(asset.WarrantyUntil),
		asset.IsDeleted, nullTime(asset.DeletedAt), asset.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresAssets) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `
		UPDATE assets SET is_deleted = TRUE, deleted_at = $2, updated_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete asset: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresAssets) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresAssets) List(ctx context.Context, pred query.Predicate, limit, offset int) ([]*models.Asset, error) {
	where, args := pred.SQL(1)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`
		SELECT `+assetColumns+` FROM assets
		WHERE %s
		ORDER BY tag ASC, id ASC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := execer(ctx, s.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("list assets: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

func (s *PostgresAssets) Count(ctx context.Context, pred query.Predicate) (int, error) {
	where, args := pred.SQL(1)
	var count int
	err := execer(ctx, s.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM assets WHERE %s`, where), args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

func (s *PostgresAssets) Summarize(ctx context.Context, pred query.Predicate) (query.Summary, error) {
	where, args := pred.SQL(1)
	summary := query.Summary{ByStatus: make(map[string]int)}

	err := execer(ctx, s.db).QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(cost), 0)
		FROM assets WHERE %s`, where), args...,
	).Scan(&summary.TotalCount, &summary.TotalCost)
	if err != nil {
		return query.Summary{}, fmt.Errorf("summarize assets: %w", err)
	}

	rows, err := execer(ctx, s.db).QueryContext(ctx, fmt.Sprintf(`
		SELECT status, COUNT(*) FROM assets WHERE %s GROUP BY status`, where), args...)
	if err != nil {
		return query.Summary{}, fmt.Errorf("summarize assets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return query.Summary{}, fmt.Errorf("summarize assets: %w", err)
		}
		summary.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return query.Summary{}, fmt.Errorf("summarize assets: %w", err)
	}
	return summary, nil
}

func (s *PostgresAssets) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, `
		SELECT id FROM assets
		WHERE is_deleted AND deleted_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired assets: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list expired assets: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var (
		asset         models.Asset
		cost          sql.NullString
		status        string
		purchaseDate  sql.NullTime
		warrantyUntil sql.NullTime
		deletedAt     sql.NullTime
	)
	err := row.Scan(
		&asset.ID, &asset.Tag, &asset.Name, &asset.Serial, &asset.Model,
		&asset.Category, &asset.Manufacturer, &asset.Location, &asset.Department,
		&asset.Supplier, &asset.Notes, &cost, &status,
		&purchaseDate, &warrantyUntil, &asset.IsDeleted, &deletedAt,
		&asset.CreatedAt, &asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	asset.Cost = cost.String
	asset.Status = models.Status(status)
	asset.PurchaseDate = timePtr(purchaseDate)
	asset.WarrantyUntil = timePtr(warrantyUntil)
	asset.DeletedAt = timePtr(deletedAt)
	return &asset, nil
}
