package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
)

// PostgresMoves persists immutable move records.
type PostgresMoves struct {
	db *sql.DB
}

// NewPostgresMoves constructs a PostgreSQL-backed move store.
func NewPostgresMoves(db *sql.DB) *PostgresMoves {
	return &PostgresMoves{db: db}
}

func (s *PostgresMoves) Insert(ctx context.Context, record *models.MoveRecord) error {
	_, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO move_records
			(id, asset_id, kind, move_date, target_employee_id, target_location,
			 target_department, reason, notes, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.AssetID, string(record.Kind), record.MoveDate,
		nullString(record.TargetEmployeeID), nullString(record.TargetLocation),
		nullString(record.TargetDepartment), record.Reason, record.Notes,
		record.Actor, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert move record: %w", err)
	}
	return nil
}

func (s *PostgresMoves) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.MoveRecord, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, `
		SELECT id, asset_id, kind, move_date, target_employee_id, target_location,
		       target_department, reason, notes, actor, created_at
		FROM move_records
		WHERE asset_id = $1
		ORDER BY move_date DESC, created_at DESC, id DESC`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list move records: %w", err)
	}
	defer rows.Close()

	var records []*models.MoveRecord
	for rows.Next() {
		var (
			record     models.MoveRecord
			kind       string
			employee   sql.NullString
			location   sql.NullString
			department sql.NullString
		)
		err := rows.Scan(&record.ID, &record.AssetID, &kind, &record.MoveDate,
			&employee, &location, &department, &record.Reason, &record.Notes,
			&record.Actor, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("list move records: %w", err)
		}
		record.Kind = models.MoveKind(kind)
		record.TargetEmployeeID = employee.String
		record.TargetLocation = location.String
		record.TargetDepartment = department.String
		records = append(records, &record)
	}
	return records, rows.Err()
}
