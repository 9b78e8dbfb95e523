package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
)

// PostgresHistory persists the append-only audit trail. Rows are never
// updated or deleted through this store.
type PostgresHistory struct {
	db *sql.DB
}

// NewPostgresHistory constructs a PostgreSQL-backed history store.
func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

func (s *PostgresHistory) Append(ctx context.Context, event *models.HistoryEvent) error {
	_, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO history_events
			(id, asset_id, kind, field, change_from, change_to, actor, event_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.AssetID, string(event.Kind),
		nullString(event.Field), nullString(event.ChangeFrom), nullString(event.ChangeTo),
		event.Actor, event.EventDate, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append history event: %w", err)
	}
	return nil
}

func (s *PostgresHistory) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.HistoryEvent, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, `
		SELECT id, asset_id, kind, field, change_from, change_to, actor, event_date, created_at
		FROM history_events
		WHERE asset_id = $1
		ORDER BY seq ASC`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var events []*models.HistoryEvent
	for rows.Next() {
		var (
			event      models.HistoryEvent
			kind       string
			field      sql.NullString
			changeFrom sql.NullString
			changeTo   sql.NullString
		)
		err := rows.Scan(&event.ID, &event.AssetID, &kind, &field, &changeFrom,
			&changeTo, &event.Actor, &event.EventDate, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("list history: %w", err)
		}
		event.Kind = models.EventKind(kind)
		event.Field = field.String
		event.ChangeFrom = changeFrom.String
		event.ChangeTo = changeTo.String
		events = append(events, &event)
	}
	return events, rows.Err()
}
