package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	"assettrack/pkg/requestcontext"
)

// writeHistory appends audit events for a mutation. It must run inside the
// caller's transaction so the trail commits or rolls back with the change.
//
// A nil changes slice records a single lifecycle event carrying only the
// kind. An empty non-nil slice records nothing: the mutation was a no-op.
// Field events preserve the order of the changes slice.
func (s *Service) writeHistory(ctx context.Context, assetID uuid.UUID, kind models.EventKind, changes []models.FieldChange, eventDate time.Time) ([]*models.HistoryEvent, error) {
	now := requestcontext.Now(ctx)
	if eventDate.IsZero() {
		eventDate = now
	}
	by := actor(ctx)

	if changes == nil {
		ev := &models.HistoryEvent{
			ID:        uuid.New(),
			AssetID:   assetID,
			Kind:      kind,
			Actor:     by,
			EventDate: eventDate,
			CreatedAt: now,
		}
		if err := s.stores.History.Append(ctx, ev); err != nil {
			return nil, fmt.Errorf("append %s event: %w", kind, err)
		}
		s.metrics.ObserveHistoryEvents(1)
		return []*models.HistoryEvent{ev}, nil
	}

	events := make([]*models.HistoryEvent, 0, len(changes))
	for _, ch := range changes {
		ev := &models.HistoryEvent{
			ID:         uuid.New(),
			AssetID:    assetID,
			Kind:       kind,
			Field:      ch.Field,
			ChangeFrom: ch.ChangeFrom,
			ChangeTo:   ch.ChangeTo,
			Actor:      by,
			EventDate:  eventDate,
			CreatedAt:  now,
		}
		if err := s.stores.History.Append(ctx, ev); err != nil {
			return nil, fmt.Errorf("append %s event for %s: %w", kind, ch.Field, err)
		}
		events = append(events, ev)
	}
	s.metrics.ObserveHistoryEvents(len(events))
	return events, nil
}
