package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a history event.
type EventKind string

const (
	EventAdded    EventKind = "added"
	EventEdited   EventKind = "edited"
	EventDeleted  EventKind = "deleted"
	EventCheckout EventKind = "checkout"
	EventCheckin  EventKind = "checkin"
)

// FieldChange is one before/after pair produced by the diff engine. Values
// are canonical string representations; empty string stands for null/absent.
type FieldChange struct {
	Field      string `json:"field"`
	ChangeFrom string `json:"change_from"`
	ChangeTo   string `json:"change_to"`
}

// HistoryEvent is one immutable audit record: a single field change, or a
// lifecycle transition when Field is empty. Never mutated after insert.
type HistoryEvent struct {
	ID      uuid.UUID `json:"id"`
	AssetID uuid.UUID `json:"asset_id"`
	Kind    EventKind `json:"kind"`

	Field      string `json:"field,omitempty"`
	ChangeFrom string `json:"change_from,omitempty"`
	ChangeTo   string `json:"change_to,omitempty"`

	Actor string `json:"actor"`
	// EventDate defaults to commit time but is overridden for backdated
	// moves so the audit trail reflects the business date.
	EventDate time.Time `json:"event_date"`
	CreatedAt time.Time `json:"created_at"`
}
