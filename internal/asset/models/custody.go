package models

import (
	"time"

	"github.com/google/uuid"
)

// Custody is a single assignment of an asset to a person. At most one custody
// row per asset lacks a check-in at any time; that row is the active one.
type Custody struct {
	ID         uuid.UUID  `json:"id"`
	AssetID    uuid.UUID  `json:"asset_id"`
	EmployeeID string     `json:"employee_id"`
	CheckedOut time.Time  `json:"checked_out_at"`
	CheckedIn  *time.Time `json:"checked_in_at,omitempty"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Active reports whether this custody row is still open.
func (c *Custody) Active() bool {
	return c != nil && c.CheckedIn == nil
}

// Lease is an external assignment with a start date and optional end date.
type Lease struct {
	ID         uuid.UUID  `json:"id"`
	AssetID    uuid.UUID  `json:"asset_id"`
	Lessee     string     `json:"lessee"`
	LeaseStart time.Time  `json:"lease_start"`
	LeaseEnd   *time.Time `json:"lease_end,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ActiveAt reports whether the lease blocks moves as of the given instant:
// no end date, or an end date at or after it.
func (l *Lease) ActiveAt(t time.Time) bool {
	if l == nil {
		return false
	}
	return l.LeaseEnd == nil || !l.LeaseEnd.Before(t)
}
