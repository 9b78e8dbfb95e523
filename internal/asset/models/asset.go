// Package models holds the asset domain entities and the patch/diff field
// registry. All other packages read assets through repository snapshots; this
// package has no I/O.
package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "assettrack/pkg/domain-errors"
)

// Status is the asset's custody lifecycle state.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusCheckedOut  Status = "checked_out"
	StatusMaintenance Status = "maintenance"
	StatusDisposed    Status = "disposed"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusCheckedOut, StatusMaintenance, StatusDisposed:
		return true
	}
	return false
}

// Asset is the current-state record for one tracked item. Owned exclusively
// by the asset store; mutations go through the repository service so every
// change is paired with its history events.
type Asset struct {
	ID  uuid.UUID `json:"id"`
	Tag string    `json:"tag"`

	Name         string `json:"name"`
	Serial       string `json:"serial,omitempty"`
	Model        string `json:"model,omitempty"`
	Category     string `json:"category,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Location     string `json:"location,omitempty"`
	Department   string `json:"department,omitempty"`
	Supplier     string `json:"supplier,omitempty"`
	Notes        string `json:"notes,omitempty"`

	// Cost is a decimal string; comparisons normalize trailing zeros so
	// "150.00" and "150" are the same value.
	Cost string `json:"cost,omitempty"`

	Status Status `json:"status"`

	PurchaseDate  *time.Time `json:"purchase_date,omitempty"`
	WarrantyUntil *time.Time `json:"warranty_until,omitempty"`

	IsDeleted bool       `json:"is_deleted,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is a read-only copy of an asset's state at diff time.
type Snapshot = Asset

// Clone returns a deep copy so callers can stage changes without touching the
// stored record.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	copied := *a
	copied.PurchaseDate = cloneTime(a.PurchaseDate)
	copied.WarrantyUntil = cloneTime(a.WarrantyUntil)
	copied.DeletedAt = cloneTime(a.DeletedAt)
	return &copied
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

// NewAsset validates required creation fields and builds the record.
func NewAsset(id uuid.UUID, patch AssetPatch, now time.Time) (*Asset, error) {
	asset := &Asset{
		ID:        id,
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	patch.applyTo(asset)

	if asset.Tag == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tag is required")
	}
	if asset.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !ValidStatus(asset.Status) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", asset.Status)
	}
	return asset, nil
}
