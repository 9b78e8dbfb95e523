package models

import (
	"encoding/json"
	"time"

	dErrors "assettrack/pkg/domain-errors"
)

// Opt is an explicitly-present optional value. A PATCH body distinguishes
// "field absent" (Valid=false, not considered for change) from "field set to
// null" (Valid=true, zero value). JSON null on a string field decodes to "",
// which the diff engine treats as equal to an already-empty value.
type Opt[T any] struct {
	Valid bool
	Value T
}

// Set wraps a value as a present optional.
func Set[T any](v T) Opt[T] {
	return Opt[T]{Valid: true, Value: v}
}

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Valid = true
	if string(b) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// AssetPatch is a sparse partial update: only fields with Valid=true are
// considered for change. Unknown JSON keys are rejected at decode time by the
// handler, so a typo cannot silently no-op.
type AssetPatch struct {
	Tag          Opt[string] `json:"tag"`
	Name         Opt[string] `json:"name"`
	Serial       Opt[string] `json:"serial"`
	Model        Opt[string] `json:"model"`
	Category     Opt[string] `json:"category"`
	Manufacturer Opt[string] `json:"manufacturer"`
	Location     Opt[string] `json:"location"`
	Department   Opt[string] `json:"department"`
	Supplier     Opt[string] `json:"supplier"`
	Notes        Opt[string] `json:"notes"`

	Cost   Opt[string] `json:"cost"`
	Status Opt[Status] `json:"status"`

	PurchaseDate  Opt[*Date] `json:"purchase_date"`
	WarrantyUntil Opt[*Date] `json:"warranty_until"`
}

// IsZero reports whether no field is present.
func (p AssetPatch) IsZero() bool {
	for _, def := range Fields {
		if def.Present(p) {
			return false
		}
	}
	return true
}

// Validate rejects values a patch may never carry regardless of the current
// snapshot.
func (p AssetPatch) Validate() error {
	if p.Tag.Valid && p.Tag.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "tag must not be empty")
	}
	if p.Name.Valid && p.Name.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "name must not be empty")
	}
	if p.Status.Valid && !ValidStatus(p.Status.Value) {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", p.Status.Value)
	}
	return nil
}

// applyTo writes every present field onto the asset.
func (p AssetPatch) applyTo(a *Asset) {
	for _, def := range Fields {
		if def.Present(p) {
			def.Apply(p, a)
		}
	}
}

// Apply writes every present field onto a copy of the snapshot and returns it.
func (p AssetPatch) Apply(before *Asset) *Asset {
	after := before.Clone()
	p.applyTo(after)
	return after
}

// Date is a calendar day. It unmarshals from "YYYY-MM-DD" and from RFC 3339
// timestamps, keeping only the day, so clients in different time zones that
// mean the same day produce the same value.
type Date struct {
	time.Time
}

// DateOf truncates a time to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// DateLayout is the wire format for business dates.
const DateLayout = "2006-01-02"

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return dErrors.New(dErrors.CodeValidation, "date must not be empty")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return dErrors.Newf(dErrors.CodeValidation, "invalid date %q", s)
	}
	*d = DateOf(t)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}
