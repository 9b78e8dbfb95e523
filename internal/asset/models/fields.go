package models

import "time"

// FieldDef describes one patchable asset field: how to read it from a patch
// and a snapshot, and how to write it back. The diff engine and the
// repository's apply path both walk this registry, so audit ordering is fixed
// by the registry order and a field can never be diffed one way and applied
// another.
type FieldDef struct {
	// Name is the wire and audit name of the field.
	Name string
	// Date marks calendar-day semantics: compare at day granularity.
	Date bool
	// Numeric marks decimal-string semantics: "150.00" equals "150".
	Numeric bool

	Present    func(AssetPatch) bool
	PatchValue func(AssetPatch) any
	AssetValue func(*Asset) any
	Apply      func(AssetPatch, *Asset)
}

// Fields is the registry of every patchable field, in audit emission order.
var Fields = []FieldDef{
	textField("tag",
		func(p AssetPatch) Opt[string] { return p.Tag },
		func(a *Asset) *string { return &a.Tag }),
	textField("name",
		func(p AssetPatch) Opt[string] { return p.Name },
		func(a *Asset) *string { return &a.Name }),
	textField("serial",
		func(p AssetPatch) Opt[string] { return p.Serial },
		func(a *Asset) *string { return &a.Serial }),
	textField("model",
		func(p AssetPatch) Opt[string] { return p.Model },
		func(a *Asset) *string { return &a.Model }),
	textField("category",
		func(p AssetPatch) Opt[string] { return p.Category },
		func(a *Asset) *string { return &a.Category }),
	textField("manufacturer",
		func(p AssetPatch) Opt[string] { return p.Manufacturer },
		func(a *Asset) *string { return &a.Manufacturer }),
	textField("location",
		func(p AssetPatch) Opt[string] { return p.Location },
		func(a *Asset) *string { return &a.Location }),
	textField("department",
		func(p AssetPatch) Opt[string] { return p.Department },
		func(a *Asset) *string { return &a.Department }),
	textField("supplier",
		func(p AssetPatch) Opt[string] { return p.Supplier },
		func(a *Asset) *string { return &a.Supplier }),
	textField("notes",
		func(p AssetPatch) Opt[string] { return p.Notes },
		func(a *Asset) *string { return &a.Notes }),
	{
		Name:       "cost",
		Numeric:    true,
		Present:    func(p AssetPatch) bool { return p.Cost.Valid },
		PatchValue: func(p AssetPatch) any { return p.Cost.Value },
		AssetValue: func(a *Asset) any { return a.Cost },
		Apply:      func(p AssetPatch, a *Asset) { a.Cost = p.Cost.Value },
	},
	{
		Name:       "status",
		Present:    func(p AssetPatch) bool { return p.Status.Valid },
		PatchValue: func(p AssetPatch) any { return string(p.Status.Value) },
		AssetValue: func(a *Asset) any { return string(a.Status) },
		Apply:      func(p AssetPatch, a *Asset) { a.Status = p.Status.Value },
	},
	dateField("purchase_date",
		func(p AssetPatch) Opt[*Date] { return p.PurchaseDate },
		func(a *Asset) **time.Time { return &a.PurchaseDate }),
	dateField("warranty_until",
		func(p AssetPatch) Opt[*Date] { return p.WarrantyUntil },
		func(a *Asset) **time.Time { return &a.WarrantyUntil }),
}

// FieldByName returns the registry entry for a wire name, if known.
func FieldByName(name string) (FieldDef, bool) {
	for _, def := range Fields {
		if def.Name == name {
			return def, true
		}
	}
	return FieldDef{}, false
}

func textField(name string, fromPatch func(AssetPatch) Opt[string], slot func(*Asset) *string) FieldDef {
	return FieldDef{
		Name:       name,
		Present:    func(p AssetPatch) bool { return fromPatch(p).Valid },
		PatchValue: func(p AssetPatch) any { return fromPatch(p).Value },
		AssetValue: func(a *Asset) any { return *slot(a) },
		Apply:      func(p AssetPatch, a *Asset) { *slot(a) = fromPatch(p).Value },
	}
}

func dateField(name string, fromPatch func(AssetPatch) Opt[*Date], slot func(*Asset) **time.Time) FieldDef {
	return FieldDef{
		Name:    name,
		Date:    true,
		Present: func(p AssetPatch) bool { return fromPatch(p).Valid },
		PatchValue: func(p AssetPatch) any {
			if d := fromPatch(p).Value; d != nil {
				t := d.Time
				return &t
			}
			return (*time.Time)(nil)
		},
		AssetValue: func(a *Asset) any { return *slot(a) },
		Apply: func(p AssetPatch, a *Asset) {
			if d := fromPatch(p).Value; d != nil {
				t := d.Time
				*slot(a) = &t
			} else {
				*slot(a) = nil
			}
		},
	}
}
