// Package diff computes field-level before/after changes between an asset
// snapshot and a proposed patch. It is pure: no I/O, no clock, no store
// access, so it is tested in complete isolation and its output is reproducible
// for a given input.
package diff

import (
	"math/big"
	"strings"
	"time"

	"assettrack/internal/asset/models"
)

// Changes compares a snapshot against a sparse patch and returns one
// FieldChange per present field whose canonical value actually differs.
// Emission order follows the field registry, giving deterministic audit
// ordering. Date fields compare at calendar-day granularity; cost compares
// as a normalized decimal so "150.00" equals "150"; null and empty string
// are the same canonical value for text fields.
func Changes(before *models.Snapshot, patch models.AssetPatch) []models.FieldChange {
	var changes []models.FieldChange
	for _, def := range models.Fields {
		if !def.Present(patch) {
			continue
		}
		from := Canonical(def, def.AssetValue(before))
		to := Canonical(def, def.PatchValue(patch))
		if from == to {
			continue
		}
		changes = append(changes, models.FieldChange{
			Field:      def.Name,
			ChangeFrom: from,
			ChangeTo:   to,
		})
	}
	return changes
}

// Canonical renders a field value in its comparison form.
func Canonical(def models.FieldDef, value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(models.DateLayout)
	case time.Time:
		return v.Format(models.DateLayout)
	case string:
		if def.Numeric {
			return normalizeDecimal(v)
		}
		return v
	default:
		return ""
	}
}

// normalizeDecimal renders a decimal amount in one canonical form so every
// textual spelling of the same value compares equal: "1500.00" == "1500",
// ".5" == "0.5", "-0.0" == "0". Parseability is decided by big.Rat, so the
// comparison is exact; input it cannot parse is returned unchanged because
// the diff is not a validator.
func normalizeDecimal(s string) string {
	v := strings.TrimSpace(s)
	if v == "" || strings.ContainsAny(v, "/eE") {
		return s
	}
	if _, ok := new(big.Rat).SetString(v); !ok {
		return s
	}

	neg := strings.HasPrefix(v, "-")
	v = strings.TrimLeft(v, "+-")
	intPart, fracPart, _ := strings.Cut(v, ".")
	intPart = strings.TrimLeft(intPart, "0")
	fracPart = strings.TrimRight(fracPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}
