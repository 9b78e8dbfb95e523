// Package query composes listing/reporting filters. One Predicate carries
// both a SQL rendering (postgres store) and an in-memory match function
// (memory store), so both stores share a single filter semantics and the
// memory store stays a faithful test double.
package query

import (
	"fmt"
	"strings"
	"time"

	"assettrack/internal/asset/models"
	pstrings "assettrack/pkg/platform/strings"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

// DefaultSearchFields are used when the caller does not narrow the field set.
var DefaultSearchFields = []string{
	"tag", "name", "serial", "model", "category", "manufacturer",
	"location", "department", "supplier", "notes",
}

// Params is a declarative listing request. Zero values mean "no filter".
type Params struct {
	// Term is matched case-insensitively as a substring across Fields;
	// when it parses as a date, date-typed fields match on that calendar day.
	Term   string
	Fields []string

	Category string
	Status   models.Status
	// From/To bound the purchase date.
	From *time.Time
	To   *time.Time

	IncludeDeleted bool

	Page     int
	PageSize int
}

// Normalize applies pagination defaults and bounds, and canonicalizes the
// requested field set. Field names are case-insensitive on the wire.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	p.Fields = pstrings.DedupeAndTrimLower(p.Fields)
	if len(p.Fields) == 0 {
		p.Fields = DefaultSearchFields
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type condition struct {
	// clause uses ? placeholders, rewritten to $n when rendered.
	clause string
	args   []any
	match  func(*models.Asset) bool
}

// Predicate is a composed filter over assets.
type Predicate struct {
	conds []condition
}

// Build composes the filter predicate: free-text OR across requested fields,
// AND-ed with the structured filters. Unknown field names are ignored so
// client field sets can drift without erroring.
func Build(p Params) Predicate {
	p = p.Normalize()
	var pred Predicate

	if !p.IncludeDeleted {
		pred.conds = append(pred.conds, condition{
			clause: "NOT is_deleted",
			match:  func(a *models.Asset) bool { return !a.IsDeleted },
		})
	}

	if p.Term != "" {
		if c, ok := termCondition(p.Term, p.Fields); ok {
			pred.conds = append(pred.conds, c)
		}
	}

	if p.Category != "" {
		category := p.Category
		pred.conds = append(pred.conds, condition{
			clause: "category = ?",
			args:   []any{category},
			match:  func(a *models.Asset) bool { return a.Category == category },
		})
	}
	if p.Status != "" {
		status := p.Status
		pred.conds = append(pred.conds, condition{
			clause: "status = ?",
			args:   []any{string(status)},
			match:  func(a *models.Asset) bool { return a.Status == status },
		})
	}
	if p.From != nil {
		from := models.DateOf(*p.From).Time
		pred.conds = append(pred.conds, condition{
			clause: "purchase_date >= ?",
			args:   []any{from},
			match: func(a *models.Asset) bool {
				return a.PurchaseDate != nil && !models.DateOf(*a.PurchaseDate).Before(from)
			},
		})
	}
	if p.To != nil {
		to := models.DateOf(*p.To).Time
		pred.conds = append(pred.conds, condition{
			clause: "purchase_date <= ?",
			args:   []any{to},
			match: func(a *models.Asset) bool {
				return a.PurchaseDate != nil && !models.DateOf(*a.PurchaseDate).After(to)
			},
		})
	}

	return pred
}

// termCondition ORs a substring match over every known requested field.
func termCondition(term string, fields []string) (condition, bool) {
	termDate, isDate := parseTermDate(term)
	lowered := strings.ToLower(term)

	var clauses []string
	var args []any
	var matchers []func(*models.Asset) bool

	for _, name := range fields {
		def, ok := models.FieldByName(name)
		if !ok {
			continue
		}
		if def.Date {
			if !isDate {
				continue
			}
			day := termDate
			clauses = append(clauses, fmt.Sprintf("%s = ?", def.Name))
			args = append(args, day)
			matchers = append(matchers, dateMatcher(def, day))
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s ILIKE ?", def.Name))
		args = append(args, "%"+escapeLike(term)+"%")
		matchers = append(matchers, textMatcher(def, lowered))
	}
	if len(clauses) == 0 {
		return condition{}, false
	}

	return condition{
		clause: "(" + strings.Join(clauses, " OR ") + ")",
		args:   args,
		match: func(a *models.Asset) bool {
			for _, m := range matchers {
				if m(a) {
					return true
				}
			}
			return false
		},
	}, true
}

func textMatcher(def models.FieldDef, loweredTerm string) func(*models.Asset) bool {
	return func(a *models.Asset) bool {
		v, _ := def.AssetValue(a).(string)
		return strings.Contains(strings.ToLower(v), loweredTerm)
	}
}

func dateMatcher(def models.FieldDef, day time.Time) func(*models.Asset) bool {
	want := day.Format(models.DateLayout)
	return func(a *models.Asset) bool {
		v, _ := def.AssetValue(a).(*time.Time)
		return v != nil && v.Format(models.DateLayout) == want
	}
}

func parseTermDate(term string) (time.Time, bool) {
	if t, err := time.Parse(models.DateLayout, term); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, term); err == nil {
		return models.DateOf(t).Time, true
	}
	return time.Time{}, false
}

// escapeLike neutralizes LIKE metacharacters in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// SQL renders the predicate as a WHERE fragment with placeholders numbered
// from startIndex. An empty predicate renders as TRUE so callers can always
// interpolate it.
func (p Predicate) SQL(startIndex int) (string, []any) {
	if len(p.conds) == 0 {
		return "TRUE", nil
	}
	var parts []string
	var args []any
	n := startIndex
	for _, c := range p.conds {
		clause := c.clause
		for range c.args {
			clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", n), 1)
			n++
		}
		parts = append(parts, clause)
		args = append(args, c.args...)
	}
	return strings.Join(parts, " AND "), args
}

// Match evaluates the predicate against an in-memory asset.
func (p Predicate) Match(a *models.Asset) bool {
	for _, c := range p.conds {
		if !c.match(a) {
			return false
		}
	}
	return true
}

// Summary is the aggregate computed over a predicate without materializing
// result pages.
type Summary struct {
	TotalCount int            `json:"total_count"`
	TotalCost  float64        `json:"total_cost"`
	ByStatus   map[string]int `json:"by_status"`
}
