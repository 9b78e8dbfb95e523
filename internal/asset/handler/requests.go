package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	"assettrack/internal/asset/query"
	dErrors "assettrack/pkg/domain-errors"
)

// MoveRequest is the wire shape of POST /assets/{id}/moves. Kind selects the
// target payload; the other target fields must be absent or empty.
type MoveRequest struct {
	Kind       string `json:"kind"`
	Location   string `json:"location,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
	Department string `json:"department,omitempty"`

	MoveDate *models.Date `json:"move_date"`
	Reason   string       `json:"reason,omitempty"`
	Notes    string       `json:"notes,omitempty"`
}

// Domain converts the wire request into the domain move request.
func (r MoveRequest) Domain(assetID uuid.UUID) (models.MoveRequest, error) {
	req := models.MoveRequest{
		AssetID: assetID,
		Reason:  r.Reason,
		Notes:   r.Notes,
	}
	if r.MoveDate != nil {
		req.MoveDate = r.MoveDate.Time
	}

	switch models.MoveKind(r.Kind) {
	case models.MoveLocationTransfer:
		req.Target = models.LocationTarget{Location: r.Location}
	case models.MoveEmployeeAssignment:
		req.Target = models.EmployeeTarget{EmployeeID: r.EmployeeID}
	case models.MoveDepartmentTransfer:
		req.Target = models.DepartmentTarget{Department: r.Department}
	default:
		return req, dErrors.Newf(dErrors.CodeValidation, "unknown move kind %q", r.Kind)
	}
	return req, nil
}

// CheckoutRequest is the wire shape of POST /assets/{id}/checkout.
type CheckoutRequest struct {
	EmployeeID string       `json:"employee_id"`
	Date       *models.Date `json:"date,omitempty"`
	Note       string       `json:"note,omitempty"`
}

// CheckinRequest is the wire shape of POST /assets/{id}/checkin.
type CheckinRequest struct {
	Date *models.Date `json:"date,omitempty"`
	Note string       `json:"note,omitempty"`
}

// LeaseRequest is the wire shape of POST /assets/{id}/leases.
type LeaseRequest struct {
	Lessee string       `json:"lessee"`
	Start  *models.Date `json:"start"`
	End    *models.Date `json:"end,omitempty"`
}

func dateOrZero(d *models.Date) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

// listParams parses the listing query string. Unknown values fail closed on
// status; everything else defaults to "no filter".
func listParams(get func(string) string) (query.Params, error) {
	p := query.Params{
		Term:     strings.TrimSpace(get("term")),
		Category: strings.TrimSpace(get("category")),
	}
	if fields := strings.TrimSpace(get("fields")); fields != "" {
		p.Fields = strings.Split(fields, ",")
	}
	if status := strings.TrimSpace(get("status")); status != "" {
		if !models.ValidStatus(models.Status(status)) {
			return p, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", status)
		}
		p.Status = models.Status(status)
	}
	for name, dst := range map[string]**time.Time{"from": &p.From, "to": &p.To} {
		raw := strings.TrimSpace(get(name))
		if raw == "" {
			continue
		}
		t, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return p, dErrors.Newf(dErrors.CodeValidation, "invalid %s date %q", name, raw)
		}
		*dst = &t
	}
	if get("include_deleted") == "true" {
		p.IncludeDeleted = true
	}
	for name, dst := range map[string]*int{"page": &p.Page, "page_size": &p.PageSize} {
		raw := get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, dErrors.Newf(dErrors.CodeValidation, "invalid %s %q", name, raw)
		}
		*dst = n
	}
	return p, nil
}
