package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "assettrack/pkg/domain-errors"
)

// MoveKind is the closed set of move operations. Each kind carries its own
// required payload via MoveTarget, so an unknown kind or a missing target
// cannot reach the transition logic.
type MoveKind string

const (
	MoveLocationTransfer   MoveKind = "location_transfer"
	MoveEmployeeAssignment MoveKind = "employee_assignment"
	MoveDepartmentTransfer MoveKind = "department_transfer"
)

// MoveTarget is the kind-specific payload of a move. The set of
// implementations is closed: LocationTarget, EmployeeTarget and
// DepartmentTarget.
type MoveTarget interface {
	Kind() MoveKind
	validate() error
}

// LocationTarget relocates the asset.
type LocationTarget struct {
	Location string
}

func (t LocationTarget) Kind() MoveKind { return MoveLocationTransfer }

func (t LocationTarget) validate() error {
	if t.Location == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required for a location transfer")
	}
	return nil
}

// EmployeeTarget assigns custody of the asset.
type EmployeeTarget struct {
	EmployeeID string
}

func (t EmployeeTarget) Kind() MoveKind { return MoveEmployeeAssignment }

func (t EmployeeTarget) validate() error {
	if t.EmployeeID == "" {
		return dErrors.New(dErrors.CodeValidation, "employee_id is required for an employee assignment")
	}
	return nil
}

// DepartmentTarget reassigns the asset's department.
type DepartmentTarget struct {
	Department string
}

func (t DepartmentTarget) Kind() MoveKind { return MoveDepartmentTransfer }

func (t DepartmentTarget) validate() error {
	if t.Department == "" {
		return dErrors.New(dErrors.CodeValidation, "department is required for a department transfer")
	}
	return nil
}

// MoveRequest is one move operation, processed start to finish in a single
// transaction.
type MoveRequest struct {
	AssetID  uuid.UUID
	Target   MoveTarget
	MoveDate time.Time
	Reason   string
	Notes    string
}

// Validate checks kind-specific required inputs before any transaction opens.
func (r MoveRequest) Validate() error {
	if r.AssetID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "asset id is required")
	}
	if r.Target == nil {
		return dErrors.New(dErrors.CodeValidation, "move target is required")
	}
	if r.MoveDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "move date is required")
	}
	return r.Target.validate()
}

// MoveRecord is the immutable record of one completed move. MoveDate is the
// business date, distinct from CreatedAt.
type MoveRecord struct {
	ID      uuid.UUID `json:"id"`
	AssetID uuid.UUID `json:"asset_id"`
	Kind    MoveKind  `json:"kind"`

	MoveDate time.Time `json:"move_date"`

	TargetEmployeeID string `json:"target_employee_id,omitempty"`
	TargetLocation   string `json:"target_location,omitempty"`
	TargetDepartment string `json:"target_department,omitempty"`

	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
	Actor  string `json:"actor"`

	CreatedAt time.Time `json:"created_at"`
}
