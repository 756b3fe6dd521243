package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Statuses
const (
	StatusActive    = "ACTIVE"
	StatusGraduated = "GRADUATED"
	StatusLeft      = "LEFT"
)

// Promotion actions
const (
	ActionPromoted  = "PROMOTED"
	ActionGraduated = "GRADUATED"
)

type Student struct {
	ID           string      `json:"id" db:"id"`
	SchoolID     string      `json:"school_id" db:"school_id"`
	UserID       null.String `json:"user_id" db:"user_id"`
	ParentUserID null.String `json:"parent_user_id" db:"parent_user_id"`
	AdmissionNo  string      `json:"admission_no" db:"admission_no"`
	Name         string      `json:"name" db:"name"`
	Gender       string      `json:"gender" db:"gender"`
	DateOfBirth  core.Date   `json:"date_of_birth" db:"date_of_birth"`
	SectionID    null.String `json:"section_id" db:"section_id"`
	RollNo       int         `json:"roll_no" db:"roll_no"`
	Status       string      `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
	core.SoftDelete

	// joined
	SectionName null.String `json:"section_name" db:"section_name"`
	ClassID     null.String `json:"class_id" db:"class_id"`
	ClassName   null.String `json:"class_name" db:"class_name"`
}

func (s Student) IsActive() bool { return s.Status == StatusActive }

type Promotion struct {
	ID            string      `json:"id" db:"id"`
	SchoolID      string      `json:"school_id" db:"school_id"`
	StudentID     string      `json:"student_id" db:"student_id"`
	FromSectionID null.String `json:"from_section_id" db:"from_section_id"`
	ToSectionID   null.String `json:"to_section_id" db:"to_section_id"`
	Action        string      `json:"action" db:"action"`
	PromotedBy    string      `json:"promoted_by" db:"promoted_by"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// SectionInfo is what students need to know about a section.
type SectionInfo struct {
	ID        string `db:"id"`
	ClassID   string `db:"class_id"`
	Capacity  int    `db:"capacity"` // 0: unlimited
	Headcount int    `db:"headcount"`
}

func (si SectionInfo) HasRoomFor(count int) bool {
	return si.Capacity == 0 || si.Headcount+count <= si.Capacity
}

type NewStudent struct {
	UserID       string    `json:"user_id"`
	ParentUserID string    `json:"parent_user_id"`
	AdmissionNo  string    `json:"admission_no" validate:"required,alphanum_,max=32"`
	Name         string    `json:"name" validate:"required,notblank,max=200"`
	Gender       string    `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	DateOfBirth  core.Date `json:"date_of_birth"`
	SectionID    string    `json:"section_id"`
	RollNo       int       `json:"roll_no" validate:"min=0"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.UserID = core.CleanString(ns.UserID)
	ns.ParentUserID = core.CleanString(ns.ParentUserID)
	ns.AdmissionNo = core.CleanString(ns.AdmissionNo)
	ns.Name = core.CleanString(ns.Name)
	ns.Gender = strings.ToUpper(core.CleanString(ns.Gender))
	ns.SectionID = core.CleanString(ns.SectionID)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.DateOfBirth.IsZero() && ns.DateOfBirth.After(core.Today()) {
		return core.NewValidationError(nil, core.FieldError{Field: "date_of_birth", Error: "date of birth cannot be in the future"})
	}
	return nil
}

type UpdateStudent struct {
	UserID       *string    `json:"user_id"`
	ParentUserID *string    `json:"parent_user_id"`
	AdmissionNo  string     `json:"admission_no" validate:"omitempty,alphanum_,max=32"`
	Name         string     `json:"name" validate:"max=200"`
	Gender       string     `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	DateOfBirth  *core.Date `json:"date_of_birth"`
	SectionID    *string    `json:"section_id"`
	RollNo       *int       `json:"roll_no" validate:"omitempty,min=0"`
	Status       string     `json:"status" validate:"omitempty,oneof=ACTIVE GRADUATED LEFT"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.AdmissionNo = core.CleanString(us.AdmissionNo)
	us.Name = core.CleanString(us.Name)
	us.Gender = strings.ToUpper(core.CleanString(us.Gender))
	us.Status = strings.ToUpper(core.CleanString(us.Status))
	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.DateOfBirth != nil && us.DateOfBirth.After(core.Today()) {
		return core.NewValidationError(nil, core.FieldError{Field: "date_of_birth", Error: "date of birth cannot be in the future"})
	}
	return nil
}

// PromoteStudents moves ACTIVE students to another section, or graduates them.
type PromoteStudents struct {
	StudentIDs      []string `json:"student_ids" validate:"required,min=1,dive,required"`
	TargetSectionID string   `json:"target_section_id" validate:"required_without=Graduate"`
	Graduate        bool     `json:"graduate"`
}

func (ps *PromoteStudents) Validate(validate *validator.Validate) error {
	ps.TargetSectionID = core.CleanString(ps.TargetSectionID)
	return validate.Struct(ps)
}

type QueryFilter struct {
	SchoolID     string
	Search       string   `query:"search"`
	SectionID    string   `query:"section_id"`
	ClassID      string   `query:"class_id"`
	Status       string   `query:"status"`
	ParentUserID string   `query:"parent_user_id"`
	IDs          []string `query:"id"`
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  []ImportRowError `json:"skipped"`
}

type ImportRowError struct {
	Row   int    `json:"row"` // 1-based, header included
	Error string `json:"error"`
}
