package subject

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Subject types
const (
	TypeTheory    = "THEORY"
	TypePractical = "PRACTICAL"
)

type Subject struct {
	ID          string    `json:"id" db:"id"`
	SchoolID    string    `json:"school_id" db:"school_id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"` // upper case
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	core.SoftDelete
}

// ClassSubject is a Subject taught in a Class.
type ClassSubject struct {
	ID             string      `json:"id" db:"id"`
	SchoolID       string      `json:"school_id" db:"school_id"`
	ClassID        string      `json:"class_id" db:"class_id"`
	SubjectID      string      `json:"subject_id" db:"subject_id"`
	TeacherID      null.String `json:"teacher_id" db:"teacher_id"`
	PeriodsPerWeek int         `json:"periods_per_week" db:"periods_per_week"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
	core.SoftDelete

	// joined
	SubjectName string `json:"subject_name" db:"subject_name"`
	SubjectCode string `json:"subject_code" db:"subject_code"`
}

type NewSubject struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Code        string `json:"code" validate:"required,alphanum_,max=20"`
	Type        string `json:"type" validate:"omitempty,oneof=THEORY PRACTICAL"`
	Description string `json:"description" validate:"max=1000"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = strings.ToUpper(core.CleanString(ns.Code))
	ns.Type = strings.ToUpper(core.CleanString(ns.Type))
	if ns.Type == "" {
		ns.Type = TypeTheory
	}
	return validate.Struct(ns)
}

type UpdateSubject struct {
	Name        string  `json:"name" validate:"max=100"`
	Code        string  `json:"code" validate:"omitempty,alphanum_,max=20"`
	Type        string  `json:"type" validate:"omitempty,oneof=THEORY PRACTICAL"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Code = strings.ToUpper(core.CleanString(us.Code))
	us.Type = strings.ToUpper(core.CleanString(us.Type))
	return validate.Struct(us)
}

type QueryFilter struct {
	SchoolID string
	Search   string `query:"search"`
	Type     string `query:"type"`
}

type NewClassSubject struct {
	ClassID        string `json:"class_id" validate:"required"`
	SubjectID      string `json:"subject_id" validate:"required"`
	TeacherID      string `json:"teacher_id"`
	PeriodsPerWeek int    `json:"periods_per_week" validate:"min=0,max=60"`
}

func (ncs *NewClassSubject) Validate(validate *validator.Validate) error {
	ncs.TeacherID = core.CleanString(ncs.TeacherID)
	return validate.Struct(ncs)
}

type UpdateClassSubject struct {
	TeacherID      *string `json:"teacher_id"` // "" unassigns the teacher
	PeriodsPerWeek *int    `json:"periods_per_week" validate:"omitempty,min=0,max=60"`
}

func (ucs *UpdateClassSubject) Validate(validate *validator.Validate) error {
	return validate.Struct(ucs)
}

type ClassSubjectFilter struct {
	SchoolID  string
	ClassID   string `query:"class_id"`
	SubjectID string `query:"subject_id"`
	TeacherID string `query:"teacher_id"`
}
