package class

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Class struct {
	ID        string    `json:"id" db:"id"`
	SchoolID  string    `json:"school_id" db:"school_id"`
	Name      string    `json:"name" db:"name"`
	Grade     int       `json:"grade" db:"grade"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	core.SoftDelete
}

type Section struct {
	ID             string      `json:"id" db:"id"`
	SchoolID       string      `json:"school_id" db:"school_id"`
	ClassID        string      `json:"class_id" db:"class_id"`
	Name           string      `json:"name" db:"name"`
	Capacity       int         `json:"capacity" db:"capacity"` // 0: unlimited
	ClassTeacherID null.String `json:"class_teacher_id" db:"class_teacher_id"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
	core.SoftDelete
}

// HasRoomFor reports whether count more students fit in the section, given its current headcount.
func (s Section) HasRoomFor(current, count int) bool {
	return s.Capacity == 0 || current+count <= s.Capacity
}

type NewClass struct {
	Name  string `json:"name" validate:"required,notblank,max=100"`
	Grade int    `json:"grade" validate:"min=0,max=100"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type UpdateClass struct {
	Name  string `json:"name" validate:"max=100"`
	Grade *int   `json:"grade" validate:"omitempty,min=0,max=100"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

type NewSection struct {
	ClassID        string `json:"class_id" validate:"required"`
	Name           string `json:"name" validate:"required,notblank,max=50"`
	Capacity       int    `json:"capacity" validate:"min=0,max=1000"`
	ClassTeacherID string `json:"class_teacher_id"`
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ClassTeacherID = core.CleanString(ns.ClassTeacherID)
	return validate.Struct(ns)
}

type UpdateSection struct {
	Name           string  `json:"name" validate:"max=50"`
	Capacity       *int    `json:"capacity" validate:"omitempty,min=0,max=1000"`
	ClassTeacherID *string `json:"class_teacher_id"` // "" unassigns the class teacher
}

func (us *UpdateSection) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	return validate.Struct(us)
}

type SectionFilter struct {
	SchoolID       string
	ClassID        string `query:"class_id"`
	ClassTeacherID string `query:"class_teacher_id"`
	Search         string `query:"search"`
}
