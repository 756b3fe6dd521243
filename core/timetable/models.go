package timetable

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Entry struct {
	ID        string      `json:"id" db:"id"`
	SchoolID  string      `json:"school_id" db:"school_id"`
	SectionID string      `json:"section_id" db:"section_id"`
	DayOfWeek int         `json:"day_of_week" db:"day_of_week"` // ISO: Monday=1
	Period    int         `json:"period" db:"period"`
	StartTime string      `json:"start_time" db:"start_time"` // HH:MM
	EndTime   string      `json:"end_time" db:"end_time"`
	SubjectID string      `json:"subject_id" db:"subject_id"`
	TeacherID null.String `json:"teacher_id" db:"teacher_id"`
	Room      string      `json:"room" db:"room"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
	core.SoftDelete

	// joined
	SubjectName string      `json:"subject_name" db:"subject_name"`
	TeacherName null.String `json:"teacher_name" db:"teacher_name"`
	SectionName string      `json:"section_name" db:"section_name"`
}

type NewEntry struct {
	SectionID string `json:"section_id" validate:"required"`
	DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=7"`
	Period    int    `json:"period" validate:"required,min=1"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
	SubjectID string `json:"subject_id" validate:"required"`
	TeacherID string `json:"teacher_id"`
	Room      string `json:"room" validate:"max=50"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.SectionID = core.CleanString(ne.SectionID)
	ne.SubjectID = core.CleanString(ne.SubjectID)
	ne.TeacherID = core.CleanString(ne.TeacherID)
	ne.Room = core.CleanString(ne.Room)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	// HH:MM strings compare in clock order
	if ne.StartTime >= ne.EndTime {
		return errInvalidTimes
	}
	return nil
}

// ReplaceWeek is a section's whole weekly timetable.
type ReplaceWeek struct {
	Entries []NewEntry `json:"entries" validate:"dive"`
}

func (rw *ReplaceWeek) Validate(sectionID string, validate *validator.Validate) error {
	for i := range rw.Entries {
		rw.Entries[i].SectionID = sectionID
		if err := rw.Entries[i].Validate(validate); err != nil {
			return err
		}
	}
	return nil
}

type QueryFilter struct {
	SchoolID  string
	SectionID string `query:"section_id"`
	TeacherID string `query:"teacher_id"`
	DayOfWeek int    `query:"day_of_week"`
}
