package attendance

import (
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Student attendance statuses
const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
	StatusLate    = "LATE"
	StatusExcused = "EXCUSED"
)

// Staff attendance statuses
const (
	StaffPresent = "PRESENT"
	StaffAbsent  = "ABSENT"
	StaffHalfDay = "HALF_DAY"
	StaffLeave   = "LEAVE" // paid
)

type Record struct {
	ID        string    `json:"id" db:"id"`
	SchoolID  string    `json:"school_id" db:"school_id"`
	StudentID string    `json:"student_id" db:"student_id"`
	SectionID string    `json:"section_id" db:"section_id"`
	Date      core.Date `json:"date" db:"date"`
	Status    string    `json:"status" db:"status"`
	Remarks   string    `json:"remarks" db:"remarks"`
	MarkedBy  string    `json:"marked_by" db:"marked_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// joined
	StudentName string `json:"student_name" db:"student_name"`
	AdmissionNo string `json:"admission_no" db:"admission_no"`
}

type StaffRecord struct {
	ID        string    `json:"id" db:"id"`
	SchoolID  string    `json:"school_id" db:"school_id"`
	StaffID   string    `json:"staff_id" db:"staff_id"`
	Date      core.Date `json:"date" db:"date"`
	Status    string    `json:"status" db:"status"`
	CheckIn   string    `json:"check_in" db:"check_in"`
	CheckOut  string    `json:"check_out" db:"check_out"`
	Remarks   string    `json:"remarks" db:"remarks"`
	MarkedBy  string    `json:"marked_by" db:"marked_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// joined
	StaffName  string `json:"staff_name" db:"staff_name"`
	EmployeeNo string `json:"employee_no" db:"employee_no"`
}

// StudentRef is a student enrolled in a section.
type StudentRef struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	AdmissionNo string `db:"admission_no"`
}

type MarkItem struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
	Remarks   string `json:"remarks" validate:"max=255"`
}

// MarkSection marks the attendance of a section for one day.
type MarkSection struct {
	SectionID string     `json:"section_id" validate:"required"`
	Date      core.Date  `json:"date" validate:"required"`
	Records   []MarkItem `json:"records" validate:"required,min=1,dive"`
}

func (ms *MarkSection) Validate(validate *validator.Validate) error {
	ms.SectionID = core.CleanString(ms.SectionID)
	for i := range ms.Records {
		ms.Records[i].StudentID = core.CleanString(ms.Records[i].StudentID)
		ms.Records[i].Status = strings.ToUpper(core.CleanString(ms.Records[i].Status))
		ms.Records[i].Remarks = core.CleanString(ms.Records[i].Remarks)
	}
	return validate.Struct(ms)
}

type StaffMarkItem struct {
	StaffID  string `json:"staff_id" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=PRESENT ABSENT HALF_DAY LEAVE"`
	CheckIn  string `json:"check_in" validate:"omitempty,hhmm"`
	CheckOut string `json:"check_out" validate:"omitempty,hhmm"`
	Remarks  string `json:"remarks" validate:"max=255"`
}

// MarkStaff marks the attendance of staff members for one day.
type MarkStaff struct {
	Date    core.Date       `json:"date" validate:"required"`
	Records []StaffMarkItem `json:"records" validate:"required,min=1,dive"`
}

func (ms *MarkStaff) Validate(validate *validator.Validate) error {
	for i := range ms.Records {
		item := &ms.Records[i]
		item.StaffID = core.CleanString(item.StaffID)
		item.Status = strings.ToUpper(core.CleanString(item.Status))
		item.Remarks = core.CleanString(item.Remarks)
	}
	if err := validate.Struct(ms); err != nil {
		return err
	}
	for _, item := range ms.Records {
		if item.CheckIn != "" && item.CheckOut != "" && item.CheckOut < item.CheckIn {
			return core.NewValidationError(nil, core.FieldError{Field: "check_out", Error: "check out cannot be before check in"})
		}
	}
	return nil
}

type QueryFilter struct {
	SchoolID  string
	SectionID string    `query:"section_id"`
	StudentID string    `query:"student_id"`
	Status    string    `query:"status"`
	From      core.Date `query:"from"`
	To        core.Date `query:"to"`
}

type StaffFilter struct {
	SchoolID string
	StaffID  string    `query:"staff_id"`
	Status   string    `query:"status"`
	From     core.Date `query:"from"`
	To       core.Date `query:"to"`
}

// Summary aggregates a student's attendance over a date range.
type Summary struct {
	StudentID   string    `json:"student_id"`
	From        core.Date `json:"from"`
	To          core.Date `json:"to"`
	WorkingDays int       `json:"working_days"`
	Marked      int       `json:"marked"`
	Present     int       `json:"present"`
	Absent      int       `json:"absent"`
	Late        int       `json:"late"`
	Excused     int       `json:"excused"`
	Percentage  float64   `json:"percentage"` // (present + late) over marked days
}

func (s *Summary) add(status string) {
	s.Marked++
	switch status {
	case StatusPresent:
		s.Present++
	case StatusAbsent:
		s.Absent++
	case StatusLate:
		s.Late++
	case StatusExcused:
		s.Excused++
	}
}

func (s *Summary) computePercentage() {
	if s.Marked == 0 {
		s.Percentage = 0
		return
	}
	pct := float64(s.Present+s.Late) * 100 / float64(s.Marked)
	s.Percentage = math.Round(pct*100) / 100
}
