package calendar

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Entry types
const (
	TypeHoliday    = "HOLIDAY"
	TypeWorkingDay = "WORKING_DAY" // compensatory working day
	TypeEvent      = "EVENT"
	TypeExam       = "EXAM"
)

var (
	EntryTypes = []string{TypeHoliday, TypeWorkingDay, TypeEvent, TypeExam}

	defaultWeeklyOffDays = core.IntList{7} // Sunday
)

type Session struct {
	ID            string       `json:"id" db:"id"`
	SchoolID      string       `json:"school_id" db:"school_id"`
	Name          string       `json:"name" db:"name"`
	StartDate     core.Date    `json:"start_date" db:"start_date"`
	EndDate       core.Date    `json:"end_date" db:"end_date"`
	WeeklyOffDays core.IntList `json:"weekly_off_days" db:"weekly_off_days"`
	IsCurrent     bool         `json:"is_current" db:"is_current"`
	WorkingDays   int          `json:"working_days" db:"working_days"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
	core.SoftDelete
}

// Contains reports whether d falls within the session (bounds included).
func (s Session) Contains(d core.Date) bool {
	return !d.Before(s.StartDate) && !d.After(s.EndDate)
}

type Entry struct {
	ID          string    `json:"id" db:"id"`
	SchoolID    string    `json:"school_id" db:"school_id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	Title       string    `json:"title" db:"title"`
	Type        string    `json:"type" db:"type"`
	StartDate   core.Date `json:"start_date" db:"start_date"`
	EndDate     core.Date `json:"end_date" db:"end_date"` // inclusive
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	core.SoftDelete
}

func (e Entry) Covers(d core.Date) bool {
	return !d.Before(e.StartDate) && !d.After(e.EndDate)
}

type NewSession struct {
	Name          string    `json:"name" validate:"required,notblank,max=100"`
	StartDate     core.Date `json:"start_date" validate:"required"`
	EndDate       core.Date `json:"end_date" validate:"required"`
	WeeklyOffDays []int     `json:"weekly_off_days" validate:"omitempty,max=6,weekdays"`
	IsCurrent     bool      `json:"is_current"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.StartDate.Before(ns.EndDate) {
		return errInvalidRange
	}
	return nil
}

type UpdateSession struct {
	Name          string     `json:"name" validate:"max=100"`
	StartDate     *core.Date `json:"start_date"`
	EndDate       *core.Date `json:"end_date"`
	WeeklyOffDays []int      `json:"weekly_off_days" validate:"omitempty,max=6,weekdays"`
	IsCurrent     *bool      `json:"is_current"`
}

func (us *UpdateSession) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	return validate.Struct(us)
}

type SessionFilter struct {
	SchoolID  string
	Search    string    `query:"search"`
	IsCurrent *bool     `query:"is_current"`
	From      core.Date `query:"from"` // sessions ending on or after
	To        core.Date `query:"to"`   // sessions starting on or before
	ExcludeID string
}

type NewEntry struct {
	SessionID   string    `json:"session_id" validate:"required"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Type        string    `json:"type" validate:"required,oneof=HOLIDAY WORKING_DAY EVENT EXAM"`
	StartDate   core.Date `json:"start_date" validate:"required"`
	EndDate     core.Date `json:"end_date"` // defaults to StartDate
	Description string    `json:"description"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.SessionID = core.CleanString(ne.SessionID)
	ne.Title = core.CleanString(ne.Title)
	ne.Type = strings.ToUpper(core.CleanString(ne.Type))
	ne.Description = strings.TrimSpace(ne.Description)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.EndDate.IsZero() {
		ne.EndDate = ne.StartDate
	}
	if ne.EndDate.Before(ne.StartDate) {
		return errInvalidEntryRange
	}
	return nil
}

type UpdateEntry struct {
	Title       string     `json:"title" validate:"max=200"`
	Type        string     `json:"type" validate:"omitempty,oneof=HOLIDAY WORKING_DAY EVENT EXAM"`
	StartDate   *core.Date `json:"start_date"`
	EndDate     *core.Date `json:"end_date"`
	Description *string    `json:"description"`
}

func (ue *UpdateEntry) Validate(validate *validator.Validate) error {
	ue.Title = core.CleanString(ue.Title)
	ue.Type = strings.ToUpper(core.CleanString(ue.Type))
	return validate.Struct(ue)
}

type EntryFilter struct {
	SchoolID  string
	SessionID string    `query:"session_id"`
	Type      string    `query:"type"`
	From      core.Date `query:"from"` // entries ending on or after
	To        core.Date `query:"to"`   // entries starting on or before
}
