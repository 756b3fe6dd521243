package attendance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/export"
)

var (
	ErrSectionNotFound = core.NewNotFoundError("section")
	ErrStudentNotFound = core.NewNotFoundError("student")

	errNotWorkingDay = core.NewValidationError(nil, core.FieldError{Field: "date", Error: "attendance can only be marked on working days"})
	errFutureDate    = core.NewValidationError(nil, core.FieldError{Field: "date", Error: "attendance cannot be marked in the future"})
	errInvalidRange  = core.NewValidationError(nil, core.FieldError{Field: "to", Error: "end date cannot be before start date"})
)

type Repository interface {
	UpsertRecords(ctx context.Context, records []Record, exec ...core.DBExecutor) error
	QueryRecords(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Record, error)
	// SectionStudents lists the ACTIVE students of a section; ErrSectionNotFound if it does not exist.
	SectionStudents(ctx context.Context, schoolID, sectionID string, exec ...core.DBExecutor) ([]StudentRef, error)
	StudentExists(ctx context.Context, schoolID, studentID string, exec ...core.DBExecutor) (bool, error)

	UpsertStaffRecords(ctx context.Context, records []StaffRecord, exec ...core.DBExecutor) error
	QueryStaffRecords(ctx context.Context, filter StaffFilter, exec ...core.DBExecutor) ([]StaffRecord, error)
	// ExistingStaff returns the subset of ids that are (non-deleted) staff members of the school.
	ExistingStaff(ctx context.Context, schoolID string, ids []string, exec ...core.DBExecutor) ([]string, error)
}

// Calendar tells which days are school days.
type Calendar interface {
	IsWorkingDay(ctx context.Context, schoolID string, d core.Date) (bool, error)
	WorkingDays(ctx context.Context, schoolID string, from, to core.Date) (int, error)
}

type Service struct {
	db       core.DB
	repo     Repository
	calendar Calendar
}

func NewService(db core.DB, repo Repository, cal Calendar) *Service {
	return &Service{db: db, repo: repo, calendar: cal}
}

func (svc *Service) checkDate(ctx context.Context, schoolID string, d core.Date) error {
	if d.After(core.Today()) {
		return errFutureDate
	}
	ok, err := svc.calendar.IsWorkingDay(ctx, schoolID, d)
	if err != nil {
		return err
	}
	if !ok {
		return errNotWorkingDay
	}
	return nil
}

// MarkSection records (or corrects) the attendance of a section's students for a day.
func (svc *Service) MarkSection(ctx context.Context, schoolID, markedBy string, ms MarkSection) ([]Record, error) {
	if err := svc.checkDate(ctx, schoolID, ms.Date); err != nil {
		return nil, err
	}
	students, err := svc.repo.SectionStudents(ctx, schoolID, ms.SectionID)
	if err != nil {
		return nil, err
	}
	enrolled := make(map[string]bool, len(students))
	for _, std := range students {
		enrolled[std.ID] = true
	}

	now := core.NowFunc()
	records := make([]Record, 0, len(ms.Records))
	seen := make(map[string]bool, len(ms.Records))
	for i, item := range ms.Records {
		if !enrolled[item.StudentID] {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("records[%d].student_id", i),
				Error: "student is not enrolled in this section",
			})
		}
		if seen[item.StudentID] {
			continue
		}
		seen[item.StudentID] = true
		records = append(records, Record{
			SchoolID:  schoolID,
			StudentID: item.StudentID,
			SectionID: ms.SectionID,
			Date:      ms.Date,
			Status:    item.Status,
			Remarks:   item.Remarks,
			MarkedBy:  markedBy,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		return svc.repo.UpsertRecords(ctx, records, tx)
	})
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryRecords(ctx, QueryFilter{SchoolID: schoolID, SectionID: ms.SectionID, From: ms.Date, To: ms.Date})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

// Summary aggregates the attendance of a student between from and to (inclusive).
func (svc *Service) Summary(ctx context.Context, schoolID, studentID string, from, to core.Date) (Summary, error) {
	if to.Before(from) {
		return Summary{}, errInvalidRange
	}
	ok, err := svc.repo.StudentExists(ctx, schoolID, studentID)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		return Summary{}, ErrStudentNotFound
	}

	summary := Summary{StudentID: studentID, From: from, To: to}
	if summary.WorkingDays, err = svc.calendar.WorkingDays(ctx, schoolID, from, to); err != nil {
		return Summary{}, err
	}
	records, err := svc.repo.QueryRecords(ctx, QueryFilter{SchoolID: schoolID, StudentID: studentID, From: from, To: to})
	if err != nil {
		return Summary{}, err
	}
	for _, rec := range records {
		summary.add(rec.Status)
	}
	summary.computePercentage()
	return summary, nil
}

// SectionReport builds the per-student attendance report of a section.
func (svc *Service) SectionReport(ctx context.Context, schoolID, sectionID string, from, to core.Date) (export.Table, error) {
	if to.Before(from) {
		return export.Table{}, errInvalidRange
	}
	students, err := svc.repo.SectionStudents(ctx, schoolID, sectionID)
	if err != nil {
		return export.Table{}, err
	}
	workingDays, err := svc.calendar.WorkingDays(ctx, schoolID, from, to)
	if err != nil {
		return export.Table{}, err
	}
	records, err := svc.repo.QueryRecords(ctx, QueryFilter{SchoolID: schoolID, SectionID: sectionID, From: from, To: to})
	if err != nil {
		return export.Table{}, err
	}

	summaries := make(map[string]*Summary, len(students))
	for _, std := range students {
		summaries[std.ID] = &Summary{StudentID: std.ID}
	}
	for _, rec := range records {
		if s, ok := summaries[rec.StudentID]; ok {
			s.add(rec.Status)
		}
	}

	tbl := export.Table{
		Title:   fmt.Sprintf("Attendance %s to %s (%d working days)", from, to, workingDays),
		Columns: []string{"Admission No", "Name", "Present", "Absent", "Late", "Excused", "Marked", "Percentage"},
	}
	for _, std := range students {
		s := summaries[std.ID]
		s.computePercentage()
		tbl.Rows = append(tbl.Rows, []string{
			std.AdmissionNo, std.Name,
			strconv.Itoa(s.Present), strconv.Itoa(s.Absent), strconv.Itoa(s.Late), strconv.Itoa(s.Excused),
			strconv.Itoa(s.Marked), strconv.FormatFloat(s.Percentage, 'f', 2, 64),
		})
	}
	return tbl, nil
}

// Staff

// MarkStaff records (or corrects) the attendance of staff members for a day.
func (svc *Service) MarkStaff(ctx context.Context, schoolID, markedBy string, ms MarkStaff) ([]StaffRecord, error) {
	if ms.Date.After(core.Today()) {
		return nil, errFutureDate
	}

	ids := make([]string, 0, len(ms.Records))
	for _, item := range ms.Records {
		ids = append(ids, item.StaffID)
	}
	existing, err := svc.repo.ExistingStaff(ctx, schoolID, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}

	now := core.NowFunc()
	records := make([]StaffRecord, 0, len(ms.Records))
	seen := make(map[string]bool, len(ms.Records))
	for i, item := range ms.Records {
		if !known[item.StaffID] {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("records[%d].staff_id", i),
				Error: "staff member not found",
			})
		}
		if seen[item.StaffID] {
			continue
		}
		seen[item.StaffID] = true
		records = append(records, StaffRecord{
			SchoolID:  schoolID,
			StaffID:   item.StaffID,
			Date:      ms.Date,
			Status:    item.Status,
			CheckIn:   item.CheckIn,
			CheckOut:  item.CheckOut,
			Remarks:   item.Remarks,
			MarkedBy:  markedBy,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		return svc.repo.UpsertStaffRecords(ctx, records, tx)
	})
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryStaffRecords(ctx, StaffFilter{SchoolID: schoolID, From: ms.Date, To: ms.Date})
}

func (svc *Service) QueryStaff(ctx context.Context, filter StaffFilter) ([]StaffRecord, error) {
	return svc.repo.QueryStaffRecords(ctx, filter)
}

// UnpaidDays returns, per staff member, the days between from and to that are not paid:
// one per ABSENT day & a half per HALF_DAY. LEAVE is paid.
func (svc *Service) UnpaidDays(ctx context.Context, schoolID string, from, to core.Date) (map[string]float64, error) {
	records, err := svc.repo.QueryStaffRecords(ctx, StaffFilter{SchoolID: schoolID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	unpaid := make(map[string]float64)
	for _, rec := range records {
		switch rec.Status {
		case StaffAbsent:
			unpaid[rec.StaffID]++
		case StaffHalfDay:
			unpaid[rec.StaffID] += .5
		}
	}
	return unpaid, nil
}
