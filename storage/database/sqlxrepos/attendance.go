package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/student"
)

const (
	attendanceTable      = "attendance"
	staffAttendanceTable = "staff_attendance"
)

var (
	attendanceCols       = []string{"id", "school_id", "student_id", "section_id", "date", "status", "remarks", "marked_by", "created_at", "updated_at"}
	attendanceUpsertCols = []string{"section_id", "status", "remarks", "marked_by", "updated_at"}

	staffAttendanceCols       = []string{"id", "school_id", "staff_id", "date", "status", "check_in", "check_out", "remarks", "marked_by", "created_at", "updated_at"}
	staffAttendanceUpsertCols = []string{"status", "check_in", "check_out", "remarks", "marked_by", "updated_at"}
)

// upsertQuery builds a named INSERT that updates updateCols when the conflictCols already exist.
func upsertQuery(table string, cols, conflictCols, updateCols []string) string {
	sets := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		sets = append(sets, col+" = excluded."+col)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (:%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), strings.Join(cols, ", :"), strings.Join(conflictCols, ", "), strings.Join(sets, ", "),
	)
}

var (
	attendanceUpsert      = upsertQuery(attendanceTable, attendanceCols, []string{"student_id", "date"}, attendanceUpsertCols)
	staffAttendanceUpsert = upsertQuery(staffAttendanceTable, staffAttendanceCols, []string{"staff_id", "date"}, staffAttendanceUpsertCols)
)

type attendanceRepository struct {
	base
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{base{exec: exec}}
}

// Students

func (repo attendanceRepository) UpsertRecords(ctx context.Context, records []attendance.Record, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = newID()
		}
		if _, err := sqlx.NamedExecContext(ctx, db, attendanceUpsert, rec); err != nil {
			return errors.Wrap(err, "upserting attendance")
		}
	}
	return nil
}

func (repo attendanceRepository) QueryRecords(ctx context.Context, filter attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	cols := make([]string, 0, len(attendanceCols)+2)
	for _, col := range attendanceCols {
		cols = append(cols, "a."+col)
	}
	qb := builder.Select(append(cols, "st.name AS student_name", "st.admission_no")...).
		From(attendanceTable + " a").
		Join(studentsTable + " st ON st.id = a.student_id").
		Where(sq.Eq{"a.school_id": filter.SchoolID})

	if filter.SectionID != "" {
		qb = qb.Where(sq.Eq{"a.section_id": filter.SectionID})
	}
	if filter.StudentID != "" {
		qb = qb.Where(sq.Eq{"a.student_id": filter.StudentID})
	}
	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"a.status": filter.Status})
	}
	if !filter.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"a.date": filter.From})
	}
	if !filter.To.IsZero() {
		qb = qb.Where(sq.LtOrEq{"a.date": filter.To})
	}
	qb = qb.OrderBy("a.date", "st.name")

	records := []attendance.Record{}
	if err := selectMany(ctx, repo.getExec(exec), &records, qb); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func (repo attendanceRepository) SectionStudents(ctx context.Context, schoolID, sectionID string, exec ...core.DBExecutor) ([]attendance.StudentRef, error) {
	db := repo.getExec(exec)
	found, err := rowExists(ctx, db, sectionsTable, schoolID, sectionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, attendance.ErrSectionNotFound
	}

	qb := builder.Select("id", "name", "admission_no").
		From(studentsTable).
		Where(sq.Eq{"school_id": schoolID, "section_id": sectionID, "status": student.StatusActive, "deleted_at": nil}).
		OrderBy("roll_no", "name")

	refs := []attendance.StudentRef{}
	if err = selectMany(ctx, db, &refs, qb); err != nil {
		return nil, errors.Wrap(err, "querying section students")
	}
	return refs, nil
}

func (repo attendanceRepository) StudentExists(ctx context.Context, schoolID, studentID string, exec ...core.DBExecutor) (bool, error) {
	return rowExists(ctx, repo.getExec(exec), studentsTable, schoolID, studentID)
}

// Staff

func (repo attendanceRepository) UpsertStaffRecords(ctx context.Context, records []attendance.StaffRecord, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = newID()
		}
		if _, err := sqlx.NamedExecContext(ctx, db, staffAttendanceUpsert, rec); err != nil {
			return errors.Wrap(err, "upserting staff attendance")
		}
	}
	return nil
}

func (repo attendanceRepository) QueryStaffRecords(ctx context.Context, filter attendance.StaffFilter, exec ...core.DBExecutor) ([]attendance.StaffRecord, error) {
	cols := make([]string, 0, len(staffAttendanceCols)+2)
	for _, col := range staffAttendanceCols {
		cols = append(cols, "a."+col)
	}
	qb := builder.Select(append(cols, "stf.name AS staff_name", "stf.employee_no")...).
		From(staffAttendanceTable + " a").
		Join(staffTable + " stf ON stf.id = a.staff_id").
		Where(sq.Eq{"a.school_id": filter.SchoolID})

	if filter.StaffID != "" {
		qb = qb.Where(sq.Eq{"a.staff_id": filter.StaffID})
	}
	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"a.status": filter.Status})
	}
	if !filter.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"a.date": filter.From})
	}
	if !filter.To.IsZero() {
		qb = qb.Where(sq.LtOrEq{"a.date": filter.To})
	}
	qb = qb.OrderBy("a.date", "stf.name")

	records := []attendance.StaffRecord{}
	if err := selectMany(ctx, repo.getExec(exec), &records, qb); err != nil {
		return nil, errors.Wrap(err, "querying staff attendance")
	}
	return records, nil
}

func (repo attendanceRepository) ExistingStaff(ctx context.Context, schoolID string, ids []string, exec ...core.DBExecutor) ([]string, error) {
	found := []string{}
	if len(ids) == 0 {
		return found, nil
	}
	qb := builder.Select("id").
		From(staffTable).
		Where(sq.Eq{"school_id": schoolID, "id": ids, "deleted_at": nil})
	if err := selectMany(ctx, repo.getExec(exec), &found, qb); err != nil {
		return nil, errors.Wrap(err, "checking staff")
	}
	return found, nil
}
