package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/timetable"
)

const timetableTable = "timetable_entries"

var timetableCols = []string{
	"id", "school_id", "section_id", "day_of_week", "period", "start_time", "end_time", "subject_id", "teacher_id", "room",
	"created_at", "updated_at",
}

type timetableRepository struct {
	base
}

var _ timetable.Repository = (*timetableRepository)(nil)

func NewTimetableRepository(exec core.DBExecutor) *timetableRepository {
	return &timetableRepository{base{exec: exec}}
}

func (repo timetableRepository) selectEntries() sq.SelectBuilder {
	cols := make([]string, 0, len(timetableCols)+3)
	for _, col := range timetableCols {
		cols = append(cols, "t."+col)
	}
	return builder.Select(append(cols, "sub.name AS subject_name", "stf.name AS teacher_name", "sec.name AS section_name")...).
		From(timetableTable + " t").
		Join(subjectsTable + " sub ON sub.id = t.subject_id").
		Join(sectionsTable + " sec ON sec.id = t.section_id").
		LeftJoin(staffTable + " stf ON stf.id = t.teacher_id").
		Where(sq.Eq{"t.deleted_at": nil})
}

func timetableConflict(err error) error {
	if constraint, ok := uniqueViolation(err); ok && containsAny(constraint, "teacher") {
		return timetable.ErrTeacherBusy
	}
	return timetable.ErrSlotTaken
}

func (repo timetableRepository) CreateEntry(ctx context.Context, entry timetable.Entry, exec ...core.DBExecutor) (timetable.Entry, error) {
	entry.ID = newID()
	db := repo.getExec(exec)
	if err := insertRow(ctx, db, timetableTable, timetableCols, entry); err != nil {
		return entry, trapErr(err, "inserting timetable entry", nil, timetableConflict(err))
	}
	return repo.GetEntry(ctx, entry.SchoolID, entry.ID, db)
}

func (repo timetableRepository) QueryEntries(ctx context.Context, filter timetable.QueryFilter, exec ...core.DBExecutor) ([]timetable.Entry, error) {
	qb := repo.selectEntries().Where(sq.Eq{"t.school_id": filter.SchoolID})
	if filter.SectionID != "" {
		qb = qb.Where(sq.Eq{"t.section_id": filter.SectionID})
	}
	if filter.TeacherID != "" {
		qb = qb.Where(sq.Eq{"t.teacher_id": filter.TeacherID})
	}
	if filter.DayOfWeek != 0 {
		qb = qb.Where(sq.Eq{"t.day_of_week": filter.DayOfWeek})
	}
	qb = qb.OrderBy("t.day_of_week", "t.period", "sec.name")

	entries := []timetable.Entry{}
	if err := selectMany(ctx, repo.getExec(exec), &entries, qb); err != nil {
		return nil, errors.Wrap(err, "querying timetable")
	}
	return entries, nil
}

func (repo timetableRepository) GetEntry(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (timetable.Entry, error) {
	var entry timetable.Entry
	err := getOne(ctx, repo.getExec(exec), &entry, repo.selectEntries().Where(sq.Eq{"t.id": id, "t.school_id": schoolID}))
	return entry, trapErr(err, "getting timetable entry", timetable.ErrNotFound, nil)
}

func (repo timetableRepository) DeleteEntry(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), timetableTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting timetable entry", timetable.ErrNotFound, nil)
}

func (repo timetableRepository) DeleteSectionEntries(ctx context.Context, schoolID, sectionID, deletedBy string, exec ...core.DBExecutor) error {
	_, err := execute(ctx, repo.getExec(exec), builder.Update(timetableTable).
		Set("deleted_at", core.NowFunc()).
		Set("deleted_by_id", nullable(deletedBy)).
		Where(sq.Eq{"school_id": schoolID, "section_id": sectionID, "deleted_at": nil}))
	return errors.Wrap(err, "deleting section timetable")
}

func (repo timetableRepository) FindTeacherEntry(ctx context.Context, teacherID string, dayOfWeek, period int, exec ...core.DBExecutor) (timetable.Entry, error) {
	var entry timetable.Entry
	err := getOne(ctx, repo.getExec(exec), &entry, repo.selectEntries().
		Where(sq.Eq{"t.teacher_id": teacherID, "t.day_of_week": dayOfWeek, "t.period": period}))
	return entry, trapErr(err, "finding teacher entry", timetable.ErrNotFound, nil)
}

func (repo timetableRepository) SectionExists(ctx context.Context, schoolID, sectionID string, exec ...core.DBExecutor) (bool, error) {
	return rowExists(ctx, repo.getExec(exec), sectionsTable, schoolID, sectionID)
}

func (repo timetableRepository) SubjectExists(ctx context.Context, schoolID, subjectID string, exec ...core.DBExecutor) (bool, error) {
	return rowExists(ctx, repo.getExec(exec), subjectsTable, schoolID, subjectID)
}

func (repo timetableRepository) StaffExists(ctx context.Context, schoolID, staffID string, exec ...core.DBExecutor) (bool, error) {
	return staffExists(ctx, repo.getExec(exec), schoolID, staffID)
}
