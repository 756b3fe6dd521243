package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/subject"
)

const (
	subjectsTable      = "subjects"
	classSubjectsTable = "class_subjects"
)

var (
	subjectCols       = []string{"id", "school_id", "name", "code", "type", "description", "created_at", "updated_at"}
	subjectUpdateCols = []string{"name", "code", "type", "description", "updated_at"}
	subjectOrdering   = map[string]string{"name": "name", "code": "code", "type": "type", "created_at": "created_at"}

	classSubjectCols       = []string{"id", "school_id", "class_id", "subject_id", "teacher_id", "periods_per_week", "created_at", "updated_at"}
	classSubjectUpdateCols = []string{"teacher_id", "periods_per_week", "updated_at"}
	classSubjectOrdering   = map[string]string{"subject_name": "s.name", "subject_code": "s.code", "created_at": "cs.created_at"}
)

type subjectRepository struct {
	base
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(exec core.DBExecutor) *subjectRepository {
	return &subjectRepository{base{exec: exec}}
}

func (repo subjectRepository) selectSubjects() sq.SelectBuilder {
	return builder.Select(subjectCols...).From(subjectsTable).Where(sq.Eq{"deleted_at": nil})
}

func (repo subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	sub.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), subjectsTable, subjectCols, sub)
	return sub, trapErr(err, "inserting subject", nil, subject.ErrCodeExists)
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, filter subject.QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]subject.Subject, error) {
	qb := repo.selectSubjects().Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.Search != "" {
		qb = qb.Where(search(filter.Search, "name", "code"))
	}
	if filter.Type != "" {
		qb = qb.Where(sq.Eq{"type": filter.Type})
	}
	qb = applyListOptions(qb, opts, subjectOrdering, "name")

	subjects := []subject.Subject{}
	if err := selectMany(ctx, repo.getExec(exec), &subjects, qb); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (subject.Subject, error) {
	var sub subject.Subject
	err := getOne(ctx, repo.getExec(exec), &sub, repo.selectSubjects().Where(sq.Eq{"id": id, "school_id": schoolID}))
	return sub, trapErr(err, "getting subject", subject.ErrNotFound, nil)
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	err := updateRow(ctx, repo.getExec(exec), subjectsTable, subjectUpdateCols, sub, true)
	return sub, trapErr(err, "updating subject", subject.ErrNotFound, subject.ErrCodeExists)
}

func (repo subjectRepository) DeleteSubject(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), subjectsTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting subject", subject.ErrNotFound, nil)
}

// Class subjects

func (repo subjectRepository) selectClassSubjects() sq.SelectBuilder {
	cols := make([]string, 0, len(classSubjectCols)+2)
	for _, col := range classSubjectCols {
		cols = append(cols, "cs."+col)
	}
	return builder.Select(append(cols, "s.name AS subject_name", "s.code AS subject_code")...).
		From(classSubjectsTable + " cs").
		Join(subjectsTable + " s ON s.id = cs.subject_id").
		Where(sq.Eq{"cs.deleted_at": nil, "s.deleted_at": nil})
}

func (repo subjectRepository) getClassSubject(ctx context.Context, exec core.DBExecutor, schoolID, id string) (subject.ClassSubject, error) {
	var cs subject.ClassSubject
	err := getOne(ctx, exec, &cs, repo.selectClassSubjects().Where(sq.Eq{"cs.id": id, "cs.school_id": schoolID}))
	return cs, trapErr(err, "getting class subject", subject.ErrClassSubjectNotFound, nil)
}

func (repo subjectRepository) CreateClassSubject(ctx context.Context, cs subject.ClassSubject, exec ...core.DBExecutor) (subject.ClassSubject, error) {
	cs.ID = newID()
	db := repo.getExec(exec)
	if err := insertRow(ctx, db, classSubjectsTable, classSubjectCols, cs); err != nil {
		return cs, trapErr(err, "inserting class subject", nil, subject.ErrClassSubjectExists)
	}
	return repo.getClassSubject(ctx, db, cs.SchoolID, cs.ID)
}

func (repo subjectRepository) QueryClassSubjects(ctx context.Context, filter subject.ClassSubjectFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]subject.ClassSubject, error) {
	qb := repo.selectClassSubjects().Where(sq.Eq{"cs.school_id": filter.SchoolID})
	if filter.ClassID != "" {
		qb = qb.Where(sq.Eq{"cs.class_id": filter.ClassID})
	}
	if filter.SubjectID != "" {
		qb = qb.Where(sq.Eq{"cs.subject_id": filter.SubjectID})
	}
	if filter.TeacherID != "" {
		qb = qb.Where(sq.Eq{"cs.teacher_id": filter.TeacherID})
	}
	qb = applyListOptions(qb, opts, classSubjectOrdering, "s.name")

	assigned := []subject.ClassSubject{}
	if err := selectMany(ctx, repo.getExec(exec), &assigned, qb); err != nil {
		return nil, errors.Wrap(err, "querying class subjects")
	}
	return assigned, nil
}

func (repo subjectRepository) GetClassSubject(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (subject.ClassSubject, error) {
	return repo.getClassSubject(ctx, repo.getExec(exec), schoolID, id)
}

func (repo subjectRepository) UpdateClassSubject(ctx context.Context, cs subject.ClassSubject, exec ...core.DBExecutor) (subject.ClassSubject, error) {
	err := updateRow(ctx, repo.getExec(exec), classSubjectsTable, classSubjectUpdateCols, cs, true)
	return cs, trapErr(err, "updating class subject", subject.ErrClassSubjectNotFound, subject.ErrClassSubjectExists)
}

func (repo subjectRepository) DeleteClassSubject(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), classSubjectsTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting class subject", subject.ErrClassSubjectNotFound, nil)
}

func (repo subjectRepository) ClassExists(ctx context.Context, schoolID, classID string, exec ...core.DBExecutor) (bool, error) {
	return classExists(ctx, repo.getExec(exec), schoolID, classID)
}

func (repo subjectRepository) StaffExists(ctx context.Context, schoolID, staffID string, exec ...core.DBExecutor) (bool, error) {
	return staffExists(ctx, repo.getExec(exec), schoolID, staffID)
}
