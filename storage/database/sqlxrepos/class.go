package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
)

const (
	classesTable  = "classes"
	sectionsTable = "sections"
)

var (
	classCols       = []string{"id", "school_id", "name", "grade", "created_at", "updated_at"}
	classUpdateCols = []string{"name", "grade", "updated_at"}
	classOrdering   = map[string]string{"name": "name", "grade": "grade", "created_at": "created_at"}

	sectionCols       = []string{"id", "school_id", "class_id", "name", "capacity", "class_teacher_id", "created_at", "updated_at"}
	sectionUpdateCols = []string{"name", "capacity", "class_teacher_id", "updated_at"}
	sectionOrdering   = map[string]string{"name": "name", "capacity": "capacity", "created_at": "created_at"}
)

type classRepository struct {
	base
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{base{exec: exec}}
}

// Classes

func (repo classRepository) selectClasses() sq.SelectBuilder {
	return builder.Select(classCols...).From(classesTable).Where(sq.Eq{"deleted_at": nil})
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	cls.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), classesTable, classCols, cls)
	return cls, trapErr(err, "inserting class", nil, class.ErrClassNameExists)
}

func (repo classRepository) QueryClasses(ctx context.Context, schoolID string, opts core.ListOptions, exec ...core.DBExecutor) ([]class.Class, error) {
	qb := applyListOptions(repo.selectClasses().Where(sq.Eq{"school_id": schoolID}), opts, classOrdering, "grade", "name")
	classes := []class.Class{}
	if err := selectMany(ctx, repo.getExec(exec), &classes, qb); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo classRepository) GetClass(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (class.Class, error) {
	var cls class.Class
	err := getOne(ctx, repo.getExec(exec), &cls, repo.selectClasses().Where(sq.Eq{"id": id, "school_id": schoolID}))
	return cls, trapErr(err, "getting class", class.ErrClassNotFound, nil)
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	err := updateRow(ctx, repo.getExec(exec), classesTable, classUpdateCols, cls, true)
	return cls, trapErr(err, "updating class", class.ErrClassNotFound, class.ErrClassNameExists)
}

func (repo classRepository) DeleteClass(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), classesTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting class", class.ErrClassNotFound, nil)
}

// Sections

func (repo classRepository) selectSections() sq.SelectBuilder {
	return builder.Select(sectionCols...).From(sectionsTable).Where(sq.Eq{"deleted_at": nil})
}

func (repo classRepository) CreateSection(ctx context.Context, sec class.Section, exec ...core.DBExecutor) (class.Section, error) {
	sec.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), sectionsTable, sectionCols, sec)
	return sec, trapErr(err, "inserting section", nil, class.ErrSectionNameExists)
}

func (repo classRepository) QuerySections(ctx context.Context, filter class.SectionFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]class.Section, error) {
	qb := repo.selectSections().Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.ClassID != "" {
		qb = qb.Where(sq.Eq{"class_id": filter.ClassID})
	}
	if filter.ClassTeacherID != "" {
		qb = qb.Where(sq.Eq{"class_teacher_id": filter.ClassTeacherID})
	}
	if filter.Search != "" {
		qb = qb.Where(search(filter.Search, "name"))
	}
	qb = applyListOptions(qb, opts, sectionOrdering, "name")

	sections := []class.Section{}
	if err := selectMany(ctx, repo.getExec(exec), &sections, qb); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	return sections, nil
}

func (repo classRepository) GetSection(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (class.Section, error) {
	var sec class.Section
	err := getOne(ctx, repo.getExec(exec), &sec, repo.selectSections().Where(sq.Eq{"id": id, "school_id": schoolID}))
	return sec, trapErr(err, "getting section", class.ErrSectionNotFound, nil)
}

func (repo classRepository) UpdateSection(ctx context.Context, sec class.Section, exec ...core.DBExecutor) (class.Section, error) {
	err := updateRow(ctx, repo.getExec(exec), sectionsTable, sectionUpdateCols, sec, true)
	return sec, trapErr(err, "updating section", class.ErrSectionNotFound, class.ErrSectionNameExists)
}

func (repo classRepository) DeleteSection(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), sectionsTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting section", class.ErrSectionNotFound, nil)
}

func (repo classRepository) StaffExists(ctx context.Context, schoolID, staffID string, exec ...core.DBExecutor) (bool, error) {
	return staffExists(ctx, repo.getExec(exec), schoolID, staffID)
}

// rowExists reports whether a non-deleted row of the school has the given id.
func rowExists(ctx context.Context, exec core.DBExecutor, table, schoolID, id string) (bool, error) {
	found, err := exists(ctx, exec, builder.Select("id").From(table).
		Where(sq.Eq{"id": id, "school_id": schoolID, "deleted_at": nil}))
	return found, errors.Wrapf(err, "checking %s", table)
}

func classExists(ctx context.Context, exec core.DBExecutor, schoolID, classID string) (bool, error) {
	return rowExists(ctx, exec, classesTable, schoolID, classID)
}
