package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

const schoolsTable = "schools"

var (
	schoolCols       = []string{"id", "name", "code", "address", "phone", "email", "is_active", "created_at", "updated_at"}
	schoolUpdateCols = []string{"name", "code", "address", "phone", "email", "is_active", "updated_at"}
	schoolOrdering   = map[string]string{"name": "name", "code": "code", "created_at": "created_at"}
)

type schoolRepository struct {
	base
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{base{exec: exec}}
}

func (repo schoolRepository) selectSchools() sq.SelectBuilder {
	return builder.Select(schoolCols...).From(schoolsTable).Where(sq.Eq{"deleted_at": nil})
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School, exec ...core.DBExecutor) (school.School, error) {
	sch.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), schoolsTable, schoolCols, sch)
	return sch, trapErr(err, "inserting school", nil, school.ErrCodeExists)
}

func (repo schoolRepository) QuerySchools(ctx context.Context, filter school.QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]school.School, error) {
	qb := repo.selectSchools()
	if filter.Search != "" {
		qb = qb.Where(search(filter.Search, "name", "code"))
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	qb = applyListOptions(qb, opts, schoolOrdering, "name")

	schools := []school.School{}
	if err := selectMany(ctx, repo.getExec(exec), &schools, qb); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	return schools, nil
}

func (repo schoolRepository) GetSchool(ctx context.Context, id string, exec ...core.DBExecutor) (school.School, error) {
	var sch school.School
	err := getOne(ctx, repo.getExec(exec), &sch, repo.selectSchools().Where(sq.Eq{"id": id}))
	return sch, trapErr(err, "getting school", school.ErrNotFound, nil)
}

func (repo schoolRepository) UpdateSchool(ctx context.Context, sch school.School, exec ...core.DBExecutor) (school.School, error) {
	err := updateRow(ctx, repo.getExec(exec), schoolsTable, schoolUpdateCols, sch, true)
	return sch, trapErr(err, "updating school", school.ErrNotFound, school.ErrCodeExists)
}

func (repo schoolRepository) DeleteSchool(ctx context.Context, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), schoolsTable, "", id, deletedBy)
	return trapErr(err, "deleting school", school.ErrNotFound, nil)
}
