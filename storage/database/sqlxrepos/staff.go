package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

const staffTable = "staff"

var (
	staffCols = []string{
		"id", "school_id", "user_id", "employee_no", "name", "email", "phone", "designation", "department",
		"is_teaching", "joined_on", "monthly_salary", "allowances", "deductions", "created_at", "updated_at",
	}
	staffUpdateCols = []string{
		"user_id", "employee_no", "name", "email", "phone", "designation", "department",
		"is_teaching", "joined_on", "monthly_salary", "allowances", "deductions", "updated_at",
	}
	staffOrdering = map[string]string{
		"name":        "name",
		"employee_no": "employee_no",
		"department":  "department",
		"joined_on":   "joined_on",
		"created_at":  "created_at",
	}
)

type staffRepository struct {
	base
}

var _ staff.Repository = (*staffRepository)(nil)

func NewStaffRepository(exec core.DBExecutor) *staffRepository {
	return &staffRepository{base{exec: exec}}
}

func (repo staffRepository) selectStaff() sq.SelectBuilder {
	return builder.Select(staffCols...).From(staffTable).Where(sq.Eq{"deleted_at": nil})
}

func staffConflict(err error) error {
	if constraint, ok := uniqueViolation(err); ok && containsAny(constraint, "user") {
		return staff.ErrUserLinked
	}
	return staff.ErrEmployeeNoExists
}

func (repo staffRepository) CreateStaff(ctx context.Context, stf staff.Staff, exec ...core.DBExecutor) (staff.Staff, error) {
	stf.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), staffTable, staffCols, stf)
	return stf, trapErr(err, "inserting staff", nil, staffConflict(err))
}

func (repo staffRepository) QueryStaff(ctx context.Context, filter staff.QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]staff.Staff, error) {
	qb := repo.selectStaff().Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.Search != "" {
		qb = qb.Where(search(filter.Search, "name", "employee_no", "email"))
	}
	if filter.Department != "" {
		qb = qb.Where(sq.Eq{"department": filter.Department})
	}
	if filter.IsTeaching != nil {
		qb = qb.Where(sq.Eq{"is_teaching": *filter.IsTeaching})
	}
	qb = applyListOptions(qb, opts, staffOrdering, "name")

	members := []staff.Staff{}
	if err := selectMany(ctx, repo.getExec(exec), &members, qb); err != nil {
		return nil, errors.Wrap(err, "querying staff")
	}
	return members, nil
}

func (repo staffRepository) GetStaff(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (staff.Staff, error) {
	var stf staff.Staff
	err := getOne(ctx, repo.getExec(exec), &stf, repo.selectStaff().Where(sq.Eq{"id": id, "school_id": schoolID}))
	return stf, trapErr(err, "getting staff", staff.ErrNotFound, nil)
}

func (repo staffRepository) GetStaffByUser(ctx context.Context, userID string, exec ...core.DBExecutor) (staff.Staff, error) {
	var stf staff.Staff
	err := getOne(ctx, repo.getExec(exec), &stf, repo.selectStaff().Where(sq.Eq{"user_id": userID}))
	return stf, trapErr(err, "getting staff by user", staff.ErrNotFound, nil)
}

func (repo staffRepository) UpdateStaff(ctx context.Context, stf staff.Staff, exec ...core.DBExecutor) (staff.Staff, error) {
	err := updateRow(ctx, repo.getExec(exec), staffTable, staffUpdateCols, stf, true)
	return stf, trapErr(err, "updating staff", staff.ErrNotFound, staffConflict(err))
}

func (repo staffRepository) DeleteStaff(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), staffTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting staff", staff.ErrNotFound, nil)
}

func (repo staffRepository) UserInSchool(ctx context.Context, schoolID, userID string, exec ...core.DBExecutor) (bool, error) {
	return userInSchool(ctx, repo.getExec(exec), schoolID, userID)
}

func staffExists(ctx context.Context, exec core.DBExecutor, schoolID, staffID string) (bool, error) {
	return rowExists(ctx, exec, staffTable, schoolID, staffID)
}
