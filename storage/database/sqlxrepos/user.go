package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const usersTable = "users"

var (
	userCols = []string{
		"id", "school_id", "name", "username", "email", "phone", "is_active", "roles", "password_hash",
		"created_at", "updated_at", "last_login",
	}
	userUpdateCols = []string{
		"name", "username", "email", "phone", "is_active", "roles", "password_hash", "updated_at", "last_login",
	}
	userOrdering = map[string]string{
		"name":       "name",
		"username":   "username",
		"email":      "email",
		"created_at": "created_at",
		"last_login": "last_login",
	}
)

type userRow struct {
	ID           string          `db:"id"`
	SchoolID     null.String     `db:"school_id"`
	Name         string          `db:"name"`
	Username     null.String     `db:"username"`
	Email        null.String     `db:"email"`
	Phone        string          `db:"phone"`
	IsActive     bool            `db:"is_active"`
	Roles        core.StringList `db:"roles"`
	PasswordHash string          `db:"password_hash"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
	LastLogin    null.Time       `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		SchoolID:     null.NewString(usr.SchoolID, usr.SchoolID != ""),
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Phone:        usr.Phone,
		IsActive:     usr.IsActive,
		Roles:        usr.Roles,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) toUser() user.User {
	roles := []string(row.Roles)
	if roles == nil {
		roles = []string{}
	}
	return user.User{
		ID:           row.ID,
		SchoolID:     row.SchoolID.String,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Phone:        row.Phone,
		IsActive:     row.IsActive,
		Roles:        roles,
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	base
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{base{exec: exec}}
}

func (repo userRepository) selectUsers() sq.SelectBuilder {
	return builder.Select(userCols...).From(usersTable).Where(sq.Eq{"deleted_at": nil})
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)
	var excluded []string
	for _, u := range excludedUsers {
		if u.ID != "" {
			excluded = append(excluded, u.ID)
		}
	}
	check := func(col, val string, conflict error) error {
		if val == "" {
			return nil
		}
		qb := repo.selectUsers().Where(sq.Eq{col: val})
		if len(excluded) > 0 {
			qb = qb.Where(sq.NotEq{"id": excluded})
		}
		found, err := exists(ctx, db, qb)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if found {
			return conflict
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = newID()
	row := toUserRow(usr)
	if err := insertRow(ctx, repo.getExec(exec), usersTable, userCols, row); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return user.User{}, userConflict(constraint)
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func userConflict(constraint string) error {
	if containsAny(constraint, "email") {
		return user.ErrEmailExists
	}
	return user.ErrUsernameExists
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]user.User, error) {
	qb := repo.selectUsers()
	if filter != nil {
		if filter.SchoolID != "" {
			qb = qb.Where(sq.Eq{"school_id": filter.SchoolID})
		}
		if filter.Search != "" {
			qb = qb.Where(search(filter.Search, "name", "username", "email"))
		}
		if len(filter.Roles) > 0 {
			qb = qb.Where(hasAnyRole("roles", filter.Roles))
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}
	qb = applyListOptions(qb, opts, userOrdering, "created_at DESC")

	var rows []userRow
	if err := selectMany(ctx, repo.getExec(exec), &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	qb := repo.selectUsers()
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		qb = qb.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		qb = qb.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		qb = qb.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}
	if filter.SchoolID != "" {
		qb = qb.Where(sq.Eq{"school_id": filter.SchoolID})
	}

	var row userRow
	if err := getOne(ctx, repo.getExec(exec), &row, qb); err != nil {
		return user.User{}, trapErr(err, "getting user", user.ErrNotFound, nil)
	}
	return row.toUser(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := toUserRow(usr)
	if err := updateRow(ctx, repo.getExec(exec), usersTable, userUpdateCols, row, true); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return user.User{}, userConflict(constraint)
		}
		return user.User{}, trapErr(err, "updating user", user.ErrNotFound, nil)
	}
	return row.toUser(), nil
}

func (repo userRepository) DeleteUsers(ctx context.Context, schoolID, deletedBy string, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	stmt := builder.Update(usersTable).
		Set("deleted_at", core.NowFunc()).
		Set("deleted_by_id", nullable(deletedBy)).
		Where(sq.Eq{"id": ids, "deleted_at": nil})
	if schoolID != "" {
		stmt = stmt.Where(sq.Eq{"school_id": schoolID})
	}
	if _, err := execute(ctx, repo.getExec(exec), stmt); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

// userInSchool reports whether a (non-deleted) user belongs to the school.
func userInSchool(ctx context.Context, exec core.DBExecutor, schoolID, userID string) (bool, error) {
	found, err := exists(ctx, exec, builder.Select("id").From(usersTable).
		Where(sq.Eq{"id": userID, "school_id": schoolID, "deleted_at": nil}))
	return found, errors.Wrap(err, "checking user")
}
