// Package sqlxrepos implements the domain repositories with sqlx & squirrel.
// Queries are portable between postgres & sqlite: IDs & timestamps are generated in Go.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/shule/core"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// base holds the default executor; services may pass a transaction instead.
type base struct {
	exec core.DBExecutor
}

func (b base) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return b.exec
}

func newID() string {
	return uuid.New().String()
}

func selectMany(ctx context.Context, exec core.DBExecutor, dest interface{}, qb sq.SelectBuilder) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, exec, dest, exec.Rebind(query), args...)
}

// getOne returns sql.ErrNoRows when nothing matches.
func getOne(ctx context.Context, exec core.DBExecutor, dest interface{}, qb sq.SelectBuilder) error {
	query, args, err := qb.Limit(1).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, exec, dest, exec.Rebind(query), args...)
}

func exists(ctx context.Context, exec core.DBExecutor, qb sq.SelectBuilder) (bool, error) {
	var one int
	err := getOne(ctx, exec, &one, qb.RemoveColumns().Column("1"))
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func count(ctx context.Context, exec core.DBExecutor, qb sq.SelectBuilder) (int, error) {
	var n int
	query, args, err := qb.RemoveColumns().Column("COUNT(*)").ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	err = sqlx.GetContext(ctx, exec, &n, exec.Rebind(query), args...)
	return n, err
}

func execute(ctx context.Context, exec core.DBExecutor, stmt sq.Sqlizer) (sql.Result, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building statement")
	}
	return exec.ExecContext(ctx, exec.Rebind(query), args...)
}

// insertRow inserts the named columns of row (a db-tagged struct).
func insertRow(ctx context.Context, exec core.DBExecutor, table string, cols []string, row interface{}) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)", table, strings.Join(cols, ", "), strings.Join(cols, ", :"))
	_, err := sqlx.NamedExecContext(ctx, exec, query, row)
	return err
}

// updateRow updates the named columns of the non-deleted row having row.id; sql.ErrNoRows if none.
func updateRow(ctx context.Context, exec core.DBExecutor, table string, cols []string, row interface{}, softDeletable bool) error {
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		sets = append(sets, col+" = :"+col)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", table, strings.Join(sets, ", "))
	if softDeletable {
		query += " AND deleted_at IS NULL"
	}
	res, err := sqlx.NamedExecContext(ctx, exec, query, row)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// softDelete marks a school's row as deleted; sql.ErrNoRows if there is no such row.
func softDelete(ctx context.Context, exec core.DBExecutor, table, schoolID, id, deletedBy string) error {
	stmt := builder.Update(table).
		Set("deleted_at", core.NowFunc()).
		Set("deleted_by_id", nullable(deletedBy)).
		Where(sq.Eq{"id": id, "deleted_at": nil})
	if schoolID != "" {
		stmt = stmt.Where(sq.Eq{"school_id": schoolID})
	}
	res, err := execute(ctx, exec, stmt)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// applyListOptions adds the ordering (restricted to allowed fields) & pagination to a query.
func applyListOptions(qb sq.SelectBuilder, opts core.ListOptions, allowed map[string]string, defaultOrder ...string) sq.SelectBuilder {
	ords := core.ParseOrdering(opts.Ordering, allowed)
	if len(ords) == 0 {
		qb = qb.OrderBy(defaultOrder...)
	}
	for _, ord := range ords {
		qb = qb.OrderBy(ord.String())
	}
	if opts.Pagination.Limit > 0 {
		qb = qb.Limit(uint64(opts.Pagination.Limit))
	}
	if opts.Pagination.Offset > 0 {
		qb = qb.Offset(uint64(opts.Pagination.Offset))
	}
	return qb
}

// search matches the keyword case-insensitively against any of the columns.
func search(keyword string, cols ...string) sq.Sqlizer {
	val := "%" + strings.ToLower(keyword) + "%"
	or := make(sq.Or, 0, len(cols))
	for _, col := range cols {
		or = append(or, sq.Like{"LOWER(" + col + ")": val})
	}
	return or
}

// hasAnyRole matches rows whose comma-separated column contains one of the roles.
func hasAnyRole(col string, roles []string) sq.Sqlizer {
	or := make(sq.Or, 0, len(roles))
	for _, role := range roles {
		or = append(or, sq.Like{"(',' || " + col + " || ',')": "%," + role + ",%"})
	}
	return or
}

// uniqueViolation reports whether err is a unique constraint violation & returns what the driver says about it
// (constraint name on postgres, columns on sqlite).
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return sqliteErr.Error(), true
		}
	}
	return "", false
}

// trapErr maps "no rows" to notFound & unique violations to conflict; other errors are wrapped with msg.
func trapErr(err error, msg string, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	if _, ok := uniqueViolation(err); ok && conflict != nil {
		return conflict
	}
	return errors.Wrap(err, msg)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
