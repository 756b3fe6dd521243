package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
)

const auditLogsTable = "audit_logs"

var (
	auditLogCols     = []string{"id", "school_id", "user_id", "action", "module", "status", "details", "ip_address", "user_agent", "created_at"}
	auditLogOrdering = map[string]string{"created_at": "l.created_at", "module": "l.module", "action": "l.action", "user_name": "u.name"}
)

type auditRepository struct {
	base
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(exec core.DBExecutor) *auditRepository {
	return &auditRepository{base{exec: exec}}
}

func (repo auditRepository) CreateLog(ctx context.Context, log audit.Log, exec ...core.DBExecutor) (audit.Log, error) {
	log.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), auditLogsTable, auditLogCols, log)
	return log, errors.Wrap(err, "inserting audit log")
}

func (repo auditRepository) QueryLogs(ctx context.Context, filter audit.QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]audit.Log, error) {
	cols := make([]string, 0, len(auditLogCols)+1)
	for _, col := range auditLogCols {
		cols = append(cols, "l."+col)
	}
	qb := builder.Select(append(cols, "u.name AS user_name")...).
		From(auditLogsTable + " l").
		LeftJoin(usersTable + " u ON u.id = l.user_id")

	if filter.SchoolID != "" {
		qb = qb.Where(sq.Eq{"l.school_id": filter.SchoolID})
	}
	if filter.UserID != "" {
		qb = qb.Where(sq.Eq{"l.user_id": filter.UserID})
	}
	if filter.Module != "" {
		qb = qb.Where(sq.Eq{"l.module": filter.Module})
	}
	if filter.Action != "" {
		qb = qb.Where(sq.Eq{"l.action": filter.Action})
	}
	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"l.status": filter.Status})
	}
	if !filter.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"l.created_at": filter.From.Time.UTC()})
	}
	if !filter.To.IsZero() {
		qb = qb.Where(sq.Lt{"l.created_at": filter.To.AddDays(1).Time.UTC()})
	}
	qb = applyListOptions(qb, opts, auditLogOrdering, "l.created_at DESC")

	logs := []audit.Log{}
	if err := selectMany(ctx, repo.getExec(exec), &logs, qb); err != nil {
		return nil, errors.Wrap(err, "querying audit logs")
	}
	return logs, nil
}
