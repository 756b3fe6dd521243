package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/audit"
)

func (s *server) registerAuditAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	ag := v1.Group("/audit-logs", append(auth, s.tenantMiddleware(false), adminMiddleware(), s.auditMiddleware("audit"))...)
	ag.GET("", s.queryAuditLogs)
	ag.GET("/export", s.exportAuditLogs)
}

func bindAuditFilter(ctx echo.Context) (audit.QueryFilter, error) {
	filter := audit.QueryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("user_id", &filter.UserID).
		String("module", &filter.Module).
		String("action", &filter.Action).
		String("status", &filter.Status).
		BindUnmarshaler("from", &filter.From).
		BindUnmarshaler("to", &filter.To).
		BindError()
	return filter, err
}

func (s *server) queryAuditLogs(ctx echo.Context) error {
	filter, err := bindAuditFilter(ctx)
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	logs, err := s.opts.AuditSvc.Query(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying audit logs")
	}
	return listResponse(ctx, logs)
}

func (s *server) exportAuditLogs(ctx echo.Context) error {
	filter, err := bindAuditFilter(ctx)
	if err != nil {
		return err
	}
	tbl, err := s.opts.AuditSvc.ExportTable(reqCtx(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "exporting audit logs")
	}
	return exportResponse(ctx, tbl, "audit_logs")
}
