package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func (s *server) registerDashboardAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	v1.GET("/dashboard", s.dashboardSummary, append(auth, s.tenantMiddleware(true), adminMiddleware())...)
}

func (s *server) dashboardSummary(ctx echo.Context) error {
	summary, err := s.opts.DashboardSvc.Summary(reqCtx(ctx), getContextSchool(ctx))
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, summary)
}
