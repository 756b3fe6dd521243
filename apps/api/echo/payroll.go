package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/payroll"
)

func (s *server) registerPayrollAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	pg := v1.Group("/payroll", append(auth, s.tenantMiddleware(true), adminMiddleware(), s.auditMiddleware("payroll"))...)
	pg.GET("", s.queryPayrollRuns)
	pg.POST("", s.generatePayrollRun)
	pg.GET("/:id", s.retrievePayrollRun)
	pg.GET("/:id/export", s.exportPayslips)
	pg.POST("/:id/regenerate", s.regeneratePayrollRun)
	pg.POST("/:id/finalize", s.finalizePayrollRun)
	pg.DELETE("/:id", s.destroyPayrollRun)
}

func (s *server) generatePayrollRun(ctx echo.Context) error {
	var data payroll.GenerateRun
	if err := bindBody(ctx, &data, "GenerateRun"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	setAudit(ctx, audit.ActionGenerate, core.JSONMap{"month": data.Month})

	usr, _ := getContextUser(ctx)
	run, err := s.opts.PayrollSvc.Generate(reqCtx(ctx), getContextSchool(ctx), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "generating payroll")
	}
	return ctx.JSON(http.StatusCreated, run)
}

func (s *server) queryPayrollRuns(ctx echo.Context) error {
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}
	runs, err := s.opts.PayrollSvc.Query(reqCtx(ctx), getContextSchool(ctx), opts)
	if err != nil {
		return errors.Wrap(err, "querying payroll runs")
	}
	return listResponse(ctx, runs)
}

func (s *server) retrievePayrollRun(ctx echo.Context) error {
	run, err := s.opts.PayrollSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payroll run")
	}
	return ctx.JSON(http.StatusOK, run)
}

func (s *server) exportPayslips(ctx echo.Context) error {
	run, err := s.opts.PayrollSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payroll run")
	}
	tbl, err := s.opts.PayrollSvc.ExportPayslips(reqCtx(ctx), run)
	if err != nil {
		return errors.Wrap(err, "exporting payslips")
	}
	return exportResponse(ctx, tbl, "payslips_"+run.Month)
}

func (s *server) regeneratePayrollRun(ctx echo.Context) error {
	run, err := s.opts.PayrollSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payroll run")
	}
	setAudit(ctx, audit.ActionGenerate, core.JSONMap{"month": run.Month})

	usr, _ := getContextUser(ctx)
	run, err = s.opts.PayrollSvc.Regenerate(reqCtx(ctx), run, usr.ID)
	if err != nil {
		return errors.Wrap(err, "regenerating payroll")
	}
	return ctx.JSON(http.StatusOK, run)
}

func (s *server) finalizePayrollRun(ctx echo.Context) error {
	run, err := s.opts.PayrollSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payroll run")
	}
	setAudit(ctx, audit.ActionFinalize, core.JSONMap{"month": run.Month})

	usr, _ := getContextUser(ctx)
	run, err = s.opts.PayrollSvc.Finalize(reqCtx(ctx), run, usr.ID)
	if err != nil {
		return errors.Wrap(err, "finalizing payroll")
	}
	return ctx.JSON(http.StatusOK, run)
}

func (s *server) destroyPayrollRun(ctx echo.Context) error {
	run, err := s.opts.PayrollSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payroll run")
	}
	if err = s.opts.PayrollSvc.Delete(reqCtx(ctx), run); err != nil {
		return errors.Wrap(err, "deleting payroll run")
	}
	return ctx.NoContent(http.StatusNoContent)
}
