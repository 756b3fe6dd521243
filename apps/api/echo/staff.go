package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/staff"
)

func (s *server) registerStaffAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	sg := v1.Group("/staff", append(auth, s.tenantMiddleware(true), s.auditMiddleware("staff"))...)
	sg.GET("", s.queryStaff, staffMiddleware())
	sg.GET("/export", s.exportStaff, adminMiddleware())
	sg.GET("/:id", s.retrieveStaff, staffMiddleware())
	sg.GET("/:id/payslips", s.queryStaffPayslips, adminMiddleware())
	sg.POST("", s.createStaff, adminMiddleware())
	sg.PUT("/:id", s.updateStaff, adminMiddleware())
	sg.DELETE("/:id", s.destroyStaff, adminMiddleware())
}

func bindStaffFilter(ctx echo.Context) (staff.QueryFilter, error) {
	filter := staff.QueryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		String("department", &filter.Department).
		CustomFunc("is_teaching", optionalBool("is_teaching", &filter.IsTeaching)).
		BindError()
	return filter, err
}

func (s *server) createStaff(ctx echo.Context) error {
	var data staff.NewStaff
	if err := bindBody(ctx, &data, "NewStaff"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	stf, err := s.opts.StaffSvc.Create(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating staff")
	}
	return ctx.JSON(http.StatusCreated, stf)
}

func (s *server) queryStaff(ctx echo.Context) error {
	filter, err := bindStaffFilter(ctx)
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	members, err := s.opts.StaffSvc.Query(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	return listResponse(ctx, members)
}

func (s *server) exportStaff(ctx echo.Context) error {
	filter, err := bindStaffFilter(ctx)
	if err != nil {
		return err
	}
	tbl, err := s.opts.StaffSvc.ExportTable(reqCtx(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "exporting staff")
	}
	return exportResponse(ctx, tbl, "staff")
}

func (s *server) retrieveStaff(ctx echo.Context) error {
	stf, err := s.opts.StaffSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting staff")
	}
	return ctx.JSON(http.StatusOK, stf)
}

func (s *server) queryStaffPayslips(ctx echo.Context) error {
	stf, err := s.opts.StaffSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting staff")
	}
	slips, err := s.opts.PayrollSvc.StaffPayslips(reqCtx(ctx), stf.SchoolID, stf.ID)
	if err != nil {
		return errors.Wrap(err, "querying payslips")
	}
	return listResponse(ctx, slips)
}

func (s *server) updateStaff(ctx echo.Context) error {
	stf, err := s.opts.StaffSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting staff")
	}
	var data staff.UpdateStaff
	if err = bindBody(ctx, &data, "UpdateStaff"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	stf, err = s.opts.StaffSvc.Update(reqCtx(ctx), stf, data)
	if err != nil {
		return errors.Wrap(err, "updating staff")
	}
	return ctx.JSON(http.StatusOK, stf)
}

func (s *server) destroyStaff(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.StaffSvc.Delete(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting staff")
	}
	return ctx.NoContent(http.StatusNoContent)
}
