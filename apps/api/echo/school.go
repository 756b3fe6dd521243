package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

func (s *server) registerSchoolAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	sg := v1.Group("/schools", append(auth, requireRoles(user.RoleSuperAdmin), s.auditMiddleware("schools"))...)
	sg.POST("", s.createSchool)
	sg.GET("", s.querySchools)
	sg.GET("/:id", s.retrieveSchool)
	sg.PUT("/:id", s.updateSchool)
	sg.DELETE("/:id", s.destroySchool)
}

func (s *server) createSchool(ctx echo.Context) error {
	var data school.NewSchool
	if err := bindBody(ctx, &data, "NewSchool"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sch, err := s.opts.SchoolSvc.Create(reqCtx(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (s *server) querySchools(ctx echo.Context) error {
	var filter school.QueryFilter
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		CustomFunc("is_active", optionalBool("is_active", &filter.IsActive)).
		BindError()
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	schools, err := s.opts.SchoolSvc.Query(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	return listResponse(ctx, schools)
}

func (s *server) retrieveSchool(ctx echo.Context) error {
	sch, err := s.opts.SchoolSvc.Get(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (s *server) updateSchool(ctx echo.Context) error {
	sch, err := s.opts.SchoolSvc.Get(reqCtx(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting school")
	}
	var data school.UpdateSchool
	if err = bindBody(ctx, &data, "UpdateSchool"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sch, err = s.opts.SchoolSvc.Update(reqCtx(ctx), sch, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (s *server) destroySchool(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.SchoolSvc.Delete(reqCtx(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}
