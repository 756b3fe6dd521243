package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/class"
)

func (s *server) registerClassAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	cg := v1.Group("/classes", append(auth, s.tenantMiddleware(true), s.auditMiddleware("classes"))...)
	cg.GET("", s.queryClasses, staffMiddleware())
	cg.GET("/:id", s.retrieveClass, staffMiddleware())
	cg.POST("", s.createClass, adminMiddleware())
	cg.PUT("/:id", s.updateClass, adminMiddleware())
	cg.DELETE("/:id", s.destroyClass, adminMiddleware())

	sg := v1.Group("/sections", append(auth, s.tenantMiddleware(true), s.auditMiddleware("sections"))...)
	sg.GET("", s.querySections, staffMiddleware())
	sg.GET("/:id", s.retrieveSection, staffMiddleware())
	sg.POST("", s.createSection, adminMiddleware())
	sg.PUT("/:id", s.updateSection, adminMiddleware())
	sg.DELETE("/:id", s.destroySection, adminMiddleware())
}

// Classes

func (s *server) createClass(ctx echo.Context) error {
	var data class.NewClass
	if err := bindBody(ctx, &data, "NewClass"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	cls, err := s.opts.ClassSvc.CreateClass(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (s *server) queryClasses(ctx echo.Context) error {
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}
	classes, err := s.opts.ClassSvc.QueryClasses(reqCtx(ctx), getContextSchool(ctx), opts)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return listResponse(ctx, classes)
}

func (s *server) retrieveClass(ctx echo.Context) error {
	cls, err := s.opts.ClassSvc.GetClass(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (s *server) updateClass(ctx echo.Context) error {
	cls, err := s.opts.ClassSvc.GetClass(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	var data class.UpdateClass
	if err = bindBody(ctx, &data, "UpdateClass"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	cls, err = s.opts.ClassSvc.UpdateClass(reqCtx(ctx), cls, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (s *server) destroyClass(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.ClassSvc.DeleteClass(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sections

func (s *server) createSection(ctx echo.Context) error {
	var data class.NewSection
	if err := bindBody(ctx, &data, "NewSection"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sec, err := s.opts.ClassSvc.CreateSection(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (s *server) querySections(ctx echo.Context) error {
	filter := class.SectionFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("class_id", &filter.ClassID).
		String("class_teacher_id", &filter.ClassTeacherID).
		String("search", &filter.Search).
		BindError()
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	sections, err := s.opts.ClassSvc.QuerySections(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	return listResponse(ctx, sections)
}

func (s *server) retrieveSection(ctx echo.Context) error {
	sec, err := s.opts.ClassSvc.GetSection(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (s *server) updateSection(ctx echo.Context) error {
	sec, err := s.opts.ClassSvc.GetSection(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting section")
	}
	var data class.UpdateSection
	if err = bindBody(ctx, &data, "UpdateSection"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sec, err = s.opts.ClassSvc.UpdateSection(reqCtx(ctx), sec, data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (s *server) destroySection(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.ClassSvc.DeleteSection(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}
