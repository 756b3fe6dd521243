package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/subject"
)

func (s *server) registerSubjectAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	sg := v1.Group("/subjects", append(auth, s.tenantMiddleware(true), s.auditMiddleware("subjects"))...)
	sg.GET("", s.querySubjects, staffMiddleware())
	sg.GET("/:id", s.retrieveSubject, staffMiddleware())
	sg.POST("", s.createSubject, adminMiddleware())
	sg.PUT("/:id", s.updateSubject, adminMiddleware())
	sg.DELETE("/:id", s.destroySubject, adminMiddleware())

	cg := v1.Group("/class-subjects", append(auth, s.tenantMiddleware(true), s.auditMiddleware("class_subjects"))...)
	cg.GET("", s.queryClassSubjects, staffMiddleware())
	cg.GET("/:id", s.retrieveClassSubject, staffMiddleware())
	cg.POST("", s.assignClassSubject, adminMiddleware())
	cg.PUT("/:id", s.updateClassSubject, adminMiddleware())
	cg.DELETE("/:id", s.removeClassSubject, adminMiddleware())
}

// Subjects

func (s *server) createSubject(ctx echo.Context) error {
	var data subject.NewSubject
	if err := bindBody(ctx, &data, "NewSubject"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sub, err := s.opts.SubjectSvc.Create(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (s *server) querySubjects(ctx echo.Context) error {
	filter := subject.QueryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		String("type", &filter.Type).
		BindError()
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	subjects, err := s.opts.SubjectSvc.Query(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return listResponse(ctx, subjects)
}

func (s *server) retrieveSubject(ctx echo.Context) error {
	sub, err := s.opts.SubjectSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (s *server) updateSubject(ctx echo.Context) error {
	sub, err := s.opts.SubjectSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	var data subject.UpdateSubject
	if err = bindBody(ctx, &data, "UpdateSubject"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sub, err = s.opts.SubjectSvc.Update(reqCtx(ctx), sub, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (s *server) destroySubject(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.SubjectSvc.Delete(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Class subjects

func (s *server) assignClassSubject(ctx echo.Context) error {
	var data subject.NewClassSubject
	if err := bindBody(ctx, &data, "NewClassSubject"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	cs, err := s.opts.SubjectSvc.AssignToClass(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "assigning subject to class")
	}
	return ctx.JSON(http.StatusCreated, cs)
}

func (s *server) queryClassSubjects(ctx echo.Context) error {
	filter := subject.ClassSubjectFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("class_id", &filter.ClassID).
		String("subject_id", &filter.SubjectID).
		String("teacher_id", &filter.TeacherID).
		BindError()
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	items, err := s.opts.SubjectSvc.QueryClassSubjects(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying class subjects")
	}
	return listResponse(ctx, items)
}

func (s *server) retrieveClassSubject(ctx echo.Context) error {
	cs, err := s.opts.SubjectSvc.GetClassSubject(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class subject")
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (s *server) updateClassSubject(ctx echo.Context) error {
	cs, err := s.opts.SubjectSvc.GetClassSubject(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class subject")
	}
	var data subject.UpdateClassSubject
	if err = bindBody(ctx, &data, "UpdateClassSubject"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	cs, err = s.opts.SubjectSvc.UpdateClassSubject(reqCtx(ctx), cs, data)
	if err != nil {
		return errors.Wrap(err, "updating class subject")
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (s *server) removeClassSubject(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.SubjectSvc.RemoveFromClass(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "removing subject from class")
	}
	return ctx.NoContent(http.StatusNoContent)
}
