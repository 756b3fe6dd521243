package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

const importFileField = "file"

func (s *server) registerStudentAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	sg := v1.Group("/students", append(auth, s.tenantMiddleware(true), s.auditMiddleware("students"))...)
	sg.GET("", s.queryStudents, staffMiddleware())
	sg.GET("/export", s.exportStudents, adminMiddleware())
	sg.POST("", s.createStudent, adminMiddleware())
	sg.POST("/import", s.importStudents, adminMiddleware())
	sg.POST("/promote", s.promoteStudents, adminMiddleware())
	sg.GET("/:id", s.retrieveStudent)
	sg.GET("/:id/promotions", s.queryPromotions, staffMiddleware())
	sg.PUT("/:id", s.updateStudent, adminMiddleware())
	sg.DELETE("/:id", s.destroyStudent, adminMiddleware())
}

// getVisibleStudent returns the :id student if the context user may see it:
// school staff see every student, parents their children and students themselves.
func (s *server) getVisibleStudent(ctx echo.Context, id string) (student.Student, error) {
	std, err := s.opts.StudentSvc.Get(reqCtx(ctx), getContextSchool(ctx), id)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	usr, _ := getContextUser(ctx)
	switch {
	case usr.IsSuperAdmin(), usr.HasAnyRole(user.RoleAdmin, user.RoleTeacher):
	case usr.IsParent() && std.ParentUserID.String == usr.ID:
	case usr.IsStudent() && std.UserID.String == usr.ID:
	default:
		return student.Student{}, errHttpNotFound
	}
	return std, nil
}

func bindStudentFilter(ctx echo.Context) (student.QueryFilter, error) {
	filter := student.QueryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		String("section_id", &filter.SectionID).
		String("class_id", &filter.ClassID).
		String("status", &filter.Status).
		String("parent_user_id", &filter.ParentUserID).
		Strings("id", &filter.IDs).
		BindError()
	return filter, err
}

func (s *server) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := bindBody(ctx, &data, "NewStudent"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	std, err := s.opts.StudentSvc.Create(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (s *server) queryStudents(ctx echo.Context) error {
	filter, err := bindStudentFilter(ctx)
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	students, err := s.opts.StudentSvc.Query(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return listResponse(ctx, students)
}

func (s *server) exportStudents(ctx echo.Context) error {
	filter, err := bindStudentFilter(ctx)
	if err != nil {
		return err
	}
	tbl, err := s.opts.StudentSvc.ExportTable(reqCtx(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "exporting students")
	}
	return exportResponse(ctx, tbl, "students")
}

// importStudents reads a multipart xlsx "file" into the "section_id" section.
func (s *server) importStudents(ctx echo.Context) error {
	sectionID := core.CleanString(ctx.FormValue("section_id"))
	if sectionID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "section_id", Error: "this field is required"})
	}
	fh, err := ctx.FormFile(importFileField)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: importFileField, Error: "this field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	res, err := s.opts.StudentSvc.ImportXLSX(reqCtx(ctx), getContextSchool(ctx), sectionID, f)
	setAudit(ctx, audit.ActionImport, core.JSONMap{
		"section_id": sectionID,
		"filename":   fh.Filename,
		"imported":   res.Imported,
		"skipped":    len(res.Skipped),
	})
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) promoteStudents(ctx echo.Context) error {
	var data student.PromoteStudents
	if err := bindBody(ctx, &data, "PromoteStudents"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	setAudit(ctx, audit.ActionPromote, core.JSONMap{
		"student_ids":       data.StudentIDs,
		"target_section_id": data.TargetSectionID,
		"graduate":          data.Graduate,
	})

	usr, _ := getContextUser(ctx)
	students, err := s.opts.StudentSvc.Promote(reqCtx(ctx), getContextSchool(ctx), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "promoting students")
	}
	return listResponse(ctx, students)
}

func (s *server) retrieveStudent(ctx echo.Context) error {
	std, err := s.getVisibleStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (s *server) queryPromotions(ctx echo.Context) error {
	history, err := s.opts.StudentSvc.PromotionHistory(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying promotion history")
	}
	return listResponse(ctx, history)
}

func (s *server) updateStudent(ctx echo.Context) error {
	std, err := s.opts.StudentSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	var data student.UpdateStudent
	if err = bindBody(ctx, &data, "UpdateStudent"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	std, err = s.opts.StudentSvc.Update(reqCtx(ctx), std, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (s *server) destroyStudent(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.StudentSvc.Delete(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
