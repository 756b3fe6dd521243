package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/user"
)

func (s *server) registerAttendanceAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	ag := v1.Group("/attendance", append(auth, s.tenantMiddleware(true), s.auditMiddleware("attendance"))...)
	ag.POST("", s.markSectionAttendance, staffMiddleware())
	ag.GET("", s.queryAttendance)
	ag.GET("/summary", s.attendanceSummary)
	ag.GET("/report", s.exportAttendanceReport, staffMiddleware())

	sg := v1.Group("/staff-attendance", append(auth, s.tenantMiddleware(true), s.auditMiddleware("staff_attendance"))...)
	sg.POST("", s.markStaffAttendance, adminMiddleware())
	sg.GET("", s.queryStaffAttendance, adminMiddleware())
}

func isSchoolStaff(usr user.User) bool {
	return usr.IsSuperAdmin() || usr.HasAnyRole(user.RoleAdmin, user.RoleTeacher)
}

func (s *server) markSectionAttendance(ctx echo.Context) error {
	var data attendance.MarkSection
	if err := bindBody(ctx, &data, "MarkSection"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	setAudit(ctx, "", core.JSONMap{"section_id": data.SectionID, "date": data.Date.String(), "records": len(data.Records)})

	usr, _ := getContextUser(ctx)
	records, err := s.opts.AttendanceSvc.MarkSection(reqCtx(ctx), getContextSchool(ctx), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return listResponse(ctx, records)
}

// queryAttendance lists attendance records. Parents & students must ask for a ?student_id they can see.
func (s *server) queryAttendance(ctx echo.Context) error {
	filter := attendance.QueryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("section_id", &filter.SectionID).
		String("student_id", &filter.StudentID).
		String("status", &filter.Status).
		BindUnmarshaler("from", &filter.From).
		BindUnmarshaler("to", &filter.To).
		BindError()
	if err != nil {
		return err
	}

	if usr, _ := getContextUser(ctx); !isSchoolStaff(usr) {
		if filter.StudentID == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
		}
		if _, err = s.getVisibleStudent(ctx, filter.StudentID); err != nil {
			return err
		}
	}

	records, err := s.opts.AttendanceSvc.Query(reqCtx(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return listResponse(ctx, records)
}

func (s *server) attendanceSummary(ctx echo.Context) error {
	studentID := ctx.QueryParam("student_id")
	if studentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
	}
	from, to, err := bindDateRange(ctx)
	if err != nil {
		return err
	}
	std, err := s.getVisibleStudent(ctx, studentID)
	if err != nil {
		return err
	}

	summary, err := s.opts.AttendanceSvc.Summary(reqCtx(ctx), std.SchoolID, std.ID, from, to)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (s *server) exportAttendanceReport(ctx echo.Context) error {
	sectionID := ctx.QueryParam("section_id")
	if sectionID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "section_id", Error: "this field is required"})
	}
	from, to, err := bindDateRange(ctx)
	if err != nil {
		return err
	}

	tbl, err := s.opts.AttendanceSvc.SectionReport(reqCtx(ctx), getContextSchool(ctx), sectionID, from, to)
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	return exportResponse(ctx, tbl, "attendance_"+from.String()+"_"+to.String())
}

// Staff attendance

func (s *server) markStaffAttendance(ctx echo.Context) error {
	var data attendance.MarkStaff
	if err := bindBody(ctx, &data, "MarkStaff"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	setAudit(ctx, "", core.JSONMap{"date": data.Date.String(), "records": len(data.Records)})

	usr, _ := getContextUser(ctx)
	records, err := s.opts.AttendanceSvc.MarkStaff(reqCtx(ctx), getContextSchool(ctx), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "marking staff attendance")
	}
	return listResponse(ctx, records)
}

func (s *server) queryStaffAttendance(ctx echo.Context) error {
	filter := attendance.StaffFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("staff_id", &filter.StaffID).
		String("status", &filter.Status).
		BindUnmarshaler("from", &filter.From).
		BindUnmarshaler("to", &filter.To).
		BindError()
	if err != nil {
		return err
	}

	records, err := s.opts.AttendanceSvc.QueryStaff(reqCtx(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying staff attendance")
	}
	return listResponse(ctx, records)
}
