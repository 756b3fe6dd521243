package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/timetable"
)

func (s *server) registerTimetableAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	tg := v1.Group("/timetable", append(auth, s.tenantMiddleware(true), s.auditMiddleware("timetable"))...)
	tg.GET("", s.queryTimetable)
	tg.GET("/:id", s.retrieveTimetableEntry)
	tg.POST("", s.createTimetableEntry, adminMiddleware())
	tg.DELETE("/:id", s.destroyTimetableEntry, adminMiddleware())
	tg.PUT("/sections/:id", s.replaceSectionWeek, adminMiddleware())
}

func (s *server) createTimetableEntry(ctx echo.Context) error {
	var data timetable.NewEntry
	if err := bindBody(ctx, &data, "NewEntry"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	entry, err := s.opts.TimetableSvc.Create(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating timetable entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

// queryTimetable lists the entries of a section (?section_id) or of a teacher (?teacher_id).
func (s *server) queryTimetable(ctx echo.Context) error {
	filter := timetable.QueryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("section_id", &filter.SectionID).
		String("teacher_id", &filter.TeacherID).
		Int("day_of_week", &filter.DayOfWeek).
		BindError()
	if err != nil {
		return err
	}
	if filter.SectionID == "" && filter.TeacherID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "section_id", Error: "section_id or teacher_id is required"})
	}

	entries, err := s.opts.TimetableSvc.Query(reqCtx(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying timetable")
	}
	return listResponse(ctx, entries)
}

func (s *server) retrieveTimetableEntry(ctx echo.Context) error {
	entry, err := s.opts.TimetableSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting timetable entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (s *server) destroyTimetableEntry(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.TimetableSvc.Delete(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting timetable entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// replaceSectionWeek replaces the whole week of the :id section.
func (s *server) replaceSectionWeek(ctx echo.Context) error {
	sectionID := ctx.Param("id")
	var data timetable.ReplaceWeek
	if err := bindBody(ctx, &data, "ReplaceWeek"); err != nil {
		return err
	}
	if err := data.Validate(sectionID, s.opts.Validate); err != nil {
		return err
	}
	setAudit(ctx, "", core.JSONMap{"entries": len(data.Entries)})

	usr, _ := getContextUser(ctx)
	entries, err := s.opts.TimetableSvc.ReplaceWeek(reqCtx(ctx), getContextSchool(ctx), sectionID, usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "replacing section week")
	}
	return listResponse(ctx, entries)
}
