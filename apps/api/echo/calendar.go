package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/calendar"
)

func (s *server) registerCalendarAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	sg := v1.Group("/sessions", append(auth, s.tenantMiddleware(true), s.auditMiddleware("sessions"))...)
	sg.GET("", s.querySessions)
	sg.GET("/current", s.retrieveCurrentSession)
	sg.GET("/:id", s.retrieveSession)
	sg.POST("", s.createSession, adminMiddleware())
	sg.PUT("/:id", s.updateSession, adminMiddleware())
	sg.DELETE("/:id", s.destroySession, adminMiddleware())
	sg.POST("/:id/recalculate-working-days", s.recalculateWorkingDays, adminMiddleware())

	cg := v1.Group("/calendar", append(auth, s.tenantMiddleware(true), s.auditMiddleware("calendar"))...)
	cg.GET("/entries", s.queryCalendarEntries)
	cg.GET("/entries/:id", s.retrieveCalendarEntry)
	cg.POST("/entries", s.createCalendarEntry, adminMiddleware())
	cg.PUT("/entries/:id", s.updateCalendarEntry, adminMiddleware())
	cg.DELETE("/entries/:id", s.destroyCalendarEntry, adminMiddleware())
	cg.GET("/working-days", s.queryWorkingDays)
}

// bindDateRange reads the required ?from & ?to dates.
func bindDateRange(ctx echo.Context) (from, to core.Date, err error) {
	err = echo.QueryParamsBinder(ctx).
		BindUnmarshaler("from", &from).
		BindUnmarshaler("to", &to).
		BindError()
	if err != nil {
		return
	}
	var flds []core.FieldError
	if from.IsZero() {
		flds = append(flds, core.FieldError{Field: "from", Error: "this field is required"})
	}
	if to.IsZero() {
		flds = append(flds, core.FieldError{Field: "to", Error: "this field is required"})
	}
	if len(flds) > 0 {
		err = core.NewValidationError(nil, flds...)
	} else if to.Before(from) {
		err = core.NewValidationError(nil, core.FieldError{Field: "to", Error: "must not be before from"})
	}
	return
}

// Sessions

func (s *server) createSession(ctx echo.Context) error {
	var data calendar.NewSession
	if err := bindBody(ctx, &data, "NewSession"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sess, err := s.opts.CalendarSvc.CreateSession(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (s *server) querySessions(ctx echo.Context) error {
	filter := calendar.SessionFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		CustomFunc("is_current", optionalBool("is_current", &filter.IsCurrent)).
		BindUnmarshaler("from", &filter.From).
		BindUnmarshaler("to", &filter.To).
		BindError()
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	sessions, err := s.opts.CalendarSvc.QuerySessions(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return listResponse(ctx, sessions)
}

func (s *server) retrieveCurrentSession(ctx echo.Context) error {
	sess, err := s.opts.CalendarSvc.CurrentSession(reqCtx(ctx), getContextSchool(ctx))
	if err != nil {
		return errors.Wrap(err, "getting current session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *server) retrieveSession(ctx echo.Context) error {
	sess, err := s.opts.CalendarSvc.GetSession(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *server) updateSession(ctx echo.Context) error {
	sess, err := s.opts.CalendarSvc.GetSession(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	var data calendar.UpdateSession
	if err = bindBody(ctx, &data, "UpdateSession"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	sess, err = s.opts.CalendarSvc.UpdateSession(reqCtx(ctx), sess, data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (s *server) destroySession(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.CalendarSvc.DeleteSession(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) recalculateWorkingDays(ctx echo.Context) error {
	setAudit(ctx, audit.ActionUpdate, core.JSONMap{"recalculate_working_days": true})
	sess, err := s.opts.CalendarSvc.RecalculateWorkingDays(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "recalculating working days")
	}
	return ctx.JSON(http.StatusOK, sess)
}

// Calendar entries

func (s *server) createCalendarEntry(ctx echo.Context) error {
	var data calendar.NewEntry
	if err := bindBody(ctx, &data, "NewEntry"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	entry, err := s.opts.CalendarSvc.CreateEntry(reqCtx(ctx), getContextSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating calendar entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (s *server) queryCalendarEntries(ctx echo.Context) error {
	filter := calendar.EntryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("session_id", &filter.SessionID).
		String("type", &filter.Type).
		BindUnmarshaler("from", &filter.From).
		BindUnmarshaler("to", &filter.To).
		BindError()
	if err != nil {
		return err
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	entries, err := s.opts.CalendarSvc.QueryEntries(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying calendar entries")
	}
	return listResponse(ctx, entries)
}

func (s *server) retrieveCalendarEntry(ctx echo.Context) error {
	entry, err := s.opts.CalendarSvc.GetEntry(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting calendar entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (s *server) updateCalendarEntry(ctx echo.Context) error {
	entry, err := s.opts.CalendarSvc.GetEntry(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting calendar entry")
	}
	var data calendar.UpdateEntry
	if err = bindBody(ctx, &data, "UpdateEntry"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	entry, err = s.opts.CalendarSvc.UpdateEntry(reqCtx(ctx), entry, data)
	if err != nil {
		return errors.Wrap(err, "updating calendar entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (s *server) destroyCalendarEntry(ctx echo.Context) error {
	entry, err := s.opts.CalendarSvc.GetEntry(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting calendar entry")
	}
	usr, _ := getContextUser(ctx)
	if err = s.opts.CalendarSvc.DeleteEntry(reqCtx(ctx), entry, usr.ID); err != nil {
		return errors.Wrap(err, "deleting calendar entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// WorkingDaysResponse lists the working dates of a range.
type WorkingDaysResponse struct {
	From        core.Date   `json:"from"`
	To          core.Date   `json:"to"`
	WorkingDays int         `json:"working_days"`
	Dates       []core.Date `json:"dates"`
}

func (s *server) queryWorkingDays(ctx echo.Context) error {
	from, to, err := bindDateRange(ctx)
	if err != nil {
		return err
	}
	dates, err := s.opts.CalendarSvc.WorkingDates(reqCtx(ctx), getContextSchool(ctx), from, to)
	if err != nil {
		return errors.Wrap(err, "computing working days")
	}
	if dates == nil {
		dates = []core.Date{}
	}
	return ctx.JSON(http.StatusOK, WorkingDaysResponse{From: from, To: to, WorkingDays: len(dates), Dates: dates})
}
