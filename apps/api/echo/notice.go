package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/notice"
)

func (s *server) registerNoticeAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	ng := v1.Group("/notices", append(auth, s.tenantMiddleware(true), s.auditMiddleware("notices"))...)
	ng.GET("", s.queryNotices)
	ng.GET("/:id", s.retrieveNotice)
	ng.POST("", s.createNotice, adminMiddleware())
	ng.PUT("/:id", s.updateNotice, adminMiddleware())
	ng.POST("/:id/publish", s.publishNotice, adminMiddleware())
	ng.DELETE("/:id", s.destroyNotice, adminMiddleware())
}

func (s *server) createNotice(ctx echo.Context) error {
	var data notice.NewNotice
	if err := bindBody(ctx, &data, "NewNotice"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	usr, _ := getContextUser(ctx)
	n, err := s.opts.NoticeSvc.Create(reqCtx(ctx), getContextSchool(ctx), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating notice")
	}
	return ctx.JSON(http.StatusCreated, n)
}

// queryNotices lists notices. Non-admins only see the published, unexpired notices targeted at them.
func (s *server) queryNotices(ctx echo.Context) error {
	filter := notice.QueryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		String("priority", &filter.Priority).
		CustomFunc("published", optionalBool("published", &filter.Published)).
		BindError()
	if err != nil {
		return err
	}
	if usr, _ := getContextUser(ctx); !usr.IsAdmin() {
		filter.VisibleTo = usr.Roles
		filter.Published = nil
	}
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	notices, err := s.opts.NoticeSvc.Query(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying notices")
	}
	return listResponse(ctx, notices)
}

func (s *server) retrieveNotice(ctx echo.Context) error {
	var (
		n   notice.Notice
		err error
	)
	if usr, _ := getContextUser(ctx); usr.IsAdmin() {
		n, err = s.opts.NoticeSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	} else {
		n, err = s.opts.NoticeSvc.GetVisible(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.Roles)
	}
	if err != nil {
		return errors.Wrap(err, "getting notice")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (s *server) updateNotice(ctx echo.Context) error {
	n, err := s.opts.NoticeSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting notice")
	}
	var data notice.UpdateNotice
	if err = bindBody(ctx, &data, "UpdateNotice"); err != nil {
		return err
	}
	if err = data.Validate(s.opts.Validate); err != nil {
		return err
	}

	n, err = s.opts.NoticeSvc.Update(reqCtx(ctx), n, data)
	if err != nil {
		return errors.Wrap(err, "updating notice")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (s *server) publishNotice(ctx echo.Context) error {
	n, err := s.opts.NoticeSvc.Get(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting notice")
	}
	var data notice.PublishNotice
	if err = bindBody(ctx, &data, "PublishNotice"); err != nil {
		return err
	}
	setAudit(ctx, audit.ActionPublish, nil)

	n, err = s.opts.NoticeSvc.Publish(reqCtx(ctx), n, data.Notify)
	if err != nil {
		return errors.Wrap(err, "publishing notice")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (s *server) destroyNotice(ctx echo.Context) error {
	usr, _ := getContextUser(ctx)
	if err := s.opts.NoticeSvc.Delete(reqCtx(ctx), getContextSchool(ctx), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting notice")
	}
	return ctx.NoContent(http.StatusNoContent)
}
