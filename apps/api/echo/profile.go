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

func (s *server) registerProfileAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	pg := v1.Group("/profile", append(auth, s.tenantMiddleware(false), s.auditMiddleware("profile"))...)
	pg.GET("", s.retrieveProfile)
	pg.PUT("", s.updateProfile)
	pg.POST("/password", s.changePassword)
	pg.GET("/payslips", s.queryProfilePayslips, staffMiddleware())
}

// ProfileResponse is the logged-in user along with the record backing their dashboard.
type ProfileResponse struct {
	User        user.User   `json:"user"`
	PrimaryRole string      `json:"primary_role"`
	Profile     interface{} `json:"profile"`
}

func (s *server) retrieveProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	resp := ProfileResponse{User: usr, PrimaryRole: usr.PrimaryRole()}

	switch resp.PrimaryRole {
	case user.RoleAdmin, user.RoleTeacher:
		stf, err := s.opts.StaffSvc.GetByUser(reqCtx(ctx), usr.ID)
		if err == nil {
			resp.Profile = stf
		} else if !core.IsNotFound(err) {
			return errors.Wrap(err, "getting staff profile")
		}
	case user.RoleStudent:
		std, err := s.opts.StudentSvc.GetByUser(reqCtx(ctx), usr.ID)
		if err == nil {
			resp.Profile = std
		} else if !core.IsNotFound(err) {
			return errors.Wrap(err, "getting student profile")
		}
	case user.RoleParent:
		children, err := s.opts.StudentSvc.QueryChildren(reqCtx(ctx), usr.SchoolID, usr.ID)
		if err != nil {
			return errors.Wrap(err, "querying children")
		}
		if children == nil {
			children = []student.Student{}
		}
		resp.Profile = children
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (s *server) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateProfile
	if err = bindBody(ctx, &data, "UpdateProfile"); err != nil {
		return err
	}
	if err = data.Validate(reqCtx(ctx), usr, s.opts.Validate, s.opts.UserSvc); err != nil {
		return err
	}

	usr, err = s.opts.UserSvc.UpdateProfile(reqCtx(ctx), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data user.ChangePassword
	if err = bindBody(ctx, &data, "ChangePassword"); err != nil {
		return err
	}
	if err = data.Validate(usr, s.opts.Validate); err != nil {
		return err
	}
	setAudit(ctx, audit.ActionUpdate, core.JSONMap{"password": true})

	if err = s.opts.UserSvc.ChangePassword(reqCtx(ctx), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

func (s *server) queryProfilePayslips(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	stf, err := s.opts.StaffSvc.GetByUser(reqCtx(ctx), usr.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting staff profile")
	}

	slips, err := s.opts.PayrollSvc.StaffPayslips(reqCtx(ctx), stf.SchoolID, stf.ID)
	if err != nil {
		return errors.Wrap(err, "querying payslips")
	}
	return listResponse(ctx, slips)
}
