package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/user"
)

const (
	errNoPermsToSetRoles = "not enough rights to set these roles"
	contextObjectKey     = "object"
)

var errObjectNotFoundInCtx = errors.New("object not found in echo.Context")

func (s *server) registerUserAPI(v1 *echo.Group, auth []echo.MiddlewareFunc) {
	ug := v1.Group("/users", s.auditMiddleware("users"))

	// un-authed endpoints
	ug.POST("/login", s.login)
	ug.POST("/password-reset", s.resetPassword)
	ug.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", auth...)
	ag.POST("/token-refresh", s.refreshUserToken)
	ag.POST("/logout", s.logout)

	mg := ag.Group("", adminMiddleware(), s.tenantMiddleware(false))
	mg.POST("", s.createUser)
	mg.GET("", s.queryUsers)
	mg.DELETE("", s.destroyUsers)
	mg.GET("/roles", s.queryRoles)

	// detail endpoints
	dg := ag.Group("/:id", s.tenantMiddleware(false), s.ctxUserOrAdminMiddleware)
	dg.GET("", s.retrieveUser)
	dg.PUT("", s.updateUser)
	dg.DELETE("", s.destroyUser, adminMiddleware())
}

// Handlers

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindBody(ctx, &data, "LoginRequest"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	setAudit(ctx, audit.ActionLogin, core.JSONMap{"username": data.Username})

	usr, err := s.authenticate(reqCtx(ctx), data.Username, data.Password)
	if err != nil {
		return err
	}
	ctx.Set(contextUserKey, usr) // for the audit log

	token, err := GenerateToken(s.opts.Conf, GetUserClaims(s.opts.Conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr, PrimaryRole: usr.PrimaryRole()})
}

func (s *server) logout(ctx echo.Context) error {
	setAudit(ctx, audit.ActionLogout, nil)
	if err := s.revokeToken(ctx); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) refreshUserToken(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	usr, _ := getContextUser(ctx)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr, PrimaryRole: usr.PrimaryRole()})
}

func (s *server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bindBody(ctx, &data, "PasswordResetRequest"); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	// do not leak errors to attackers
	switch err := s.opts.UserSvc.RequestPasswordReset(reqCtx(ctx), data.Email); {
	case err == nil, core.IsNotFound(err):
	case user.IsThrottled(err):
		s.opts.Logger.Warn("password reset throttled", map[string]interface{}{"email": data.Email})
	default:
		s.opts.Logger.Error(err.Error(), errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bindBody(ctx, &data, "ResetUserPassword"); err != nil {
		return err
	}
	if err := data.Validate(reqCtx(ctx), s.opts.Validate, s.opts.UserSvc); err != nil {
		return err
	}

	if err := s.opts.UserSvc.ResetPassword(reqCtx(ctx), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (s *server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := bindBody(ctx, &data, "NewUser"); err != nil {
		return err
	}
	if err := data.Validate(reqCtx(ctx), s.opts.Validate, s.opts.UserSvc); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, _ := getContextUser(ctx)
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	schoolID := getContextSchool(ctx)
	if ctxUsr.IsSuperAdmin() && data.SchoolID != "" {
		if _, err := s.opts.SchoolSvc.Get(reqCtx(ctx), data.SchoolID); err != nil {
			return errors.Wrap(err, "getting school")
		}
		schoolID = data.SchoolID
	}

	usr, err := s.opts.UserSvc.Create(reqCtx(ctx), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *server) queryUsers(ctx echo.Context) error {
	filter := &user.QueryFilter{SchoolID: getContextSchool(ctx)}
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		Strings("role", &filter.Roles).
		CustomFunc("is_active", optionalBool("is_active", &filter.IsActive)).
		CustomFunc("created_from", flexibleTime("created_from", &filter.CreatedFrom)).
		CustomFunc("created_to", flexibleTime("created_to", &filter.CreatedTo)).
		BindError()
	if err != nil {
		return err
	}
	filter.Clean()
	opts, err := bindListOptions(ctx)
	if err != nil {
		return err
	}

	users, err := s.opts.UserSvc.Query(reqCtx(ctx), filter, opts)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return listResponse(ctx, users)
}

func (s *server) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (s *server) retrieveUser(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errObjectNotFoundInCtx, "retrieving user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) updateUser(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errObjectNotFoundInCtx, "retrieving user")
	}

	var data user.UpdateUser
	if err := bindBody(ctx, &data, "UpdateUser"); err != nil {
		return err
	}

	ctxUsr, _ := getContextUser(ctx)
	if !ctxUsr.IsAdmin() {
		// `IsActive` and `Roles` can only be changed by admin
		// `Username` and `Email` can only be changed by admin for now
		if data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != "" {
			return errHttpForbidden
		}
	}

	if err := data.Validate(reqCtx(ctx), usr, s.opts.Validate, s.opts.UserSvc); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := s.opts.UserSvc.Update(reqCtx(ctx), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) destroyUser(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errObjectNotFoundInCtx, "retrieving user")
	}

	// ctxUser cannot delete themselves
	ctxUsr, _ := getContextUser(ctx)
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}
	if user.MaxRolePriority(usr.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return errHttpForbidden
	}

	if err := s.opts.UserSvc.Delete(reqCtx(ctx), usr.SchoolID, ctxUsr.ID, usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) destroyUsers(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := echo.QueryParamsBinder(ctx).Strings("id", &query.IDs).BindError(); err != nil {
		return err
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctxUser cannot delete themselves
	ctxUsr, _ := getContextUser(ctx)
	if core.ContainsString(query.IDs, ctxUsr.ID) {
		return errHttpForbidden
	}
	setAudit(ctx, "", core.JSONMap{"ids": query.IDs})

	if err := s.opts.UserSvc.Delete(reqCtx(ctx), getContextSchool(ctx), ctxUsr.ID, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ctxUserOrAdminMiddleware loads the :id user into the context.
// Users may only access themselves, admins may access any user of their school.
func (s *server) ctxUserOrAdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxUsr, _ := getContextUser(ctx)
		id := ctx.Param("id")
		if id != ctxUsr.ID && !ctxUsr.IsAdmin() {
			return errHttpNotFound
		}

		var (
			usr user.User
			err error
		)
		if schoolID := getContextSchool(ctx); schoolID != "" && id != ctxUsr.ID {
			usr, err = s.opts.UserSvc.GetInSchool(reqCtx(ctx), schoolID, id)
		} else {
			usr, err = s.opts.UserSvc.GetByID(reqCtx(ctx), id)
		}
		if err != nil {
			if core.IsNotFound(err) {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding user by ID")
		}
		ctx.Set(contextObjectKey, usr)
		return next(ctx)
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token       string    `json:"token"`
		User        user.User `json:"user"`
		PrimaryRole string    `json:"primary_role"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
