package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/user"
)

const (
	auditActionKey  = "auditAction"
	auditDetailsKey = "auditDetails"
)

var methodActions = map[string]string{
	http.MethodPost:   audit.ActionCreate,
	http.MethodPut:    audit.ActionUpdate,
	http.MethodPatch:  audit.ActionUpdate,
	http.MethodDelete: audit.ActionDelete,
}

// authMiddleware authenticates the request & loads the context user.
func (s *server) authMiddleware() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{s.jwtMiddleware(), s.userMiddleware}
}

func (s *server) userMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		revoked, err := s.isRevoked(ctx, claims)
		if err != nil {
			return err
		}
		if revoked {
			return errTokenRevoked
		}

		usr, err := s.opts.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
		if err != nil {
			if core.IsNotFound(err) {
				return errUnauthorized
			}
			return errors.Wrap(err, "finding user by ID")
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}
		ctx.Set(contextUserKey, usr)
		return next(ctx)
	}
}

// tenantMiddleware resolves the school the request acts on.
// Super admins pick a school with the X-School-ID header; everyone else is bound to their own school.
func (s *server) tenantMiddleware(required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}

			schoolID := usr.SchoolID
			if usr.IsSuperAdmin() {
				schoolID = strings.TrimSpace(ctx.Request().Header.Get(schoolHeader))
				if schoolID != "" {
					if _, err = s.opts.SchoolSvc.Get(ctx.Request().Context(), schoolID); err != nil {
						return errors.Wrap(err, "getting school")
					}
				}
			}
			if schoolID == "" && required {
				return errSchoolRequired
			}
			ctx.Set(contextSchoolKey, schoolID)
			return next(ctx)
		}
	}
}

// requireRoles lets through users having one of the roles. Super admins are always let through.
func requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if usr.IsSuperAdmin() || usr.HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return requireRoles(user.RoleAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return requireRoles(user.RoleAdmin, user.RoleTeacher)
}

// setAudit overrides the audited action (& adds details) of the current request.
// Requests that are not mutating are only audited when an action is set.
func setAudit(ctx echo.Context, action string, details core.JSONMap) {
	if action != "" {
		ctx.Set(auditActionKey, action)
	}
	if details != nil {
		ctx.Set(auditDetailsKey, details)
	}
}

// auditMiddleware writes an audit log for every mutating request of a module.
func (s *server) auditMiddleware(module string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := next(ctx)

			action, _ := ctx.Get(auditActionKey).(string)
			if action == "" {
				action = methodActions[ctx.Request().Method]
			}
			if action != "" && s.opts.AuditSvc != nil {
				s.recordAudit(ctx, module, action, err)
			}
			return err
		}
	}
}

func (s *server) recordAudit(ctx echo.Context, module, action string, err error) {
	req := ctx.Request()
	details := core.JSONMap{"method": req.Method, "path": ctx.Path()}
	if id := ctx.Param("id"); id != "" {
		details["id"] = id
	}
	if extra, ok := ctx.Get(auditDetailsKey).(core.JSONMap); ok {
		for k, v := range extra {
			details[k] = v
		}
	}

	status := audit.StatusSuccess
	if err != nil {
		status = audit.StatusFailure
		details["status_code"] = s.errorCode(err)
	}

	log := audit.Log{
		Action:    action,
		Module:    module,
		Status:    status,
		Details:   details,
		IPAddress: ctx.RealIP(),
		UserAgent: req.UserAgent(),
	}
	schoolID := getContextSchool(ctx)
	if usr, uErr := getContextUser(ctx); uErr == nil {
		log.UserID = null.StringFrom(usr.ID)
		if schoolID == "" {
			schoolID = usr.SchoolID
		}
	}
	log.SchoolID = null.NewString(schoolID, schoolID != "")

	if _, aErr := s.opts.AuditSvc.Record(req.Context(), log); aErr != nil {
		s.opts.Logger.Error(fmt.Sprintf("recording audit log: %v", aErr), aErr)
	}
}

// requestLogger logs every request through the app logger.
func (s *server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			status := v.Status
			if v.Error != nil {
				status = s.errorCode(v.Error)
			}
			s.opts.Logger.Info(
				fmt.Sprintf("%s %s %d", v.Method, v.URI, status),
				map[string]interface{}{
					"status":     status,
					"latency":    v.Latency.String(),
					"remote_ip":  v.RemoteIP,
					"request_id": v.RequestID,
				},
			)
			return nil
		},
	})
}
