package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errTokenRevoked         = echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errSchoolRequired       = echo.NewHTTPError(http.StatusBadRequest, "the "+schoolHeader+" header is required")
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   interface{} `json:"error"`
}

// errorResponse maps err to a status code & a message: a string or a {field: message} map.
func (s *server) errorResponse(err error) (int, interface{}) {
	var (
		bindErr  *echo.BindingError
		httpErr  *echo.HTTPError
		valErrs  validator.ValidationErrors
		valErr   *core.ValidationError
		notFound *core.NotFoundError
		conflict *core.ConflictError
	)

	switch {
	case errors.As(err, &bindErr):
		return http.StatusBadRequest, map[string]string{bindErr.Field: "invalid value"}
	case errors.As(err, &httpErr):
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		msg := httpErr.Message
		if e, ok := msg.(error); ok {
			msg = e.Error()
		}
		return httpErr.Code, msg
	case errors.As(err, &valErrs):
		fldErrs := make(map[string]string, len(valErrs))
		for _, vErr := range valErrs {
			fldErrs[vErr.Field()] = vErr.Translate(s.opts.Translator)
		}
		return http.StatusBadRequest, fldErrs
	case errors.As(err, &valErr):
		if len(valErr.Fields) > 0 {
			fldErrs := make(map[string]string, len(valErr.Fields))
			for _, fErr := range valErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, valErr.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Message
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func (s *server) errorCode(err error) int {
	code, _ := s.errorResponse(err)
	return code
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// The server is shut down gracefully whenever a core.shutdown error is caught.
func (s *server) newAppHTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := s.errorResponse(err)

		if code == http.StatusInternalServerError {
			var usr user.User
			if u, ok := ctx.Get(contextUserKey).(user.User); ok {
				usr = u
			} else if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			s.opts.Logger.Error(err.Error(), errors.WithStack(err), usr)

			if ctx.Echo().Debug {
				message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				s.signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, ErrorResponse{Success: false, Error: message})
			}
			if err != nil {
				s.opts.Logger.Error("sending error response", err)
			}
		}
	}
}
