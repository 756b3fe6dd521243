package echoapi

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const (
	contextTokenKey  = "userToken"
	contextUserKey   = "user"
	contextSchoolKey = "schoolID"
	schoolHeader     = "X-School-ID"
	tokenAudience    = "dashboards"
	revokedKeyTmpl   = "jwt:revoked:"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	SchoolID     string   `json:"school_id,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	PrimaryRole  string   `json:"primary_role,omitempty"` // selects the dashboard
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()

	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		SchoolID:     usr.SchoolID,
		Roles:        usr.Roles,
		PrimaryRole:  usr.PrimaryRole(),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (s *server) jwtMiddleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(s.opts.Conf.SecretKey),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
	})
}

func (s *server) authenticate(ctx context.Context, uname, pwd string) (user.User, error) {
	usr, err := s.opts.UserSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	usr, err = s.opts.UserSvc.SetLastLogin(ctx, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the authenticated user loaded by userMiddleware.
func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// getContextSchool returns the school the request acts on; "" for super admins without X-School-ID.
func getContextSchool(ctx echo.Context) string {
	schoolID, _ := ctx.Get(contextSchoolKey).(string)
	return schoolID
}

func (s *server) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.opts.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(s.opts.Conf, GetUserClaims(s.opts.Conf, usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

// revokeToken blacklists the token until it expires.
func (s *server) revokeToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(
		s.opts.Cache.Set(ctx.Request().Context(), revokedKeyTmpl+claims.ID, "1", ttl),
		"revoking token",
	)
}

func (s *server) isRevoked(ctx echo.Context, claims Claims) (bool, error) {
	if claims.ID == "" {
		return false, nil
	}
	_, err := s.opts.Cache.Get(ctx.Request().Context(), revokedKeyTmpl+claims.ID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrCacheMiss):
		return false, nil
	default:
		return false, errors.Wrap(err, "checking revoked tokens")
	}
}
