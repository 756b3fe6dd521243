package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrUsernameExists = core.NewConflictError("username", "a user with this username already exists")
	ErrEmailExists    = core.NewConflictError("email", "a user with this email already exists")
	ErrSchoolRequired = core.NewValidationError(nil, core.FieldError{Field: "school_id", Error: "this field is required"})

	errInvalidResetLink  = core.NewValidationError(errors.New("the password reset link is invalid or has expired"))
	errTooManyResetReqs  = errors.New("too many password reset requests")
	passwordResetWindow  = time.Hour
	passwordResetKeyTmpl = "password-reset:%s"
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when another (non-deleted) User
		// has the same username or email.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsers(ctx context.Context, schoolID, deletedBy string, ids []string, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, schoolID string, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, opts core.ListOptions) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetInSchool(ctx context.Context, schoolID, id string) (User, error)
		GetByUID(ctx context.Context, uid string) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error)
		ChangePassword(ctx context.Context, usr User, cp ChangePassword) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, schoolID, deletedBy string, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo       Repository
		mailSvc    core.EmailService
		cache      core.Cache
		tokens     tokenGenerator
		resetLimit int
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, cache core.Cache, conf *core.Config) Service {
	return &service{
		repo:       repo,
		mailSvc:    mailSvc,
		cache:      cache,
		tokens:     newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		resetLimit: conf.Server.PasswordResetRateLimit,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if uname == "" && email == "" {
		return nil
	}
	return svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers)
}

func (svc *service) Create(ctx context.Context, schoolID string, nu NewUser) (User, error) {
	if schoolID == "" && !core.ContainsString(nu.Roles, RoleSuperAdmin) {
		return User{}, ErrSchoolRequired
	}
	if core.ContainsString(nu.Roles, RoleSuperAdmin) {
		schoolID = "" // super admins are not bound to a school
	}

	now := core.NowFunc()
	usr := User{
		SchoolID:  schoolID,
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Phone:     nu.Phone,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, pkgerrors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, opts core.ListOptions) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, opts)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetInSchool(ctx context.Context, schoolID, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id, SchoolID: schoolID})
}

func (svc *service) GetByUID(ctx context.Context, uid string) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, ErrNotFound
	}
	return svc.GetByID(ctx, id)
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.Phone = uu.Phone
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, pkgerrors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr.Name = up.Name
	usr.Email = up.Email
	usr.Phone = up.Phone
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.SetPassword(cp.Password); err != nil {
		return pkgerrors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.NowFunc()
	_, err := svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, schoolID, deletedBy string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.DeleteUsers(ctx, schoolID, deletedBy, ids)
}

// RequestPasswordReset emails a password reset link to the active user with the given email.
// Requests are throttled per email address.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)

	if svc.resetLimit > 0 {
		count, err := svc.cache.Incr(ctx, fmt.Sprintf(passwordResetKeyTmpl, email), passwordResetWindow)
		if err != nil {
			return pkgerrors.Wrap(err, "counting password reset requests")
		}
		if count > int64(svc.resetLimit) {
			return errTooManyResetReqs
		}
	}

	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	usr := data.usr
	if usr.ID == "" {
		var err error
		if usr, err = svc.GetByUID(ctx, data.UID); err != nil {
			if core.IsNotFound(err) {
				return errInvalidResetLink
			}
			return err
		}
	}
	if err := svc.tokens.verifyToken(usr, data.Token); err != nil {
		return errInvalidResetLink
	}
	if err := usr.SetPassword(data.Password); err != nil {
		return pkgerrors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.NowFunc()
	_, err := svc.repo.UpdateUser(ctx, usr)
	return err
}

// IsThrottled reports whether err is returned because of too many password reset requests.
func IsThrottled(err error) bool {
	return errors.Is(err, errTooManyResetReqs)
}
