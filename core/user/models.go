package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleTeacher    = "TEACHER"
	RoleParent     = "PARENT"
	RoleStudent    = "STUDENT"
)

var (
	AllRoles = []string{RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleParent, RoleStudent}

	rolePriorities = map[string]int{
		RoleSuperAdmin: 100,
		RoleAdmin:      80,
		RoleTeacher:    60,
		RoleParent:     40,
		RoleStudent:    20,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent, Priority: rolePriorities[RoleStudent]},
		{Name: "Parent", Value: RoleParent, Priority: rolePriorities[RoleParent]},
		{Name: "Teacher", Value: RoleTeacher, Priority: rolePriorities[RoleTeacher]},
		{Name: "Admin", Value: RoleAdmin, Priority: rolePriorities[RoleAdmin]},
		{Name: "Super Admin", Value: RoleSuperAdmin, Priority: rolePriorities[RoleSuperAdmin]},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// PrimaryRole returns the role with the highest priority, "" if none is known.
func PrimaryRole(roles []string) string {
	var primary string
	for _, role := range roles {
		if RolePriority(role) > RolePriority(primary) {
			primary = role
		}
	}
	return primary
}

type Role struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Priority int    `json:"priority"`
}

type User struct {
	ID           string    `json:"id"`
	SchoolID     string    `json:"school_id,omitempty"` // empty for super admins
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasRole(role string) bool {
	return core.ContainsString(u.Roles, role)
}

func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

func (u *User) IsSuperAdmin() bool { return u.HasRole(RoleSuperAdmin) }

// IsAdmin is true for school admins and super admins.
func (u *User) IsAdmin() bool { return u.HasAnyRole(RoleAdmin, RoleSuperAdmin) }

func (u *User) IsTeacher() bool { return u.HasRole(RoleTeacher) }
func (u *User) IsParent() bool  { return u.HasRole(RoleParent) }
func (u *User) IsStudent() bool { return u.HasRole(RoleStudent) }

func (u *User) PrimaryRole() string { return PrimaryRole(u.Roles) }

// NewUser contains information needed to create a new User.
type NewUser struct {
	SchoolID        string   `json:"school_id"` // set by super admins only
	Name            string   `json:"name" validate:"required,notblank"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Phone           string   `json:"phone" validate:"omitempty,max=32"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"required,min=1,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Phone           string   `json:"phone" validate:"omitempty,max=32"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,min=1,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if phone := core.CleanString(uu.Phone); phone != "" {
		uu.Phone = phone
	} else {
		uu.Phone = origUsr.Phone
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

// UpdateProfile is what users may change on their own account.
type UpdateProfile struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

func (up *UpdateProfile) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = origUsr.Name
	}
	if email := core.CleanString(up.Email, true /* lower */); email != "" {
		up.Email = email
	} else {
		up.Email = origUsr.Email
	}
	if phone := core.CleanString(up.Phone); phone != "" {
		up.Phone = phone
	} else {
		up.Phone = origUsr.Phone
	}

	if err := validate.Struct(up); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, origUsr.Username, up.Email, origUsr)
}

type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	usr User // for the password policy
}

func (cp *ChangePassword) Validate(usr User, validate *validator.Validate) error {
	cp.usr = usr
	if err := validate.Struct(cp); err != nil {
		return err
	}
	if err := usr.CheckPassword(cp.CurrentPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "current_password", Error: "incorrect password"})
	}
	return nil
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`

	usr User
}

func (rp *ResetUserPassword) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	if err := validate.Var(rp.UID, "required"); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "uid", Error: "this field is required"})
	}
	usr, err := svc.GetByUID(ctx, rp.UID)
	if err != nil {
		if core.IsNotFound(err) {
			return errInvalidResetLink
		}
		return err
	}
	rp.usr = usr
	return validate.Struct(rp)
}

type QueryFilter struct {
	SchoolID    string
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter looks a single User up. Only the first non-empty lookup field is used.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
	SchoolID        string // optional scope
}
