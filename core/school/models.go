package school

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type School struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	Address   string    `json:"address" db:"address"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	core.SoftDelete
}

type NewSchool struct {
	Name    string `json:"name" validate:"required,notblank,max=200"`
	Code    string `json:"code" validate:"required,alphanum,max=32"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=32"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = strings.ToUpper(core.CleanString(ns.Code))
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

type UpdateSchool struct {
	Name     string `json:"name" validate:"max=200"`
	Code     string `json:"code" validate:"omitempty,alphanum,max=32"`
	Address  string `json:"address" validate:"max=500"`
	Phone    string `json:"phone" validate:"max=32"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive *bool  `json:"is_active"`
}

func (us *UpdateSchool) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Code = strings.ToUpper(core.CleanString(us.Code))
	us.Email = core.CleanString(us.Email, true /* lower */)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}
