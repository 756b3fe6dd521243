package staff

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Staff struct {
	ID            string      `json:"id" db:"id"`
	SchoolID      string      `json:"school_id" db:"school_id"`
	UserID        null.String `json:"user_id" db:"user_id"`
	EmployeeNo    string      `json:"employee_no" db:"employee_no"`
	Name          string      `json:"name" db:"name"`
	Email         string      `json:"email" db:"email"`
	Phone         string      `json:"phone" db:"phone"`
	Designation   string      `json:"designation" db:"designation"`
	Department    string      `json:"department" db:"department"`
	IsTeaching    bool        `json:"is_teaching" db:"is_teaching"`
	JoinedOn      core.Date   `json:"joined_on" db:"joined_on"`
	MonthlySalary int64       `json:"monthly_salary" db:"monthly_salary"` // minor units
	Allowances    int64       `json:"allowances" db:"allowances"`
	Deductions    int64       `json:"deductions" db:"deductions"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
	core.SoftDelete
}

// Gross is the monthly salary plus allowances.
func (s Staff) Gross() int64 { return s.MonthlySalary + s.Allowances }

type NewStaff struct {
	UserID        string    `json:"user_id"`
	EmployeeNo    string    `json:"employee_no" validate:"required,alphanum_,max=32"`
	Name          string    `json:"name" validate:"required,notblank,max=200"`
	Email         string    `json:"email" validate:"omitempty,email"`
	Phone         string    `json:"phone" validate:"max=32"`
	Designation   string    `json:"designation" validate:"max=100"`
	Department    string    `json:"department" validate:"max=100"`
	IsTeaching    bool      `json:"is_teaching"`
	JoinedOn      core.Date `json:"joined_on"`
	MonthlySalary int64     `json:"monthly_salary" validate:"min=0"`
	Allowances    int64     `json:"allowances" validate:"min=0"`
	Deductions    int64     `json:"deductions" validate:"min=0"`
}

func (ns *NewStaff) Validate(validate *validator.Validate) error {
	ns.UserID = core.CleanString(ns.UserID)
	ns.EmployeeNo = core.CleanString(ns.EmployeeNo)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Designation = core.CleanString(ns.Designation)
	ns.Department = core.CleanString(ns.Department)
	return validate.Struct(ns)
}

type UpdateStaff struct {
	UserID        *string    `json:"user_id"` // "" unlinks the user account
	EmployeeNo    string     `json:"employee_no" validate:"omitempty,alphanum_,max=32"`
	Name          string     `json:"name" validate:"max=200"`
	Email         string     `json:"email" validate:"omitempty,email"`
	Phone         string     `json:"phone" validate:"max=32"`
	Designation   string     `json:"designation" validate:"max=100"`
	Department    string     `json:"department" validate:"max=100"`
	IsTeaching    *bool      `json:"is_teaching"`
	JoinedOn      *core.Date `json:"joined_on"`
	MonthlySalary *int64     `json:"monthly_salary" validate:"omitempty,min=0"`
	Allowances    *int64     `json:"allowances" validate:"omitempty,min=0"`
	Deductions    *int64     `json:"deductions" validate:"omitempty,min=0"`
}

func (us *UpdateStaff) Validate(validate *validator.Validate) error {
	us.EmployeeNo = core.CleanString(us.EmployeeNo)
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Designation = core.CleanString(us.Designation)
	us.Department = core.CleanString(us.Department)
	return validate.Struct(us)
}

type QueryFilter struct {
	SchoolID   string
	Search     string `query:"search"`
	Department string `query:"department"`
	IsTeaching *bool  `query:"is_teaching"`
}
