package payroll

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

// Run statuses
const (
	StatusDraft     = "DRAFT"
	StatusFinalized = "FINALIZED"
)

const monthLayout = "2006-01"

type Run struct {
	ID              string      `json:"id" db:"id"`
	SchoolID        string      `json:"school_id" db:"school_id"`
	Month           string      `json:"month" db:"month"` // YYYY-MM
	Status          string      `json:"status" db:"status"`
	WorkingDays     int         `json:"working_days" db:"working_days"`
	TotalGross      int64       `json:"total_gross" db:"total_gross"`
	TotalDeductions int64       `json:"total_deductions" db:"total_deductions"` // loss of pay included
	TotalNet        int64       `json:"total_net" db:"total_net"`
	GeneratedBy     string      `json:"generated_by" db:"generated_by"`
	FinalizedBy     null.String `json:"finalized_by" db:"finalized_by"`
	FinalizedAt     null.Time   `json:"finalized_at" db:"finalized_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`

	Payslips []Payslip `json:"payslips,omitempty" db:"-"`
}

func (r Run) IsDraft() bool { return r.Status == StatusDraft }

// Period returns the first & last days of the run's month.
func (r Run) Period() (core.Date, core.Date, error) {
	return monthRange(r.Month)
}

type Payslip struct {
	ID          string    `json:"id" db:"id"`
	SchoolID    string    `json:"school_id" db:"school_id"`
	RunID       string    `json:"run_id" db:"run_id"`
	StaffID     string    `json:"staff_id" db:"staff_id"`
	StaffName   string    `json:"staff_name" db:"staff_name"`
	EmployeeNo  string    `json:"employee_no" db:"employee_no"`
	Basic       int64     `json:"basic" db:"basic"`
	Allowances  int64     `json:"allowances" db:"allowances"`
	Gross       int64     `json:"gross" db:"gross"`
	Deductions  int64     `json:"deductions" db:"deductions"`
	WorkingDays int       `json:"working_days" db:"working_days"`
	UnpaidDays  float64   `json:"unpaid_days" db:"unpaid_days"`
	PaidDays    float64   `json:"paid_days" db:"paid_days"`
	LossOfPay   int64     `json:"loss_of_pay" db:"loss_of_pay"`
	Net         int64     `json:"net" db:"net"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// computePayslip derives a staff member's pay for a month.
// Loss of pay is prorated on unpaid days; there is none when the month has no working days.
func computePayslip(stf staff.Staff, workingDays int, unpaidDays float64) Payslip {
	if unpaidDays > float64(workingDays) {
		unpaidDays = float64(workingDays)
	}
	ps := Payslip{
		StaffID:     stf.ID,
		StaffName:   stf.Name,
		EmployeeNo:  stf.EmployeeNo,
		Basic:       stf.MonthlySalary,
		Allowances:  stf.Allowances,
		Gross:       stf.Gross(),
		Deductions:  stf.Deductions,
		WorkingDays: workingDays,
		UnpaidDays:  unpaidDays,
		PaidDays:    float64(workingDays) - unpaidDays,
	}
	if workingDays > 0 {
		ps.LossOfPay = int64(math.Round(float64(ps.Gross) * unpaidDays / float64(workingDays)))
	}
	if ps.Net = ps.Gross - ps.Deductions - ps.LossOfPay; ps.Net < 0 {
		ps.Net = 0
	}
	return ps
}

func monthRange(month string) (core.Date, core.Date, error) {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return core.Date{}, core.Date{}, errInvalidMonth
	}
	first := core.NewDate(t)
	return first, core.NewDate(t.AddDate(0, 1, -1)), nil
}

type GenerateRun struct {
	Month string `json:"month" validate:"required,yyyymm"`
}

func (gr *GenerateRun) Validate(validate *validator.Validate) error {
	gr.Month = core.CleanString(gr.Month)
	return validate.Struct(gr)
}

type PayslipFilter struct {
	SchoolID string
	RunID    string
	StaffID  string `query:"staff_id"`
}
