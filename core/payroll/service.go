package payroll

import (
	"context"
	"fmt"
	"strconv"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/export"
	"github.com/trezcool/shule/core/staff"
)

var (
	ErrNotFound    = core.NewNotFoundError("payroll run")
	ErrMonthExists = core.NewConflictError("month", "a payroll run already exists for this month")

	errInvalidMonth = core.NewValidationError(nil, core.FieldError{Field: "month", Error: "must be a valid month (YYYY-MM)"})
	errFinalized    = core.NewBusinessError("finalized payroll runs cannot be changed")
)

type Repository interface {
	CreateRun(ctx context.Context, run Run, exec ...core.DBExecutor) (Run, error)
	QueryRuns(ctx context.Context, schoolID string, opts core.ListOptions, exec ...core.DBExecutor) ([]Run, error)
	GetRun(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Run, error)
	UpdateRun(ctx context.Context, run Run, exec ...core.DBExecutor) (Run, error)
	// DeleteRun removes the run & its payslips.
	DeleteRun(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) error

	CreatePayslips(ctx context.Context, payslips []Payslip, exec ...core.DBExecutor) error
	DeletePayslips(ctx context.Context, runID string, exec ...core.DBExecutor) error
	QueryPayslips(ctx context.Context, filter PayslipFilter, exec ...core.DBExecutor) ([]Payslip, error)
}

type (
	StaffDirectory interface {
		Query(ctx context.Context, filter staff.QueryFilter, opts core.ListOptions) ([]staff.Staff, error)
	}

	Calendar interface {
		WorkingDays(ctx context.Context, schoolID string, from, to core.Date) (int, error)
	}

	Attendance interface {
		UnpaidDays(ctx context.Context, schoolID string, from, to core.Date) (map[string]float64, error)
	}
)

type Service struct {
	db         core.DB
	repo       Repository
	staff      StaffDirectory
	calendar   Calendar
	attendance Attendance
}

func NewService(db core.DB, repo Repository, staffDir StaffDirectory, cal Calendar, att Attendance) *Service {
	return &Service{db: db, repo: repo, staff: staffDir, calendar: cal, attendance: att}
}

// Generate computes the payslips of every staff member for a month as a DRAFT run.
func (svc *Service) Generate(ctx context.Context, schoolID, generatedBy string, gr GenerateRun) (Run, error) {
	if _, _, err := monthRange(gr.Month); err != nil {
		return Run{}, err
	}
	now := core.NowFunc()
	run := Run{
		SchoolID:    schoolID,
		Month:       gr.Month,
		Status:      StatusDraft,
		GeneratedBy: generatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	in, err := svc.gather(ctx, run)
	if err != nil {
		return Run{}, err
	}

	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if run, err = svc.repo.CreateRun(ctx, run, tx); err != nil {
			return err
		}
		run, err = svc.save(ctx, run, in, tx)
		return err
	})
	return run, err
}

// Regenerate recomputes the payslips of a DRAFT run.
func (svc *Service) Regenerate(ctx context.Context, run Run, generatedBy string) (Run, error) {
	if !run.IsDraft() {
		return Run{}, errFinalized
	}
	in, err := svc.gather(ctx, run)
	if err != nil {
		return Run{}, err
	}

	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		current, err := svc.lockDraft(ctx, run, tx)
		if err != nil {
			return err
		}
		if err = svc.repo.DeletePayslips(ctx, current.ID, tx); err != nil {
			return err
		}
		current.GeneratedBy = generatedBy
		run, err = svc.save(ctx, current, in, tx)
		return err
	})
	return run, err
}

// lockDraft re-reads run within tx; only DRAFT runs may change.
func (svc *Service) lockDraft(ctx context.Context, run Run, tx core.DBExecutor) (Run, error) {
	current, err := svc.repo.GetRun(ctx, run.SchoolID, run.ID, tx)
	if err != nil {
		return Run{}, err
	}
	if !current.IsDraft() {
		return Run{}, errFinalized
	}
	return current, nil
}

// payrollInput holds what a run is computed from. It is read before the run's transaction starts:
// the calendar, attendance & staff services use their own connections.
type payrollInput struct {
	to          core.Date
	workingDays int
	unpaid      map[string]float64
	members     []staff.Staff
}

func (svc *Service) gather(ctx context.Context, run Run) (payrollInput, error) {
	from, to, err := run.Period()
	if err != nil {
		return payrollInput{}, err
	}
	in := payrollInput{to: to}
	if in.workingDays, err = svc.calendar.WorkingDays(ctx, run.SchoolID, from, to); err != nil {
		return payrollInput{}, err
	}
	if in.unpaid, err = svc.attendance.UnpaidDays(ctx, run.SchoolID, from, to); err != nil {
		return payrollInput{}, err
	}
	in.members, err = svc.staff.Query(ctx, staff.QueryFilter{SchoolID: run.SchoolID}, core.ListOptions{Ordering: "employee_no"})
	if err != nil {
		return payrollInput{}, err
	}
	return in, nil
}

func (svc *Service) save(ctx context.Context, run Run, in payrollInput, tx core.DBExecutor) (Run, error) {
	now := core.NowFunc()
	run.WorkingDays = in.workingDays
	run.TotalGross, run.TotalDeductions, run.TotalNet = 0, 0, 0
	payslips := make([]Payslip, 0, len(in.members))
	for _, stf := range in.members {
		if !stf.JoinedOn.IsZero() && stf.JoinedOn.After(in.to) {
			continue
		}
		ps := computePayslip(stf, run.WorkingDays, in.unpaid[stf.ID])
		ps.SchoolID = run.SchoolID
		ps.RunID = run.ID
		ps.CreatedAt = now
		payslips = append(payslips, ps)

		run.TotalGross += ps.Gross
		run.TotalDeductions += ps.Deductions + ps.LossOfPay
		run.TotalNet += ps.Net
	}
	if err := svc.repo.CreatePayslips(ctx, payslips, tx); err != nil {
		return Run{}, err
	}

	run.UpdatedAt = now
	run, err := svc.repo.UpdateRun(ctx, run, tx)
	if err != nil {
		return Run{}, err
	}
	run.Payslips = payslips
	return run, nil
}

func (svc *Service) Finalize(ctx context.Context, run Run, finalizedBy string) (Run, error) {
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		current, err := svc.lockDraft(ctx, run, tx)
		if err != nil {
			return err
		}
		now := core.NowFunc()
		current.Status = StatusFinalized
		current.FinalizedBy = null.StringFrom(finalizedBy)
		current.FinalizedAt = null.TimeFrom(now)
		current.UpdatedAt = now
		run, err = svc.repo.UpdateRun(ctx, current, tx)
		return err
	})
	return run, err
}

func (svc *Service) Delete(ctx context.Context, run Run) error {
	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.lockDraft(ctx, run, tx); err != nil {
			return err
		}
		return svc.repo.DeleteRun(ctx, run.SchoolID, run.ID, tx)
	})
}

func (svc *Service) Query(ctx context.Context, schoolID string, opts core.ListOptions) ([]Run, error) {
	return svc.repo.QueryRuns(ctx, schoolID, opts)
}

// Get returns the run with its payslips.
func (svc *Service) Get(ctx context.Context, schoolID, id string) (Run, error) {
	run, err := svc.repo.GetRun(ctx, schoolID, id)
	if err != nil {
		return Run{}, err
	}
	if run.Payslips, err = svc.repo.QueryPayslips(ctx, PayslipFilter{SchoolID: schoolID, RunID: id}); err != nil {
		return Run{}, err
	}
	return run, nil
}

// StaffPayslips lists the payslips of a staff member over all runs.
func (svc *Service) StaffPayslips(ctx context.Context, schoolID, staffID string) ([]Payslip, error) {
	return svc.repo.QueryPayslips(ctx, PayslipFilter{SchoolID: schoolID, StaffID: staffID})
}

// ExportPayslips renders the payslips of a run as an export.Table.
func (svc *Service) ExportPayslips(ctx context.Context, run Run) (export.Table, error) {
	payslips := run.Payslips
	if payslips == nil {
		var err error
		if payslips, err = svc.repo.QueryPayslips(ctx, PayslipFilter{SchoolID: run.SchoolID, RunID: run.ID}); err != nil {
			return export.Table{}, err
		}
	}
	tbl := export.Table{
		Title: fmt.Sprintf("Payroll %s (%s)", run.Month, run.Status),
		Columns: []string{
			"Employee No", "Name", "Basic", "Allowances", "Gross", "Deductions",
			"Working Days", "Paid Days", "Loss of Pay", "Net",
		},
	}
	for _, ps := range payslips {
		tbl.Rows = append(tbl.Rows, []string{
			ps.EmployeeNo, ps.StaffName,
			export.FormatAmount(ps.Basic), export.FormatAmount(ps.Allowances), export.FormatAmount(ps.Gross),
			export.FormatAmount(ps.Deductions), strconv.Itoa(ps.WorkingDays),
			strconv.FormatFloat(ps.PaidDays, 'f', -1, 64),
			export.FormatAmount(ps.LossOfPay), export.FormatAmount(ps.Net),
		})
	}
	return tbl, nil
}
