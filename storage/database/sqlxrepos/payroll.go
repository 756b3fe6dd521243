package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/payroll"
)

const (
	payrollRunsTable = "payroll_runs"
	payslipsTable    = "payslips"
)

var (
	payrollRunCols = []string{
		"id", "school_id", "month", "status", "working_days", "total_gross", "total_deductions", "total_net",
		"generated_by", "finalized_by", "finalized_at", "created_at", "updated_at",
	}
	payrollRunUpdateCols = []string{
		"status", "working_days", "total_gross", "total_deductions", "total_net", "finalized_by", "finalized_at", "updated_at",
	}
	payrollRunOrdering = map[string]string{"month": "month", "status": "status", "created_at": "created_at"}

	payslipCols = []string{
		"id", "school_id", "run_id", "staff_id", "staff_name", "employee_no", "basic", "allowances", "gross", "deductions",
		"working_days", "unpaid_days", "paid_days", "loss_of_pay", "net", "created_at",
	}
)

type payrollRepository struct {
	base
}

var _ payroll.Repository = (*payrollRepository)(nil)

func NewPayrollRepository(exec core.DBExecutor) *payrollRepository {
	return &payrollRepository{base{exec: exec}}
}

func (repo payrollRepository) selectRuns() sq.SelectBuilder {
	return builder.Select(payrollRunCols...).From(payrollRunsTable)
}

func (repo payrollRepository) CreateRun(ctx context.Context, run payroll.Run, exec ...core.DBExecutor) (payroll.Run, error) {
	run.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), payrollRunsTable, payrollRunCols, run)
	return run, trapErr(err, "inserting payroll run", nil, payroll.ErrMonthExists)
}

func (repo payrollRepository) QueryRuns(ctx context.Context, schoolID string, opts core.ListOptions, exec ...core.DBExecutor) ([]payroll.Run, error) {
	qb := applyListOptions(repo.selectRuns().Where(sq.Eq{"school_id": schoolID}), opts, payrollRunOrdering, "month DESC")
	runs := []payroll.Run{}
	if err := selectMany(ctx, repo.getExec(exec), &runs, qb); err != nil {
		return nil, errors.Wrap(err, "querying payroll runs")
	}
	return runs, nil
}

func (repo payrollRepository) GetRun(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (payroll.Run, error) {
	var run payroll.Run
	err := getOne(ctx, repo.getExec(exec), &run, repo.selectRuns().Where(sq.Eq{"id": id, "school_id": schoolID}))
	return run, trapErr(err, "getting payroll run", payroll.ErrNotFound, nil)
}

func (repo payrollRepository) UpdateRun(ctx context.Context, run payroll.Run, exec ...core.DBExecutor) (payroll.Run, error) {
	err := updateRow(ctx, repo.getExec(exec), payrollRunsTable, payrollRunUpdateCols, run, false)
	return run, trapErr(err, "updating payroll run", payroll.ErrNotFound, nil)
}

func (repo payrollRepository) DeleteRun(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)
	if err := repo.DeletePayslips(ctx, id, db); err != nil {
		return err
	}
	res, err := execute(ctx, db, builder.Delete(payrollRunsTable).Where(sq.Eq{"id": id, "school_id": schoolID}))
	if err == nil {
		err = checkAffected(res)
	}
	return trapErr(err, "deleting payroll run", payroll.ErrNotFound, nil)
}

func (repo payrollRepository) CreatePayslips(ctx context.Context, payslips []payroll.Payslip, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)
	for _, ps := range payslips {
		ps.ID = newID()
		if err := insertRow(ctx, db, payslipsTable, payslipCols, ps); err != nil {
			return errors.Wrap(err, "inserting payslip")
		}
	}
	return nil
}

func (repo payrollRepository) DeletePayslips(ctx context.Context, runID string, exec ...core.DBExecutor) error {
	_, err := execute(ctx, repo.getExec(exec), builder.Delete(payslipsTable).Where(sq.Eq{"run_id": runID}))
	return errors.Wrap(err, "deleting payslips")
}

func (repo payrollRepository) QueryPayslips(ctx context.Context, filter payroll.PayslipFilter, exec ...core.DBExecutor) ([]payroll.Payslip, error) {
	cols := make([]string, 0, len(payslipCols))
	for _, col := range payslipCols {
		cols = append(cols, "ps."+col)
	}
	qb := builder.Select(cols...).
		From(payslipsTable + " ps").
		Join(payrollRunsTable + " r ON r.id = ps.run_id").
		Where(sq.Eq{"ps.school_id": filter.SchoolID})
	if filter.RunID != "" {
		qb = qb.Where(sq.Eq{"ps.run_id": filter.RunID})
	}
	if filter.StaffID != "" {
		qb = qb.Where(sq.Eq{"ps.staff_id": filter.StaffID})
	}
	qb = qb.OrderBy("r.month DESC", "ps.staff_name")

	payslips := []payroll.Payslip{}
	if err := selectMany(ctx, repo.getExec(exec), &payslips, qb); err != nil {
		return nil, errors.Wrap(err, "querying payslips")
	}
	return payslips, nil
}
