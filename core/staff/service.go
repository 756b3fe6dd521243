package staff

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/export"
)

var (
	ErrNotFound         = core.NewNotFoundError("staff")
	ErrUserNotFound     = core.NewNotFoundError("user")
	ErrEmployeeNoExists = core.NewConflictError("employee_no", "a staff member with this employee number already exists")
	ErrUserLinked       = core.NewConflictError("user_id", "this user is already linked to another staff member")
)

type Repository interface {
	CreateStaff(ctx context.Context, stf Staff, exec ...core.DBExecutor) (Staff, error)
	QueryStaff(ctx context.Context, filter QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Staff, error)
	GetStaff(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Staff, error)
	GetStaffByUser(ctx context.Context, userID string, exec ...core.DBExecutor) (Staff, error)
	UpdateStaff(ctx context.Context, stf Staff, exec ...core.DBExecutor) (Staff, error)
	DeleteStaff(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error
	// UserInSchool reports whether a (non-deleted) user belongs to the school.
	UserInSchool(ctx context.Context, schoolID, userID string, exec ...core.DBExecutor) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUser(ctx context.Context, schoolID, userID, exclStaffID string) error {
	if userID == "" {
		return nil
	}
	ok, err := svc.repo.UserInSchool(ctx, schoolID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	linked, err := svc.repo.GetStaffByUser(ctx, userID)
	if err == nil && linked.ID != exclStaffID {
		return ErrUserLinked
	} else if err != nil && !core.IsNotFound(err) {
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, schoolID string, ns NewStaff) (Staff, error) {
	if err := svc.checkUser(ctx, schoolID, ns.UserID, ""); err != nil {
		return Staff{}, err
	}

	now := core.NowFunc()
	return svc.repo.CreateStaff(ctx, Staff{
		SchoolID:      schoolID,
		UserID:        null.NewString(ns.UserID, ns.UserID != ""),
		EmployeeNo:    ns.EmployeeNo,
		Name:          ns.Name,
		Email:         ns.Email,
		Phone:         core.CleanString(ns.Phone),
		Designation:   ns.Designation,
		Department:    ns.Department,
		IsTeaching:    ns.IsTeaching,
		JoinedOn:      ns.JoinedOn,
		MonthlySalary: ns.MonthlySalary,
		Allowances:    ns.Allowances,
		Deductions:    ns.Deductions,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, opts core.ListOptions) ([]Staff, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryStaff(ctx, filter, opts)
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Staff, error) {
	return svc.repo.GetStaff(ctx, schoolID, id)
}

// GetByUser returns the staff record linked to a user account.
func (svc *Service) GetByUser(ctx context.Context, userID string) (Staff, error) {
	return svc.repo.GetStaffByUser(ctx, userID)
}

func (svc *Service) Update(ctx context.Context, stf Staff, us UpdateStaff) (Staff, error) {
	if us.UserID != nil {
		userID := core.CleanString(*us.UserID)
		if err := svc.checkUser(ctx, stf.SchoolID, userID, stf.ID); err != nil {
			return Staff{}, err
		}
		stf.UserID = null.NewString(userID, userID != "")
	}
	if us.EmployeeNo != "" {
		stf.EmployeeNo = us.EmployeeNo
	}
	if us.Name != "" {
		stf.Name = us.Name
	}
	if us.Email != "" {
		stf.Email = us.Email
	}
	if us.Phone != "" {
		stf.Phone = core.CleanString(us.Phone)
	}
	if us.Designation != "" {
		stf.Designation = us.Designation
	}
	if us.Department != "" {
		stf.Department = us.Department
	}
	if us.IsTeaching != nil {
		stf.IsTeaching = *us.IsTeaching
	}
	if us.JoinedOn != nil {
		stf.JoinedOn = *us.JoinedOn
	}
	if us.MonthlySalary != nil {
		stf.MonthlySalary = *us.MonthlySalary
	}
	if us.Allowances != nil {
		stf.Allowances = *us.Allowances
	}
	if us.Deductions != nil {
		stf.Deductions = *us.Deductions
	}
	stf.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateStaff(ctx, stf)
}

func (svc *Service) Delete(ctx context.Context, schoolID, id, deletedBy string) error {
	return svc.repo.DeleteStaff(ctx, schoolID, id, deletedBy)
}

// ExportTable renders the staff list as an export.Table.
func (svc *Service) ExportTable(ctx context.Context, filter QueryFilter) (export.Table, error) {
	members, err := svc.Query(ctx, filter, core.ListOptions{Ordering: "employee_no"})
	if err != nil {
		return export.Table{}, err
	}
	tbl := export.Table{
		Title:   "Staff",
		Columns: []string{"Employee No", "Name", "Email", "Phone", "Designation", "Department", "Teaching", "Joined On", "Monthly Salary"},
	}
	for _, m := range members {
		teaching := "No"
		if m.IsTeaching {
			teaching = "Yes"
		}
		tbl.Rows = append(tbl.Rows, []string{
			m.EmployeeNo, m.Name, m.Email, m.Phone, m.Designation, m.Department, teaching, m.JoinedOn.String(),
			export.FormatAmount(m.MonthlySalary),
		})
	}
	return tbl, nil
}
