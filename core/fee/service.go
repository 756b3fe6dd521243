package fee

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/export"
)

var (
	ErrStructureNotFound = core.NewNotFoundError("fee structure")
	ErrPaymentNotFound   = core.NewNotFoundError("payment")
	ErrClassNotFound     = core.NewNotFoundError("class")
	ErrStudentNotFound   = core.NewNotFoundError("student")
	ErrStructureExists   = core.NewConflictError("name", "an active fee structure with this name already exists for this class")

	errNotActive      = core.NewBusinessError("only the active version of a fee structure can be revised")
	errNotPayable     = core.NewValidationError(nil, core.FieldError{Field: "fee_structure_id", Error: "this fee structure is not active"})
	errOtherClass     = core.NewValidationError(nil, core.FieldError{Field: "fee_structure_id", Error: "this fee structure is not for the student's class"})
	errStudentNoClass = core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "the student is not enrolled in a section"})
)

type Repository interface {
	CreateStructure(ctx context.Context, fs Structure, exec ...core.DBExecutor) (Structure, error)
	QueryStructures(ctx context.Context, filter StructureFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Structure, error)
	GetStructure(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Structure, error)
	UpdateStructure(ctx context.Context, fs Structure, exec ...core.DBExecutor) (Structure, error)
	DeleteStructure(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error

	CreatePayment(ctx context.Context, pmt Payment, exec ...core.DBExecutor) (Payment, error)
	QueryPayments(ctx context.Context, filter PaymentFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Payment, error)
	GetPayment(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Payment, error)

	ClassExists(ctx context.Context, schoolID, classID string, exec ...core.DBExecutor) (bool, error)
	// StudentClass returns the class of the student's section ("" when not enrolled).
	StudentClass(ctx context.Context, schoolID, studentID string, exec ...core.DBExecutor) (string, error)
}

type Service struct {
	db   core.DB
	repo Repository
}

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// Structures

func (svc *Service) CreateStructure(ctx context.Context, schoolID, createdBy string, ns NewStructure) (Structure, error) {
	ok, err := svc.repo.ClassExists(ctx, schoolID, ns.ClassID)
	if err != nil {
		return Structure{}, err
	}
	if !ok {
		return Structure{}, ErrClassNotFound
	}

	id := uuid.NewString()
	now := core.NowFunc()
	fs := Structure{
		ID:            id,
		SchoolID:      schoolID,
		ClassID:       ns.ClassID,
		Name:          ns.Name,
		Version:       1,
		RootID:        id,
		Status:        StatusActive,
		Items:         ns.Items,
		Total:         Items(ns.Items).Total(),
		EffectiveFrom: ns.EffectiveFrom,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if fs.EffectiveFrom.IsZero() {
		fs.EffectiveFrom = core.Today()
	}
	return svc.repo.CreateStructure(ctx, fs)
}

func (svc *Service) QueryStructures(ctx context.Context, filter StructureFilter, opts core.ListOptions) ([]Structure, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Status = strings.ToUpper(core.CleanString(filter.Status))
	return svc.repo.QueryStructures(ctx, filter, opts)
}

func (svc *Service) GetStructure(ctx context.Context, schoolID, id string) (Structure, error) {
	return svc.repo.GetStructure(ctx, schoolID, id)
}

// Revise creates the next version of an active fee structure & supersedes it.
func (svc *Service) Revise(ctx context.Context, fs Structure, revisedBy string, rs ReviseStructure) (Structure, error) {
	var next Structure
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		// re-read inside the transaction: a concurrent revision may have superseded it
		current, err := svc.repo.GetStructure(ctx, fs.SchoolID, fs.ID, tx)
		if err != nil {
			return err
		}
		if !current.IsActive() {
			return errNotActive
		}

		now := core.NowFunc()
		current.Status = StatusSuperseded
		current.UpdatedAt = now
		if _, err = svc.repo.UpdateStructure(ctx, current, tx); err != nil {
			return err
		}

		next = Structure{
			SchoolID:      current.SchoolID,
			ClassID:       current.ClassID,
			Name:          current.Name,
			Version:       current.Version + 1,
			RootID:        current.RootID,
			PreviousID:    null.StringFrom(current.ID),
			Status:        StatusActive,
			Items:         rs.Items,
			Total:         Items(rs.Items).Total(),
			EffectiveFrom: rs.EffectiveFrom,
			CreatedBy:     revisedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if next.EffectiveFrom.IsZero() {
			next.EffectiveFrom = core.Today()
		}
		next, err = svc.repo.CreateStructure(ctx, next, tx)
		return err
	})
	return next, err
}

// History lists every version of a fee structure, newest first.
func (svc *Service) History(ctx context.Context, fs Structure) ([]Structure, error) {
	return svc.repo.QueryStructures(ctx, StructureFilter{SchoolID: fs.SchoolID, RootID: fs.RootID}, core.ListOptions{Ordering: "-version"})
}

func (svc *Service) DeleteStructure(ctx context.Context, schoolID, id, deletedBy string) error {
	return svc.repo.DeleteStructure(ctx, schoolID, id, deletedBy)
}

// Payments

func newReceiptNo() string {
	return fmt.Sprintf("RCT-%s-%s", core.NowFunc().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

func (svc *Service) studentClass(ctx context.Context, schoolID, studentID string) (string, error) {
	classID, err := svc.repo.StudentClass(ctx, schoolID, studentID)
	if err != nil {
		return "", err
	}
	if classID == "" {
		return "", errStudentNoClass
	}
	return classID, nil
}

func (svc *Service) RecordPayment(ctx context.Context, schoolID, receivedBy string, np NewPayment) (Payment, error) {
	classID, err := svc.studentClass(ctx, schoolID, np.StudentID)
	if err != nil {
		return Payment{}, err
	}
	fs, err := svc.repo.GetStructure(ctx, schoolID, np.FeeStructureID)
	if err != nil {
		if core.IsNotFound(err) {
			return Payment{}, core.NewValidationError(nil, core.FieldError{Field: "fee_structure_id", Error: "fee structure not found"})
		}
		return Payment{}, err
	}
	if !fs.IsActive() {
		return Payment{}, errNotPayable
	}
	if fs.ClassID != classID {
		return Payment{}, errOtherClass
	}

	pmt, err := svc.repo.CreatePayment(ctx, Payment{
		SchoolID:       schoolID,
		StudentID:      np.StudentID,
		FeeStructureID: fs.ID,
		Amount:         np.Amount,
		PaidOn:         np.PaidOn,
		Method:         np.Method,
		Reference:      np.Reference,
		ReceiptNo:      newReceiptNo(),
		ReceivedBy:     receivedBy,
		CreatedAt:      core.NowFunc(),
	})
	if err != nil {
		return Payment{}, err
	}
	return svc.repo.GetPayment(ctx, schoolID, pmt.ID)
}

func (svc *Service) QueryPayments(ctx context.Context, filter PaymentFilter, opts core.ListOptions) ([]Payment, error) {
	filter.Method = strings.ToUpper(core.CleanString(filter.Method))
	return svc.repo.QueryPayments(ctx, filter, opts)
}

func (svc *Service) GetPayment(ctx context.Context, schoolID, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, schoolID, id)
}

// Balance compares the active fee structures of the student's class with what has been paid for them
// (payments on superseded versions included).
func (svc *Service) Balance(ctx context.Context, schoolID, studentID string) (Balance, error) {
	classID, err := svc.studentClass(ctx, schoolID, studentID)
	if err != nil {
		return Balance{}, err
	}
	structures, err := svc.repo.QueryStructures(ctx, StructureFilter{
		SchoolID: schoolID,
		ClassID:  classID,
		Status:   StatusActive,
	}, core.ListOptions{Ordering: "name"})
	if err != nil {
		return Balance{}, err
	}
	payments, err := svc.repo.QueryPayments(ctx, PaymentFilter{SchoolID: schoolID, StudentID: studentID}, core.ListOptions{})
	if err != nil {
		return Balance{}, err
	}

	bal := Balance{StudentID: studentID, Structures: structures}
	roots := make(map[string]bool, len(structures))
	for _, fs := range structures {
		bal.Due += fs.Total
		roots[fs.RootID] = true
	}
	for _, pmt := range payments {
		if roots[pmt.FeeRootID] {
			bal.Paid += pmt.Amount
		}
	}
	bal.Balance = bal.Due - bal.Paid
	return bal, nil
}

// ExportPayments renders the payments as an export.Table.
func (svc *Service) ExportPayments(ctx context.Context, filter PaymentFilter) (export.Table, error) {
	payments, err := svc.QueryPayments(ctx, filter, core.ListOptions{Ordering: "paid_on"})
	if err != nil {
		return export.Table{}, err
	}
	tbl := export.Table{
		Title:   "Fee Payments",
		Columns: []string{"Receipt No", "Paid On", "Student", "Fee", "Method", "Reference", "Amount"},
	}
	var total int64
	for _, p := range payments {
		total += p.Amount
		tbl.Rows = append(tbl.Rows, []string{
			p.ReceiptNo, p.PaidOn.String(), p.StudentName, p.FeeStructName, p.Method, p.Reference, export.FormatAmount(p.Amount),
		})
	}
	tbl.Rows = append(tbl.Rows, []string{"", "", "", "", "", "Total", export.FormatAmount(total)})
	return tbl, nil
}
