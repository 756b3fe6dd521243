package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/fee"
)

const (
	feeStructuresTable = "fee_structures"
	feePaymentsTable   = "fee_payments"
)

var (
	feeStructureCols = []string{
		"id", "school_id", "class_id", "name", "version", "root_id", "previous_id", "status", "items", "total",
		"effective_from", "created_by", "created_at", "updated_at",
	}
	feeStructureUpdateCols = []string{"name", "status", "items", "total", "effective_from", "updated_at"}
	feeStructureOrdering   = map[string]string{
		"name":           "fs.name",
		"version":        "fs.version",
		"total":          "fs.total",
		"effective_from": "fs.effective_from",
		"class_name":     "c.name",
		"created_at":     "fs.created_at",
	}

	feePaymentCols     = []string{"id", "school_id", "student_id", "fee_structure_id", "amount", "paid_on", "method", "reference", "receipt_no", "received_by", "created_at"}
	feePaymentOrdering = map[string]string{
		"paid_on":      "p.paid_on",
		"amount":       "p.amount",
		"receipt_no":   "p.receipt_no",
		"student_name": "st.name",
		"created_at":   "p.created_at",
	}
)

type feeRepository struct {
	base
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(exec core.DBExecutor) *feeRepository {
	return &feeRepository{base{exec: exec}}
}

// Structures

func (repo feeRepository) selectStructures() sq.SelectBuilder {
	cols := make([]string, 0, len(feeStructureCols)+1)
	for _, col := range feeStructureCols {
		cols = append(cols, "fs."+col)
	}
	return builder.Select(append(cols, "c.name AS class_name")...).
		From(feeStructuresTable + " fs").
		Join(classesTable + " c ON c.id = fs.class_id").
		Where(sq.Eq{"fs.deleted_at": nil})
}

func (repo feeRepository) getStructure(ctx context.Context, exec core.DBExecutor, schoolID, id string) (fee.Structure, error) {
	var fs fee.Structure
	err := getOne(ctx, exec, &fs, repo.selectStructures().Where(sq.Eq{"fs.id": id, "fs.school_id": schoolID}))
	return fs, trapErr(err, "getting fee structure", fee.ErrStructureNotFound, nil)
}

func (repo feeRepository) CreateStructure(ctx context.Context, fs fee.Structure, exec ...core.DBExecutor) (fee.Structure, error) {
	if fs.ID == "" {
		fs.ID = newID()
	}
	db := repo.getExec(exec)
	if err := insertRow(ctx, db, feeStructuresTable, feeStructureCols, fs); err != nil {
		return fs, trapErr(err, "inserting fee structure", nil, fee.ErrStructureExists)
	}
	return repo.getStructure(ctx, db, fs.SchoolID, fs.ID)
}

func (repo feeRepository) QueryStructures(ctx context.Context, filter fee.StructureFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]fee.Structure, error) {
	qb := repo.selectStructures().Where(sq.Eq{"fs.school_id": filter.SchoolID})
	if filter.ClassID != "" {
		qb = qb.Where(sq.Eq{"fs.class_id": filter.ClassID})
	}
	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"fs.status": filter.Status})
	}
	if filter.Search != "" {
		qb = qb.Where(search(filter.Search, "fs.name"))
	}
	if filter.RootID != "" {
		qb = qb.Where(sq.Eq{"fs.root_id": filter.RootID})
	}
	qb = applyListOptions(qb, opts, feeStructureOrdering, "c.name", "fs.name", "fs.version")

	structures := []fee.Structure{}
	if err := selectMany(ctx, repo.getExec(exec), &structures, qb); err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	return structures, nil
}

func (repo feeRepository) GetStructure(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (fee.Structure, error) {
	return repo.getStructure(ctx, repo.getExec(exec), schoolID, id)
}

func (repo feeRepository) UpdateStructure(ctx context.Context, fs fee.Structure, exec ...core.DBExecutor) (fee.Structure, error) {
	err := updateRow(ctx, repo.getExec(exec), feeStructuresTable, feeStructureUpdateCols, fs, true)
	return fs, trapErr(err, "updating fee structure", fee.ErrStructureNotFound, fee.ErrStructureExists)
}

func (repo feeRepository) DeleteStructure(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), feeStructuresTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting fee structure", fee.ErrStructureNotFound, nil)
}

// Payments

func (repo feeRepository) selectPayments() sq.SelectBuilder {
	cols := make([]string, 0, len(feePaymentCols)+3)
	for _, col := range feePaymentCols {
		cols = append(cols, "p."+col)
	}
	return builder.Select(append(cols, "st.name AS student_name", "fs.name AS fee_structure_name", "fs.root_id AS fee_root_id")...).
		From(feePaymentsTable + " p").
		Join(studentsTable + " st ON st.id = p.student_id").
		Join(feeStructuresTable + " fs ON fs.id = p.fee_structure_id")
}

func (repo feeRepository) getPayment(ctx context.Context, exec core.DBExecutor, schoolID, id string) (fee.Payment, error) {
	var pmt fee.Payment
	err := getOne(ctx, exec, &pmt, repo.selectPayments().Where(sq.Eq{"p.id": id, "p.school_id": schoolID}))
	return pmt, trapErr(err, "getting payment", fee.ErrPaymentNotFound, nil)
}

func (repo feeRepository) CreatePayment(ctx context.Context, pmt fee.Payment, exec ...core.DBExecutor) (fee.Payment, error) {
	pmt.ID = newID()
	db := repo.getExec(exec)
	if err := insertRow(ctx, db, feePaymentsTable, feePaymentCols, pmt); err != nil {
		return pmt, errors.Wrap(err, "inserting payment")
	}
	return repo.getPayment(ctx, db, pmt.SchoolID, pmt.ID)
}

func (repo feeRepository) QueryPayments(ctx context.Context, filter fee.PaymentFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]fee.Payment, error) {
	qb := repo.selectPayments().Where(sq.Eq{"p.school_id": filter.SchoolID})
	if filter.StudentID != "" {
		qb = qb.Where(sq.Eq{"p.student_id": filter.StudentID})
	}
	if filter.FeeStructureID != "" {
		qb = qb.Where(sq.Eq{"p.fee_structure_id": filter.FeeStructureID})
	}
	if filter.Method != "" {
		qb = qb.Where(sq.Eq{"p.method": filter.Method})
	}
	if !filter.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"p.paid_on": filter.From})
	}
	if !filter.To.IsZero() {
		qb = qb.Where(sq.LtOrEq{"p.paid_on": filter.To})
	}
	qb = applyListOptions(qb, opts, feePaymentOrdering, "p.paid_on DESC", "p.created_at DESC")

	payments := []fee.Payment{}
	if err := selectMany(ctx, repo.getExec(exec), &payments, qb); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return payments, nil
}

func (repo feeRepository) GetPayment(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (fee.Payment, error) {
	return repo.getPayment(ctx, repo.getExec(exec), schoolID, id)
}

func (repo feeRepository) ClassExists(ctx context.Context, schoolID, classID string, exec ...core.DBExecutor) (bool, error) {
	return classExists(ctx, repo.getExec(exec), schoolID, classID)
}

func (repo feeRepository) StudentClass(ctx context.Context, schoolID, studentID string, exec ...core.DBExecutor) (string, error) {
	db := repo.getExec(exec)
	found, err := rowExists(ctx, db, studentsTable, schoolID, studentID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fee.ErrStudentNotFound
	}

	var classID string
	err = getOne(ctx, db, &classID, builder.Select("sec.class_id").
		From(studentsTable+" st").
		Join(sectionsTable+" sec ON sec.id = st.section_id").
		Where(sq.Eq{"st.id": studentID, "st.school_id": schoolID, "sec.deleted_at": nil}))
	if err == sql.ErrNoRows {
		return "", nil
	}
	return classID, errors.Wrap(err, "getting student class")
}
