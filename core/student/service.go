package student

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/export"
)

var (
	ErrNotFound          = core.NewNotFoundError("student")
	ErrSectionNotFound   = core.NewNotFoundError("section")
	ErrUserNotFound      = core.NewNotFoundError("user")
	ErrAdmissionNoExists = core.NewConflictError("admission_no", "a student with this admission number already exists")
	ErrSectionFull       = core.NewBusinessError("the section does not have enough room")
	ErrNotActive         = core.NewBusinessError("only active students can be promoted")
	ErrEmptyImport       = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the file has no data rows"})
)

type Repository interface {
	CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
	QueryStudents(ctx context.Context, filter QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Student, error)
	GetStudent(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Student, error)
	GetStudentByUser(ctx context.Context, userID string, exec ...core.DBExecutor) (Student, error)
	UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
	DeleteStudent(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error

	CreatePromotion(ctx context.Context, pr Promotion, exec ...core.DBExecutor) error
	QueryPromotions(ctx context.Context, schoolID, studentID string, exec ...core.DBExecutor) ([]Promotion, error)

	// GetSectionInfo returns the capacity & the number of ACTIVE students of a section.
	GetSectionInfo(ctx context.Context, schoolID, sectionID string, exec ...core.DBExecutor) (SectionInfo, error)
	UserInSchool(ctx context.Context, schoolID, userID string, exec ...core.DBExecutor) (bool, error)
}

type Service struct {
	db   core.DB
	repo Repository
}

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) checkUser(ctx context.Context, schoolID, userID, field string) error {
	if userID == "" {
		return nil
	}
	ok, err := svc.repo.UserInSchool(ctx, schoolID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: "user not found"})
	}
	return nil
}

func (svc *Service) checkSection(ctx context.Context, schoolID, sectionID string, count int, exec ...core.DBExecutor) error {
	if sectionID == "" {
		return nil
	}
	info, err := svc.repo.GetSectionInfo(ctx, schoolID, sectionID, exec...)
	if err != nil {
		return err
	}
	if !info.HasRoomFor(count) {
		return ErrSectionFull
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, schoolID string, ns NewStudent) (Student, error) {
	if err := svc.checkUser(ctx, schoolID, ns.UserID, "user_id"); err != nil {
		return Student{}, err
	}
	if err := svc.checkUser(ctx, schoolID, ns.ParentUserID, "parent_user_id"); err != nil {
		return Student{}, err
	}
	if err := svc.checkSection(ctx, schoolID, ns.SectionID, 1); err != nil {
		return Student{}, err
	}

	now := core.NowFunc()
	return svc.repo.CreateStudent(ctx, Student{
		SchoolID:     schoolID,
		UserID:       null.NewString(ns.UserID, ns.UserID != ""),
		ParentUserID: null.NewString(ns.ParentUserID, ns.ParentUserID != ""),
		AdmissionNo:  ns.AdmissionNo,
		Name:         ns.Name,
		Gender:       ns.Gender,
		DateOfBirth:  ns.DateOfBirth,
		SectionID:    null.NewString(ns.SectionID, ns.SectionID != ""),
		RollNo:       ns.RollNo,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, opts core.ListOptions) ([]Student, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Status = strings.ToUpper(core.CleanString(filter.Status))
	return svc.repo.QueryStudents(ctx, filter, opts)
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, schoolID, id)
}

// GetByUser returns the student record linked to a user account.
func (svc *Service) GetByUser(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudentByUser(ctx, userID)
}

// QueryChildren lists the students whose parent is the given user.
func (svc *Service) QueryChildren(ctx context.Context, schoolID, parentUserID string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, QueryFilter{SchoolID: schoolID, ParentUserID: parentUserID}, core.ListOptions{Ordering: "name"})
}

func (svc *Service) Update(ctx context.Context, std Student, us UpdateStudent) (Student, error) {
	if us.UserID != nil {
		userID := core.CleanString(*us.UserID)
		if err := svc.checkUser(ctx, std.SchoolID, userID, "user_id"); err != nil {
			return Student{}, err
		}
		std.UserID = null.NewString(userID, userID != "")
	}
	if us.ParentUserID != nil {
		parentID := core.CleanString(*us.ParentUserID)
		if err := svc.checkUser(ctx, std.SchoolID, parentID, "parent_user_id"); err != nil {
			return Student{}, err
		}
		std.ParentUserID = null.NewString(parentID, parentID != "")
	}
	if us.SectionID != nil {
		sectionID := core.CleanString(*us.SectionID)
		if sectionID != std.SectionID.String {
			if err := svc.checkSection(ctx, std.SchoolID, sectionID, 1); err != nil {
				return Student{}, err
			}
		}
		std.SectionID = null.NewString(sectionID, sectionID != "")
	}
	if us.AdmissionNo != "" {
		std.AdmissionNo = us.AdmissionNo
	}
	if us.Name != "" {
		std.Name = us.Name
	}
	if us.Gender != "" {
		std.Gender = us.Gender
	}
	if us.DateOfBirth != nil {
		std.DateOfBirth = *us.DateOfBirth
	}
	if us.RollNo != nil {
		std.RollNo = *us.RollNo
	}
	if us.Status != "" {
		std.Status = us.Status
	}
	std.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) Delete(ctx context.Context, schoolID, id, deletedBy string) error {
	return svc.repo.DeleteStudent(ctx, schoolID, id, deletedBy)
}

// Promote moves ACTIVE students to the target section (or graduates them) and records the history.
// Either all students are promoted or none is.
func (svc *Service) Promote(ctx context.Context, schoolID, promotedBy string, ps PromoteStudents) ([]Student, error) {
	var promoted []Student
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		students := make([]Student, 0, len(ps.StudentIDs))
		seen := make(map[string]bool, len(ps.StudentIDs))
		for _, id := range ps.StudentIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			std, err := svc.repo.GetStudent(ctx, schoolID, id, tx)
			if err != nil {
				return err
			}
			if !std.IsActive() {
				return ErrNotActive
			}
			students = append(students, std)
		}

		action := ActionGraduated
		if !ps.Graduate {
			action = ActionPromoted
			moving := 0
			for _, std := range students {
				if std.SectionID.String != ps.TargetSectionID {
					moving++
				}
			}
			if err := svc.checkSection(ctx, schoolID, ps.TargetSectionID, moving, tx); err != nil {
				return err
			}
		}

		now := core.NowFunc()
		for _, std := range students {
			pr := Promotion{
				SchoolID:      schoolID,
				StudentID:     std.ID,
				FromSectionID: std.SectionID,
				Action:        action,
				PromotedBy:    promotedBy,
				CreatedAt:     now,
			}
			if ps.Graduate {
				std.Status = StatusGraduated
			} else {
				std.SectionID = null.StringFrom(ps.TargetSectionID)
				pr.ToSectionID = std.SectionID
			}
			std.UpdatedAt = now

			updated, err := svc.repo.UpdateStudent(ctx, std, tx)
			if err != nil {
				return err
			}
			if err = svc.repo.CreatePromotion(ctx, pr, tx); err != nil {
				return err
			}
			promoted = append(promoted, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

func (svc *Service) PromotionHistory(ctx context.Context, schoolID, studentID string) ([]Promotion, error) {
	if _, err := svc.Get(ctx, schoolID, studentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPromotions(ctx, schoolID, studentID)
}

// ExportTable renders the student list as an export.Table.
func (svc *Service) ExportTable(ctx context.Context, filter QueryFilter) (export.Table, error) {
	students, err := svc.Query(ctx, filter, core.ListOptions{Ordering: "admission_no"})
	if err != nil {
		return export.Table{}, err
	}
	tbl := export.Table{
		Title:   "Students",
		Columns: []string{"Admission No", "Name", "Gender", "Date of Birth", "Class", "Section", "Roll No", "Status"},
	}
	for _, s := range students {
		tbl.Rows = append(tbl.Rows, []string{
			s.AdmissionNo, s.Name, s.Gender, s.DateOfBirth.String(), s.ClassName.String, s.SectionName.String,
			strconv.Itoa(s.RollNo), s.Status,
		})
	}
	return tbl, nil
}

// ImportXLSX creates students in a section from the first sheet of an xlsx file.
// Columns: admission no, name, gender, date of birth (YYYY-MM-DD), roll no. The first row is a header.
// Incomplete & duplicate rows are skipped and reported, the other rows are imported.
func (svc *Service) ImportXLSX(ctx context.Context, schoolID, sectionID string, r io.Reader) (ImportResult, error) {
	if _, err := svc.repo.GetSectionInfo(ctx, schoolID, sectionID); err != nil {
		return ImportResult{}, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "invalid xlsx file"})
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return ImportResult{}, pkgerrors.Wrap(err, "reading rows")
	}
	if len(rows) < 2 {
		return ImportResult{}, ErrEmptyImport
	}

	result := ImportResult{Skipped: []ImportRowError{}}
	skip := func(row int, msg string) {
		result.Skipped = append(result.Skipped, ImportRowError{Row: row, Error: msg})
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		ns := NewStudent{SectionID: sectionID}
		ns.AdmissionNo = cell(row, 0)
		ns.Name = cell(row, 1)
		if ns.AdmissionNo == "" || ns.Name == "" {
			skip(rowNum, "admission number and name are required")
			continue
		}
		ns.Gender = strings.ToUpper(cell(row, 2))
		if raw := cell(row, 3); raw != "" {
			if ns.DateOfBirth, err = core.ParseDate(raw); err != nil {
				skip(rowNum, fmt.Sprintf("invalid date of birth %q", raw))
				continue
			}
		}
		if raw := cell(row, 4); raw != "" {
			if ns.RollNo, err = strconv.Atoi(raw); err != nil {
				skip(rowNum, fmt.Sprintf("invalid roll number %q", raw))
				continue
			}
		}

		if _, err = svc.Create(ctx, schoolID, ns); err != nil {
			switch {
			case core.IsConflict(err):
				skip(rowNum, fmt.Sprintf("duplicate admission number %q", ns.AdmissionNo))
			case core.IsValidation(err):
				skip(rowNum, err.Error())
			default:
				return result, err
			}
			continue
		}
		result.Imported++
	}
	return result, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return core.CleanString(row[idx])
}
