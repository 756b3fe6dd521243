package class

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	ErrClassNotFound        = core.NewNotFoundError("class")
	ErrSectionNotFound      = core.NewNotFoundError("section")
	ErrClassTeacherNotFound = core.NewNotFoundError("class teacher")
	ErrClassNameExists      = core.NewConflictError("name", "a class with this name already exists")
	ErrSectionNameExists    = core.NewConflictError("name", "a section with this name already exists in this class")
	ErrClassHasSections     = core.NewConflictError("id", "this class still has sections")
)

type Repository interface {
	CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
	QueryClasses(ctx context.Context, schoolID string, opts core.ListOptions, exec ...core.DBExecutor) ([]Class, error)
	GetClass(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Class, error)
	UpdateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
	DeleteClass(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error

	CreateSection(ctx context.Context, sec Section, exec ...core.DBExecutor) (Section, error)
	QuerySections(ctx context.Context, filter SectionFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Section, error)
	GetSection(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Section, error)
	UpdateSection(ctx context.Context, sec Section, exec ...core.DBExecutor) (Section, error)
	DeleteSection(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error

	// StaffExists reports whether a (non-deleted) staff member exists in the school.
	StaffExists(ctx context.Context, schoolID, staffID string, exec ...core.DBExecutor) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, schoolID string, nc NewClass) (Class, error) {
	now := core.NowFunc()
	return svc.repo.CreateClass(ctx, Class{
		SchoolID:  schoolID,
		Name:      nc.Name,
		Grade:     nc.Grade,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryClasses(ctx context.Context, schoolID string, opts core.ListOptions) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, schoolID, opts)
}

func (svc *Service) GetClass(ctx context.Context, schoolID, id string) (Class, error) {
	return svc.repo.GetClass(ctx, schoolID, id)
}

func (svc *Service) UpdateClass(ctx context.Context, cls Class, uc UpdateClass) (Class, error) {
	if uc.Name != "" {
		cls.Name = uc.Name
	}
	if uc.Grade != nil {
		cls.Grade = *uc.Grade
	}
	cls.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) DeleteClass(ctx context.Context, schoolID, id, deletedBy string) error {
	if _, err := svc.repo.GetClass(ctx, schoolID, id); err != nil {
		return err
	}
	sections, err := svc.repo.QuerySections(ctx, SectionFilter{SchoolID: schoolID, ClassID: id}, core.ListOptions{Pagination: core.Pagination{Limit: 1}})
	if err != nil {
		return err
	}
	if len(sections) > 0 {
		return ErrClassHasSections
	}
	return svc.repo.DeleteClass(ctx, schoolID, id, deletedBy)
}

// Sections

func (svc *Service) checkClassTeacher(ctx context.Context, schoolID, staffID string) error {
	if staffID == "" {
		return nil
	}
	exists, err := svc.repo.StaffExists(ctx, schoolID, staffID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrClassTeacherNotFound
	}
	return nil
}

func (svc *Service) CreateSection(ctx context.Context, schoolID string, ns NewSection) (Section, error) {
	if _, err := svc.repo.GetClass(ctx, schoolID, ns.ClassID); err != nil {
		return Section{}, err
	}
	if err := svc.checkClassTeacher(ctx, schoolID, ns.ClassTeacherID); err != nil {
		return Section{}, err
	}

	now := core.NowFunc()
	return svc.repo.CreateSection(ctx, Section{
		SchoolID:       schoolID,
		ClassID:        ns.ClassID,
		Name:           ns.Name,
		Capacity:       ns.Capacity,
		ClassTeacherID: null.NewString(ns.ClassTeacherID, ns.ClassTeacherID != ""),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) QuerySections(ctx context.Context, filter SectionFilter, opts core.ListOptions) ([]Section, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QuerySections(ctx, filter, opts)
}

func (svc *Service) GetSection(ctx context.Context, schoolID, id string) (Section, error) {
	return svc.repo.GetSection(ctx, schoolID, id)
}

func (svc *Service) UpdateSection(ctx context.Context, sec Section, us UpdateSection) (Section, error) {
	if us.Name != "" {
		sec.Name = us.Name
	}
	if us.Capacity != nil {
		sec.Capacity = *us.Capacity
	}
	if us.ClassTeacherID != nil {
		teacherID := core.CleanString(*us.ClassTeacherID)
		if err := svc.checkClassTeacher(ctx, sec.SchoolID, teacherID); err != nil {
			return Section{}, err
		}
		sec.ClassTeacherID = null.NewString(teacherID, teacherID != "")
	}
	sec.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateSection(ctx, sec)
}

func (svc *Service) DeleteSection(ctx context.Context, schoolID, id, deletedBy string) error {
	return svc.repo.DeleteSection(ctx, schoolID, id, deletedBy)
}
