package subject

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	ErrNotFound             = core.NewNotFoundError("subject")
	ErrClassSubjectNotFound = core.NewNotFoundError("class subject")
	ErrClassNotFound        = core.NewNotFoundError("class")
	ErrTeacherNotFound      = core.NewNotFoundError("teacher")
	ErrCodeExists           = core.NewConflictError("code", "a subject with this code already exists")
	ErrClassSubjectExists   = core.NewConflictError("subject_id", "this subject is already assigned to this class")
)

type Repository interface {
	CreateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
	QuerySubjects(ctx context.Context, filter QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Subject, error)
	GetSubject(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Subject, error)
	UpdateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
	DeleteSubject(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error

	CreateClassSubject(ctx context.Context, cs ClassSubject, exec ...core.DBExecutor) (ClassSubject, error)
	QueryClassSubjects(ctx context.Context, filter ClassSubjectFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]ClassSubject, error)
	GetClassSubject(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (ClassSubject, error)
	UpdateClassSubject(ctx context.Context, cs ClassSubject, exec ...core.DBExecutor) (ClassSubject, error)
	DeleteClassSubject(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error

	ClassExists(ctx context.Context, schoolID, classID string, exec ...core.DBExecutor) (bool, error)
	StaffExists(ctx context.Context, schoolID, staffID string, exec ...core.DBExecutor) (bool, error)
}

type Service struct {
	db   core.DB
	repo Repository
}

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) Create(ctx context.Context, schoolID string, ns NewSubject) (Subject, error) {
	now := core.NowFunc()
	return svc.repo.CreateSubject(ctx, Subject{
		SchoolID:    schoolID,
		Name:        ns.Name,
		Code:        ns.Code,
		Type:        ns.Type,
		Description: ns.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Query returns the (non-deleted) subjects of a school.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, opts core.ListOptions) ([]Subject, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QuerySubjects(ctx, filter, opts)
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, schoolID, id)
}

func (svc *Service) Update(ctx context.Context, sub Subject, us UpdateSubject) (Subject, error) {
	if us.Name != "" {
		sub.Name = us.Name
	}
	if us.Code != "" {
		sub.Code = us.Code
	}
	if us.Type != "" {
		sub.Type = us.Type
	}
	if us.Description != nil {
		sub.Description = core.CleanString(*us.Description)
	}
	sub.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateSubject(ctx, sub)
}

// Delete soft-deletes the subject along with its class assignments.
func (svc *Service) Delete(ctx context.Context, schoolID, id, deletedBy string) error {
	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repo.GetSubject(ctx, schoolID, id, tx); err != nil {
			return err
		}
		assigned, err := svc.repo.QueryClassSubjects(ctx, ClassSubjectFilter{SchoolID: schoolID, SubjectID: id}, core.ListOptions{}, tx)
		if err != nil {
			return err
		}
		for _, cs := range assigned {
			if err = svc.repo.DeleteClassSubject(ctx, schoolID, cs.ID, deletedBy, tx); err != nil {
				return err
			}
		}
		return svc.repo.DeleteSubject(ctx, schoolID, id, deletedBy, tx)
	})
}

// Class subjects

func (svc *Service) checkTeacher(ctx context.Context, schoolID, teacherID string) error {
	if teacherID == "" {
		return nil
	}
	exists, err := svc.repo.StaffExists(ctx, schoolID, teacherID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTeacherNotFound
	}
	return nil
}

func (svc *Service) AssignToClass(ctx context.Context, schoolID string, ncs NewClassSubject) (ClassSubject, error) {
	exists, err := svc.repo.ClassExists(ctx, schoolID, ncs.ClassID)
	if err != nil {
		return ClassSubject{}, err
	}
	if !exists {
		return ClassSubject{}, ErrClassNotFound
	}
	if _, err = svc.repo.GetSubject(ctx, schoolID, ncs.SubjectID); err != nil {
		return ClassSubject{}, err
	}
	if err = svc.checkTeacher(ctx, schoolID, ncs.TeacherID); err != nil {
		return ClassSubject{}, err
	}

	now := core.NowFunc()
	cs, err := svc.repo.CreateClassSubject(ctx, ClassSubject{
		SchoolID:       schoolID,
		ClassID:        ncs.ClassID,
		SubjectID:      ncs.SubjectID,
		TeacherID:      null.NewString(ncs.TeacherID, ncs.TeacherID != ""),
		PeriodsPerWeek: ncs.PeriodsPerWeek,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return ClassSubject{}, err
	}
	return svc.repo.GetClassSubject(ctx, schoolID, cs.ID)
}

func (svc *Service) QueryClassSubjects(ctx context.Context, filter ClassSubjectFilter, opts core.ListOptions) ([]ClassSubject, error) {
	return svc.repo.QueryClassSubjects(ctx, filter, opts)
}

func (svc *Service) GetClassSubject(ctx context.Context, schoolID, id string) (ClassSubject, error) {
	return svc.repo.GetClassSubject(ctx, schoolID, id)
}

func (svc *Service) UpdateClassSubject(ctx context.Context, cs ClassSubject, ucs UpdateClassSubject) (ClassSubject, error) {
	if ucs.TeacherID != nil {
		teacherID := core.CleanString(*ucs.TeacherID)
		if err := svc.checkTeacher(ctx, cs.SchoolID, teacherID); err != nil {
			return ClassSubject{}, err
		}
		cs.TeacherID = null.NewString(teacherID, teacherID != "")
	}
	if ucs.PeriodsPerWeek != nil {
		cs.PeriodsPerWeek = *ucs.PeriodsPerWeek
	}
	cs.UpdatedAt = core.NowFunc()
	if _, err := svc.repo.UpdateClassSubject(ctx, cs); err != nil {
		return ClassSubject{}, err
	}
	return svc.repo.GetClassSubject(ctx, cs.SchoolID, cs.ID)
}

func (svc *Service) RemoveFromClass(ctx context.Context, schoolID, id, deletedBy string) error {
	return svc.repo.DeleteClassSubject(ctx, schoolID, id, deletedBy)
}
