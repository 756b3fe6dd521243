package timetable

import (
	"context"
	"fmt"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	ErrNotFound        = core.NewNotFoundError("timetable entry")
	ErrSectionNotFound = core.NewNotFoundError("section")
	ErrSlotTaken       = core.NewConflictError("period", "this section already has a lesson in this period")
	ErrTeacherBusy     = core.NewConflictError("teacher_id", "this teacher already has a lesson in this period")

	errInvalidTimes = core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end time must be after start time"})
)

type Repository interface {
	CreateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
	QueryEntries(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Entry, error)
	GetEntry(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Entry, error)
	DeleteEntry(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error
	// DeleteSectionEntries soft deletes the whole timetable of a section.
	DeleteSectionEntries(ctx context.Context, schoolID, sectionID, deletedBy string, exec ...core.DBExecutor) error
	// FindTeacherEntry returns the entry booking a teacher on a given day & period.
	FindTeacherEntry(ctx context.Context, teacherID string, dayOfWeek, period int, exec ...core.DBExecutor) (Entry, error)

	SectionExists(ctx context.Context, schoolID, sectionID string, exec ...core.DBExecutor) (bool, error)
	SubjectExists(ctx context.Context, schoolID, subjectID string, exec ...core.DBExecutor) (bool, error)
	StaffExists(ctx context.Context, schoolID, staffID string, exec ...core.DBExecutor) (bool, error)
}

type Service struct {
	db   core.DB
	repo Repository
}

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) checkRefs(ctx context.Context, schoolID string, ne NewEntry, exec core.DBExecutor) error {
	ok, err := svc.repo.SectionExists(ctx, schoolID, ne.SectionID, exec)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSectionNotFound
	}
	if ok, err = svc.repo.SubjectExists(ctx, schoolID, ne.SubjectID, exec); err != nil {
		return err
	} else if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: "subject not found"})
	}
	if ne.TeacherID != "" {
		if ok, err = svc.repo.StaffExists(ctx, schoolID, ne.TeacherID, exec); err != nil {
			return err
		} else if !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "teacher not found"})
		}
	}
	return nil
}

// checkTeacher fails with ErrTeacherBusy when the teacher is booked elsewhere in that slot.
func (svc *Service) checkTeacher(ctx context.Context, ne NewEntry, exec core.DBExecutor) error {
	if ne.TeacherID == "" {
		return nil
	}
	booked, err := svc.repo.FindTeacherEntry(ctx, ne.TeacherID, ne.DayOfWeek, ne.Period, exec)
	switch {
	case err == nil && booked.SectionID != ne.SectionID:
		return ErrTeacherBusy
	case err != nil && !core.IsNotFound(err):
		return err
	}
	return nil
}

func (svc *Service) create(ctx context.Context, schoolID string, ne NewEntry, exec core.DBExecutor) (Entry, error) {
	if err := svc.checkRefs(ctx, schoolID, ne, exec); err != nil {
		return Entry{}, err
	}
	if err := svc.checkTeacher(ctx, ne, exec); err != nil {
		return Entry{}, err
	}

	now := core.NowFunc()
	return svc.repo.CreateEntry(ctx, Entry{
		SchoolID:  schoolID,
		SectionID: ne.SectionID,
		DayOfWeek: ne.DayOfWeek,
		Period:    ne.Period,
		StartTime: ne.StartTime,
		EndTime:   ne.EndTime,
		SubjectID: ne.SubjectID,
		TeacherID: null.NewString(ne.TeacherID, ne.TeacherID != ""),
		Room:      ne.Room,
		CreatedAt: now,
		UpdatedAt: now,
	}, exec)
}

func (svc *Service) Create(ctx context.Context, schoolID string, ne NewEntry) (Entry, error) {
	var entry Entry
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		entry, err = svc.create(ctx, schoolID, ne, tx)
		return err
	})
	return entry, err
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Entry, error) {
	return svc.repo.GetEntry(ctx, schoolID, id)
}

func (svc *Service) Delete(ctx context.Context, schoolID, id, deletedBy string) error {
	return svc.repo.DeleteEntry(ctx, schoolID, id, deletedBy)
}

// ReplaceWeek swaps a section's timetable for the given entries; all or nothing.
func (svc *Service) ReplaceWeek(ctx context.Context, schoolID, sectionID, replacedBy string, rw ReplaceWeek) ([]Entry, error) {
	slots := make(map[string]bool, len(rw.Entries))
	for _, ne := range rw.Entries {
		key := fmt.Sprintf("%d-%d", ne.DayOfWeek, ne.Period)
		if slots[key] {
			return nil, ErrSlotTaken
		}
		slots[key] = true
	}

	entries := make([]Entry, 0, len(rw.Entries))
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		ok, err := svc.repo.SectionExists(ctx, schoolID, sectionID, tx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSectionNotFound
		}
		if err = svc.repo.DeleteSectionEntries(ctx, schoolID, sectionID, replacedBy, tx); err != nil {
			return err
		}
		for _, ne := range rw.Entries {
			entry, err := svc.create(ctx, schoolID, ne, tx)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
