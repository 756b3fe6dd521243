package calendar

import (
	"context"

	"github.com/trezcool/shule/core"
)

var (
	ErrSessionNotFound   = core.NewNotFoundError("academic session")
	ErrEntryNotFound     = core.NewNotFoundError("calendar entry")
	ErrSessionNameExists = core.NewConflictError("name", "an academic session with this name already exists")
	ErrSessionOverlap    = core.NewConflictError("start_date", "this academic session overlaps another session")

	errInvalidRange      = core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must be after start date"})
	errInvalidEntryRange = core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date cannot be before start date"})
	errEntryOutOfSession = core.NewValidationError(nil, core.FieldError{Field: "start_date", Error: "the entry must fall within its academic session"})
)

type Repository interface {
	CreateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
	QuerySessions(ctx context.Context, filter SessionFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Session, error)
	GetSession(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Session, error)
	UpdateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
	// DeleteSession soft deletes the session & its entries.
	DeleteSession(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error
	// UnsetCurrentSession clears is_current on every session of the school but exceptID.
	UnsetCurrentSession(ctx context.Context, schoolID, exceptID string, exec ...core.DBExecutor) error
	SetWorkingDays(ctx context.Context, sessionID string, workingDays int, exec ...core.DBExecutor) error

	CreateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
	QueryEntries(ctx context.Context, filter EntryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Entry, error)
	GetEntry(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Entry, error)
	UpdateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
	DeleteEntry(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error
}

type Service struct {
	db   core.DB
	repo Repository
}

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// Sessions

func (svc *Service) checkOverlap(ctx context.Context, sess Session, exec core.DBExecutor) error {
	others, err := svc.repo.QuerySessions(ctx, SessionFilter{
		SchoolID:  sess.SchoolID,
		From:      sess.StartDate,
		To:        sess.EndDate,
		ExcludeID: sess.ID,
	}, core.ListOptions{}, exec)
	if err != nil {
		return err
	}
	if len(others) > 0 {
		return ErrSessionOverlap
	}
	return nil
}

func (svc *Service) CreateSession(ctx context.Context, schoolID string, ns NewSession) (Session, error) {
	now := core.NowFunc()
	sess := Session{
		SchoolID:      schoolID,
		Name:          ns.Name,
		StartDate:     ns.StartDate,
		EndDate:       ns.EndDate,
		WeeklyOffDays: ns.WeeklyOffDays,
		IsCurrent:     ns.IsCurrent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if sess.WeeklyOffDays == nil {
		sess.WeeklyOffDays = defaultWeeklyOffDays
	}
	sess.WorkingDays = countWorkingDays(sess, nil)

	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkOverlap(ctx, sess, tx); err != nil {
			return err
		}
		var err error
		if sess, err = svc.repo.CreateSession(ctx, sess, tx); err != nil {
			return err
		}
		if sess.IsCurrent {
			return svc.repo.UnsetCurrentSession(ctx, schoolID, sess.ID, tx)
		}
		return nil
	})
	return sess, err
}

func (svc *Service) QuerySessions(ctx context.Context, filter SessionFilter, opts core.ListOptions) ([]Session, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.ExcludeID = ""
	return svc.repo.QuerySessions(ctx, filter, opts)
}

func (svc *Service) GetSession(ctx context.Context, schoolID, id string) (Session, error) {
	return svc.repo.GetSession(ctx, schoolID, id)
}

// CurrentSession returns the session flagged as current.
func (svc *Service) CurrentSession(ctx context.Context, schoolID string) (Session, error) {
	current := true
	sessions, err := svc.repo.QuerySessions(ctx, SessionFilter{SchoolID: schoolID, IsCurrent: &current}, core.ListOptions{})
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, ErrSessionNotFound
	}
	return sessions[0], nil
}

func (svc *Service) UpdateSession(ctx context.Context, sess Session, us UpdateSession) (Session, error) {
	if us.Name != "" {
		sess.Name = us.Name
	}
	if us.StartDate != nil {
		sess.StartDate = *us.StartDate
	}
	if us.EndDate != nil {
		sess.EndDate = *us.EndDate
	}
	if !sess.StartDate.Before(sess.EndDate) {
		return Session{}, errInvalidRange
	}
	if us.WeeklyOffDays != nil {
		sess.WeeklyOffDays = us.WeeklyOffDays
	}
	if us.IsCurrent != nil {
		sess.IsCurrent = *us.IsCurrent
	}
	sess.UpdatedAt = core.NowFunc()

	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkOverlap(ctx, sess, tx); err != nil {
			return err
		}
		entries, err := svc.sessionEntries(ctx, sess, tx)
		if err != nil {
			return err
		}
		sess.WorkingDays = countWorkingDays(sess, entries)
		if sess, err = svc.repo.UpdateSession(ctx, sess, tx); err != nil {
			return err
		}
		if sess.IsCurrent {
			return svc.repo.UnsetCurrentSession(ctx, sess.SchoolID, sess.ID, tx)
		}
		return nil
	})
	return sess, err
}

func (svc *Service) DeleteSession(ctx context.Context, schoolID, id, deletedBy string) error {
	return svc.repo.DeleteSession(ctx, schoolID, id, deletedBy)
}

// RecalculateWorkingDays recounts & persists the working days of a session.
func (svc *Service) RecalculateWorkingDays(ctx context.Context, schoolID, sessionID string) (Session, error) {
	var sess Session
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if sess, err = svc.repo.GetSession(ctx, schoolID, sessionID, tx); err != nil {
			return err
		}
		sess.WorkingDays, err = svc.recalculate(ctx, sess, tx)
		return err
	})
	return sess, err
}

// RecalculateAll recounts the working days of every session of a school.
func (svc *Service) RecalculateAll(ctx context.Context, schoolID string) ([]Session, error) {
	sessions, err := svc.repo.QuerySessions(ctx, SessionFilter{SchoolID: schoolID}, core.ListOptions{Ordering: "start_date"})
	if err != nil {
		return nil, err
	}
	for i, sess := range sessions {
		if sessions[i], err = svc.RecalculateWorkingDays(ctx, schoolID, sess.ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (svc *Service) recalculate(ctx context.Context, sess Session, exec core.DBExecutor) (int, error) {
	entries, err := svc.sessionEntries(ctx, sess, exec)
	if err != nil {
		return 0, err
	}
	workingDays := countWorkingDays(sess, entries)
	if err = svc.repo.SetWorkingDays(ctx, sess.ID, workingDays, exec); err != nil {
		return 0, err
	}
	return workingDays, nil
}

func (svc *Service) sessionEntries(ctx context.Context, sess Session, exec core.DBExecutor) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, EntryFilter{SchoolID: sess.SchoolID, SessionID: sess.ID}, core.ListOptions{}, exec)
}

// Entries

func (svc *Service) CreateEntry(ctx context.Context, schoolID string, ne NewEntry) (Entry, error) {
	var entry Entry
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		sess, err := svc.repo.GetSession(ctx, schoolID, ne.SessionID, tx)
		if err != nil {
			return err
		}
		if !sess.Contains(ne.StartDate) || !sess.Contains(ne.EndDate) {
			return errEntryOutOfSession
		}

		now := core.NowFunc()
		entry, err = svc.repo.CreateEntry(ctx, Entry{
			SchoolID:    schoolID,
			SessionID:   sess.ID,
			Title:       ne.Title,
			Type:        ne.Type,
			StartDate:   ne.StartDate,
			EndDate:     ne.EndDate,
			Description: ne.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, tx)
		if err != nil {
			return err
		}
		_, err = svc.recalculate(ctx, sess, tx)
		return err
	})
	return entry, err
}

func (svc *Service) QueryEntries(ctx context.Context, filter EntryFilter, opts core.ListOptions) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter, opts)
}

func (svc *Service) GetEntry(ctx context.Context, schoolID, id string) (Entry, error) {
	return svc.repo.GetEntry(ctx, schoolID, id)
}

func (svc *Service) UpdateEntry(ctx context.Context, entry Entry, ue UpdateEntry) (Entry, error) {
	if ue.Title != "" {
		entry.Title = ue.Title
	}
	if ue.Type != "" {
		entry.Type = ue.Type
	}
	if ue.StartDate != nil {
		entry.StartDate = *ue.StartDate
	}
	if ue.EndDate != nil {
		entry.EndDate = *ue.EndDate
	}
	if ue.Description != nil {
		entry.Description = *ue.Description
	}
	if entry.EndDate.Before(entry.StartDate) {
		return Entry{}, errInvalidEntryRange
	}
	entry.UpdatedAt = core.NowFunc()

	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		sess, err := svc.repo.GetSession(ctx, entry.SchoolID, entry.SessionID, tx)
		if err != nil {
			return err
		}
		if !sess.Contains(entry.StartDate) || !sess.Contains(entry.EndDate) {
			return errEntryOutOfSession
		}
		if entry, err = svc.repo.UpdateEntry(ctx, entry, tx); err != nil {
			return err
		}
		_, err = svc.recalculate(ctx, sess, tx)
		return err
	})
	return entry, err
}

func (svc *Service) DeleteEntry(ctx context.Context, entry Entry, deletedBy string) error {
	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.DeleteEntry(ctx, entry.SchoolID, entry.ID, deletedBy, tx); err != nil {
			return err
		}
		sess, err := svc.repo.GetSession(ctx, entry.SchoolID, entry.SessionID, tx)
		if err != nil {
			return err
		}
		_, err = svc.recalculate(ctx, sess, tx)
		return err
	})
}

// Working days

// WorkingDates lists the working days between from and to (inclusive).
// Dates outside every academic session are not working days.
func (svc *Service) WorkingDates(ctx context.Context, schoolID string, from, to core.Date) ([]core.Date, error) {
	if to.Before(from) {
		return nil, nil
	}
	sessions, err := svc.repo.QuerySessions(ctx, SessionFilter{SchoolID: schoolID, From: from, To: to}, core.ListOptions{Ordering: "start_date"})
	if err != nil {
		return nil, err
	}

	var dates []core.Date
	for _, sess := range sessions {
		entries, err := svc.repo.QueryEntries(ctx, EntryFilter{SchoolID: schoolID, SessionID: sess.ID, From: from, To: to}, core.ListOptions{})
		if err != nil {
			return nil, err
		}
		dates = append(dates, workingDates(sess, entries, from, to)...)
	}
	return dates, nil
}

func (svc *Service) WorkingDays(ctx context.Context, schoolID string, from, to core.Date) (int, error) {
	dates, err := svc.WorkingDates(ctx, schoolID, from, to)
	return len(dates), err
}

func (svc *Service) IsWorkingDay(ctx context.Context, schoolID string, d core.Date) (bool, error) {
	n, err := svc.WorkingDays(ctx, schoolID, d, d)
	return n == 1, err
}
