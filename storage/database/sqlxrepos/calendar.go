package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/calendar"
)

const (
	sessionsTable = "academic_sessions"
	entriesTable  = "calendar_entries"
)

var (
	sessionCols = []string{
		"id", "school_id", "name", "start_date", "end_date", "weekly_off_days", "is_current", "working_days",
		"created_at", "updated_at",
	}
	sessionUpdateCols = []string{"name", "start_date", "end_date", "weekly_off_days", "is_current", "working_days", "updated_at"}
	sessionOrdering   = map[string]string{"name": "name", "start_date": "start_date", "end_date": "end_date", "created_at": "created_at"}

	entryCols       = []string{"id", "school_id", "session_id", "title", "type", "start_date", "end_date", "description", "created_at", "updated_at"}
	entryUpdateCols = []string{"title", "type", "start_date", "end_date", "description", "updated_at"}
	entryOrdering   = map[string]string{"title": "title", "type": "type", "start_date": "start_date", "created_at": "created_at"}
)

type calendarRepository struct {
	base
}

var _ calendar.Repository = (*calendarRepository)(nil)

func NewCalendarRepository(exec core.DBExecutor) *calendarRepository {
	return &calendarRepository{base{exec: exec}}
}

// Sessions

func (repo calendarRepository) selectSessions() sq.SelectBuilder {
	return builder.Select(sessionCols...).From(sessionsTable).Where(sq.Eq{"deleted_at": nil})
}

func (repo calendarRepository) CreateSession(ctx context.Context, sess calendar.Session, exec ...core.DBExecutor) (calendar.Session, error) {
	sess.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), sessionsTable, sessionCols, sess)
	return sess, trapErr(err, "inserting session", nil, calendar.ErrSessionNameExists)
}

func (repo calendarRepository) QuerySessions(ctx context.Context, filter calendar.SessionFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]calendar.Session, error) {
	qb := repo.selectSessions().Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.Search != "" {
		qb = qb.Where(search(filter.Search, "name"))
	}
	if filter.IsCurrent != nil {
		qb = qb.Where(sq.Eq{"is_current": *filter.IsCurrent})
	}
	if !filter.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"end_date": filter.From})
	}
	if !filter.To.IsZero() {
		qb = qb.Where(sq.LtOrEq{"start_date": filter.To})
	}
	if filter.ExcludeID != "" {
		qb = qb.Where(sq.NotEq{"id": filter.ExcludeID})
	}
	qb = applyListOptions(qb, opts, sessionOrdering, "start_date DESC")

	sessions := []calendar.Session{}
	if err := selectMany(ctx, repo.getExec(exec), &sessions, qb); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions, nil
}

func (repo calendarRepository) GetSession(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (calendar.Session, error) {
	var sess calendar.Session
	err := getOne(ctx, repo.getExec(exec), &sess, repo.selectSessions().Where(sq.Eq{"id": id, "school_id": schoolID}))
	return sess, trapErr(err, "getting session", calendar.ErrSessionNotFound, nil)
}

func (repo calendarRepository) UpdateSession(ctx context.Context, sess calendar.Session, exec ...core.DBExecutor) (calendar.Session, error) {
	err := updateRow(ctx, repo.getExec(exec), sessionsTable, sessionUpdateCols, sess, true)
	return sess, trapErr(err, "updating session", calendar.ErrSessionNotFound, calendar.ErrSessionNameExists)
}

func (repo calendarRepository) DeleteSession(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)
	if err := softDelete(ctx, db, sessionsTable, schoolID, id, deletedBy); err != nil {
		return trapErr(err, "deleting session", calendar.ErrSessionNotFound, nil)
	}
	_, err := execute(ctx, db, builder.Update(entriesTable).
		Set("deleted_at", core.NowFunc()).
		Set("deleted_by_id", nullable(deletedBy)).
		Where(sq.Eq{"session_id": id, "deleted_at": nil}))
	return errors.Wrap(err, "deleting session entries")
}

func (repo calendarRepository) UnsetCurrentSession(ctx context.Context, schoolID, exceptID string, exec ...core.DBExecutor) error {
	_, err := execute(ctx, repo.getExec(exec), builder.Update(sessionsTable).
		Set("is_current", false).
		Where(sq.Eq{"school_id": schoolID, "is_current": true, "deleted_at": nil}).
		Where(sq.NotEq{"id": exceptID}))
	return errors.Wrap(err, "unsetting current session")
}

func (repo calendarRepository) SetWorkingDays(ctx context.Context, sessionID string, workingDays int, exec ...core.DBExecutor) error {
	_, err := execute(ctx, repo.getExec(exec), builder.Update(sessionsTable).
		Set("working_days", workingDays).
		Where(sq.Eq{"id": sessionID}))
	return errors.Wrap(err, "setting working days")
}

// Entries

func (repo calendarRepository) selectEntries() sq.SelectBuilder {
	return builder.Select(entryCols...).From(entriesTable).Where(sq.Eq{"deleted_at": nil})
}

func (repo calendarRepository) CreateEntry(ctx context.Context, entry calendar.Entry, exec ...core.DBExecutor) (calendar.Entry, error) {
	entry.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), entriesTable, entryCols, entry)
	return entry, errors.Wrap(err, "inserting calendar entry")
}

func (repo calendarRepository) QueryEntries(ctx context.Context, filter calendar.EntryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]calendar.Entry, error) {
	qb := repo.selectEntries().Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.SessionID != "" {
		qb = qb.Where(sq.Eq{"session_id": filter.SessionID})
	}
	if filter.Type != "" {
		qb = qb.Where(sq.Eq{"type": filter.Type})
	}
	if !filter.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"end_date": filter.From})
	}
	if !filter.To.IsZero() {
		qb = qb.Where(sq.LtOrEq{"start_date": filter.To})
	}
	qb = applyListOptions(qb, opts, entryOrdering, "start_date")

	entries := []calendar.Entry{}
	if err := selectMany(ctx, repo.getExec(exec), &entries, qb); err != nil {
		return nil, errors.Wrap(err, "querying calendar entries")
	}
	return entries, nil
}

func (repo calendarRepository) GetEntry(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (calendar.Entry, error) {
	var entry calendar.Entry
	err := getOne(ctx, repo.getExec(exec), &entry, repo.selectEntries().Where(sq.Eq{"id": id, "school_id": schoolID}))
	return entry, trapErr(err, "getting calendar entry", calendar.ErrEntryNotFound, nil)
}

func (repo calendarRepository) UpdateEntry(ctx context.Context, entry calendar.Entry, exec ...core.DBExecutor) (calendar.Entry, error) {
	err := updateRow(ctx, repo.getExec(exec), entriesTable, entryUpdateCols, entry, true)
	return entry, trapErr(err, "updating calendar entry", calendar.ErrEntryNotFound, nil)
}

func (repo calendarRepository) DeleteEntry(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), entriesTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting calendar entry", calendar.ErrEntryNotFound, nil)
}
