package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/student"
)

type dashboardRepository struct {
	base
}

var _ dashboard.Repository = (*dashboardRepository)(nil)

func NewDashboardRepository(exec core.DBExecutor) *dashboardRepository {
	return &dashboardRepository{base{exec: exec}}
}

func (repo dashboardRepository) Counts(ctx context.Context, schoolID string, day core.Date, exec ...core.DBExecutor) (dashboard.Summary, error) {
	db := repo.getExec(exec)
	sum := dashboard.Summary{Date: day}
	live := sq.Eq{"school_id": schoolID, "deleted_at": nil}
	now := core.NowFunc().UTC()

	counts := []struct {
		dest *int
		qb   sq.SelectBuilder
	}{
		{&sum.Students, builder.Select("id").From(studentsTable).Where(live).Where(sq.Eq{"status": student.StatusActive})},
		{&sum.Staff, builder.Select("id").From(staffTable).Where(live)},
		{&sum.TeachingStaff, builder.Select("id").From(staffTable).Where(live).Where(sq.Eq{"is_teaching": true})},
		{&sum.Classes, builder.Select("id").From(classesTable).Where(live)},
		{&sum.Sections, builder.Select("id").From(sectionsTable).Where(live)},
		{&sum.MarkedToday, builder.Select("id").From(attendanceTable).Where(sq.Eq{"school_id": schoolID, "date": day})},
		{&sum.PresentToday, builder.Select("id").From(attendanceTable).Where(sq.Eq{
			"school_id": schoolID,
			"date":      day,
			"status":    []string{attendance.StatusPresent, attendance.StatusLate},
		})},
		{&sum.PublishedNotices, builder.Select("id").From(noticesTable).Where(live).
			Where(sq.NotEq{"published_at": nil}).
			Where(sq.LtOrEq{"published_at": now}).
			Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": now}})},
	}
	for _, c := range counts {
		n, err := count(ctx, db, c.qb)
		if err != nil {
			return sum, errors.Wrap(err, "counting dashboard figures")
		}
		*c.dest = n
	}

	monthStart := core.NewDate(day.AddDate(0, 0, 1-day.Day()))
	query, args, err := builder.Select("COALESCE(SUM(amount), 0)").
		From(feePaymentsTable).
		Where(sq.Eq{"school_id": schoolID}).
		Where(sq.GtOrEq{"paid_on": monthStart}).
		Where(sq.LtOrEq{"paid_on": day}).
		ToSql()
	if err != nil {
		return sum, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, db, &sum.FeesCollected, db.Rebind(query), args...); err != nil {
		return sum, errors.Wrap(err, "summing fees collected")
	}
	return sum, nil
}
