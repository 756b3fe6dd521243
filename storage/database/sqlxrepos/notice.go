package sqlxrepos

import (
	"context"
	"net/mail"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notice"
)

const noticesTable = "notices"

var (
	noticeCols = []string{
		"id", "school_id", "title", "body", "audience", "priority", "published_at", "expires_at", "created_by",
		"created_at", "updated_at",
	}
	noticeUpdateCols = []string{"title", "body", "audience", "priority", "published_at", "expires_at", "updated_at"}
	noticeOrdering   = map[string]string{
		"title":        "title",
		"priority":     "priority",
		"published_at": "published_at",
		"expires_at":   "expires_at",
		"created_at":   "created_at",
	}
)

type noticeRepository struct {
	base
}

var _ notice.Repository = (*noticeRepository)(nil)

func NewNoticeRepository(exec core.DBExecutor) *noticeRepository {
	return &noticeRepository{base{exec: exec}}
}

func (repo noticeRepository) selectNotices() sq.SelectBuilder {
	return builder.Select(noticeCols...).From(noticesTable).Where(sq.Eq{"deleted_at": nil})
}

func (repo noticeRepository) CreateNotice(ctx context.Context, n notice.Notice, exec ...core.DBExecutor) (notice.Notice, error) {
	n.ID = newID()
	err := insertRow(ctx, repo.getExec(exec), noticesTable, noticeCols, n)
	return n, errors.Wrap(err, "inserting notice")
}

func (repo noticeRepository) QueryNotices(ctx context.Context, filter notice.QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]notice.Notice, error) {
	qb := repo.selectNotices().Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.Search != "" {
		qb = qb.Where(search(filter.Search, "title", "body"))
	}
	if filter.Priority != "" {
		qb = qb.Where(sq.Eq{"priority": filter.Priority})
	}
	if filter.Published != nil {
		if *filter.Published {
			qb = qb.Where(sq.NotEq{"published_at": nil})
		} else {
			qb = qb.Where(sq.Eq{"published_at": nil})
		}
	}
	if filter.VisibleTo != nil {
		at := filter.At.UTC()
		qb = qb.Where(sq.NotEq{"published_at": nil}).
			Where(sq.LtOrEq{"published_at": at}).
			Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": at}})

		audience := sq.Or{sq.Eq{"audience": ""}}
		if len(filter.VisibleTo) > 0 {
			audience = append(audience, hasAnyRole("audience", filter.VisibleTo))
		}
		qb = qb.Where(audience)
	}
	qb = applyListOptions(qb, opts, noticeOrdering, "published_at DESC", "created_at DESC")

	notices := []notice.Notice{}
	if err := selectMany(ctx, repo.getExec(exec), &notices, qb); err != nil {
		return nil, errors.Wrap(err, "querying notices")
	}
	return notices, nil
}

func (repo noticeRepository) GetNotice(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (notice.Notice, error) {
	var n notice.Notice
	err := getOne(ctx, repo.getExec(exec), &n, repo.selectNotices().Where(sq.Eq{"id": id, "school_id": schoolID}))
	return n, trapErr(err, "getting notice", notice.ErrNotFound, nil)
}

func (repo noticeRepository) UpdateNotice(ctx context.Context, n notice.Notice, exec ...core.DBExecutor) (notice.Notice, error) {
	err := updateRow(ctx, repo.getExec(exec), noticesTable, noticeUpdateCols, n, true)
	return n, trapErr(err, "updating notice", notice.ErrNotFound, nil)
}

func (repo noticeRepository) DeleteNotice(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), noticesTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting notice", notice.ErrNotFound, nil)
}

func (repo noticeRepository) AudienceEmails(ctx context.Context, schoolID string, roles []string, exec ...core.DBExecutor) ([]mail.Address, error) {
	qb := builder.Select("name", "email AS address").
		From(usersTable).
		Where(sq.Eq{"school_id": schoolID, "is_active": true, "deleted_at": nil}).
		Where(sq.And{sq.NotEq{"email": nil}, sq.NotEq{"email": ""}}).
		OrderBy("name")
	if len(roles) > 0 {
		qb = qb.Where(hasAnyRole("roles", roles))
	}

	addrs := []mail.Address{}
	if err := selectMany(ctx, repo.getExec(exec), &addrs, qb); err != nil {
		return nil, errors.Wrap(err, "querying audience emails")
	}
	return addrs, nil
}
