package notice

import (
	"context"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	ErrNotFound = core.NewNotFoundError("notice")

	errExpiry = core.NewValidationError(nil, core.FieldError{Field: "expires_at", Error: "expiry must be after the publication date"})
)

type Repository interface {
	CreateNotice(ctx context.Context, n Notice, exec ...core.DBExecutor) (Notice, error)
	QueryNotices(ctx context.Context, filter QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]Notice, error)
	GetNotice(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (Notice, error)
	UpdateNotice(ctx context.Context, n Notice, exec ...core.DBExecutor) (Notice, error)
	DeleteNotice(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error
	// AudienceEmails lists the active users of the school having one of the roles (any role if empty).
	AudienceEmails(ctx context.Context, schoolID string, roles []string, exec ...core.DBExecutor) ([]mail.Address, error)
}

type Service struct {
	repo    Repository
	mailSvc core.EmailService
}

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

func checkExpiry(n Notice) error {
	if !n.ExpiresAt.Valid {
		return nil
	}
	ref := n.CreatedAt
	if n.PublishedAt.Valid {
		ref = n.PublishedAt.Time
	}
	if !n.ExpiresAt.Time.After(ref) {
		return errExpiry
	}
	return nil
}

func nullTime(t *time.Time) null.Time {
	if t == nil || t.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func (svc *Service) Create(ctx context.Context, schoolID, createdBy string, nn NewNotice) (Notice, error) {
	now := core.NowFunc()
	n := Notice{
		SchoolID:  schoolID,
		Title:     nn.Title,
		Body:      nn.Body,
		Audience:  nn.Audience,
		Priority:  nn.Priority,
		ExpiresAt: nullTime(nn.ExpiresAt),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nn.Publish {
		n.PublishedAt = null.TimeFrom(now)
	}
	if err := checkExpiry(n); err != nil {
		return Notice{}, err
	}

	n, err := svc.repo.CreateNotice(ctx, n)
	if err != nil {
		return Notice{}, err
	}
	if nn.Publish && nn.Notify {
		if err = svc.notify(ctx, n); err != nil {
			return Notice{}, err
		}
	}
	return n, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, opts core.ListOptions) ([]Notice, error) {
	filter.Search = core.CleanString(filter.Search)
	if filter.VisibleTo != nil && filter.At.IsZero() {
		filter.At = core.NowFunc()
	}
	return svc.repo.QueryNotices(ctx, filter, opts)
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Notice, error) {
	return svc.repo.GetNotice(ctx, schoolID, id)
}

// GetVisible returns the notice if a user with the given roles may read it, ErrNotFound otherwise.
func (svc *Service) GetVisible(ctx context.Context, schoolID, id string, roles []string) (Notice, error) {
	n, err := svc.repo.GetNotice(ctx, schoolID, id)
	if err != nil {
		return Notice{}, err
	}
	if !n.IsVisibleTo(roles, core.NowFunc()) {
		return Notice{}, ErrNotFound
	}
	return n, nil
}

func (svc *Service) Update(ctx context.Context, n Notice, un UpdateNotice) (Notice, error) {
	if un.Title != "" {
		n.Title = un.Title
	}
	if un.Body != "" {
		n.Body = un.Body
	}
	if un.Audience != nil {
		n.Audience = un.Audience
	}
	if un.Priority != "" {
		n.Priority = un.Priority
	}
	if un.ExpiresAt != nil {
		n.ExpiresAt = nullTime(un.ExpiresAt)
	}
	if err := checkExpiry(n); err != nil {
		return Notice{}, err
	}
	n.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateNotice(ctx, n)
}

// Publish makes the notice visible to its audience, emailing them if notify is set.
func (svc *Service) Publish(ctx context.Context, n Notice, notify bool) (Notice, error) {
	now := core.NowFunc()
	n.PublishedAt = null.TimeFrom(now)
	n.UpdatedAt = now
	if err := checkExpiry(n); err != nil {
		return Notice{}, err
	}
	n, err := svc.repo.UpdateNotice(ctx, n)
	if err != nil {
		return Notice{}, err
	}
	if notify {
		if err = svc.notify(ctx, n); err != nil {
			return Notice{}, err
		}
	}
	return n, nil
}

func (svc *Service) Delete(ctx context.Context, schoolID, id, deletedBy string) error {
	return svc.repo.DeleteNotice(ctx, schoolID, id, deletedBy)
}

func (svc *Service) notify(ctx context.Context, n Notice) error {
	recipients, err := svc.repo.AudienceEmails(ctx, n.SchoolID, n.Audience)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		Bcc:          recipients,
		Subject:      n.Title,
		TemplateName: "notice",
		TemplateData: map[string]string{
			"Title": n.Title,
			"Body":  n.Body,
		},
	})
	return nil
}
