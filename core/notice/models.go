package notice

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Priorities
const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)

type Notice struct {
	ID          string          `json:"id" db:"id"`
	SchoolID    string          `json:"school_id" db:"school_id"`
	Title       string          `json:"title" db:"title"`
	Body        string          `json:"body" db:"body"`
	Audience    core.StringList `json:"audience" db:"audience"` // roles; empty means everyone
	Priority    string          `json:"priority" db:"priority"`
	PublishedAt null.Time       `json:"published_at" db:"published_at"`
	ExpiresAt   null.Time       `json:"expires_at" db:"expires_at"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	core.SoftDelete
}

func (n Notice) IsPublished() bool { return n.PublishedAt.Valid }

// IsVisibleTo reports whether a user with the given roles may read the notice at instant t.
func (n Notice) IsVisibleTo(roles []string, t time.Time) bool {
	if !n.IsPublished() || n.PublishedAt.Time.After(t) {
		return false
	}
	if n.ExpiresAt.Valid && !n.ExpiresAt.Time.After(t) {
		return false
	}
	if len(n.Audience) == 0 {
		return true
	}
	for _, role := range roles {
		if core.ContainsString(n.Audience, role) {
			return true
		}
	}
	return false
}

type NewNotice struct {
	Title     string     `json:"title" validate:"required,notblank,max=200"`
	Body      string     `json:"body" validate:"required,notblank"`
	Audience  []string   `json:"audience" validate:"omitempty,dive,oneof=ADMIN TEACHER PARENT STUDENT"`
	Priority  string     `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH"`
	ExpiresAt *time.Time `json:"expires_at"`
	Publish   bool       `json:"publish"`
	Notify    bool       `json:"notify"` // email the audience when published
}

func (nn *NewNotice) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Body = strings.TrimSpace(nn.Body)
	nn.Audience = cleanAudience(nn.Audience)
	nn.Priority = strings.ToUpper(core.CleanString(nn.Priority))
	if nn.Priority == "" {
		nn.Priority = PriorityNormal
	}
	return validate.Struct(nn)
}

type UpdateNotice struct {
	Title     string     `json:"title" validate:"max=200"`
	Body      string     `json:"body"`
	Audience  []string   `json:"audience" validate:"omitempty,dive,oneof=ADMIN TEACHER PARENT STUDENT"`
	Priority  string     `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (un *UpdateNotice) Validate(validate *validator.Validate) error {
	un.Title = core.CleanString(un.Title)
	un.Body = strings.TrimSpace(un.Body)
	if un.Audience != nil {
		un.Audience = cleanAudience(un.Audience)
	}
	un.Priority = strings.ToUpper(core.CleanString(un.Priority))
	return validate.Struct(un)
}

type PublishNotice struct {
	Notify bool `json:"notify"`
}

func cleanAudience(roles []string) []string {
	cleaned := make([]string, 0, len(roles))
	for _, role := range roles {
		if role = strings.ToUpper(core.CleanString(role)); role != "" && !core.ContainsString(cleaned, role) {
			cleaned = append(cleaned, role)
		}
	}
	return cleaned
}

type QueryFilter struct {
	SchoolID  string
	Search    string `query:"search"`
	Priority  string `query:"priority"`
	Published *bool  `query:"published"`

	// set for non-admins: only published, unexpired notices targeted at one of these roles
	VisibleTo []string
	At        time.Time
}
