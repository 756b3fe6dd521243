// Package dashboard aggregates school-wide figures for the admin dashboard.
package dashboard

import (
	"context"
	"math"

	"github.com/trezcool/shule/core"
)

type Summary struct {
	Date             core.Date `json:"date"`
	Students         int       `json:"students"` // active
	Staff            int       `json:"staff"`
	TeachingStaff    int       `json:"teaching_staff"`
	Classes          int       `json:"classes"`
	Sections         int       `json:"sections"`
	MarkedToday      int       `json:"marked_today"`
	PresentToday     int       `json:"present_today"` // present or late
	AttendanceRate   float64   `json:"attendance_rate"`
	PublishedNotices int       `json:"published_notices"` // unexpired
	FeesCollected    int64     `json:"fees_collected"`    // this month
}

type Repository interface {
	// Counts fills the Summary for the given day, except AttendanceRate.
	Counts(ctx context.Context, schoolID string, day core.Date, exec ...core.DBExecutor) (Summary, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Summary(ctx context.Context, schoolID string) (Summary, error) {
	today := core.Today()
	s, err := svc.repo.Counts(ctx, schoolID, today)
	if err != nil {
		return Summary{}, err
	}
	s.Date = today
	if s.MarkedToday > 0 {
		s.AttendanceRate = math.Round(float64(s.PresentToday)*10000/float64(s.MarkedToday)) / 100
	}
	return s, nil
}
