package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shule/apps/di"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/calendar"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/fee"
	"github.com/trezcool/shule/core/notice"
	"github.com/trezcool/shule/core/payroll"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/subject"
	"github.com/trezcool/shule/core/timetable"
	"github.com/trezcool/shule/core/user"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Cache          core.Cache
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc       user.Service
		SchoolSvc     *school.Service
		ClassSvc      *class.Service
		SubjectSvc    *subject.Service
		StaffSvc      *staff.Service
		StudentSvc    *student.Service
		CalendarSvc   *calendar.Service
		TimetableSvc  *timetable.Service
		AttendanceSvc *attendance.Service
		FeeSvc        *fee.Service
		NoticeSvc     *notice.Service
		PayrollSvc    *payroll.Service
		AuditSvc      *audit.Service
		DashboardSvc  *dashboard.Service
	}

	Server interface {
		http.Handler
		Start() error
		Shutdown(ctx context.Context) error
		Close() error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		metrics  *metrics
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

// NewOptions exposes the services of c to the server.
func NewOptions(c *di.Container) *Options {
	return &Options{
		Conf:          c.Conf,
		Logger:        c.Logger,
		Cache:         c.Cache,
		Validate:      c.Validate,
		Translator:    c.Translator,
		UserSvc:       c.UserSvc,
		SchoolSvc:     c.SchoolSvc,
		ClassSvc:      c.ClassSvc,
		SubjectSvc:    c.SubjectSvc,
		StaffSvc:      c.StaffSvc,
		StudentSvc:    c.StudentSvc,
		CalendarSvc:   c.CalendarSvc,
		TimetableSvc:  c.TimetableSvc,
		AttendanceSvc: c.AttendanceSvc,
		FeeSvc:        c.FeeSvc,
		NoticeSvc:     c.NoticeSvc,
		PayrollSvc:    c.PayrollSvc,
		AuditSvc:      c.AuditSvc,
		DashboardSvc:  c.DashboardSvc,
	}
}

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		metrics:  newMetrics(),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = s.newAppHTTPErrorHandler()

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(s.requestLogger())
	}
	s.app.Use(s.metrics.middleware(s.errorCode))
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", s.home)
	s.app.GET("/metrics", s.metrics.handler())

	v1 := s.app.Group("/api/v1")
	auth := s.authMiddleware()

	s.registerUserAPI(v1, auth)
	s.registerProfileAPI(v1, auth)
	s.registerSchoolAPI(v1, auth)
	s.registerClassAPI(v1, auth)
	s.registerSubjectAPI(v1, auth)
	s.registerStaffAPI(v1, auth)
	s.registerStudentAPI(v1, auth)
	s.registerCalendarAPI(v1, auth)
	s.registerTimetableAPI(v1, auth)
	s.registerAttendanceAPI(v1, auth)
	s.registerFeeAPI(v1, auth)
	s.registerNoticeAPI(v1, auth)
	s.registerPayrollAPI(v1, auth)
	s.registerAuditAPI(v1, auth)
	s.registerDashboardAPI(v1, auth)
}

// Start listens on the configured address; it blocks until the server is shut down.
func (s *server) Start() error {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks the owner of the server to shut it down gracefully.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, fmt.Sprintf("Welcome to %s API!", s.opts.Conf.AppName))
}
