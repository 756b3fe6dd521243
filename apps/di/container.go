// Package di wires the repositories & services shared by the API server, the admin CLI and the tests.
package di

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

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
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlxrepos"
)

// Container holds the application services.
type Container struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *sqlx.DB
	Cache      core.Cache
	Mail       core.EmailService
	Validate   *validator.Validate
	Translator ut.Translator

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

// NewValidator returns a validator with the app's custom validations & english translations.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// New builds every repository & service on top of db.
func New(conf *core.Config, logger core.Logger, db *sqlx.DB, cache core.Cache, mail core.EmailService) *Container {
	validate, translator := NewValidator()
	user.LoadCommonPasswords(logger)

	c := &Container{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Cache:      cache,
		Mail:       mail,
		Validate:   validate,
		Translator: translator,
	}

	c.UserSvc = user.NewService(sqlxrepos.NewUserRepository(db), mail, cache, conf)
	c.SchoolSvc = school.NewService(sqlxrepos.NewSchoolRepository(db))
	c.ClassSvc = class.NewService(sqlxrepos.NewClassRepository(db))
	c.SubjectSvc = subject.NewService(db, sqlxrepos.NewSubjectRepository(db))
	c.StaffSvc = staff.NewService(sqlxrepos.NewStaffRepository(db))
	c.StudentSvc = student.NewService(db, sqlxrepos.NewStudentRepository(db))
	c.CalendarSvc = calendar.NewService(db, sqlxrepos.NewCalendarRepository(db))
	c.TimetableSvc = timetable.NewService(db, sqlxrepos.NewTimetableRepository(db))
	c.AttendanceSvc = attendance.NewService(db, sqlxrepos.NewAttendanceRepository(db), c.CalendarSvc)
	c.FeeSvc = fee.NewService(db, sqlxrepos.NewFeeRepository(db))
	c.NoticeSvc = notice.NewService(sqlxrepos.NewNoticeRepository(db), mail)
	c.PayrollSvc = payroll.NewService(db, sqlxrepos.NewPayrollRepository(db), c.StaffSvc, c.CalendarSvc, c.AttendanceSvc)
	c.AuditSvc = audit.NewService(sqlxrepos.NewAuditRepository(db))
	c.DashboardSvc = dashboard.NewService(sqlxrepos.NewDashboardRepository(db))
	return c
}
