// Package testutil provides a migrated test database & fixtures shared by the test suites.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/shule/apps/di"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/calendar"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	cachesvc "github.com/trezcool/shule/services/cache"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlxrepos"
)

const DefaultPassword = "Pa$$w0rd!"

var quietGoose sync.Once

// PrepareDB returns a freshly migrated sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	quietGoose.Do(func() { goose.SetLogger(goose.NopLogger()) })

	conf := core.NewTestConfig()
	conf.Database.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	return db
}

// NewContainer wires every service on a fresh test database, with a memory cache & a mock mailer.
func NewContainer(t *testing.T) (*di.Container, *emailsvc.MockService) {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewNop()
	core.ParseEmailTemplates(conf, logger)

	mailSvc := emailsvc.NewMockService(conf, logger)
	return di.New(conf, logger, PrepareDB(t), cachesvc.NewMemoryCache(), mailSvc), mailSvc
}

func CreateSchool(t *testing.T, c *di.Container, name, code string) school.School {
	t.Helper()
	sch, err := c.SchoolSvc.Create(context.Background(), school.NewSchool{Name: name, Code: code})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

// CreateUser inserts a user straight into the repository; an empty pwd defaults to DefaultPassword.
func CreateUser(
	t *testing.T,
	db *sqlx.DB,
	schoolID, name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := core.NowFunc()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	if pwd == "" {
		pwd = DefaultPassword
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		SchoolID:  schoolID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := sqlxrepos.NewUserRepository(db).CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, c *di.Container, schoolID, name string, grade int) class.Class {
	t.Helper()
	cls, err := c.ClassSvc.CreateClass(context.Background(), schoolID, class.NewClass{Name: name, Grade: grade})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateSection(t *testing.T, c *di.Container, schoolID, classID, name string, capacity int) class.Section {
	t.Helper()
	sec, err := c.ClassSvc.CreateSection(context.Background(), schoolID, class.NewSection{
		ClassID:  classID,
		Name:     name,
		Capacity: capacity,
	})
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	return sec
}

func CreateStaff(t *testing.T, c *di.Container, schoolID, userID, empNo, name string, salary int64) staff.Staff {
	t.Helper()
	stf, err := c.StaffSvc.Create(context.Background(), schoolID, staff.NewStaff{
		UserID:        userID,
		EmployeeNo:    empNo,
		Name:          name,
		IsTeaching:    true,
		JoinedOn:      core.MustParseDate("2020-01-06"),
		MonthlySalary: salary,
	})
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return stf
}

func CreateStudent(t *testing.T, c *di.Container, schoolID string, ns student.NewStudent) student.Student {
	t.Helper()
	std, err := c.StudentSvc.Create(context.Background(), schoolID, ns)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// CreateSession creates a current session with Sundays off.
func CreateSession(t *testing.T, c *di.Container, schoolID, name, start, end string) calendar.Session {
	t.Helper()
	sess, err := c.CalendarSvc.CreateSession(context.Background(), schoolID, calendar.NewSession{
		Name:          name,
		StartDate:     core.MustParseDate(start),
		EndDate:       core.MustParseDate(end),
		WeeklyOffDays: []int{7},
		IsCurrent:     true,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}
