package tests

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/calendar"
	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/export"
	"github.com/trezcool/shule/core/fee"
	"github.com/trezcool/shule/core/notice"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func Test_home(t *testing.T) {
	env := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Shule API!", rec.Body.String())

	env.run(t, []httpTest{
		{name: "Unknown route", path: "/api/v1/nope", wantCode: http.StatusNotFound},
		{name: "Missing token", path: "/api/v1/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Invalid JSON", method: http.MethodPost, path: "/api/v1/users/login", body: []byte(`{"username": `), wantCode: http.StatusBadRequest},
	})
}

func Test_metrics(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	env.serve(t, http.MethodGet, "/api/v1/classes", token, nil)
	env.serve(t, http.MethodGet, "/api/v1/classes/nope", token, nil)

	rec := env.serve(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `shule_http_requests_total{code="200",method="GET",route="/api/v1/classes"} 1`)
	assert.Contains(t, body, `shule_http_requests_total{code="404",method="GET",route="/api/v1/classes/:id"} 1`)
	assert.Contains(t, body, "shule_http_request_duration_seconds_bucket")

	t.Run("Servers do not share metrics", func(t *testing.T) {
		other := setup(t)
		rec := other.serve(t, http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `route="/api/v1/classes"`)
	})
}

func Test_auditApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	teacher := env.createUser(t, "Teacher", "teacher", user.RoleTeacher)

	login := func(pwd string) {
		rec := env.serve(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"username": "admin", "password": pwd})
		require.NotEqual(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
	}
	login(testutil.DefaultPassword)

	rec := env.serve(t, http.MethodPost, "/api/v1/classes", token, map[string]interface{}{"name": "Grade 1", "grade": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.serve(t, http.MethodPost, "/api/v1/classes", token, map[string]interface{}{"name": "Grade 1", "grade": 1})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	// reads are not audited
	env.serve(t, http.MethodGet, "/api/v1/classes", token, nil)

	query := func(t *testing.T, q string) []audit.Log {
		t.Helper()
		rec := env.serve(t, http.MethodGet, "/api/v1/audit-logs"+q, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[[]audit.Log](t, rec)
	}

	t.Run("Mutations are recorded", func(t *testing.T) {
		logs := query(t, "?module=classes")
		require.Len(t, logs, 2)
		for _, l := range logs {
			assert.Equal(t, audit.ActionCreate, l.Action)
			assert.Equal(t, env.admin.ID, l.UserID.String)
			assert.Equal(t, env.school.ID, l.SchoolID.String)
			assert.Equal(t, "/api/v1/classes", l.Details["path"])
		}
	})

	t.Run("Failures", func(t *testing.T) {
		logs := query(t, "?module=classes&status=FAILURE")
		require.Len(t, logs, 1)
		assert.EqualValues(t, http.StatusConflict, logs[0].Details["status_code"])
	})

	t.Run("Logins", func(t *testing.T) {
		logs := query(t, "?action=LOGIN")
		require.Len(t, logs, 1)
		assert.Equal(t, audit.StatusSuccess, logs[0].Status)
		assert.Equal(t, "admin", logs[0].Details["username"])
	})

	t.Run("By user", func(t *testing.T) {
		assert.Empty(t, query(t, "?user_id="+teacher.ID))
	})

	t.Run("Export", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/audit-logs/export?module=classes&format=csv", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		file := decode[export.File](t, rec)
		assert.Equal(t, "audit_logs.csv", file.Filename)
		data, err := base64.StdEncoding.DecodeString(file.Data)
		require.NoError(t, err)
		assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)

		// the export itself is audited
		assert.Len(t, query(t, "?module=audit&action=EXPORT"), 1)
	})

	env.run(t, []httpTest{
		{name: "Admins only", path: "/api/v1/audit-logs", token: getToken(t, env, teacher), wantCode: http.StatusForbidden},
		{
			name: "Unknown format", path: "/api/v1/audit-logs/export?format=docx", token: token,
			wantCode: http.StatusBadRequest,
		},
	})
}

// sessionAround is a current session around day, without weekly off days.
func sessionAround(day core.Date) calendar.NewSession {
	return calendar.NewSession{
		Name:          "Current",
		StartDate:     day.AddDays(-30),
		EndDate:       day.AddDays(300),
		WeeklyOffDays: []int{},
		IsCurrent:     true,
	}
}

func Test_dashboardApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	ctx := context.Background()
	today := core.Today()

	cls := testutil.CreateClass(t, env.c, env.school.ID, "Grade 1", 1)
	sec := testutil.CreateSection(t, env.c, env.school.ID, cls.ID, "A", 30)
	kid := testutil.CreateStudent(t, env.c, env.school.ID, student.NewStudent{AdmissionNo: "ADM001", Name: "Kid", SectionID: sec.ID})
	pal := testutil.CreateStudent(t, env.c, env.school.ID, student.NewStudent{AdmissionNo: "ADM002", Name: "Pal", SectionID: sec.ID})
	teacherUsr := env.createUser(t, "Teacher", "teacher", user.RoleTeacher)
	testutil.CreateStaff(t, env.c, env.school.ID, teacherUsr.ID, "EMP001", "Teacher", 500_000)

	// a session covering today, with no off days, so that attendance can be marked
	_, err := env.c.CalendarSvc.CreateSession(ctx, env.school.ID, sessionAround(today))
	require.NoError(t, err)
	_, err = env.c.AttendanceSvc.MarkSection(ctx, env.school.ID, env.admin.ID, attendance.MarkSection{
		SectionID: sec.ID,
		Date:      today,
		Records: []attendance.MarkItem{
			{StudentID: kid.ID, Status: attendance.StatusPresent},
			{StudentID: pal.ID, Status: attendance.StatusAbsent},
		},
	})
	require.NoError(t, err)

	_, err = env.c.NoticeSvc.Create(ctx, env.school.ID, env.admin.ID, notice.NewNotice{Title: "Hi", Body: "Hi.", Priority: notice.PriorityNormal, Publish: true})
	require.NoError(t, err)

	fs, err := env.c.FeeSvc.CreateStructure(ctx, env.school.ID, env.admin.ID, fee.NewStructure{
		ClassID: cls.ID,
		Name:    "Standard",
		Items:   []fee.Item{{Name: "Tuition", Amount: 10_000, Frequency: fee.FrequencyTerm}},
	})
	require.NoError(t, err)
	_, err = env.c.FeeSvc.RecordPayment(ctx, env.school.ID, env.admin.ID, fee.NewPayment{
		StudentID:      kid.ID,
		FeeStructureID: fs.ID,
		Amount:         7_500,
		PaidOn:         today,
		Method:         fee.MethodBank,
	})
	require.NoError(t, err)

	rec := env.serve(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[dashboard.Summary](t, rec)
	assert.Equal(t, today.String(), summary.Date.String())
	assert.Equal(t, 2, summary.Students)
	assert.Equal(t, 1, summary.Staff)
	assert.Equal(t, 1, summary.TeachingStaff)
	assert.Equal(t, 1, summary.Classes)
	assert.Equal(t, 1, summary.Sections)
	assert.Equal(t, 2, summary.MarkedToday)
	assert.Equal(t, 1, summary.PresentToday)
	assert.Equal(t, 50.0, summary.AttendanceRate)
	assert.Equal(t, 1, summary.PublishedNotices)
	assert.Equal(t, int64(7_500), summary.FeesCollected)

	env.run(t, []httpTest{
		{name: "Admins only", path: "/api/v1/dashboard", token: getToken(t, env, teacherUsr), wantCode: http.StatusForbidden},
	})
}
