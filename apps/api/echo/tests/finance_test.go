package tests

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/export"
	"github.com/trezcool/shule/core/fee"
	"github.com/trezcool/shule/core/notice"
	"github.com/trezcool/shule/core/payroll"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func Test_feeApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	parent := env.createUser(t, "Parent", "parent", user.RoleParent)
	stranger := env.createUser(t, "Stranger", "stranger", user.RoleParent)
	teacher := env.createUser(t, "Teacher", "teacher", user.RoleTeacher)

	grade1 := testutil.CreateClass(t, env.c, env.school.ID, "Grade 1", 1)
	grade2 := testutil.CreateClass(t, env.c, env.school.ID, "Grade 2", 2)
	sec := testutil.CreateSection(t, env.c, env.school.ID, grade1.ID, "A", 30)
	kid := testutil.CreateStudent(t, env.c, env.school.ID, student.NewStudent{ParentUserID: parent.ID, AdmissionNo: "ADM001", Name: "Kid", SectionID: sec.ID})
	drifter := testutil.CreateStudent(t, env.c, env.school.ID, student.NewStudent{AdmissionNo: "ADM002", Name: "Drifter"})

	rec := env.serve(t, http.MethodPost, "/api/v1/fees/structures", token, fee.NewStructure{
		ClassID: grade1.ID,
		Name:    "Standard",
		Items: []fee.Item{
			{Name: "Tuition", Amount: 10_000, Frequency: fee.FrequencyTerm},
			{Name: "Registration", Amount: 5_000, Frequency: fee.FrequencyOneTime},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v1 := decode[fee.Structure](t, rec)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, v1.ID, v1.RootID)
	assert.Equal(t, int64(35_000), v1.Total)
	assert.Equal(t, fee.StatusActive, v1.Status)

	rec = env.serve(t, http.MethodPost, "/api/v1/fees/structures", token, fee.NewStructure{
		ClassID: grade2.ID,
		Name:    "Standard",
		Items:   []fee.Item{{Name: "Tuition", Amount: 20_000, Frequency: fee.FrequencyAnnual}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	grade2Fee := decode[fee.Structure](t, rec)

	tuition := []byte(`{"class_id": "` + grade1.ID + `", "name": "Standard", "items": [{"name": "Tuition", "amount": 1, "frequency": "MONTHLY"}]}`)
	env.run(t, []httpTest{
		{
			name: "Duplicate active name", method: http.MethodPost, path: "/api/v1/fees/structures", token: token, body: tuition,
			wantCode: http.StatusConflict, wantData: errBody(t, "an active fee structure with this name already exists for this class"),
		},
		{
			name: "Unknown class", method: http.MethodPost, path: "/api/v1/fees/structures", token: token,
			body:     []byte(`{"class_id": "nope", "name": "Other", "items": [{"name": "Tuition", "amount": 1, "frequency": "MONTHLY"}]}`),
			wantCode: http.StatusNotFound, wantData: errBody(t, "class not found"),
		},
		{
			name: "No items", method: http.MethodPost, path: "/api/v1/fees/structures", token: token,
			body: []byte(`{"class_id": "` + grade1.ID + `", "name": "Empty", "items": []}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown frequency", method: http.MethodPost, path: "/api/v1/fees/structures", token: token,
			body:     []byte(`{"class_id": "` + grade1.ID + `", "name": "Weekly", "items": [{"name": "Snacks", "amount": 1, "frequency": "WEEKLY"}]}`),
			wantCode: http.StatusBadRequest,
		},
		{name: "Teachers do not read fees", path: "/api/v1/fees/structures", token: getToken(t, env, teacher), wantCode: http.StatusForbidden},
	})

	rec = env.serve(t, http.MethodPost, "/api/v1/fees/structures/"+v1.ID+"/revise", token, fee.ReviseStructure{
		Items: []fee.Item{
			{Name: "Tuition", Amount: 12_000, Frequency: fee.FrequencyTerm},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v2 := decode[fee.Structure](t, rec)

	t.Run("Revision", func(t *testing.T) {
		assert.Equal(t, 2, v2.Version)
		assert.Equal(t, v1.ID, v2.RootID)
		assert.Equal(t, v1.ID, v2.PreviousID.String)
		assert.Equal(t, int64(36_000), v2.Total)

		rec := env.serve(t, http.MethodGet, "/api/v1/fees/structures/"+v1.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, fee.StatusSuperseded, decode[fee.Structure](t, rec).Status)

		rec = env.serve(t, http.MethodPost, "/api/v1/fees/structures/"+v1.ID+"/revise", token, fee.ReviseStructure{
			Items: []fee.Item{{Name: "Tuition", Amount: 1, Frequency: fee.FrequencyTerm}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, string(errBody(t, "only the active version of a fee structure can be revised")), rec.Body.String())
	})

	t.Run("History", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/fees/structures/"+v1.ID+"/history", getToken(t, env, parent), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{v2.ID, v1.ID}, ids(t, rec))
	})

	t.Run("Active only", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/fees/structures?status=active&class_id="+grade1.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{v2.ID}, ids(t, rec))
	})

	pay := func(structureID string, amount int64, paidOn string) fee.NewPayment {
		return fee.NewPayment{
			StudentID:      kid.ID,
			FeeStructureID: structureID,
			Amount:         amount,
			PaidOn:         mustDate(paidOn),
			Method:         fee.MethodCash,
		}
	}

	rec = env.serve(t, http.MethodPost, "/api/v1/fees/payments", token, pay(v2.ID, 10_000, "2024-09-10"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[fee.Payment](t, rec)
	assert.True(t, strings.HasPrefix(first.ReceiptNo, "RCT-"), first.ReceiptNo)
	assert.Equal(t, "Kid", first.StudentName)
	assert.Equal(t, env.admin.ID, first.ReceivedBy)

	rec = env.serve(t, http.MethodPost, "/api/v1/fees/payments", token, pay(v2.ID, 6_000, "2024-10-10"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[fee.Payment](t, rec)
	assert.NotEqual(t, first.ReceiptNo, second.ReceiptNo)

	env.run(t, []httpTest{
		{
			name: "Superseded version", method: http.MethodPost, path: "/api/v1/fees/payments", token: token,
			body:     marchallObj(t, pay(v1.ID, 1_000, "2024-09-10")),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"fee_structure_id": "this fee structure is not active"}),
		},
		{
			name: "Other class", method: http.MethodPost, path: "/api/v1/fees/payments", token: token,
			body:     marchallObj(t, pay(grade2Fee.ID, 1_000, "2024-09-10")),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"fee_structure_id": "this fee structure is not for the student's class"}),
		},
		{
			name: "Student without a section", method: http.MethodPost, path: "/api/v1/fees/payments", token: token,
			body: marchallObj(t, fee.NewPayment{
				StudentID: drifter.ID, FeeStructureID: v2.ID, Amount: 1_000, PaidOn: mustDate("2024-09-10"), Method: fee.MethodCash,
			}),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"student_id": "the student is not enrolled in a section"}),
		},
		{
			name: "Future payment", method: http.MethodPost, path: "/api/v1/fees/payments", token: token,
			body:     marchallObj(t, pay(v2.ID, 1_000, "2999-01-01")),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"paid_on": "payment date cannot be in the future"}),
		},
		{
			name: "Zero amount", method: http.MethodPost, path: "/api/v1/fees/payments", token: token,
			body: marchallObj(t, pay(v2.ID, 0, "2024-09-10")), wantCode: http.StatusBadRequest,
		},
		{
			name: "Parents cannot record", method: http.MethodPost, path: "/api/v1/fees/payments", token: getToken(t, env, parent),
			body: marchallObj(t, pay(v2.ID, 1_000, "2024-09-10")), wantCode: http.StatusForbidden,
		},
		{
			name: "Parents must name a student", path: "/api/v1/fees/payments", token: getToken(t, env, parent),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"student_id": "this field is required"}),
		},
		{name: "Other parents do not see payments", path: "/api/v1/fees/payments/" + first.ID, token: getToken(t, env, stranger), wantCode: http.StatusNotFound},
		{name: "Other parents do not see balances", path: "/api/v1/fees/balance/" + kid.ID, token: getToken(t, env, stranger), wantCode: http.StatusNotFound},
	})

	t.Run("Latest payments first", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/fees/payments?student_id="+kid.ID, getToken(t, env, parent), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{second.ID, first.ID}, ids(t, rec))

		rec = env.serve(t, http.MethodGet, "/api/v1/fees/payments?from=2024-10-01&to=2024-10-31", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{second.ID}, ids(t, rec))
	})

	t.Run("Balance", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/fees/balance/"+kid.ID, getToken(t, env, parent), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		bal := decode[fee.Balance](t, rec)
		assert.Equal(t, int64(36_000), bal.Due)
		assert.Equal(t, int64(16_000), bal.Paid)
		assert.Equal(t, int64(20_000), bal.Balance)
		require.Len(t, bal.Structures, 1)
		assert.Equal(t, v2.ID, bal.Structures[0].ID)
	})

	t.Run("Export", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/fees/payments/export", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		file := decode[export.File](t, rec)
		assert.Equal(t, "payments.csv", file.Filename)
		data, err := base64.StdEncoding.DecodeString(file.Data)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[1], first.ReceiptNo+",2024-09-10,Kid,Standard,CASH,"), lines[1])
		assert.Equal(t, ",,,,,Total,160.00", strings.TrimSpace(lines[3]))
	})

	t.Run("Delete", func(t *testing.T) {
		rec := env.serve(t, http.MethodDelete, "/api/v1/fees/structures/"+grade2Fee.ID, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.serve(t, http.MethodGet, "/api/v1/fees/structures/"+grade2Fee.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_noticeApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	parent := env.createUser(t, "Parent", "parent", user.RoleParent)
	teacher := env.createUser(t, "Teacher", "teacher", user.RoleTeacher)
	testutil.CreateUser(t, env.c.DB, env.school.ID, "Gone", "gone", "gone@test.cd", "", []string{user.RoleParent}, false)

	rec := env.serve(t, http.MethodPost, "/api/v1/notices", token, notice.NewNotice{
		Title:    "Parents meeting",
		Body:     "Saturday at 9.",
		Audience: []string{"parent"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	meeting := decode[notice.Notice](t, rec)
	assert.False(t, meeting.IsPublished())
	assert.Equal(t, notice.PriorityNormal, meeting.Priority)
	assert.Equal(t, []string{user.RoleParent}, []string(meeting.Audience))

	rec = env.serve(t, http.MethodPost, "/api/v1/notices", token, notice.NewNotice{
		Title:   "School reopens",
		Body:    "Monday.",
		Publish: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reopening := decode[notice.Notice](t, rec)
	assert.True(t, reopening.IsPublished())
	assert.Empty(t, env.mail.Sent())

	past := time.Now().Add(-time.Hour)
	env.run(t, []httpTest{
		{
			name: "Already expired", method: http.MethodPost, path: "/api/v1/notices", token: token,
			body:     marchallObj(t, notice.NewNotice{Title: "Late", Body: "Too late.", Publish: true, ExpiresAt: &past}),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"expires_at": "expiry must be after the publication date"}),
		},
		{
			name: "Unknown audience", method: http.MethodPost, path: "/api/v1/notices", token: token,
			body: []byte(`{"title": "Aliens", "body": "Hi.", "audience": ["MARTIAN"]}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "Teachers cannot post", method: http.MethodPost, path: "/api/v1/notices", token: getToken(t, env, teacher),
			body: []byte(`{"title": "Hi", "body": "Hi."}`), wantCode: http.StatusForbidden,
		},
		{name: "Drafts are hidden", path: "/api/v1/notices/" + meeting.ID, token: getToken(t, env, parent), wantCode: http.StatusNotFound},
	})

	t.Run("Drafts are listed for admins only", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/notices?published=false", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{meeting.ID}, ids(t, rec))

		rec = env.serve(t, http.MethodGet, "/api/v1/notices?published=false", getToken(t, env, parent), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{reopening.ID}, ids(t, rec))
	})

	t.Run("Update", func(t *testing.T) {
		rec := env.serve(t, http.MethodPut, "/api/v1/notices/"+meeting.ID, token, notice.UpdateNotice{Priority: "high"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[notice.Notice](t, rec)
		assert.Equal(t, notice.PriorityHigh, updated.Priority)
		assert.Equal(t, meeting.Title, updated.Title)
	})

	t.Run("Publish & notify", func(t *testing.T) {
		env.mail.Reset()
		rec := env.serve(t, http.MethodPost, "/api/v1/notices/"+meeting.ID+"/publish", token, notice.PublishNotice{Notify: true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, decode[notice.Notice](t, rec).IsPublished())

		sent := env.mail.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "Parents meeting", sent[0].Subject)
		require.Len(t, sent[0].Bcc, 1)
		assert.Equal(t, parent.Email, sent[0].Bcc[0].Address)
	})

	t.Run("Audience", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/notices", getToken(t, env, parent), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.ElementsMatch(t, []string{meeting.ID, reopening.ID}, ids(t, rec))

		rec = env.serve(t, http.MethodGet, "/api/v1/notices", getToken(t, env, teacher), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{reopening.ID}, ids(t, rec))

		rec = env.serve(t, http.MethodGet, "/api/v1/notices/"+meeting.ID, getToken(t, env, teacher), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := env.serve(t, http.MethodDelete, "/api/v1/notices/"+reopening.ID, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.serve(t, http.MethodGet, "/api/v1/notices/"+reopening.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_payrollApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	ctx := context.Background()
	testutil.CreateSession(t, env.c, env.school.ID, "2024-2025", "2024-09-02", "2025-06-30")

	teacherUsr := env.createUser(t, "Teacher", "teacher", user.RoleTeacher)
	teacher := testutil.CreateStaff(t, env.c, env.school.ID, teacherUsr.ID, "EMP001", "Teacher", 500_000)
	cook := testutil.CreateStaff(t, env.c, env.school.ID, "", "EMP002", "Cook", 200_000)

	_, err := env.c.AttendanceSvc.MarkStaff(ctx, env.school.ID, env.admin.ID, attendance.MarkStaff{
		Date:    mustDate("2024-09-03"),
		Records: []attendance.StaffMarkItem{{StaffID: cook.ID, Status: attendance.StaffHalfDay}},
	})
	require.NoError(t, err)

	// September 2024 has 25 working days: the session starts on the 2nd & Sundays are off
	rec := env.serve(t, http.MethodPost, "/api/v1/payroll", token, payroll.GenerateRun{Month: "2024-09"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[payroll.Run](t, rec)

	t.Run("Generate", func(t *testing.T) {
		assert.Equal(t, payroll.StatusDraft, run.Status)
		assert.Equal(t, 25, run.WorkingDays)
		require.Len(t, run.Payslips, 2)

		assert.Equal(t, teacher.ID, run.Payslips[0].StaffID)
		assert.Equal(t, int64(500_000), run.Payslips[0].Net)

		cookSlip := run.Payslips[1]
		assert.Equal(t, 0.5, cookSlip.UnpaidDays)
		assert.Equal(t, 24.5, cookSlip.PaidDays)
		assert.Equal(t, int64(4_000), cookSlip.LossOfPay)
		assert.Equal(t, int64(196_000), cookSlip.Net)

		assert.Equal(t, int64(700_000), run.TotalGross)
		assert.Equal(t, int64(4_000), run.TotalDeductions)
		assert.Equal(t, int64(696_000), run.TotalNet)
	})

	env.run(t, []httpTest{
		{
			name: "One run per month", method: http.MethodPost, path: "/api/v1/payroll", token: token,
			body:     []byte(`{"month": "2024-09"}`),
			wantCode: http.StatusConflict, wantData: errBody(t, "a payroll run already exists for this month"),
		},
		{
			name: "Invalid month", method: http.MethodPost, path: "/api/v1/payroll", token: token,
			body:     []byte(`{"month": "2024-13"}`),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"month": "must be a valid month (YYYY-MM)"}),
		},
		{name: "Admins only", path: "/api/v1/payroll", token: getToken(t, env, teacherUsr), wantCode: http.StatusForbidden},
	})

	t.Run("Regenerate picks up attendance", func(t *testing.T) {
		_, err := env.c.AttendanceSvc.MarkStaff(ctx, env.school.ID, env.admin.ID, attendance.MarkStaff{
			Date:    mustDate("2024-09-04"),
			Records: []attendance.StaffMarkItem{{StaffID: teacher.ID, Status: attendance.StaffAbsent}},
		})
		require.NoError(t, err)

		rec := env.serve(t, http.MethodPost, "/api/v1/payroll/"+run.ID+"/regenerate", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		regenerated := decode[payroll.Run](t, rec)
		require.Len(t, regenerated.Payslips, 2)
		assert.Equal(t, int64(20_000), regenerated.Payslips[0].LossOfPay)
		assert.Equal(t, int64(676_000), regenerated.TotalNet)

		rec = env.serve(t, http.MethodGet, "/api/v1/payroll/"+run.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[payroll.Run](t, rec).Payslips, 2)
	})

	t.Run("Export", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/payroll/"+run.ID+"/export", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		file := decode[export.File](t, rec)
		assert.Equal(t, "payslips_2024-09.csv", file.Filename)
		data, err := base64.StdEncoding.DecodeString(file.Data)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "EMP002,Cook,2000.00,0.00,2000.00,0.00,25,24.5,40.00,1960.00", strings.TrimSpace(lines[2]))
	})

	t.Run("Staff see their payslips", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/profile/payslips", getToken(t, env, teacherUsr), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		slips := decode[[]payroll.Payslip](t, rec)
		require.Len(t, slips, 1)
		assert.Equal(t, run.ID, slips[0].RunID)
	})

	t.Run("Finalize", func(t *testing.T) {
		rec := env.serve(t, http.MethodPost, "/api/v1/payroll/"+run.ID+"/finalize", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		finalized := decode[payroll.Run](t, rec)
		assert.Equal(t, payroll.StatusFinalized, finalized.Status)
		assert.Equal(t, env.admin.ID, finalized.FinalizedBy.String)

		frozen := errBody(t, "finalized payroll runs cannot be changed")
		env.run(t, []httpTest{
			{name: "Cannot regenerate", method: http.MethodPost, path: "/api/v1/payroll/" + run.ID + "/regenerate", token: token, wantCode: http.StatusBadRequest, wantData: frozen},
			{name: "Cannot finalize twice", method: http.MethodPost, path: "/api/v1/payroll/" + run.ID + "/finalize", token: token, wantCode: http.StatusBadRequest, wantData: frozen},
			{name: "Cannot delete", method: http.MethodDelete, path: "/api/v1/payroll/" + run.ID, token: token, wantCode: http.StatusBadRequest, wantData: frozen},
		})
	})

	t.Run("Delete a draft", func(t *testing.T) {
		rec := env.serve(t, http.MethodPost, "/api/v1/payroll", token, payroll.GenerateRun{Month: "2024-10"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		october := decode[payroll.Run](t, rec)

		rec = env.serve(t, http.MethodGet, "/api/v1/payroll", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{october.ID, run.ID}, ids(t, rec))

		rec = env.serve(t, http.MethodDelete, "/api/v1/payroll/"+october.ID, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.serve(t, http.MethodGet, "/api/v1/payroll/"+october.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
