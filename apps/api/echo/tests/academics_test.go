package tests

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/export"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/subject"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func Test_schoolApi(t *testing.T) {
	env := setup(t)
	root := testutil.CreateUser(t, env.c.DB, "", "Root", "root", "root@test.cd", "", []string{user.RoleSuperAdmin}, true)
	token := getToken(t, env, root)

	rec := env.serve(t, http.MethodPost, "/api/v1/schools", token, school.NewSchool{Name: "Institut Bobokoli", Code: "bbk"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sch := decode[school.School](t, rec)
	assert.Equal(t, "BBK", sch.Code)
	assert.True(t, sch.IsActive)

	env.run(t, []httpTest{
		{
			name: "Duplicate code", method: http.MethodPost, path: "/api/v1/schools", token: token,
			body: marchallObj(t, school.NewSchool{Name: "Again", Code: "BBK"}), wantCode: http.StatusConflict,
		},
		{
			name: "Invalid", method: http.MethodPost, path: "/api/v1/schools", token: token,
			body: marchallObj(t, school.NewSchool{Name: " ", Code: "a-b"}), wantCode: http.StatusBadRequest,
		},
		{name: "Search", path: "/api/v1/schools?search=bobo", token: token, wantCode: http.StatusOK},
		{name: "Retrieve", path: "/api/v1/schools/" + sch.ID, token: token, wantCode: http.StatusOK},
		{name: "Unknown", path: "/api/v1/schools/nope", token: token, wantCode: http.StatusNotFound, wantData: errBody(t, "school not found")},
		{
			name: "Update", method: http.MethodPut, path: "/api/v1/schools/" + sch.ID, token: token,
			body: marchallObj(t, school.UpdateSchool{Address: "Av. de la Paix"}), wantCode: http.StatusOK,
		},
		{name: "Delete", method: http.MethodDelete, path: "/api/v1/schools/" + sch.ID, token: token, wantCode: http.StatusNoContent},
		{name: "Deleted", path: "/api/v1/schools/" + sch.ID, token: token, wantCode: http.StatusNotFound},
	})

	rec = env.serve(t, http.MethodGet, "/api/v1/schools", token, nil)
	assert.Equal(t, []string{env.school.ID}, ids(t, rec))
}

func Test_classApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	teacherUsr := env.createUser(t, "Teacher", "teacher", user.RoleTeacher)
	stf := testutil.CreateStaff(t, env.c, env.school.ID, teacherUsr.ID, "EMP001", "Teacher", 100_000)

	rec := env.serve(t, http.MethodPost, "/api/v1/classes", token, class.NewClass{Name: "Grade 1", Grade: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cls := decode[class.Class](t, rec)

	rec = env.serve(t, http.MethodPost, "/api/v1/sections", token, class.NewSection{ClassID: cls.ID, Name: "A", Capacity: 30, ClassTeacherID: stf.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sec := decode[class.Section](t, rec)
	assert.Equal(t, stf.ID, sec.ClassTeacherID.String)

	other := testutil.CreateSchool(t, env.c, "Other", "OTHER")
	otherCls := testutil.CreateClass(t, env.c, other.ID, "Grade 1", 1)

	env.run(t, []httpTest{
		{
			name: "Duplicate class", method: http.MethodPost, path: "/api/v1/classes", token: token,
			body: marchallObj(t, class.NewClass{Name: "Grade 1"}), wantCode: http.StatusConflict,
			wantData: errBody(t, "a class with this name already exists"),
		},
		{
			name: "Duplicate section", method: http.MethodPost, path: "/api/v1/sections", token: token,
			body: marchallObj(t, class.NewSection{ClassID: cls.ID, Name: "A"}), wantCode: http.StatusConflict,
			wantData: errBody(t, "a section with this name already exists in this class"),
		},
		{
			name: "Section of another school's class", method: http.MethodPost, path: "/api/v1/sections", token: token,
			body: marchallObj(t, class.NewSection{ClassID: otherCls.ID, Name: "B"}), wantCode: http.StatusNotFound,
		},
		{name: "Teachers can read", path: "/api/v1/classes", token: getToken(t, env, teacherUsr), wantCode: http.StatusOK},
		{
			name: "Teachers cannot write", method: http.MethodPost, path: "/api/v1/classes", token: getToken(t, env, teacherUsr),
			body: marchallObj(t, class.NewClass{Name: "Grade 2"}), wantCode: http.StatusForbidden,
		},
		{name: "Other school's class", path: "/api/v1/classes/" + otherCls.ID, token: token, wantCode: http.StatusNotFound},
		{name: "Class with sections", method: http.MethodDelete, path: "/api/v1/classes/" + cls.ID, token: token, wantCode: http.StatusConflict},
		{name: "Sections by class", path: "/api/v1/sections?class_id=" + cls.ID, token: token, wantCode: http.StatusOK},
		{
			name: "Unassign class teacher", method: http.MethodPut, path: "/api/v1/sections/" + sec.ID, token: token,
			body: []byte(`{"class_teacher_id": ""}`), wantCode: http.StatusOK,
		},
		{name: "Delete section", method: http.MethodDelete, path: "/api/v1/sections/" + sec.ID, token: token, wantCode: http.StatusNoContent},
		{name: "Delete class", method: http.MethodDelete, path: "/api/v1/classes/" + cls.ID, token: token, wantCode: http.StatusNoContent},
	})

	rec = env.serve(t, http.MethodGet, "/api/v1/classes", token, nil)
	assert.Empty(t, ids(t, rec))
}

func Test_subjectApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	cls := testutil.CreateClass(t, env.c, env.school.ID, "Grade 1", 1)

	create := func(name, code string) subject.Subject {
		rec := env.serve(t, http.MethodPost, "/api/v1/subjects", token, subject.NewSubject{Name: name, Code: code})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[subject.Subject](t, rec)
	}
	maths := create("Mathematics", "math")
	french := create("French", "fr")
	assert.Equal(t, "MATH", maths.Code)
	assert.Equal(t, subject.TypeTheory, maths.Type)

	rec := env.serve(t, http.MethodPost, "/api/v1/class-subjects", token, subject.NewClassSubject{ClassID: cls.ID, SubjectID: maths.ID, PeriodsPerWeek: 6})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env.run(t, []httpTest{
		{
			name: "Duplicate code", method: http.MethodPost, path: "/api/v1/subjects", token: token,
			body: marchallObj(t, subject.NewSubject{Name: "Maths", Code: "MATH"}), wantCode: http.StatusConflict,
		},
		{
			name: "Invalid type", method: http.MethodPost, path: "/api/v1/subjects", token: token,
			body: marchallObj(t, subject.NewSubject{Name: "Art", Code: "ART", Type: "fun"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Already assigned", method: http.MethodPost, path: "/api/v1/class-subjects", token: token,
			body:     marchallObj(t, subject.NewClassSubject{ClassID: cls.ID, SubjectID: maths.ID}),
			wantCode: http.StatusConflict, wantData: errBody(t, "this subject is already assigned to this class"),
		},
		{name: "Delete", method: http.MethodDelete, path: "/api/v1/subjects/" + french.ID, token: token, wantCode: http.StatusNoContent},
		{name: "Deleted", path: "/api/v1/subjects/" + french.ID, token: token, wantCode: http.StatusNotFound},
	})

	rec = env.serve(t, http.MethodGet, "/api/v1/subjects", token, nil)
	assert.Equal(t, []string{maths.ID}, ids(t, rec), "soft-deleted subjects are excluded")

	rec = env.serve(t, http.MethodGet, "/api/v1/class-subjects?class_id="+cls.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	css := decode[[]subject.ClassSubject](t, rec)
	require.Len(t, css, 1)
	assert.Equal(t, "MATH", css[0].SubjectCode)
	assert.Equal(t, 6, css[0].PeriodsPerWeek)
}

func Test_staffApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	usr := env.createUser(t, "Mwalimu", "mwalimu", user.RoleTeacher)

	ns := staff.NewStaff{
		UserID:        usr.ID,
		EmployeeNo:    "EMP001",
		Name:          "Mwalimu Juma",
		Department:    "Sciences",
		IsTeaching:    true,
		MonthlySalary: 300_000,
		Allowances:    20_000,
	}
	rec := env.serve(t, http.MethodPost, "/api/v1/staff", token, ns)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	stf := decode[staff.Staff](t, rec)

	ns2 := ns
	ns2.EmployeeNo = "EMP002"
	ns3 := ns
	ns3.UserID = ""
	env.run(t, []httpTest{
		{name: "User already linked", method: http.MethodPost, path: "/api/v1/staff", token: token, body: marchallObj(t, ns2), wantCode: http.StatusConflict},
		{name: "Duplicate employee no", method: http.MethodPost, path: "/api/v1/staff", token: token, body: marchallObj(t, ns3), wantCode: http.StatusConflict},
		{name: "Filter by department", path: "/api/v1/staff?department=Sciences&is_teaching=true", token: token, wantCode: http.StatusOK},
		{
			name: "Update salary", method: http.MethodPut, path: "/api/v1/staff/" + stf.ID, token: token,
			body: []byte(`{"monthly_salary": 350000}`), wantCode: http.StatusOK,
		},
		{name: "Bad export format", path: "/api/v1/staff/export?format=doc", token: token, wantCode: http.StatusBadRequest},
	})

	rec = env.serve(t, http.MethodGet, "/api/v1/staff/"+stf.ID, token, nil)
	assert.Equal(t, int64(350_000), decode[staff.Staff](t, rec).MonthlySalary)

	for _, format := range []string{export.FormatCSV, export.FormatXLSX, export.FormatPDF} {
		t.Run("Export "+format, func(t *testing.T) {
			rec := env.serve(t, http.MethodGet, "/api/v1/staff/export?format="+format, token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			file := decode[export.File](t, rec)
			assert.Equal(t, "staff."+format, file.Filename)
			data, err := base64.StdEncoding.DecodeString(file.Data)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}

func Test_studentApi(t *testing.T) {
	env := setup(t)
	token := getToken(t, env, env.admin)
	teacher := env.createUser(t, "Teacher", "teacher", user.RoleTeacher)
	parent := env.createUser(t, "Parent", "parent", user.RoleParent)
	kid := env.createUser(t, "Kid", "kidkid", user.RoleStudent)

	cls1 := testutil.CreateClass(t, env.c, env.school.ID, "Grade 1", 1)
	cls2 := testutil.CreateClass(t, env.c, env.school.ID, "Grade 2", 2)
	sec1 := testutil.CreateSection(t, env.c, env.school.ID, cls1.ID, "A", 2)
	sec2 := testutil.CreateSection(t, env.c, env.school.ID, cls2.ID, "A", 1)

	ns := student.NewStudent{
		UserID:       kid.ID,
		ParentUserID: parent.ID,
		AdmissionNo:  "ADM001",
		Name:         "Kid Kabila",
		Gender:       "male",
		SectionID:    sec1.ID,
		RollNo:       1,
	}
	rec := env.serve(t, http.MethodPost, "/api/v1/students", token, ns)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	std := decode[student.Student](t, rec)
	assert.Equal(t, student.StatusActive, std.Status)
	assert.Equal(t, "MALE", std.Gender)

	sibling := testutil.CreateStudent(t, env.c, env.school.ID, student.NewStudent{AdmissionNo: "ADM002", Name: "Sibling", SectionID: sec1.ID})
	stranger := env.createUser(t, "Stranger", "stranger", user.RoleParent)

	env.run(t, []httpTest{
		{
			name: "Duplicate admission no", method: http.MethodPost, path: "/api/v1/students", token: token,
			body: marchallObj(t, student.NewStudent{AdmissionNo: "ADM001", Name: "Other"}), wantCode: http.StatusConflict,
		},
		{
			name: "Section full", method: http.MethodPost, path: "/api/v1/students", token: token,
			body:     marchallObj(t, student.NewStudent{AdmissionNo: "ADM003", Name: "Third", SectionID: sec1.ID}),
			wantCode: http.StatusBadRequest, wantData: errBody(t, "the section does not have enough room"),
		},
		{
			name: "Future date of birth", method: http.MethodPost, path: "/api/v1/students", token: token,
			body:     []byte(`{"admission_no": "ADM004", "name": "Baby", "date_of_birth": "2999-01-01"}`),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"date_of_birth": "date of birth cannot be in the future"}),
		},
		{name: "Staff see students", path: "/api/v1/students/" + std.ID, token: getToken(t, env, teacher), wantCode: http.StatusOK},
		{name: "Parents see their children", path: "/api/v1/students/" + std.ID, token: getToken(t, env, parent), wantCode: http.StatusOK},
		{name: "Students see themselves", path: "/api/v1/students/" + std.ID, token: getToken(t, env, kid), wantCode: http.StatusOK},
		{name: "Students do not see others", path: "/api/v1/students/" + sibling.ID, token: getToken(t, env, kid), wantCode: http.StatusNotFound},
		{name: "Other parents do not see", path: "/api/v1/students/" + std.ID, token: getToken(t, env, stranger), wantCode: http.StatusNotFound},
		{name: "Parents cannot list", path: "/api/v1/students", token: getToken(t, env, parent), wantCode: http.StatusForbidden},
	})

	t.Run("Query", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/students?class_id="+cls1.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[[]student.Student](t, rec)
		require.Len(t, list, 2)
		assert.Equal(t, "Grade 1", list[0].ClassName.String)
		assert.Equal(t, "A", list[0].SectionName.String)

		rec = env.serve(t, http.MethodGet, "/api/v1/students?search=sibl", token, nil)
		assert.Equal(t, []string{sibling.ID}, ids(t, rec))
	})

	t.Run("Promote", func(t *testing.T) {
		rec := env.serve(t, http.MethodPost, "/api/v1/students/promote", token, student.PromoteStudents{
			StudentIDs: []string{std.ID, sibling.ID}, TargetSectionID: sec2.ID,
		})
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: errBody(t, "the section does not have enough room")}, rec)

		rec = env.serve(t, http.MethodPost, "/api/v1/students/promote", token, student.PromoteStudents{
			StudentIDs: []string{std.ID}, TargetSectionID: sec2.ID,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.serve(t, http.MethodPost, "/api/v1/students/promote", token, student.PromoteStudents{
			StudentIDs: []string{sibling.ID}, Graduate: true,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, student.StatusGraduated, decode[[]student.Student](t, rec)[0].Status)

		rec = env.serve(t, http.MethodPost, "/api/v1/students/promote", token, student.PromoteStudents{
			StudentIDs: []string{sibling.ID}, TargetSectionID: sec1.ID,
		})
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: errBody(t, "only active students can be promoted")}, rec)

		rec = env.serve(t, http.MethodGet, "/api/v1/students/"+std.ID+"/promotions", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		history := decode[[]student.Promotion](t, rec)
		require.Len(t, history, 1)
		assert.Equal(t, sec1.ID, history[0].FromSectionID.String)
		assert.Equal(t, sec2.ID, history[0].ToSectionID.String)
		assert.Equal(t, student.ActionPromoted, history[0].Action)
	})

	t.Run("Import", func(t *testing.T) {
		sec3 := testutil.CreateSection(t, env.c, env.school.ID, cls1.ID, "B", 0)
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		rows := [][]interface{}{
			{"Admission No", "Name", "Gender", "Date of Birth", "Roll No"},
			{"ADM010", "Imported One", "female", "2015-03-01", "1"},
			{"ADM011", "Imported Two", "", "", ""},
			{"ADM001", "Duplicate", "", "", ""},
			{"", "No Number", "", "", ""},
			{"ADM012", "Bad Date", "", "01/02/2015", ""},
		}
		for i, row := range rows {
			cellName, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
		}
		xlsx, err := f.WriteToBuffer()
		require.NoError(t, err)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("section_id", sec3.ID))
		fw, err := mw.CreateFormFile("file", "students.xlsx")
		require.NoError(t, err)
		_, err = fw.Write(xlsx.Bytes())
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/students/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decode[student.ImportResult](t, rec)
		assert.Equal(t, 2, res.Imported)
		require.Len(t, res.Skipped, 3)
		assert.Equal(t, []int{4, 5, 6}, []int{res.Skipped[0].Row, res.Skipped[1].Row, res.Skipped[2].Row})

		rec = env.serve(t, http.MethodGet, "/api/v1/students?section_id="+sec3.ID, token, nil)
		assert.Len(t, ids(t, rec), 2)
	})

	t.Run("Export", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/students/export", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		file := decode[export.File](t, rec)
		assert.Equal(t, "text/csv", file.Mime)
		data, err := base64.StdEncoding.DecodeString(file.Data)
		require.NoError(t, err)
		assert.Contains(t, string(data), "ADM001,Kid Kabila,MALE")
	})

	t.Run("Delete", func(t *testing.T) {
		rec := env.serve(t, http.MethodDelete, "/api/v1/students/"+std.ID, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.serve(t, http.MethodGet, "/api/v1/students/"+std.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_profileApi(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Teacher", "teacher", user.RoleTeacher)
	parent := env.createUser(t, "Parent", "parent", user.RoleParent)
	lonely := env.createUser(t, "Lonely", "lonely", user.RoleParent)
	stf := testutil.CreateStaff(t, env.c, env.school.ID, teacher.ID, "EMP001", "Teacher", 100_000)
	kid := testutil.CreateStudent(t, env.c, env.school.ID, student.NewStudent{ParentUserID: parent.ID, AdmissionNo: "ADM001", Name: "Kid"})

	type profile[T any] struct {
		User        user.User `json:"user"`
		PrimaryRole string    `json:"primary_role"`
		Profile     T         `json:"profile"`
	}

	t.Run("Teacher", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/profile", getToken(t, env, teacher), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		p := decode[profile[staff.Staff]](t, rec)
		assert.Equal(t, user.RoleTeacher, p.PrimaryRole)
		assert.Equal(t, stf.ID, p.Profile.ID)
	})

	t.Run("Parent", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/profile", getToken(t, env, parent), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		p := decode[profile[[]student.Student]](t, rec)
		require.Len(t, p.Profile, 1)
		assert.Equal(t, kid.ID, p.Profile[0].ID)

		rec = env.serve(t, http.MethodGet, "/api/v1/profile", getToken(t, env, lonely), nil)
		assert.Contains(t, rec.Body.String(), `"profile":[]`)
	})

	t.Run("Admin without staff record", func(t *testing.T) {
		rec := env.serve(t, http.MethodGet, "/api/v1/profile", getToken(t, env, env.admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"profile":null`)
	})

	teacherToken := getToken(t, env, teacher)
	env.run(t, []httpTest{
		{
			name: "Update profile", method: http.MethodPut, path: "/api/v1/profile", token: teacherToken,
			body: marchallObj(t, user.UpdateProfile{Phone: "+243 800 000 000"}), wantCode: http.StatusOK,
		},
		{
			name: "Email taken", method: http.MethodPut, path: "/api/v1/profile", token: teacherToken,
			body: marchallObj(t, user.UpdateProfile{Email: "parent@test.cd"}), wantCode: http.StatusConflict,
		},
		{
			name: "Wrong current password", method: http.MethodPost, path: "/api/v1/profile/password", token: teacherToken,
			body:     marchallObj(t, user.ChangePassword{CurrentPassword: "nope", Password: strongPassword, PasswordConfirm: strongPassword}),
			wantCode: http.StatusBadRequest, wantData: errBody(t, map[string]string{"current_password": "incorrect password"}),
		},
		{
			name: "Change password", method: http.MethodPost, path: "/api/v1/profile/password", token: teacherToken,
			body:     marchallObj(t, user.ChangePassword{CurrentPassword: testutil.DefaultPassword, Password: strongPassword, PasswordConfirm: strongPassword}),
			wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "Password has been changed."}),
		},
		{name: "Payslips (staff only)", path: "/api/v1/profile/payslips", token: getToken(t, env, parent), wantCode: http.StatusForbidden},
		{name: "Payslips", path: "/api/v1/profile/payslips", token: teacherToken, wantCode: http.StatusOK, wantData: marchallList(t)},
	})

	usr, err := env.c.UserSvc.GetByID(t.Context(), teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, "+243 800 000 000", usr.Phone)
	assert.NoError(t, usr.CheckPassword(strongPassword))
}
