package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/apps/di"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app    Server
	c      *di.Container
	mail   *emailsvc.MockService
	school school.School
	admin  user.User
}

// setup starts a server on a fresh database, with one school & its admin.
func setup(t *testing.T) *testEnv {
	c, mailSvc := testutil.NewContainer(t)
	opts := NewOptions(c)
	opts.DisableReqLogs = true

	env := &testEnv{app: NewServer(opts), c: c, mail: mailSvc}
	env.school = testutil.CreateSchool(t, c, "Lycee Wima", "WIMA")
	env.admin = testutil.CreateUser(t, c.DB, env.school.ID, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	return env
}

func (env *testEnv) createUser(t *testing.T, name, uname string, roles ...string) user.User {
	return testutil.CreateUser(t, env.c.DB, env.school.ID, name, uname, uname+"@test.cd", "", roles, true)
}

type httpErr struct {
	Success bool        `json:"success"`
	Error   interface{} `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// serve sends a JSON request; a nil body sends none.
func (env *testEnv) serve(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var data [][]byte
	if body != nil {
		data = append(data, marchallObj(t, body))
	}
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

// run serves each test, checking the response body only when wantData is set.
func (env *testEnv) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func getToken(t *testing.T, env *testEnv, usr user.User) string {
	token, err := GenerateToken(env.c.Conf, GetUserClaims(env.c.Conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func errBody(t *testing.T, msg interface{}) []byte {
	return marchallObj(t, httpErr{Success: false, Error: msg})
}

func mustDate(s string) core.Date {
	return core.MustParseDate(s)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// ids returns the "id" of every object of a JSON list response, in order.
func ids(t *testing.T, rec *httptest.ResponseRecorder) []string {
	objs := decode[[]struct {
		ID string `json:"id"`
	}](t, rec)
	res := make([]string, 0, len(objs))
	for _, o := range objs {
		res = append(res, o.ID)
	}
	return res
}

// jsonBytesEqual compares two JSON documents; lists may differ in order only.
func jsonBytesEqual(t assert.TestingT, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	l1, ok1 := j1.([]interface{})
	l2, ok2 := j2.([]interface{})
	if ok1 && ok2 {
		return assert.ElementsMatch(t, l2, l1), nil
	}
	return assert.Equal(t, j2, j1), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// recordingT collects assertion failures instead of failing the test.
type recordingT struct{ errors []string }

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func Test_jsonBytesEqual(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		want     string
		wantOk   bool
		wantDiff string
	}{
		{name: "same object", got: `{"a": 1, "b": [1, 2]}`, want: `{"b": [1, 2], "a": 1}`, wantOk: true},
		{name: "lists in any order", got: `[{"id": "1"}, {"id": "2"}]`, want: `[{"id": "2"}, {"id": "1"}]`, wantOk: true},
		{name: "different objects", got: `{"error": "nope"}`, want: `{"error": "yes"}`, wantDiff: "Not equal"},
		{name: "object vs list", got: `{"a": 1}`, want: `[1]`, wantDiff: "Not equal"},
		{name: "different lists", got: `[1, 2]`, want: `[1, 3]`, wantDiff: "elements differ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := new(recordingT)
			ok, err := jsonBytesEqual(rt, []byte(tt.got), []byte(tt.want))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantDiff == "" {
				assert.Empty(t, rt.errors)
				return
			}
			require.Len(t, rt.errors, 1)
			assert.Contains(t, rt.errors[0], tt.wantDiff)
			assert.NotContains(t, rt.errors[0], "unsupported type")
		})
	}
}
