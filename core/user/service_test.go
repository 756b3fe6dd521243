package user

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	cachesvc "github.com/trezcool/shule/services/cache"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

func (m *recordingMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.sent = append(m.sent, *msg)
	}
}

func newTestService(t *testing.T) (*service, *recordingMailer) {
	t.Helper()
	mailer := new(recordingMailer)
	svc := NewService(newMemRepository(), mailer, cachesvc.NewMemoryCache(), core.NewTestConfig())
	return svc.(*service), mailer
}

func createUser(t *testing.T, svc Service, schoolID, uname string, roles ...string) User {
	t.Helper()
	usr, err := svc.Create(context.Background(), schoolID, NewUser{
		Name:     uname,
		Username: uname,
		Email:    uname + "@test.cd",
		Password: "Pa$$w0rd!",
		Roles:    roles,
	})
	require.NoError(t, err)
	return usr
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", NewUser{Name: "A", Username: "admin", Password: "x", Roles: []string{RoleAdmin}})
	assert.Equal(t, ErrSchoolRequired, err)

	root := createUser(t, svc, "school-1", "root", RoleSuperAdmin)
	assert.Empty(t, root.SchoolID, "super admins are not bound to a school")
	assert.True(t, root.IsActive)
	assert.NoError(t, root.CheckPassword("Pa$$w0rd!"))

	usr := createUser(t, svc, "school-1", "teacher", RoleTeacher)
	assert.Equal(t, "school-1", usr.SchoolID)

	_, err = svc.Create(ctx, "school-1", NewUser{Name: "T", Username: "teacher", Password: "x", Roles: []string{RoleTeacher}})
	assert.Equal(t, ErrUsernameExists, err)

	assert.Equal(t, ErrEmailExists, svc.CheckUniqueness(ctx, "other", "teacher@test.cd"))
	assert.NoError(t, svc.CheckUniqueness(ctx, "teacher", "teacher@test.cd", usr))
}

func TestService_lookups(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	usr := createUser(t, svc, "school-1", "teacher", RoleTeacher)

	got, err := svc.GetByUsernameOrEmail(ctx, " TEACHER@test.cd ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	got, err = svc.GetByUID(ctx, EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = svc.GetByUID(ctx, "%%%")
	assert.Equal(t, ErrNotFound, err)

	_, err = svc.GetInSchool(ctx, "school-2", usr.ID)
	assert.Equal(t, ErrNotFound, err)
}

func TestService_passwordReset(t *testing.T) {
	svc, mailer := newTestService(t)
	ctx := context.Background()
	usr := createUser(t, svc, "school-1", "parent", RoleParent)

	require.NoError(t, svc.RequestPasswordReset(ctx, "Parent@test.cd"))
	require.Len(t, mailer.sent, 1)
	data := mailer.sent[0].TemplateData.(map[string]string)
	assert.Equal(t, EncodeUID(usr), data["UID"])

	t.Run("Unknown or inactive users", func(t *testing.T) {
		assert.Equal(t, ErrNotFound, svc.RequestPasswordReset(ctx, "nobody@test.cd"))

		inactive := createUser(t, svc, "school-1", "gone", RoleParent)
		inactive.IsActive = false
		_, err := svc.repo.UpdateUser(ctx, inactive)
		require.NoError(t, err)
		assert.Equal(t, ErrNotFound, svc.RequestPasswordReset(ctx, "gone@test.cd"))
	})

	t.Run("Invalid link", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetUserPassword{UID: data["UID"], Token: "nope", Password: "n3w"})
		assert.Equal(t, errInvalidResetLink, err)
		err = svc.ResetPassword(ctx, ResetUserPassword{UID: "nope", Token: data["Token"], Password: "n3w"})
		assert.Equal(t, errInvalidResetLink, err)
	})

	require.NoError(t, svc.ResetPassword(ctx, ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: "n3w"}))
	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("n3w"))

	t.Run("Tokens are single use", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: "again"})
		assert.Equal(t, errInvalidResetLink, err)
	})

	t.Run("Throttling", func(t *testing.T) {
		// one request was already made for this address
		for i := 1; i < svc.resetLimit; i++ {
			assert.NoError(t, svc.RequestPasswordReset(ctx, "parent@test.cd"))
		}
		assert.True(t, IsThrottled(svc.RequestPasswordReset(ctx, "parent@test.cd")))
	})
}

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := createUser(t, svc, "school-1", "aaaa", RoleTeacher)
	b := createUser(t, svc, "school-2", "bbbb", RoleTeacher)

	require.NoError(t, svc.Delete(ctx, "school-1", "admin", a.ID, b.ID))
	_, err := svc.GetByID(ctx, a.ID)
	assert.Equal(t, ErrNotFound, err)
	_, err = svc.GetByID(ctx, b.ID)
	assert.NoError(t, err, "users of other schools are kept")

	users, err := svc.Query(ctx, &QueryFilter{Roles: []string{RoleTeacher}}, core.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
