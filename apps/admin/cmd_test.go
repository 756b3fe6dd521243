package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/calendar"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	c, _ := testutil.NewContainer(t)
	out := new(bytes.Buffer)
	return &commandLine{c: c, out: out}, out
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) run(t *testing.T, cli *commandLine) {
	t.Run(tt.name, func(t *testing.T) {
		mockPassword(t, tt.pwd)
		err := cli.run(tt.args)
		switch {
		case tt.wantErr != nil:
			assert.Equal(t, tt.wantErr, err)
		case tt.wantErrStr != "":
			assert.ErrorContains(t, err, tt.wantErrStr)
		default:
			assert.NoError(t, err)
		}
	})
}

func Test_commandLine_help(t *testing.T) {
	cli, out := setup(t)

	cliTest{name: "no command", wantErr: errHelp}.run(t, cli)
	assert.Contains(t, out.String(), "resetpassword")
	cliTest{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`}.run(t, cli)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	type call struct {
		command string
		args    []string
	}
	var calls []call
	orig := migrateFunc
	migrateFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		calls = append(calls, call{command: command, args: args})
		return nil
	}
	t.Cleanup(func() { migrateFunc = orig })

	for _, tt := range []cliTest{
		{name: "no command", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s)"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
	} {
		tt.run(t, cli)
	}
	assert.Equal(t, []call{
		{command: "up", args: []string{}},
		{command: "up-to", args: []string{"2"}},
		{command: "down-to", args: []string{"1"}},
	}, calls)

	t.Run("goose", func(t *testing.T) {
		migrateFunc = orig
		cliTest{name: "status", args: []string{"migrate", "status"}}.run(t, cli)
		cliTest{name: "redo", args: []string{"migrate", "redo"}}.run(t, cli)
		cliTest{name: "unknown", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`}.run(t, cli)
	})
}

func Test_commandLine_createSchool(t *testing.T) {
	cli, out := setup(t)

	for _, tt := range []cliTest{
		{name: "missing flags", args: []string{"createschool", "--name", "Umoja"}, wantErrStr: `required flag(s) "code" not set`},
		{name: "invalid code", args: []string{"createschool", "--name", "Umoja", "--code", "u-1"}, wantErrStr: "'alphanum' tag"},
		{name: "ok", args: []string{"createschool", "--name", "Umoja", "--code", "umoja"}},
	} {
		tt.run(t, cli)
	}
	assert.Contains(t, out.String(), "school UMOJA created: ")
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, cli.c, "Umoja", "UMOJA")

	for _, tt := range []cliTest{
		{name: "no username", args: []string{"adduser"}, pwd: "lol", wantErrStr: `required flag(s) "username" not set`},
		{name: "no password", args: []string{"adduser", "--username", "boss"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "--username", "boss", "--roles", "KING"}, pwd: "lol", wantErrStr: `unknown role "KING"`},
		{name: "school required", args: []string{"adduser", "--username", "boss"}, pwd: "lol", wantErr: user.ErrSchoolRequired},
		{name: "school admin", args: []string{"adduser", "--username", "Boss", "--email", "boss@test.cd", "--school", sch.ID}, pwd: "lol"},
		{name: "super admin", args: []string{"adduser", "--username", "root", "--roles", user.RoleSuperAdmin}, pwd: "r00t"},
	} {
		tt.run(t, cli)
	}
	assert.Contains(t, out.String(), "user boss saved: ")

	boss, err := cli.c.UserSvc.GetByUsername(ctx, "boss")
	require.NoError(t, err)
	assert.Equal(t, sch.ID, boss.SchoolID)
	assert.Equal(t, "boss", boss.Name)
	assert.Equal(t, []string{user.RoleAdmin}, boss.Roles)
	assert.NoError(t, boss.CheckPassword("lol"))

	root, err := cli.c.UserSvc.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Empty(t, root.SchoolID)
	assert.True(t, root.IsSuperAdmin())

	t.Run("Existing users are updated", func(t *testing.T) {
		cliTest{
			name: "by email",
			args: []string{"adduser", "--username", "someone", "--email", "boss@test.cd", "--roles", user.RoleAdmin + "," + user.RoleTeacher},
			pwd:  "mdr",
		}.run(t, cli)

		usr, err := cli.c.UserSvc.GetByID(ctx, boss.ID)
		require.NoError(t, err)
		assert.Equal(t, "boss", usr.Username)
		assert.ElementsMatch(t, []string{user.RoleAdmin, user.RoleTeacher}, usr.Roles)
		assert.NoError(t, usr.CheckPassword("mdr"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)
	sch := testutil.CreateSchool(t, cli.c, "Umoja", "UMOJA")
	usr := testutil.CreateUser(t, cli.c.DB, sch.ID, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []struct {
		cliTest
		wantPwd string
	}{
		{cliTest: cliTest{name: "no args", args: []string{"resetpassword"}, pwd: "lol", wantErrStr: `required flag(s) "username" not set`}},
		{cliTest: cliTest{name: "username but no password", args: []string{"resetpassword", "--username", "awe"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound}},
		{cliTest: cliTest{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, pwd: "lol"}, wantPwd: "lol"},
		{cliTest: cliTest{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, pwd: "lmao"}, wantPwd: "lmao"},
	}
	for _, tt := range tests {
		tt.run(t, cli)
		if tt.wantPwd != "" {
			refreshed, err := cli.c.UserSvc.GetByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.wantPwd), tt.name)
		}
	}
}

func Test_commandLine_recalcWorkingDays(t *testing.T) {
	cli, out := setup(t)
	sch := testutil.CreateSchool(t, cli.c, "Umoja", "UMOJA")
	first := testutil.CreateSession(t, cli.c, sch.ID, "2023-2024", "2023-09-04", "2024-06-28")
	second := testutil.CreateSession(t, cli.c, sch.ID, "2024-2025", "2024-09-02", "2025-06-30")

	for _, tt := range []cliTest{
		{name: "school required", args: []string{"recalcworkingdays"}, wantErrStr: `required flag(s) "school" not set`},
		{name: "one session", args: []string{"recalcworkingdays", "--school", sch.ID, "--session", first.ID}},
	} {
		tt.run(t, cli)
	}
	assert.Equal(t, fmt.Sprintf("2023-2024: %d working days\n", first.WorkingDays), out.String())

	out.Reset()
	cliTest{name: "all sessions", args: []string{"recalcworkingdays", "--school", sch.ID}}.run(t, cli)
	assert.Contains(t, out.String(), fmt.Sprintf("2023-2024: %d working days\n", first.WorkingDays))
	assert.Contains(t, out.String(), fmt.Sprintf("2024-2025: %d working days\n", second.WorkingDays))

	cliTest{
		name:    "unknown session",
		args:    []string{"recalcworkingdays", "--school", sch.ID, "--session", "nope"},
		wantErr: calendar.ErrSessionNotFound,
	}.run(t, cli)
}
