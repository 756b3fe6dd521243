package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	tg := newTokenGenerator("secret", 3*24*time.Hour)

	now := time.Now()
	usr := User{
		ID:        "4b7e0f8e-5b0a-4d8e-9a53-5c1a2b3c4d5e",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken := tg.makeToken(usr)

	// generate an expired token
	dayLate := tg.timeout + (24 * time.Hour)
	tg.nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := tg.makeToken(usr)
	tg.nowFunc = time.Now // reset

	// same user, new password
	other := usr
	_ = other.SetPassword("new-pwd")

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", usr: other, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tg.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "4b7e0f8e-5b0a-4d8e-9a53-5c1a2b3c4d5e"}
	id, err := decodeUID(EncodeUID(usr))
	if err != nil {
		t.Fatalf("decodeUID() error = %v", err)
	}
	if id != usr.ID {
		t.Errorf("decodeUID() = %v, want %v", id, usr.ID)
	}
}

func TestPrimaryRole(t *testing.T) {
	tests := []struct {
		roles []string
		want  string
	}{
		{roles: nil, want: ""},
		{roles: []string{"lol"}, want: ""},
		{roles: []string{RoleStudent}, want: RoleStudent},
		{roles: []string{RoleParent, RoleTeacher}, want: RoleTeacher},
		{roles: []string{RoleTeacher, RoleAdmin, RoleParent}, want: RoleAdmin},
		{roles: []string{RoleAdmin, RoleSuperAdmin}, want: RoleSuperAdmin},
	}
	for _, tt := range tests {
		if got := PrimaryRole(tt.roles); got != tt.want {
			t.Errorf("PrimaryRole(%v) = %q, want %q", tt.roles, got, tt.want)
		}
	}
}
