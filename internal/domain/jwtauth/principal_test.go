package jwtauth

import "testing"

func TestUserFromToken_NilToken(t *testing.T) {
	t.Parallel()

	if got := UserFromToken(nil); got != nil {
		t.Errorf("UserFromToken(nil) = %+v, want nil", got)
	}
}

func TestUserFromToken_DefaultsLoginToSub(t *testing.T) {
	t.Parallel()

	tok := &Token{Claims: Claims{Sub: "u123"}}
	user := UserFromToken(tok)
	if user.ID != "u123" || user.Login != "u123" {
		t.Errorf("UserFromToken() = %+v, want ID=Login=u123", user)
	}
	if user.Token != tok {
		t.Error("UserFromToken() did not retain the source token")
	}
}

func TestUserFromToken_CustomLoginClaimOverrides(t *testing.T) {
	t.Parallel()

	tok := &Token{Claims: Claims{
		Sub:    "u123",
		Custom: map[string]interface{}{"login": "alice"},
	}}
	user := UserFromToken(tok)
	if user.Login != "alice" {
		t.Errorf("Login = %q, want alice", user.Login)
	}
	if user.ID != "u123" {
		t.Errorf("ID = %q, want u123", user.ID)
	}
}

func TestUserFromToken_NonStringLoginClaimIgnored(t *testing.T) {
	t.Parallel()

	tok := &Token{Claims: Claims{
		Sub:    "u123",
		Custom: map[string]interface{}{"login": 42},
	}}
	user := UserFromToken(tok)
	if user.Login != "u123" {
		t.Errorf("Login = %q, want fallback to sub u123", user.Login)
	}
}
