package auth

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", TenantID: "t1", RoleID: "r1", RoleName: RoleHR, SessionID: "s1"}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.UserID != claims.UserID || parsed.TenantID != claims.TenantID || parsed.RoleID != claims.RoleID {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
	if parsed.RoleName != claims.RoleName || parsed.SessionID != claims.SessionID {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected parse to fail with wrong secret")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("expected stable hash")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("expected distinct hashes")
	}
}

func TestValidatePassword(t *testing.T) {
	valid := []string{"Stronger123", "Abcdefg1", "xYz12345"}
	for _, password := range valid {
		if err := ValidatePassword(password); err != nil {
			t.Fatalf("expected %q to pass, got %v", password, err)
		}
	}

	invalid := []string{
		"S1hort",        // too short
		"longpassword1", // no uppercase
		"LONGPASSWORD1", // no lowercase
		"LongPassword",  // no digit
	}
	for _, password := range invalid {
		if err := ValidatePassword(password); err == nil {
			t.Fatalf("expected %q to be rejected", password)
		}
	}
}

func TestElevatedRoles(t *testing.T) {
	for _, role := range []string{RoleHR, RoleAdmin, RoleSuperAdmin} {
		if !Elevated(role) {
			t.Fatalf("expected %s to be elevated", role)
		}
	}
	for _, role := range []string{RoleEmployee, RoleManager, ""} {
		if Elevated(role) {
			t.Fatalf("did not expect %s to be elevated", role)
		}
	}
}
