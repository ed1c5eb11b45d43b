package auth

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	t.Setenv("FAIRLOAN_AUTH_SECRET", "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, err := GenerateToken("admin", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if !claims.IsAdmin() {
		t.Fatalf("expected admin role, got %q", claims.Role)
	}
	if claims.ID == "" {
		t.Fatalf("token id missing")
	}
}

func TestRoleIsPreservedButNotAdmin(t *testing.T) {
	t.Setenv("FAIRLOAN_AUTH_SECRET", "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, err := GenerateToken("viewer-1", "viewer", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.IsAdmin() {
		t.Fatalf("viewer must not be admin")
	}
}

func TestParseRejectsGarbageAndTampering(t *testing.T) {
	t.Setenv("FAIRLOAN_AUTH_SECRET", "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := ParseAndValidate(""); err != ErrInvalidToken {
		t.Fatalf("empty token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseAndValidate("not.a.jwt"); err != ErrInvalidToken {
		t.Fatalf("garbage token: expected ErrInvalidToken, got %v", err)
	}

	token, err := GenerateToken("admin", "admin", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := ParseAndValidate(tampered); err != ErrInvalidToken {
		t.Fatalf("tampered token: expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateWithoutSecretFails(t *testing.T) {
	t.Setenv("FAIRLOAN_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("admin", "admin", time.Hour); err == nil {
		t.Fatalf("expected error without configured secret")
	}
	if SupportsTokens() {
		t.Fatalf("SupportsTokens must be false without a secret")
	}
}
