package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"

	"fairloan.org/internal/auth"
)

func newAuthAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("FAIRLOAN_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Setenv("FAIRLOAN_ADMIN_SECRET", "s3cret")
	ResetAdminSecretForTests()
	t.Cleanup(ResetAdminSecretForTests)
	return &API{adminSecret: adminSecret()}
}

func TestRequireAdminWithSecretHeader(t *testing.T) {
	api := newAuthAPI(t)

	req := httptest.NewRequest("GET", "/v1/admin/stats", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	if err := api.requireAdmin(req); err != nil {
		t.Fatalf("expected raw secret accepted: %v", err)
	}

	req.Header.Set("X-Admin-Secret", "wrong")
	if err := api.requireAdmin(req); err == nil {
		t.Fatal("expected wrong secret rejected")
	}
}

func TestRequireAdminWithSessionToken(t *testing.T) {
	api := newAuthAPI(t)

	token, err := auth.GenerateToken("admin", "admin", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if err := api.requireAdmin(req); err != nil {
		t.Fatalf("expected admin token accepted: %v", err)
	}
}

func TestRequireAdminRejectsNonAdminRole(t *testing.T) {
	api := newAuthAPI(t)

	token, err := auth.GenerateToken("viewer", "viewer", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if err := api.requireAdmin(req); err == nil {
		t.Fatal("expected non-admin role rejected")
	}
}

func TestRequireAdminRejectsMissingCredentials(t *testing.T) {
	api := newAuthAPI(t)

	req := httptest.NewRequest("GET", "/v1/admin/stats", nil)
	if err := api.requireAdmin(req); err == nil {
		t.Fatal("expected missing credentials rejected")
	}

	req.Header.Set("Authorization", "Basic abc")
	if err := api.requireAdmin(req); err == nil {
		t.Fatal("expected non-bearer scheme rejected")
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, err := extractBearerToken(""); err == nil {
		t.Fatal("expected error for empty header")
	}
	if _, err := extractBearerToken("Bearer "); err == nil {
		t.Fatal("expected error for empty token")
	}
	tok, err := extractBearerToken("bearer abc123")
	if err != nil || tok != "abc123" {
		t.Fatalf("case-insensitive scheme should parse, got %q, %v", tok, err)
	}
}
