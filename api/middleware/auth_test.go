package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/riasas/ria-backend/pkg/auth"
	"github.com/riasas/ria-backend/pkg/config"
	"github.com/riasas/ria-backend/pkg/enums"
	"github.com/riasas/ria-backend/pkg/logger"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret-32-bytes-minimum-pad",
		Issuer:            "ria-test",
		ExpirationMinutes: 60,
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig(), logger.New(logger.Options{ServiceName: "test"}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	handler := Auth(testJWTConfig(), logger.New(logger.Options{ServiceName: "test"}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthSeedsContextFromClaims(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Email:  "owner@example.com",
		Role:   enums.UserRoleAdmin,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var gotUserID, gotEmail, gotRole string
	handler := Auth(cfg, logger.New(logger.Options{ServiceName: "test"}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotEmail = EmailFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotUserID != userID.String() {
		t.Fatalf("user id not seeded, got %q", gotUserID)
	}
	if gotEmail != "owner@example.com" || gotRole != "admin" {
		t.Fatalf("claims not seeded, got email=%q role=%q", gotEmail, gotRole)
	}
}

func TestRequireSuperAdminBlocksLowerRoles(t *testing.T) {
	handler := RequireSuperAdmin(logger.New(logger.Options{ServiceName: "test"}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler should not run")
	}))

	for _, role := range []string{"user", "admin", ""} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/overview", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)

		if resp.Code != http.StatusForbidden {
			t.Fatalf("role %q: expected 403, got %d", role, resp.Code)
		}
	}
}

func TestRequireSuperAdminAllowsSuperadmin(t *testing.T) {
	called := false
	handler := RequireSuperAdmin(logger.New(logger.Options{ServiceName: "test"}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/overview", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.UserRoleSuperadmin)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if !called {
		t.Fatal("superadmin should pass")
	}
}
