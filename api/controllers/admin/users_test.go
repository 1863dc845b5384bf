package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/riasas/ria-backend/api/middleware"
	"github.com/riasas/ria-backend/internal/audit"
	"github.com/riasas/ria-backend/internal/users"
	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/pagination"
)

type stubAdminUserService struct {
	suspended  []uuid.UUID
	deleted    []uuid.UUID
	roleChange *users.RoleChange
	listFilter users.ListFilter
	err        error
}

func (s *stubAdminUserService) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	return nil, s.err
}

func (s *stubAdminUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, s.err
}

func (s *stubAdminUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, s.err
}

func (s *stubAdminUserService) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*users.UserDTO, error) {
	return nil, s.err
}

func (s *stubAdminUserService) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return s.err
}

func (s *stubAdminUserService) List(ctx context.Context, filter users.ListFilter, params pagination.Params) ([]users.UserDTO, *pagination.Result, error) {
	s.listFilter = filter
	return []users.UserDTO{}, &pagination.Result{Page: params.Page, Limit: params.Limit}, s.err
}

func (s *stubAdminUserService) ChangeRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*users.RoleChange, error) {
	return s.roleChange, s.err
}

func (s *stubAdminUserService) Suspend(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	s.suspended = append(s.suspended, id)
	return &users.UserDTO{ID: id}, s.err
}

func (s *stubAdminUserService) Activate(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: id}, s.err
}

func (s *stubAdminUserService) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

type recordedAction struct {
	actor  audit.Actor
	action string
	target *string
}

type stubAuditService struct {
	records []recordedAction
}

func (s *stubAuditService) Record(ctx context.Context, actor audit.Actor, action string, target *string, metadata any) error {
	s.records = append(s.records, recordedAction{actor: actor, action: action, target: target})
	return nil
}

func (s *stubAuditService) List(ctx context.Context, params pagination.Params) ([]audit.EntryDTO, *pagination.Result, error) {
	return nil, nil, nil
}

func (s *stubAuditService) Recent(ctx context.Context, limit int) ([]audit.EntryDTO, error) {
	return nil, nil
}

func adminRequest(method, target string, body []byte, pathKey, pathValue string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithEmail(ctx, "root@ria.app")
	ctx = middleware.WithRole(ctx, string(enums.UserRoleSuperadmin))

	if pathKey != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add(pathKey, pathValue)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func adminLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestUserSuspendRecordsAuditEntry(t *testing.T) {
	userSvc := &stubAdminUserService{}
	auditSvc := &stubAuditService{}
	handler := UserSuspend(userSvc, auditSvc, adminLogger())

	targetID := uuid.New()
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest(http.MethodPost, "/api/admin/v1/users/"+targetID.String()+"/suspend", nil, "userId", targetID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(userSvc.suspended) != 1 || userSvc.suspended[0] != targetID {
		t.Fatal("suspend should reach the service")
	}
	if len(auditSvc.records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(auditSvc.records))
	}
	entry := auditSvc.records[0]
	if entry.action != audit.ActionSuspendUser {
		t.Fatalf("unexpected action %q", entry.action)
	}
	if entry.actor.Email != "root@ria.app" {
		t.Fatalf("actor email not captured, got %q", entry.actor.Email)
	}
	if entry.target == nil || *entry.target != targetID.String() {
		t.Fatal("target should be the suspended user id")
	}
}

func TestUserSuspendRejectsBadID(t *testing.T) {
	userSvc := &stubAdminUserService{}
	auditSvc := &stubAuditService{}
	handler := UserSuspend(userSvc, auditSvc, adminLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest(http.MethodPost, "/api/admin/v1/users/nope/suspend", nil, "userId", "nope"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if len(userSvc.suspended) != 0 || len(auditSvc.records) != 0 {
		t.Fatal("nothing should be recorded for a bad id")
	}
}

func TestUserListParsesFilters(t *testing.T) {
	userSvc := &stubAdminUserService{}
	handler := UserList(userSvc, adminLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/v1/users?q=acme&role=user&status=suspended", nil, "", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if userSvc.listFilter.Query != "acme" {
		t.Fatalf("query filter not forwarded, got %q", userSvc.listFilter.Query)
	}
	if userSvc.listFilter.Role == nil || *userSvc.listFilter.Role != enums.UserRoleUser {
		t.Fatal("role filter not forwarded")
	}
	if userSvc.listFilter.Status == nil || *userSvc.listFilter.Status != enums.UserStatusSuspended {
		t.Fatal("status filter not forwarded")
	}
}

func TestUserListRejectsUnknownRole(t *testing.T) {
	handler := UserList(&stubAdminUserService{}, adminLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/v1/users?role=emperor", nil, "", ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", resp.Code)
	}
}

func TestUserChangeRoleRecordsOldAndNewRole(t *testing.T) {
	targetID := uuid.New()
	userSvc := &stubAdminUserService{roleChange: &users.RoleChange{
		User:    &users.UserDTO{ID: targetID},
		OldRole: enums.UserRoleUser,
		NewRole: enums.UserRoleAdmin,
	}}
	auditSvc := &stubAuditService{}
	handler := UserChangeRole(userSvc, auditSvc, adminLogger())

	body, _ := json.Marshal(changeRoleRequest{Role: "admin"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest(http.MethodPut, "/api/admin/v1/users/"+targetID.String()+"/role", body, "userId", targetID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(auditSvc.records) != 1 || auditSvc.records[0].action != audit.ActionChangeRole {
		t.Fatal("role change should be audited")
	}
}

func TestUserChangeRoleRejectsUnknownRole(t *testing.T) {
	auditSvc := &stubAuditService{}
	handler := UserChangeRole(&stubAdminUserService{}, auditSvc, adminLogger())

	targetID := uuid.New()
	body, _ := json.Marshal(changeRoleRequest{Role: "emperor"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest(http.MethodPut, "/api/admin/v1/users/"+targetID.String()+"/role", body, "userId", targetID.String()))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if len(auditSvc.records) != 0 {
		t.Fatal("rejected changes must not be audited")
	}
}
