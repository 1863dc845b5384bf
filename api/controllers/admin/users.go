package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riasas/ria-backend/api/responses"
	"github.com/riasas/ria-backend/api/validators"
	"github.com/riasas/ria-backend/internal/audit"
	"github.com/riasas/ria-backend/internal/users"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func userListFilter(r *http.Request) (users.ListFilter, error) {
	filter := users.ListFilter{Query: r.URL.Query().Get("q")}

	if raw := r.URL.Query().Get("role"); raw != "" {
		role := enums.UserRole(raw)
		if !role.IsValid() {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
		}
		filter.Role = &role
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParseUserStatus(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.Status = &status
	}
	return filter, nil
}

func UserList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		filter, err := userListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, result, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, items, result)
	}
}

func UserSuspend(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suspended, err := svc.Suspend(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := userID.String()
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionSuspendUser, &target, nil); err != nil {
			logg.Error(r.Context(), "record suspend audit entry", err)
		}
		responses.WriteSuccess(w, suspended)
	}
}

func UserActivate(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activated, err := svc.Activate(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := userID.String()
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionActivateUser, &target, nil); err != nil {
			logg.Error(r.Context(), "record activate audit entry", err)
		}
		responses.WriteSuccess(w, activated)
	}
}

func UserDelete(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := userID.String()
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionDeleteUser, &target, nil); err != nil {
			logg.Error(r.Context(), "record delete audit entry", err)
		}
		responses.WriteSuccess(w, nil)
	}
}

func UserChangeRole(svc users.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changeRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := enums.UserRole(payload.Role)
		if !role.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid role"))
			return
		}

		change, err := svc.ChangeRole(r.Context(), userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := userID.String()
		metadata := map[string]string{
			"oldRole": change.OldRole.String(),
			"newRole": change.NewRole.String(),
		}
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionChangeRole, &target, metadata); err != nil {
			logg.Error(r.Context(), "record role change audit entry", err)
		}
		responses.WriteSuccess(w, change.User)
	}
}
