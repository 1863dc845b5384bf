package admin

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riasas/ria-backend/api/responses"
	"github.com/riasas/ria-backend/internal/audit"
	"github.com/riasas/ria-backend/internal/settings"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

func SettingsGet(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		all, err := svc.GetAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, all)
	}
}

func SettingsGetSection(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		section, err := svc.GetSection(r.Context(), chi.URLParam(r, "section"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, section)
	}
}

// SettingsUpdateSection replaces a whole settings section. The payload is
// handed to the service raw; it owns schema validation per section.
func SettingsUpdateSection(svc settings.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		if len(body) == 0 || !json.Valid(body) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body must be a JSON object"))
			return
		}

		section := chi.URLParam(r, "section")
		updated, err := svc.UpdateSection(r.Context(), section, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionUpdateSettings, &section, json.RawMessage(body)); err != nil {
			logg.Error(r.Context(), "record settings update audit entry", err)
		}
		responses.WriteSuccess(w, updated)
	}
}
