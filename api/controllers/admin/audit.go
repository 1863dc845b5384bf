package admin

import (
	"net/http"

	"github.com/riasas/ria-backend/api/responses"
	"github.com/riasas/ria-backend/api/validators"
	"github.com/riasas/ria-backend/internal/audit"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

func AuditList(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, entries, result)
	}
}
