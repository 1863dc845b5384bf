package admin

import (
	"net/http"

	"github.com/riasas/ria-backend/api/responses"
	"github.com/riasas/ria-backend/internal/analytics"
	"github.com/riasas/ria-backend/internal/audit"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

const recentAuditEntries = 10

// Overview returns the dashboard headline numbers plus the latest audit trail
// entries so the admin landing page needs a single round trip.
func Overview(analyticsSvc analytics.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if analyticsSvc == nil || auditSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin services unavailable"))
			return
		}

		overview, err := analyticsSvc.Overview(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recent, err := auditSvc.Recent(r.Context(), recentAuditEntries)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"overview":      overview,
			"recentActions": recent,
		})
	}
}

// Stats serves the time-series analytics behind the admin charts. The period
// defaults to a week when the query parameter is missing or unknown.
func Stats(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		period := analytics.ParsePeriod(r.URL.Query().Get("period"))
		stats, err := svc.Stats(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
