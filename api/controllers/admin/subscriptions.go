package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riasas/ria-backend/api/responses"
	"github.com/riasas/ria-backend/api/validators"
	"github.com/riasas/ria-backend/internal/audit"
	"github.com/riasas/ria-backend/internal/subscriptions"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type assignPlanRequest struct {
	PlanCode      string `json:"planCode" validate:"required"`
	BillingPeriod string `json:"billingPeriod" validate:"required,oneof=month year"`
}

// SubscriptionAssignPlan moves a user onto a plan without going through
// checkout. Gateway billing is not touched; this is the support escape hatch
// for comps and manual corrections.
func SubscriptionAssignPlan(svc subscriptions.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		period, err := enums.ParseBillingPeriod(payload.BillingPeriod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing period"))
			return
		}

		sub, err := svc.Upgrade(r.Context(), userID, payload.PlanCode, period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := userID.String()
		metadata := map[string]string{"planCode": payload.PlanCode, "billingPeriod": payload.BillingPeriod}
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionAssignPlan, &target, metadata); err != nil {
			logg.Error(r.Context(), "record assign plan audit entry", err)
		}
		responses.WriteSuccess(w, sub)
	}
}

// SubscriptionCancel cancels a user's subscription on their behalf.
func SubscriptionCancel(svc subscriptions.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Cancel(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := userID.String()
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionCancelSubscription, &target, nil); err != nil {
			logg.Error(r.Context(), "record cancel subscription audit entry", err)
		}
		responses.WriteSuccess(w, sub)
	}
}
