package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/api/responses"
	"github.com/riasas/ria-backend/api/validators"
	"github.com/riasas/ria-backend/internal/billing"
	"github.com/riasas/ria-backend/internal/feedback"
	"github.com/riasas/ria-backend/internal/plans"
	subsvc "github.com/riasas/ria-backend/internal/subscriptions"
	"github.com/riasas/ria-backend/internal/users"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type upgradeRequest struct {
	PlanCode      string `json:"planCode" validate:"required"`
	BillingPeriod string `json:"billingPeriod,omitempty" validate:"omitempty,oneof=month year"`
}

type downgradeRequest struct {
	PlanCode      string     `json:"planCode" validate:"required"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
}

type cancelSubscriptionRequest struct {
	Reason  string `json:"reason,omitempty" validate:"max=200"`
	Message string `json:"message,omitempty" validate:"max=2000"`
}

func SubscriptionFetch(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.GetCurrent(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

func SubscriptionUsage(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		usage, err := svc.Usage(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage)
	}
}

func SubscriptionInvoices(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.SubscriptionInvoiceStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			candidate := enums.SubscriptionInvoiceStatus(raw)
			if !candidate.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown invoice status"))
				return
			}
			status = &candidate
		}

		invoices, result, err := svc.ListInvoices(r.Context(), userID, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, invoices, result)
	}
}

// SubscriptionUpgrade switches the caller to a pricier plan. The local
// subscription row is committed first; the gateway is synced afterwards and
// webhook events reconcile whatever the sync could not apply.
func SubscriptionUpgrade(svc subsvc.Service, billingSvc billing.Service, userSvc users.Service, planSvc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || billingSvc == nil || userSvc == nil || planSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upgradeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := svc.GetCurrent(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := planSvc.GetByCode(r.Context(), payload.PlanCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		period := target.Interval
		if payload.BillingPeriod != "" {
			period = enums.BillingPeriod(payload.BillingPeriod)
		}

		updated, err := svc.Upgrade(r.Context(), userID, target.Code, period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		syncPlanAtGateway(r, billingSvc, userSvc, userID, current.StripeSubscriptionID, target.Code, logg)
		responses.WriteSuccess(w, updated)
	}
}

// SubscriptionDowngrade moves the caller to a cheaper plan, optionally at a
// future effective date.
func SubscriptionDowngrade(svc subsvc.Service, billingSvc billing.Service, userSvc users.Service, planSvc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || billingSvc == nil || userSvc == nil || planSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload downgradeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := svc.GetCurrent(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := planSvc.GetByCode(r.Context(), payload.PlanCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Downgrade(r.Context(), userID, target.Code, payload.EffectiveDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		syncPlanAtGateway(r, billingSvc, userSvc, userID, current.StripeSubscriptionID, target.Code, logg)
		responses.WriteSuccess(w, updated)
	}
}

// syncPlanAtGateway pushes a committed plan change to the payment gateway.
// Local state is already committed, so failures are logged and left for
// webhook reconciliation, never rolled back.
func syncPlanAtGateway(r *http.Request, billingSvc billing.Service, userSvc users.Service, userID uuid.UUID, gatewaySubID *string, planCode string, logg *logger.Logger) {
	user, err := userSvc.GetByID(r.Context(), userID)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "gateway plan sync skipped, user lookup failed")
		}
		return
	}
	if _, syncErr := billingSvc.SyncPlanChange(r.Context(), user, gatewaySubID, planCode); syncErr != nil && logg != nil {
		ctx := logg.WithFields(r.Context(), map[string]any{
			"plan_code": planCode,
			"error":     syncErr.Error(),
		})
		logg.Warn(ctx, "gateway plan sync failed, awaiting webhook reconciliation")
	}
}

// SubscriptionCancel cancels at period end and records the churn reason when
// one is provided.
func SubscriptionCancel(svc subsvc.Service, billingSvc billing.Service, feedbackSvc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || billingSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelSubscriptionRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		current, err := svc.GetCurrent(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		canceled, err := svc.Cancel(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if current.StripeSubscriptionID != nil {
			if gwErr := billingSvc.CancelAtGateway(r.Context(), *current.StripeSubscriptionID, false); gwErr != nil && logg != nil {
				ctx := logg.WithField(r.Context(), "error", gwErr.Error())
				logg.Warn(ctx, "gateway cancel failed, awaiting webhook reconciliation")
			}
		}

		if feedbackSvc != nil && payload.Message != "" {
			if _, fbErr := feedbackSvc.Submit(r.Context(), userID, feedback.SubmitInput{
				Type:    feedback.TypeCancellation,
				Subject: payload.Reason,
				Message: payload.Message,
			}); fbErr != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", fbErr.Error()), "cancellation feedback not recorded")
			}
		}

		// Unused-credit calculation on cancellation is not implemented; no
		// formula is specified, so the response carries a zero placeholder.
		responses.WriteSuccess(w, map[string]any{
			"subscription": canceled,
			"credits":      0,
		})
	}
}

func SubscriptionReactivate(svc subsvc.Service, billingSvc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || billingSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Reactivate(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if sub.StripeSubscriptionID != nil {
			if gwErr := billingSvc.ReactivateAtGateway(r.Context(), *sub.StripeSubscriptionID); gwErr != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", gwErr.Error()), "gateway reactivate failed, awaiting webhook reconciliation")
			}
		}

		responses.WriteSuccess(w, sub)
	}
}
