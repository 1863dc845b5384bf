package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/api/responses"
	"github.com/riasas/ria-backend/api/validators"
	"github.com/riasas/ria-backend/internal/audit"
	"github.com/riasas/ria-backend/internal/plans"
	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type createPlanRequest struct {
	Code     string             `json:"code" validate:"required,max=40"`
	Name     string             `json:"name" validate:"required,max=120"`
	Price    decimal.Decimal    `json:"price"`
	Currency string             `json:"currency" validate:"required,len=3"`
	Interval string             `json:"interval" validate:"required,oneof=month year"`
	Features []string           `json:"features"`
	Limits   *models.PlanLimits `json:"limits"`
}

type updatePlanRequest struct {
	Name     *string            `json:"name" validate:"omitempty,max=120"`
	Features *[]string          `json:"features"`
	Limits   *models.PlanLimits `json:"limits"`
}

func PlanCreate(svc plans.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		var payload createPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		interval, err := enums.ParseBillingPeriod(payload.Interval)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing interval"))
			return
		}

		input := plans.CreatePlanInput{
			Code:     payload.Code,
			Name:     payload.Name,
			Price:    payload.Price,
			Currency: payload.Currency,
			Interval: interval,
			Features: payload.Features,
		}
		if payload.Limits != nil {
			input.Limits = *payload.Limits
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := created.ID.String()
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionUpdatePlan, &target, map[string]string{"code": payload.Code}); err != nil {
			logg.Error(r.Context(), "record plan create audit entry", err)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func PlanUpdate(svc plans.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := validators.ParsePathUUID(chi.URLParam(r, "planId"), "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), planID, plans.UpdatePlanInput{
			Name:     payload.Name,
			Features: payload.Features,
			Limits:   payload.Limits,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := planID.String()
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionUpdatePlan, &target, nil); err != nil {
			logg.Error(r.Context(), "record plan update audit entry", err)
		}
		responses.WriteSuccess(w, updated)
	}
}
