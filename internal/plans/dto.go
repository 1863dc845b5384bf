package plans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
)

// PlanDTO is the API-facing shape of a pricing plan.
type PlanDTO struct {
	ID        uuid.UUID           `json:"id"`
	Code      string              `json:"code"`
	Name      string              `json:"name"`
	Price     decimal.Decimal     `json:"price"`
	Currency  string              `json:"currency"`
	Interval  enums.BillingPeriod `json:"interval"`
	Features  []string            `json:"features"`
	Limits    models.PlanLimits   `json:"limits"`
	IsFree    bool                `json:"is_free"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// FromModel maps a plan row to its DTO.
func FromModel(plan *models.Plan) *PlanDTO {
	if plan == nil {
		return nil
	}
	features := make([]string, len(plan.Features))
	copy(features, plan.Features)
	return &PlanDTO{
		ID:        plan.ID,
		Code:      plan.Code,
		Name:      plan.Name,
		Price:     plan.Price,
		Currency:  plan.Currency,
		Interval:  plan.Interval,
		Features:  features,
		Limits:    plan.Limits,
		IsFree:    plan.IsFree(),
		CreatedAt: plan.CreatedAt,
		UpdatedAt: plan.UpdatedAt,
	}
}
