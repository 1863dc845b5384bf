package plans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
)

// FreePlanCode is the plan every account starts on and falls back to when a
// paid subscription ends.
const FreePlanCode = "free"

// Service exposes pricing plan operations.
type Service interface {
	List(ctx context.Context) ([]PlanDTO, error)
	GetByCode(ctx context.Context, code string) (*PlanDTO, error)
	Create(ctx context.Context, input CreatePlanInput) (*PlanDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*PlanDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds a plans service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("plans repository required")
	}
	return &service{repo: repo}, nil
}

// CreatePlanInput captures the fields required to define a new plan.
type CreatePlanInput struct {
	Code     string
	Name     string
	Price    decimal.Decimal
	Currency string
	Interval enums.BillingPeriod
	Features []string
	Limits   models.PlanLimits
}

// UpdatePlanInput captures the admin-editable plan fields. Price, currency
// and interval stay fixed for the life of a plan.
type UpdatePlanInput struct {
	Name     *string
	Features *[]string
	Limits   *models.PlanLimits
}

func (s *service) List(ctx context.Context) ([]PlanDTO, error) {
	plans, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	out := make([]PlanDTO, 0, len(plans))
	for i := range plans {
		out = append(out, *FromModel(&plans[i]))
	}
	return out, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*PlanDTO, error) {
	plan, err := s.repo.FindByCode(ctx, strings.TrimSpace(strings.ToLower(code)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	return FromModel(plan), nil
}

func (s *service) Create(ctx context.Context, input CreatePlanInput) (*PlanDTO, error) {
	code := strings.TrimSpace(strings.ToLower(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan code required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan price cannot be negative")
	}
	if !input.Interval.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing interval")
	}

	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan code already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check plan code")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "EUR"
	}

	plan := &models.Plan{
		Code:     code,
		Name:     strings.TrimSpace(input.Name),
		Price:    input.Price,
		Currency: currency,
		Interval: input.Interval,
		Features: pq.StringArray(input.Features),
		Limits:   input.Limits,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plan")
	}
	return FromModel(plan), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*PlanDTO, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name cannot be empty")
		}
		plan.Name = name
	}
	if input.Features != nil {
		plan.Features = pq.StringArray(*input.Features)
	}
	if input.Limits != nil {
		plan.Limits = *input.Limits
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan")
	}
	return FromModel(plan), nil
}
