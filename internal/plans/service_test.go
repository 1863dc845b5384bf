package plans

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
)

type stubPlanRepo struct {
	byCode map[string]*models.Plan
	byID   map[uuid.UUID]*models.Plan

	created *models.Plan
	updated *models.Plan
}

func newStubPlanRepo() *stubPlanRepo {
	return &stubPlanRepo{
		byCode: map[string]*models.Plan{},
		byID:   map[uuid.UUID]*models.Plan{},
	}
}

func (s *stubPlanRepo) add(plan *models.Plan) {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	s.byCode[plan.Code] = plan
	s.byID[plan.ID] = plan
}

func (s *stubPlanRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPlanRepo) List(ctx context.Context) ([]models.Plan, error) {
	out := make([]models.Plan, 0, len(s.byCode))
	for _, p := range s.byCode {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPlanRepo) FindByCode(ctx context.Context, code string) (*models.Plan, error) {
	if p, ok := s.byCode[code]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPlanRepo) Create(ctx context.Context, plan *models.Plan) error {
	s.created = plan
	s.add(plan)
	return nil
}

func (s *stubPlanRepo) Update(ctx context.Context, plan *models.Plan) error {
	s.updated = plan
	return nil
}

func proPlan() *models.Plan {
	return &models.Plan{
		ID:       uuid.New(),
		Code:     "pro",
		Name:     "Pro",
		Price:    decimal.RequireFromString("9.99"),
		Currency: "EUR",
		Interval: enums.BillingPeriodMonth,
		Limits:   models.PlanLimits{InvoicesPerMonth: -1, Clients: -1, Storage: "5GB"},
	}
}

func TestGetByCodeNotFound(t *testing.T) {
	svc, err := NewService(newStubPlanRepo())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.GetByCode(context.Background(), "ghost")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGetByCodeNormalizesInput(t *testing.T) {
	repo := newStubPlanRepo()
	repo.add(proPlan())
	svc, _ := NewService(repo)

	dto, err := svc.GetByCode(context.Background(), "  PRO ")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if dto.Code != "pro" {
		t.Fatalf("unexpected code %q", dto.Code)
	}
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	repo := newStubPlanRepo()
	repo.add(proPlan())
	svc, _ := NewService(repo)

	_, err := svc.Create(context.Background(), CreatePlanInput{
		Code:     "pro",
		Name:     "Pro Again",
		Price:    decimal.RequireFromString("19.99"),
		Interval: enums.BillingPeriodMonth,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestCreateDefaultsCurrency(t *testing.T) {
	repo := newStubPlanRepo()
	svc, _ := NewService(repo)

	dto, err := svc.Create(context.Background(), CreatePlanInput{
		Code:     "business",
		Name:     "Business",
		Price:    decimal.RequireFromString("29.99"),
		Interval: enums.BillingPeriodMonth,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if dto.Currency != "EUR" {
		t.Fatalf("expected default currency EUR, got %q", dto.Currency)
	}
}

func TestUpdateKeepsPriceImmutable(t *testing.T) {
	repo := newStubPlanRepo()
	plan := proPlan()
	repo.add(plan)
	svc, _ := NewService(repo)

	name := "Pro Max"
	features := []string{"Everything"}
	dto, err := svc.Update(context.Background(), plan.ID, UpdatePlanInput{
		Name:     &name,
		Features: &features,
	})
	if err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if dto.Name != "Pro Max" {
		t.Fatalf("expected updated name, got %q", dto.Name)
	}
	if !dto.Price.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("price must not change, got %s", dto.Price)
	}
}
