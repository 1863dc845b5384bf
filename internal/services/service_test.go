package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type stubServiceRepo struct {
	rows map[uuid.UUID]*models.Service
}

func newStubServiceRepo() *stubServiceRepo {
	return &stubServiceRepo{rows: map[uuid.UUID]*models.Service{}}
}

func (s *stubServiceRepo) Create(ctx context.Context, svc *models.Service) error {
	svc.ID = uuid.New()
	s.rows[svc.ID] = svc
	return nil
}

func (s *stubServiceRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Service, error) {
	if svc, ok := s.rows[id]; ok && svc.UserID == userID {
		return svc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubServiceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Service, error) {
	var rows []models.Service
	for _, svc := range s.rows {
		if svc.UserID == userID {
			rows = append(rows, *svc)
		}
	}
	return rows, nil
}

func (s *stubServiceRepo) Update(ctx context.Context, svc *models.Service) error {
	s.rows[svc.ID] = svc
	return nil
}

func (s *stubServiceRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	delete(s.rows, id)
	return nil
}

func newServicesService(t *testing.T, repo *stubServiceRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc := newServicesService(t, newStubServiceRepo())

	_, err := svc.Create(context.Background(), uuid.New(), ServiceInput{
		Name:  "Consulting",
		Price: decimal.RequireFromString("-1"),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestUpdateScopesToOwner(t *testing.T) {
	repo := newStubServiceRepo()
	owner := uuid.New()
	row := &models.Service{ID: uuid.New(), UserID: owner, Name: "Consulting"}
	repo.rows[row.ID] = row
	svc := newServicesService(t, repo)

	_, err := svc.Update(context.Background(), uuid.New(), row.ID, ServiceInput{Name: "Hacked"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for other tenant, got %v", err)
	}

	dto, err := svc.Update(context.Background(), owner, row.ID, ServiceInput{
		Name:  "Consulting (hourly)",
		Price: decimal.RequireFromString("95.00"),
	})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if dto.Name != "Consulting (hourly)" || !dto.Price.Equal(decimal.RequireFromString("95.00")) {
		t.Fatalf("update not applied: %+v", dto)
	}
}
