package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

// ServiceDTO is the transport shape of a billable service template.
type ServiceDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ServiceInput carries the editable fields.
type ServiceInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

func FromModel(m *models.Service) *ServiceDTO {
	if m == nil {
		return nil
	}
	return &ServiceDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// Service manages a tenant's reusable billing line items.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]ServiceDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*ServiceDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input ServiceInput) (*ServiceDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input ServiceInput) (*ServiceDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "services repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ServiceDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list services")
	}
	dtos := make([]ServiceDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*ServiceDTO, error) {
	svc, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(svc), nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input ServiceInput) (*ServiceDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	svc := &models.Service{UserID: userID}
	applyInput(svc, input)
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create service")
	}
	return FromModel(svc), nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input ServiceInput) (*ServiceDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	svc, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	applyInput(svc, input)
	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update service")
	}
	return FromModel(svc), nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete service")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID, id uuid.UUID) (*models.Service, error) {
	svc, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	return svc, nil
}

func validateInput(input ServiceInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "service name is required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return nil
}

func applyInput(svc *models.Service, input ServiceInput) {
	svc.Name = strings.TrimSpace(input.Name)
	svc.Description = strings.TrimSpace(input.Description)
	svc.Price = input.Price
}
