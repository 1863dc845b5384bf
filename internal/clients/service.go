package clients

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

// ClientDTO is the transport shape of a tenant's client.
type ClientDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	PostalCode string    `json:"postalCode,omitempty"`
	Country    string    `json:"country,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ClientInput carries the editable fields.
type ClientInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func FromModel(c *models.Client) *ClientDTO {
	if c == nil {
		return nil
	}
	return &ClientDTO{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Address:    c.Address,
		City:       c.City,
		PostalCode: c.PostalCode,
		Country:    c.Country,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// Service manages a tenant's clients.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]ClientDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*ClientDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input ClientInput) (*ClientDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input ClientInput) (*ClientDTO, error)
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
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "clients repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ClientDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients")
	}
	dtos := make([]ClientDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*ClientDTO, error) {
	client, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(client), nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input ClientInput) (*ClientDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	client := &models.Client{UserID: userID}
	applyInput(client, input)
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create client")
	}
	return FromModel(client), nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input ClientInput) (*ClientDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	client, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	applyInput(client, input)
	if err := s.repo.Update(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client")
	}
	return FromModel(client), nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete client")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID, id uuid.UUID) (*models.Client, error) {
	client, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	return client, nil
}

func validateInput(input ClientInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client name is required")
	}
	return nil
}

func applyInput(client *models.Client, input ClientInput) {
	client.Name = strings.TrimSpace(input.Name)
	client.Email = strings.TrimSpace(input.Email)
	client.Phone = strings.TrimSpace(input.Phone)
	client.Address = strings.TrimSpace(input.Address)
	client.City = strings.TrimSpace(input.City)
	client.PostalCode = strings.TrimSpace(input.PostalCode)
	client.Country = strings.TrimSpace(input.Country)
}
