package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
)

// Repository scopes every query by owner.
type Repository interface {
	Create(ctx context.Context, svc *models.Service) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Service, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Service, error)
	Update(ctx context.Context, svc *models.Service) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a services repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, svc *models.Service) error {
	return r.db.WithContext(ctx).Create(svc).Error
}

func (r *repository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&svc).Error
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Service, error) {
	var rows []models.Service
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, svc *models.Service) error {
	return r.db.WithContext(ctx).Save(svc).Error
}

func (r *repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Service{}, "id = ?", id).Error
}
