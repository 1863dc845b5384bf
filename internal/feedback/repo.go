package feedback

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
)

type Repository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Feedback, int64, error)
	List(ctx context.Context, status string, offset, limit int) ([]models.Feedback, int64, error)
	Update(ctx context.Context, feedback *models.Feedback) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, feedback *models.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&feedback).Error; err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Feedback, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Feedback
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) List(ctx context.Context, status string, offset, limit int) ([]models.Feedback, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Feedback{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Feedback
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) Update(ctx context.Context, feedback *models.Feedback) error {
	return r.db.WithContext(ctx).Save(feedback).Error
}
