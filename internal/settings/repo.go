package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/riasas/ria-backend/pkg/db/models"
)

// Repository persists settings sections. Upsert replaces the stored document
// for a section in one statement.
type Repository interface {
	FindBySection(ctx context.Context, section string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindBySection(ctx context.Context, section string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.WithContext(ctx).
		Where("section = ?", section).
		First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) Upsert(ctx context.Context, setting *models.Setting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "section"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(setting).Error
}
