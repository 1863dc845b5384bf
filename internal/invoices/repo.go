package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
)

// Repository scopes every query by owner.
type Repository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error)
	FindLastByUser(ctx context.Context, userID uuid.UUID) (*models.Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *enums.InvoiceStatus) ([]models.Invoice, error)
	Update(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	CountInMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an invoices repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindLastByUser(ctx context.Context, userID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, status *enums.InvoiceStatus) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.Invoice
	err := query.Order("issue_date DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func (r *repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Invoice{}, "id = ?", id).Error
}

// CountInMonth counts invoices created in the given calendar month, the
// input to the per-month usage limit.
func (r *repository) CountInMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) (int64, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Count(&count).Error
	return count, err
}
