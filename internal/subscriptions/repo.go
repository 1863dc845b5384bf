package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
)

// Repository provides access to subscriptions and their gateway invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindCurrentByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CountCurrentByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	// FindCurrentByUserIDForUpdate takes a row lock so concurrent lifecycle
	// transitions for the same user serialize.
	FindCurrentByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error

	ListInvoices(ctx context.Context, subscriptionID uuid.UUID, status *enums.SubscriptionInvoiceStatus, offset, limit int) ([]models.SubscriptionInvoice, int64, error)
	FindInvoiceByStripeID(ctx context.Context, stripeInvoiceID string) (*models.SubscriptionInvoice, error)
	SaveInvoice(ctx context.Context, invoice *models.SubscriptionInvoice) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscriptions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCurrentByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, enums.SubscriptionStatusCanceled).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) CountCurrentByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND status <> ?", userID, enums.SubscriptionStatusCanceled).
		Count(&n).Error
	return n, err
}

func (r *repository) FindCurrentByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status <> ?", userID, enums.SubscriptionStatusCanceled).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Update(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) ListInvoices(ctx context.Context, subscriptionID uuid.UUID, status *enums.SubscriptionInvoiceStatus, offset, limit int) ([]models.SubscriptionInvoice, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SubscriptionInvoice{}).
		Where("subscription_id = ?", subscriptionID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []models.SubscriptionInvoice
	err := query.
		Order("invoice_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *repository) FindInvoiceByStripeID(ctx context.Context, stripeInvoiceID string) (*models.SubscriptionInvoice, error) {
	var invoice models.SubscriptionInvoice
	err := r.db.WithContext(ctx).
		Where("stripe_invoice_id = ?", stripeInvoiceID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) SaveInvoice(ctx context.Context, invoice *models.SubscriptionInvoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}
