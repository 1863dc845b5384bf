package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
)

// PaidInvoice is the slice of an invoice the revenue series needs.
type PaidInvoice struct {
	PaidDate time.Time
	Total    decimal.Decimal
}

// Repository exposes cross-tenant, read-only aggregates for the admin
// dashboard. Raw timestamps are returned where a series is built, so day
// bucketing stays in one place and does not depend on driver date functions.
type Repository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountUsersWithStatus(ctx context.Context, status enums.UserStatus) (int64, error)
	CountUsersCreatedBefore(ctx context.Context, before time.Time) (int64, error)
	UserCreationTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)

	ActiveSubscriptionCountByPlan(ctx context.Context) (map[string]int64, error)
	CountSubscriptionsWithStatus(ctx context.Context, status enums.SubscriptionStatus) (int64, error)
	CountActiveStartedBefore(ctx context.Context, before time.Time) (int64, error)
	ActiveStartTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
	CancellationTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
	CountCanceledBetween(ctx context.Context, from, to time.Time) (int64, error)

	PaidInvoicesBetween(ctx context.Context, from, to time.Time) ([]PaidInvoice, error)

	CountFeedbackWithStatuses(ctx context.Context, statuses ...string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an analytics repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *repository) CountUsersWithStatus(ctx context.Context, status enums.UserStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *repository) CountUsersCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("created_at < ?", before).
		Count(&count).Error
	return count, err
}

func (r *repository) UserCreationTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Pluck("created_at", &times).Error
	return times, err
}

func (r *repository) ActiveSubscriptionCountByPlan(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Plan  string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Select("plan, COUNT(*) AS count").
		Where("status = ?", enums.SubscriptionStatusActive).
		Group("plan").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Plan] = row.Count
	}
	return counts, nil
}

func (r *repository) CountSubscriptionsWithStatus(ctx context.Context, status enums.SubscriptionStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *repository) CountActiveStartedBefore(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND start_date < ?", enums.SubscriptionStatusActive, before).
		Count(&count).Error
	return count, err
}

func (r *repository) ActiveStartTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND start_date >= ? AND start_date < ?", enums.SubscriptionStatusActive, from, to).
		Pluck("start_date", &times).Error
	return times, err
}

func (r *repository) CancellationTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("canceled_at IS NOT NULL AND canceled_at >= ? AND canceled_at < ?", from, to).
		Pluck("canceled_at", &times).Error
	return times, err
}

func (r *repository) CountCanceledBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("canceled_at IS NOT NULL AND canceled_at >= ? AND canceled_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *repository) PaidInvoicesBetween(ctx context.Context, from, to time.Time) ([]PaidInvoice, error) {
	var rows []struct {
		PaidDate time.Time
		Total    decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("paid_date, total").
		Where("status = ? AND paid_date IS NOT NULL AND paid_date >= ? AND paid_date < ?", enums.InvoiceStatusPaid, from, to).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	invoices := make([]PaidInvoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, PaidInvoice{PaidDate: row.PaidDate, Total: row.Total})
	}
	return invoices, nil
}

func (r *repository) CountFeedbackWithStatuses(ctx context.Context, statuses ...string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Feedback{}).
		Where("status IN ?", statuses).
		Count(&count).Error
	return count, err
}
