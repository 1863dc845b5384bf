package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/enums"
)

// Subscription is the local billing state for a user. At most one row per
// user is non-canceled; canceled rows are kept as history and never deleted.
// Price is a snapshot taken at plan-assignment time and does not follow later
// plan price changes.
type Subscription struct {
	ID                   uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Plan                 string                   `gorm:"column:plan;not null;default:'free'"`
	Status               enums.SubscriptionStatus `gorm:"column:status;not null;default:'active'"`
	BillingPeriod        enums.BillingPeriod      `gorm:"column:billing_period;not null;default:'month'"`
	Price                decimal.Decimal          `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	StartDate            time.Time                `gorm:"column:start_date;not null"`
	NextBillingDate      *time.Time               `gorm:"column:next_billing_date"`
	TrialEndsAt          *time.Time               `gorm:"column:trial_ends_at"`
	CanceledAt           *time.Time               `gorm:"column:canceled_at"`
	StripeSubscriptionID *string                  `gorm:"column:stripe_subscription_id;uniqueIndex"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCurrent reports whether the record counts as the user's live subscription.
func (s *Subscription) IsCurrent() bool {
	return s.Status != enums.SubscriptionStatusCanceled
}
