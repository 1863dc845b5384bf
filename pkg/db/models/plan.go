package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/enums"
)

// PlanLimits holds the named usage caps for a plan. A value of -1 means
// unlimited.
type PlanLimits struct {
	InvoicesPerMonth int    `json:"invoicesPerMonth"`
	Clients          int    `json:"clients"`
	Storage          string `json:"storage"`
}

// Plan is a pricing tier. Price, currency and interval are immutable once the
// plan exists; only name, features and limits are admin-editable.
type Plan struct {
	ID        uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string              `gorm:"column:code;not null;uniqueIndex"`
	Name      string              `gorm:"column:name;not null"`
	Price     decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Currency  string              `gorm:"column:currency;not null;default:'EUR'"`
	Interval  enums.BillingPeriod `gorm:"column:interval;not null;default:'month'"`
	Features  pq.StringArray      `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	Limits    PlanLimits          `gorm:"column:limits;type:jsonb;serializer:json"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsFree reports whether the plan collects no payment.
func (p *Plan) IsFree() bool {
	return p.Price.IsZero()
}
