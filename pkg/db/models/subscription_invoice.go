package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/enums"
)

// SubscriptionInvoice mirrors a billing invoice issued by the payment gateway.
// Rows are written only by webhook reconciliation and upsert on the external
// invoice id, so redelivered events stay single rows.
type SubscriptionInvoice struct {
	ID              uuid.UUID                       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID  uuid.UUID                       `gorm:"column:subscription_id;type:uuid;not null;index"`
	StripeInvoiceID string                          `gorm:"column:stripe_invoice_id;not null;uniqueIndex"`
	Amount          decimal.Decimal                 `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        string                          `gorm:"column:currency;not null"`
	Status          enums.SubscriptionInvoiceStatus `gorm:"column:status;not null;default:'pending'"`
	InvoiceDate     time.Time                       `gorm:"column:invoice_date;not null"`
	DueDate         *time.Time                      `gorm:"column:due_date"`
	PaidDate        *time.Time                      `gorm:"column:paid_date"`
	PDFURL          *string                         `gorm:"column:pdf_url"`
	CreatedAt       time.Time                       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                       `gorm:"column:updated_at;autoUpdateTime"`
}
