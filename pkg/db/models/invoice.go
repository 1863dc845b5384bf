package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/enums"
)

// Invoice is a tenant-issued invoice to one of their clients.
type Invoice struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	ClientID      uuid.UUID           `gorm:"column:client_id;type:uuid;not null;index"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	TaxRate       decimal.Decimal     `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	TaxAmount     decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Status        enums.InvoiceStatus `gorm:"column:status;not null;default:'draft'"`
	IssueDate     time.Time           `gorm:"column:issue_date;not null"`
	DueDate       *time.Time          `gorm:"column:due_date"`
	PaidDate      *time.Time          `gorm:"column:paid_date"`
	Notes         string              `gorm:"column:notes"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPaid reports whether the invoice has been settled.
func (i *Invoice) IsPaid() bool {
	return i.Status == enums.InvoiceStatusPaid
}
