package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
)

// InvoiceDTO is the transport shape of a tenant-issued invoice.
type InvoiceDTO struct {
	ID            uuid.UUID           `json:"id"`
	ClientID      uuid.UUID           `json:"clientId"`
	InvoiceNumber string              `json:"invoiceNumber"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	TaxRate       decimal.Decimal     `json:"taxRate"`
	TaxAmount     decimal.Decimal     `json:"taxAmount"`
	Total         decimal.Decimal     `json:"total"`
	Status        enums.InvoiceStatus `json:"status"`
	IssueDate     time.Time           `json:"issueDate"`
	DueDate       *time.Time          `json:"dueDate,omitempty"`
	PaidDate      *time.Time          `json:"paidDate,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func FromModel(i *models.Invoice) *InvoiceDTO {
	if i == nil {
		return nil
	}
	return &InvoiceDTO{
		ID:            i.ID,
		ClientID:      i.ClientID,
		InvoiceNumber: i.InvoiceNumber,
		Subtotal:      i.Subtotal,
		TaxRate:       i.TaxRate,
		TaxAmount:     i.TaxAmount,
		Total:         i.Total,
		Status:        i.Status,
		IssueDate:     i.IssueDate,
		DueDate:       i.DueDate,
		PaidDate:      i.PaidDate,
		Notes:         i.Notes,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}
