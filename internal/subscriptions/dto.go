package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
)

// SubscriptionDTO is the API-facing shape of a subscription.
type SubscriptionDTO struct {
	ID                   uuid.UUID                `json:"id"`
	UserID               uuid.UUID                `json:"userId"`
	Plan                 string                   `json:"plan"`
	Status               enums.SubscriptionStatus `json:"status"`
	BillingPeriod        enums.BillingPeriod      `json:"billingPeriod"`
	Price                decimal.Decimal          `json:"price"`
	StartDate            time.Time                `json:"startDate"`
	NextBillingDate      *time.Time               `json:"nextBillingDate,omitempty"`
	TrialEndsAt          *time.Time               `json:"trialEndsAt,omitempty"`
	CanceledAt           *time.Time               `json:"canceledAt,omitempty"`
	StripeSubscriptionID *string                  `json:"stripeSubscriptionId,omitempty"`
}

// FromModel maps a subscription row to its DTO.
func FromModel(sub *models.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:                   sub.ID,
		UserID:               sub.UserID,
		Plan:                 sub.Plan,
		Status:               sub.Status,
		BillingPeriod:        sub.BillingPeriod,
		Price:                sub.Price,
		StartDate:            sub.StartDate,
		NextBillingDate:      sub.NextBillingDate,
		TrialEndsAt:          sub.TrialEndsAt,
		CanceledAt:           sub.CanceledAt,
		StripeSubscriptionID: sub.StripeSubscriptionID,
	}
}

// InvoiceDTO is the API-facing shape of a gateway billing invoice.
type InvoiceDTO struct {
	ID             uuid.UUID                       `json:"id"`
	SubscriptionID uuid.UUID                       `json:"subscriptionId"`
	Amount         decimal.Decimal                 `json:"amount"`
	Currency       string                          `json:"currency"`
	Status         enums.SubscriptionInvoiceStatus `json:"status"`
	InvoiceDate    time.Time                       `json:"invoiceDate"`
	DueDate        *time.Time                      `json:"dueDate,omitempty"`
	PaidDate       *time.Time                      `json:"paidDate,omitempty"`
	PDFURL         *string                         `json:"pdfUrl,omitempty"`
}

// InvoiceFromModel maps a gateway invoice row to its DTO.
func InvoiceFromModel(invoice *models.SubscriptionInvoice) *InvoiceDTO {
	if invoice == nil {
		return nil
	}
	return &InvoiceDTO{
		ID:             invoice.ID,
		SubscriptionID: invoice.SubscriptionID,
		Amount:         invoice.Amount,
		Currency:       invoice.Currency,
		Status:         invoice.Status,
		InvoiceDate:    invoice.InvoiceDate,
		DueDate:        invoice.DueDate,
		PaidDate:       invoice.PaidDate,
		PDFURL:         invoice.PDFURL,
	}
}
