package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
)

type invoiceCounter interface {
	CountInMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) (int64, error)
}

type clientCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type usageCounters struct {
	invoices invoiceCounter
	clients  clientCounter
}

// NewUsageCounters combines the invoice and client repositories into the
// counter set the usage report reads from.
func NewUsageCounters(invoices invoiceCounter, clients clientCounter) (UsageCounters, error) {
	if invoices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoice counter required")
	}
	if clients == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "client counter required")
	}
	return &usageCounters{invoices: invoices, clients: clients}, nil
}

func (u *usageCounters) CountInvoicesInMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) (int64, error) {
	return u.invoices.CountInMonth(ctx, userID, year, month)
}

func (u *usageCounters) CountClients(ctx context.Context, userID uuid.UUID) (int64, error) {
	return u.clients.CountByUser(ctx, userID)
}
