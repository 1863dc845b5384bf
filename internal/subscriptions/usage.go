package subscriptions

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
)

// UsageCounters exposes the per-user counts the usage report is built from.
// Implemented by the invoices and clients repositories.
type UsageCounters interface {
	CountInvoicesInMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) (int64, error)
	CountClients(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UsageDTO reports consumption against the current plan's limits. A limit of
// -1 means unlimited.
type UsageDTO struct {
	InvoicesThisMonth int64  `json:"invoicesThisMonth"`
	InvoicesLimit     int    `json:"invoicesLimit"`
	ClientsCreated    int64  `json:"clientsCreated"`
	ClientsLimit      int    `json:"clientsLimit"`
	StorageUsed       string `json:"storageUsed"`
	StorageLimit      string `json:"storageLimit"`
	PercentageUsed    int    `json:"percentageUsed"`
}

func (s *service) Usage(ctx context.Context, userID uuid.UUID) (*UsageDTO, error) {
	if s.usage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage counters not configured")
	}

	sub, err := s.repo.FindCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	plan, err := s.lookupPlan(ctx, sub.Plan)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	invoicesThisMonth, err := s.usage.CountInvoicesInMonth(ctx, userID, now.Year(), now.Month())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count invoices")
	}
	clientsCreated, err := s.usage.CountClients(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count clients")
	}

	return &UsageDTO{
		InvoicesThisMonth: invoicesThisMonth,
		InvoicesLimit:     plan.Limits.InvoicesPerMonth,
		ClientsCreated:    clientsCreated,
		ClientsLimit:      plan.Limits.Clients,
		StorageUsed:       "0 MB",
		StorageLimit:      plan.Limits.Storage,
		PercentageUsed:    percentageUsed(invoicesThisMonth, plan.Limits.InvoicesPerMonth),
	}, nil
}

// percentageUsed returns 0 for unlimited (-1) or zero limits.
func percentageUsed(used int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Round(float64(used) / float64(limit) * 100))
}
