package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/internal/plans"
	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/pagination"
)

// ReactivationWindow is how long after cancellation a subscription can be
// brought back without going through checkout again.
const ReactivationWindow = 30 * 24 * time.Hour

type planRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Plan, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the local subscription lifecycle. All mutations are local-only:
// gateway sync happens afterwards in the caller and a gateway failure never
// rolls back a committed transition.
type Service interface {
	GetCurrent(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error)
	CreateDefault(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error)
	Upgrade(ctx context.Context, userID uuid.UUID, planCode string, period enums.BillingPeriod) (*SubscriptionDTO, error)
	Downgrade(ctx context.Context, userID uuid.UUID, planCode string, effectiveDate *time.Time) (*SubscriptionDTO, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error)
	Reactivate(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error)
	ListInvoices(ctx context.Context, userID uuid.UUID, status *enums.SubscriptionInvoiceStatus, page pagination.Params) ([]InvoiceDTO, pagination.Result, error)
	Usage(ctx context.Context, userID uuid.UUID) (*UsageDTO, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo     Repository
	Plans    planRepository
	TxRunner txRunner
	Logger   *logger.Logger
	Usage    UsageCounters
}

type service struct {
	repo     Repository
	plans    planRepository
	txRunner txRunner
	logg     *logger.Logger
	usage    UsageCounters
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions repo required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plans repo required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:     params.Repo,
		plans:    params.Plans,
		txRunner: params.TxRunner,
		logg:     params.Logger,
		usage:    params.Usage,
	}, nil
}

func (s *service) GetCurrent(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.repo.FindCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.CreateDefault(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	// A user should only ever hold one non-canceled subscription; the query
	// tie-breaks on the most recent, but the duplicate is worth surfacing.
	if n, cerr := s.repo.CountCurrentByUserID(ctx, userID); cerr == nil && n > 1 {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "multiple non-canceled subscriptions for user, using most recent")
	}
	return FromModel(sub), nil
}

func (s *service) CreateDefault(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub := &models.Subscription{
		UserID:        userID,
		Plan:          plans.FreePlanCode,
		Status:        enums.SubscriptionStatusActive,
		BillingPeriod: enums.BillingPeriodMonth,
		StartDate:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create default subscription")
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "created default free subscription")
	return FromModel(sub), nil
}

func (s *service) Upgrade(ctx context.Context, userID uuid.UUID, planCode string, period enums.BillingPeriod) (*SubscriptionDTO, error) {
	if !period.IsValid() {
		period = enums.BillingPeriodMonth
	}

	plan, err := s.lookupPlan(ctx, planCode)
	if err != nil {
		return nil, err
	}

	var dto *SubscriptionDTO
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindCurrentByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub.Plan == plan.Code {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "already on this plan")
		}

		now := time.Now().UTC()
		next := addBillingPeriod(now, period)
		sub.Plan = plan.Code
		sub.BillingPeriod = period
		sub.Price = plan.Price
		sub.Status = enums.SubscriptionStatusActive
		sub.NextBillingDate = &next

		if err := repo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
		}
		dto = FromModel(sub)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) Downgrade(ctx context.Context, userID uuid.UUID, planCode string, effectiveDate *time.Time) (*SubscriptionDTO, error) {
	plan, err := s.lookupPlan(ctx, planCode)
	if err != nil {
		return nil, err
	}

	var dto *SubscriptionDTO
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindCurrentByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub.Plan == plan.Code {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "already on this plan")
		}

		// Effective dates in the past are accepted; the caller chooses when
		// the downgrade takes hold.
		next := time.Now().UTC()
		if effectiveDate != nil {
			next = effectiveDate.UTC()
		}
		sub.Plan = plan.Code
		sub.Price = plan.Price
		sub.Status = enums.SubscriptionStatusActive
		sub.NextBillingDate = &next

		if err := repo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
		}
		dto = FromModel(sub)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) Cancel(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	var dto *SubscriptionDTO
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindCurrentByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}

		now := time.Now().UTC()
		sub.Status = enums.SubscriptionStatusCanceled
		sub.CanceledAt = &now

		if err := repo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
		}
		dto = FromModel(sub)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) Reactivate(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	var dto *SubscriptionDTO
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindLatestByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no subscription to reactivate")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub.Status != enums.SubscriptionStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not canceled")
		}
		if sub.CanceledAt != nil && time.Since(*sub.CanceledAt) > ReactivationWindow {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot reactivate after 30 days")
		}

		sub.Status = enums.SubscriptionStatusActive
		sub.CanceledAt = nil

		if err := repo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate subscription")
		}
		dto = FromModel(sub)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) ListInvoices(ctx context.Context, userID uuid.UUID, status *enums.SubscriptionInvoiceStatus, page pagination.Params) ([]InvoiceDTO, pagination.Result, error) {
	sub, err := s.repo.FindCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pagination.Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
		}
		return nil, pagination.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	page = page.Normalize()
	invoices, total, err := s.repo.ListInvoices(ctx, sub.ID, status, page.Offset(), page.Limit)
	if err != nil {
		return nil, pagination.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}

	out := make([]InvoiceDTO, 0, len(invoices))
	for i := range invoices {
		out = append(out, *InvoiceFromModel(&invoices[i]))
	}
	result := pagination.Result{Total: total, Page: page.Page, Limit: page.Limit}
	return out, result, nil
}

func (s *service) lookupPlan(ctx context.Context, planCode string) (*models.Plan, error) {
	plan, err := s.plans.FindByCode(ctx, planCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	return plan, nil
}

func addBillingPeriod(from time.Time, period enums.BillingPeriod) time.Time {
	if period == enums.BillingPeriodYear {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
