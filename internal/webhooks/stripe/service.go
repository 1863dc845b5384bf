package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/internal/plans"
	"github.com/riasas/ria-backend/internal/subscriptions"
	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/metrics"
)

type planLookup interface {
	FindByCode(ctx context.Context, code string) (*models.Plan, error)
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Subscriptions     subscriptions.Repository
	Plans             planLookup
	Users             userStore
	TransactionRunner txRunner
	Guard             *IdempotencyGuard
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service reconciles local billing state from gateway events. Every handler
// is an idempotent upsert keyed on external ids, so redeliveries and
// out-of-order arrivals converge on the gateway's view.
type Service struct {
	subs     subscriptions.Repository
	plans    planLookup
	users    userStore
	txRunner txRunner
	guard    *IdempotencyGuard
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions repo required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plans repo required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user store required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		subs:     params.Subscriptions,
		plans:    params.Plans,
		users:    params.Users,
		txRunner: params.TransactionRunner,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	kind := ParseEventKind(string(event.Type))
	if kind == EventKindUnknown {
		s.logg.Debug(s.logg.WithField(ctx, "event_type", string(event.Type)), "ignoring unhandled stripe event")
		s.metrics.IncSkipped(string(event.Type))
		return nil
	}

	if s.guard != nil {
		duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check")
		}
		if duplicate {
			s.logg.Info(s.logg.WithField(ctx, "event_id", event.ID), "skipping already processed stripe event")
			s.metrics.IncSkipped(kind.String())
			return nil
		}
	}

	start := time.Now()
	err := s.dispatch(ctx, kind, event)
	s.metrics.ObserveDuration(kind.String(), time.Since(start))
	if err != nil {
		if s.guard != nil {
			if relErr := s.guard.Release(ctx, event.ID); relErr != nil {
				s.logg.Error(ctx, "release webhook idempotency key", relErr)
			}
		}
		s.metrics.IncFailed(kind.String())
		return err
	}
	s.metrics.IncProcessed(kind.String())
	return nil
}

func (s *Service) dispatch(ctx context.Context, kind EventKind, event *stripe.Event) error {
	switch kind {
	case EventKindCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.handleCheckoutCompleted(ctx, &session)
	case EventKindSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.handleSubscriptionUpdated(ctx, &sub)
	case EventKindSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.handleSubscriptionDeleted(ctx, &sub)
	case EventKindInvoicePaymentSucceeded:
		return s.handleInvoicePayment(ctx, event, enums.SubscriptionInvoiceStatusPaid)
	case EventKindInvoicePaymentFailed:
		return s.handleInvoicePayment(ctx, event, enums.SubscriptionInvoiceStatusFailed)
	default:
		return nil
	}
}

// handleCheckoutCompleted links the gateway customer and, for
// subscription-mode checkouts, attaches the gateway subscription to the
// user's current record and activates the purchased plan.
func (s *Service) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	userID, err := uuid.Parse(session.Metadata["user_id"])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing user_id metadata")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "checkout session for unknown user")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	if customerID := checkoutCustomerID(session); customerID != "" {
		if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
			if err := s.users.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist stripe customer id")
			}
		}
	}

	if session.Mode != stripe.CheckoutSessionModeSubscription || session.Subscription == nil {
		return nil
	}

	plan, err := s.lookupPlan(ctx, session.Metadata["plan_code"])
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			// Erroring here would make the gateway redeliver forever.
			s.logg.Warn(s.logg.WithField(ctx, "plan_code", session.Metadata["plan_code"]), "checkout session for unknown plan")
			return nil
		}
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.subs.WithTx(tx)
		now := time.Now().UTC()

		current, err := repo.FindCurrentByUserIDForUpdate(ctx, user.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current subscription")
		}
		if current == nil {
			current = &models.Subscription{
				UserID:    user.ID,
				StartDate: now,
			}
		}

		current.Plan = plan.Code
		current.Price = plan.Price
		current.BillingPeriod = plan.Interval
		current.Status = enums.SubscriptionStatusActive
		current.StripeSubscriptionID = &session.Subscription.ID

		if current.ID == uuid.Nil {
			return repo.Create(ctx, current)
		}
		return repo.Update(ctx, current)
	})
}

// handleSubscriptionUpdated mirrors the gateway's status and period
// boundaries onto the matching local record. The status string is copied
// through without local re-interpretation.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, stripeSub *stripe.Subscription) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.subs.WithTx(tx)

		stored, err := repo.FindByStripeID(ctx, stripeSub.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logg.Warn(s.logg.WithField(ctx, "stripe_subscription_id", stripeSub.ID), "subscription update for unknown subscription")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}

		stored.Status = enums.SubscriptionStatus(stripeSub.Status)
		if end := currentPeriodEnd(stripeSub); end > 0 {
			next := time.Unix(end, 0).UTC()
			stored.NextBillingDate = &next
		}
		if stripeSub.CanceledAt > 0 {
			canceled := time.Unix(stripeSub.CanceledAt, 0).UTC()
			stored.CanceledAt = &canceled
		}

		return repo.Update(ctx, stored)
	})
}

// handleSubscriptionDeleted forces the local record to canceled and drops
// the user back to the free plan.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, stripeSub *stripe.Subscription) error {
	freePlan, err := s.lookupPlan(ctx, plans.FreePlanCode)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.subs.WithTx(tx)

		stored, err := repo.FindByStripeID(ctx, stripeSub.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logg.Warn(s.logg.WithField(ctx, "stripe_subscription_id", stripeSub.ID), "subscription deletion for unknown subscription")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}

		now := time.Now().UTC()
		stored.Status = enums.SubscriptionStatusCanceled
		stored.CanceledAt = &now
		stored.Plan = freePlan.Code
		stored.Price = freePlan.Price
		stored.NextBillingDate = nil

		return repo.Update(ctx, stored)
	})
}

// handleInvoicePayment upserts the gateway invoice keyed on its external id.
// Amounts arrive in minor units and are stored as major-unit decimals.
func (s *Service) handleInvoicePayment(ctx context.Context, event *stripe.Event, status enums.SubscriptionInvoiceStatus) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode invoice event")
	}

	gatewaySubID := event.GetObjectValue("subscription")
	if gatewaySubID == "" {
		s.logg.Warn(s.logg.WithField(ctx, "stripe_invoice_id", inv.ID), "invoice event without subscription id")
		return nil
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.subs.WithTx(tx)

		sub, err := repo.FindByStripeID(ctx, gatewaySubID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logg.Warn(s.logg.WithField(ctx, "stripe_subscription_id", gatewaySubID), "invoice for unknown subscription")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}

		stored, err := repo.FindInvoiceByStripeID(ctx, inv.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
		}
		if stored == nil {
			stored = &models.SubscriptionInvoice{
				SubscriptionID:  sub.ID,
				StripeInvoiceID: inv.ID,
			}
		}

		amount := inv.AmountPaid
		if status == enums.SubscriptionInvoiceStatusFailed {
			amount = inv.AmountDue
		}
		stored.Amount = decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
		stored.Currency = strings.ToUpper(string(inv.Currency))
		stored.Status = status
		if inv.Created > 0 {
			stored.InvoiceDate = time.Unix(inv.Created, 0).UTC()
		}
		if inv.DueDate > 0 {
			due := time.Unix(inv.DueDate, 0).UTC()
			stored.DueDate = &due
		}
		if status == enums.SubscriptionInvoiceStatusPaid {
			paid := time.Now().UTC()
			stored.PaidDate = &paid
		}
		if inv.InvoicePDF != "" {
			pdf := inv.InvoicePDF
			stored.PDFURL = &pdf
		}

		return repo.SaveInvoice(ctx, stored)
	})
}

func (s *Service) lookupPlan(ctx context.Context, code string) (*models.Plan, error) {
	plan, err := s.plans.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	return plan, nil
}

func checkoutCustomerID(session *stripe.CheckoutSession) string {
	if session.Customer == nil {
		return ""
	}
	return session.Customer.ID
}

func currentPeriodEnd(sub *stripe.Subscription) int64 {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return 0
	}
	return sub.Items.Data[0].CurrentPeriodEnd
}
