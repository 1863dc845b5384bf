package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	retry "github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

const (
	customerRetryAttempts = 3
	customerRetryBackoff  = 250 * time.Millisecond

	defaultInvoiceListLimit = 10
)

type planRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Plan, error)
}

type customerStore interface {
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
}

// Service is the gateway adapter: it talks to Stripe and persists nothing
// about subscription state itself. Local lifecycle state is owned by the
// subscriptions service; callers sequence the two and treat gateway failures
// as non-fatal for already-committed local transitions.
type Service interface {
	GetOrCreateCustomer(ctx context.Context, user *models.User) (string, error)
	CreateCheckoutSession(ctx context.Context, user *models.User, planCode string) (string, error)
	CreatePortalSession(ctx context.Context, user *models.User) (string, error)
	SyncPlanChange(ctx context.Context, user *models.User, stripeSubscriptionID *string, planCode string) (*stripe.Subscription, error)
	CancelAtGateway(ctx context.Context, stripeSubscriptionID string, immediately bool) error
	ReactivateAtGateway(ctx context.Context, stripeSubscriptionID string) error
	ListInvoices(ctx context.Context, user *models.User, limit int) ([]*stripe.Invoice, error)
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Stripe      StripeBillingClient
	Plans       planRepository
	Users       customerStore
	FrontendURL string
	Logger      *logger.Logger
}

type service struct {
	stripe      StripeBillingClient
	plans       planRepository
	users       customerStore
	frontendURL string
	logg        *logger.Logger
}

// NewService builds a billing service.
func NewService(params ServiceParams) (Service, error) {
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plans repo required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		stripe:      params.Stripe,
		plans:       params.Plans,
		users:       params.Users,
		frontendURL: strings.TrimRight(params.FrontendURL, "/"),
		logg:        params.Logger,
	}, nil
}

func (s *service) GetOrCreateCustomer(ctx context.Context, user *models.User) (string, error) {
	if user == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "user required")
	}

	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		// Retrieval is idempotent, so a couple of retries on transient
		// gateway errors are safe. Mutating calls below are never retried.
		var cust *stripe.Customer
		backoff := retry.WithMaxRetries(customerRetryAttempts, retry.NewExponential(customerRetryBackoff))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			var err error
			cust, err = s.stripe.GetCustomer(ctx, *user.StripeCustomerID)
			if err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve stripe customer")
		}
		return cust.ID, nil
	}

	params := &stripe.CustomerParams{
		Name:  stripe.String(user.Name),
		Email: stripe.String(user.Email),
	}
	params.AddMetadata("user_id", user.ID.String())

	cust, err := s.stripe.CreateCustomer(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}

	if err := s.users.SetStripeCustomerID(ctx, user.ID, cust.ID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist stripe customer id")
	}
	user.StripeCustomerID = &cust.ID
	return cust.ID, nil
}

func (s *service) CreateCheckoutSession(ctx context.Context, user *models.User, planCode string) (string, error) {
	plan, err := s.lookupPlan(ctx, planCode)
	if err != nil {
		return "", err
	}

	customerID, err := s.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	// Plans that collect no payment still go through checkout so a payment
	// method is captured for later upgrades.
	mode := stripe.CheckoutSessionModeSubscription
	if plan.IsFree() {
		mode = stripe.CheckoutSessionModeSetup
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(mode)),
		SuccessURL:         stripe.String(s.frontendURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(s.frontendURL + "/subscription/cancel"),
		LineItems:          checkoutLineItems(plan),
	}
	params.AddMetadata("user_id", user.ID.String())
	params.AddMetadata("plan_code", plan.Code)
	params.AddMetadata("plan_id", plan.ID.String())

	session, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session.URL, nil
}

func (s *service) CreatePortalSession(ctx context.Context, user *models.User) (string, error) {
	customerID, err := s.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	session, err := s.stripe.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.frontendURL + "/subscription"),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create portal session")
	}
	return session.URL, nil
}

func (s *service) SyncPlanChange(ctx context.Context, user *models.User, stripeSubscriptionID *string, planCode string) (*stripe.Subscription, error) {
	plan, err := s.lookupPlan(ctx, planCode)
	if err != nil {
		return nil, err
	}

	if stripeSubscriptionID != nil && *stripeSubscriptionID != "" {
		return s.updateGatewaySubscription(ctx, *stripeSubscriptionID, plan)
	}

	if plan.IsFree() {
		// Nothing to bill; the free plan has no gateway subscription.
		return nil, nil
	}

	customerID, err := s.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{PriceData: subscriptionPriceData(plan)},
		},
	}
	params.AddMetadata("user_id", user.ID.String())
	params.AddMetadata("plan_code", plan.Code)
	params.AddMetadata("plan_id", plan.ID.String())

	sub, err := s.stripe.CreateSubscription(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway subscription")
	}
	return sub, nil
}

func (s *service) updateGatewaySubscription(ctx context.Context, id string, plan *models.Plan) (*stripe.Subscription, error) {
	current, err := s.stripe.GetSubscription(ctx, id, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve gateway subscription")
	}

	item := &stripe.SubscriptionItemsParams{PriceData: subscriptionPriceData(plan)}
	if current.Items != nil && len(current.Items.Data) > 0 {
		item.ID = stripe.String(current.Items.Data[0].ID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{item},
	}
	params.AddMetadata("plan_code", plan.Code)
	params.AddMetadata("plan_id", plan.ID.String())

	sub, err := s.stripe.UpdateSubscription(ctx, id, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update gateway subscription")
	}
	return sub, nil
}

func (s *service) CancelAtGateway(ctx context.Context, stripeSubscriptionID string, immediately bool) error {
	if stripeSubscriptionID == "" {
		return nil
	}

	if immediately {
		if _, err := s.stripe.CancelSubscription(ctx, stripeSubscriptionID, &stripe.SubscriptionCancelParams{}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel gateway subscription")
		}
		return nil
	}

	_, err := s.stripe.UpdateSubscription(ctx, stripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "schedule gateway cancellation")
	}
	return nil
}

func (s *service) ReactivateAtGateway(ctx context.Context, stripeSubscriptionID string) error {
	if stripeSubscriptionID == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no gateway subscription to reactivate")
	}

	_, err := s.stripe.UpdateSubscription(ctx, stripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate gateway subscription")
	}
	return nil
}

// ListInvoices reads the user's invoices straight from the gateway, newest
// first. The webhook-fed local store backs the user-facing history; this is
// the raw gateway view for support and reconciliation checks.
func (s *service) ListInvoices(ctx context.Context, user *models.User, limit int) ([]*stripe.Invoice, error) {
	customerID, err := s.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultInvoiceListLimit
	}
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Limit = stripe.Int64(int64(limit))

	invoices, err := s.stripe.ListInvoices(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list gateway invoices")
	}
	return invoices, nil
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

func checkoutLineItems(plan *models.Plan) []*stripe.CheckoutSessionLineItemParams {
	if plan.IsFree() {
		return nil
	}
	return []*stripe.CheckoutSessionLineItemParams{
		{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(plan.Currency)),
				UnitAmount: stripe.Int64(toCents(plan.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(plan.Name),
					Description: stripe.String(describePlan(plan)),
				},
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval:      stripe.String(recurringInterval(plan.Interval)),
					IntervalCount: stripe.Int64(1),
				},
			},
		},
	}
}

func subscriptionPriceData(plan *models.Plan) *stripe.SubscriptionItemPriceDataParams {
	return &stripe.SubscriptionItemPriceDataParams{
		Currency:   stripe.String(strings.ToLower(plan.Currency)),
		Product:    stripe.String("prod_" + plan.Code),
		UnitAmount: stripe.Int64(toCents(plan.Price)),
		Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
			Interval:      stripe.String(recurringInterval(plan.Interval)),
			IntervalCount: stripe.Int64(1),
		},
	}
}

func recurringInterval(period enums.BillingPeriod) string {
	if period == enums.BillingPeriodYear {
		return "year"
	}
	return "month"
}

func describePlan(plan *models.Plan) string {
	return strings.Join(plan.Features, " | ")
}

func toCents(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).IntPart()
}
