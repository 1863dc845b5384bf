package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/internal/subscriptions"
	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	"github.com/riasas/ria-backend/pkg/logger"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubWebhookRepo struct {
	byStripeID map[string]*models.Subscription
	current    *models.Subscription
	invoices   map[string]*models.SubscriptionInvoice

	created []*models.Subscription
	updated []*models.Subscription
}

func newStubWebhookRepo() *stubWebhookRepo {
	return &stubWebhookRepo{
		byStripeID: map[string]*models.Subscription{},
		invoices:   map[string]*models.SubscriptionInvoice{},
	}
}

func (s *stubWebhookRepo) WithTx(tx *gorm.DB) subscriptions.Repository {
	return s
}

func (s *stubWebhookRepo) FindCurrentByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if s.current != nil && s.current.UserID == userID {
		return s.current, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubWebhookRepo) FindCurrentByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.FindCurrentByUserID(ctx, userID)
}

func (s *stubWebhookRepo) CountCurrentByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.current != nil && s.current.UserID == userID {
		return 1, nil
	}
	return 0, nil
}

func (s *stubWebhookRepo) FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.FindCurrentByUserID(ctx, userID)
}

func (s *stubWebhookRepo) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	if sub, ok := s.byStripeID[stripeSubscriptionID]; ok {
		return sub, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubWebhookRepo) Create(ctx context.Context, sub *models.Subscription) error {
	sub.ID = uuid.New()
	s.created = append(s.created, sub)
	return nil
}

func (s *stubWebhookRepo) Update(ctx context.Context, sub *models.Subscription) error {
	s.updated = append(s.updated, sub)
	return nil
}

func (s *stubWebhookRepo) ListInvoices(ctx context.Context, subscriptionID uuid.UUID, status *enums.SubscriptionInvoiceStatus, offset, limit int) ([]models.SubscriptionInvoice, int64, error) {
	return nil, 0, nil
}

func (s *stubWebhookRepo) FindInvoiceByStripeID(ctx context.Context, stripeInvoiceID string) (*models.SubscriptionInvoice, error) {
	if inv, ok := s.invoices[stripeInvoiceID]; ok {
		return inv, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubWebhookRepo) SaveInvoice(ctx context.Context, invoice *models.SubscriptionInvoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	s.invoices[invoice.StripeInvoiceID] = invoice
	return nil
}

type stubPlanLookup struct {
	plans map[string]*models.Plan
}

func (s *stubPlanLookup) FindByCode(ctx context.Context, code string) (*models.Plan, error) {
	if p, ok := s.plans[code]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubUserStore struct {
	user       *models.User
	customerID string
}

func (s *stubUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	s.customerID = customerID
	return nil
}

type stubIdemStore struct {
	seen     map[string]bool
	released []string
}

func newStubIdemStore() *stubIdemStore {
	return &stubIdemStore{seen: map[string]bool{}}
}

func (s *stubIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubIdemStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (s *stubIdemStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.seen, key)
		s.released = append(s.released, key)
	}
	return nil
}

func webhookPlans() *stubPlanLookup {
	return &stubPlanLookup{plans: map[string]*models.Plan{
		"free": {
			ID:       uuid.New(),
			Code:     "free",
			Name:     "Free",
			Price:    decimal.Zero,
			Interval: enums.BillingPeriodMonth,
		},
		"pro": {
			ID:       uuid.New(),
			Code:     "pro",
			Name:     "Pro",
			Price:    decimal.RequireFromString("9.99"),
			Interval: enums.BillingPeriodMonth,
		},
	}}
}

func testEvent(t *testing.T, id, eventType string, object map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal event object: %v", err)
	}
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{
			Raw:    raw,
			Object: object,
		},
	}
}

func TestParseEventKind(t *testing.T) {
	if got := ParseEventKind("customer.subscription.deleted"); got != EventKindSubscriptionDeleted {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := ParseEventKind("product.created"); got != EventKindUnknown {
		t.Fatalf("expected unknown kind, got %q", got)
	}
}

func TestUnknownEventIsAcknowledgedWithoutWrites(t *testing.T) {
	repo := newStubWebhookRepo()
	svc := newWebhookService(t, repo, webhookPlans(), &stubUserStore{}, nil)

	event := testEvent(t, "evt_1", "product.created", map[string]any{"id": "prod_1"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.updated) != 0 || len(repo.created) != 0 {
		t.Fatal("unknown event must not write")
	}
}

func TestSubscriptionUpdatedMirrorsGatewayStatus(t *testing.T) {
	repo := newStubWebhookRepo()
	sub := &models.Subscription{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Plan:   "pro",
		Status: enums.SubscriptionStatusActive,
	}
	repo.byStripeID["sub_1"] = sub
	svc := newWebhookService(t, repo, webhookPlans(), &stubUserStore{}, nil)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := testEvent(t, "evt_2", "customer.subscription.updated", map[string]any{
		"id":     "sub_1",
		"status": "past_due",
		"items": map[string]any{
			"data": []any{map[string]any{"current_period_end": periodEnd}},
		},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if sub.Status != enums.SubscriptionStatus("past_due") {
		t.Fatalf("gateway status not mirrored, got %q", sub.Status)
	}
	if sub.NextBillingDate == nil || sub.NextBillingDate.Unix() != periodEnd {
		t.Fatal("period end not mirrored")
	}
}

func TestSubscriptionUpdatedForUnknownSubscriptionIsSkipped(t *testing.T) {
	repo := newStubWebhookRepo()
	svc := newWebhookService(t, repo, webhookPlans(), &stubUserStore{}, nil)

	event := testEvent(t, "evt_3", "customer.subscription.updated", map[string]any{
		"id":     "sub_missing",
		"status": "active",
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.updated) != 0 {
		t.Fatal("unknown subscription must not write")
	}
}

func TestSubscriptionDeletedDropsToFree(t *testing.T) {
	repo := newStubWebhookRepo()
	sub := &models.Subscription{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Plan:   "pro",
		Price:  decimal.RequireFromString("9.99"),
		Status: enums.SubscriptionStatusActive,
	}
	repo.byStripeID["sub_1"] = sub
	svc := newWebhookService(t, repo, webhookPlans(), &stubUserStore{}, nil)

	event := testEvent(t, "evt_4", "customer.subscription.deleted", map[string]any{"id": "sub_1"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if sub.Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled, got %q", sub.Status)
	}
	if sub.Plan != "free" || !sub.Price.IsZero() {
		t.Fatal("expected drop to free plan")
	}
	if sub.CanceledAt == nil {
		t.Fatal("expected canceled_at to be set")
	}
}

func TestInvoicePaymentSucceededUpserts(t *testing.T) {
	repo := newStubWebhookRepo()
	sub := &models.Subscription{ID: uuid.New(), UserID: uuid.New()}
	repo.byStripeID["sub_1"] = sub
	svc := newWebhookService(t, repo, webhookPlans(), &stubUserStore{}, nil)

	object := map[string]any{
		"id":           "in_1",
		"amount_paid":  999,
		"currency":     "eur",
		"created":      time.Now().Unix(),
		"subscription": "sub_1",
	}
	if err := svc.HandleEvent(context.Background(), testEvent(t, "evt_5", "invoice.payment_succeeded", object)); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	stored := repo.invoices["in_1"]
	if stored == nil {
		t.Fatal("expected invoice row")
	}
	if !stored.Amount.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("expected 9.99, got %s", stored.Amount)
	}
	if stored.Currency != "EUR" || stored.Status != enums.SubscriptionInvoiceStatusPaid {
		t.Fatal("invoice fields not mirrored")
	}
	if stored.PaidDate == nil {
		t.Fatal("expected paid date")
	}

	// A re-sent payload under a new event id must update the same row.
	if err := svc.HandleEvent(context.Background(), testEvent(t, "evt_6", "invoice.payment_succeeded", object)); err != nil {
		t.Fatalf("handle redelivery: %v", err)
	}
	if len(repo.invoices) != 1 {
		t.Fatalf("expected single invoice row, got %d", len(repo.invoices))
	}
}

func TestInvoicePaymentFailedUsesAmountDue(t *testing.T) {
	repo := newStubWebhookRepo()
	sub := &models.Subscription{ID: uuid.New(), UserID: uuid.New()}
	repo.byStripeID["sub_1"] = sub
	svc := newWebhookService(t, repo, webhookPlans(), &stubUserStore{}, nil)

	event := testEvent(t, "evt_7", "invoice.payment_failed", map[string]any{
		"id":           "in_2",
		"amount_due":   1250,
		"currency":     "eur",
		"created":      time.Now().Unix(),
		"subscription": "sub_1",
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	stored := repo.invoices["in_2"]
	if stored == nil {
		t.Fatal("expected invoice row")
	}
	if !stored.Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("expected 12.50, got %s", stored.Amount)
	}
	if stored.Status != enums.SubscriptionInvoiceStatusFailed {
		t.Fatalf("expected failed status, got %q", stored.Status)
	}
	if stored.PaidDate != nil {
		t.Fatal("failed invoice must not carry paid date")
	}
}

func TestCheckoutCompletedActivatesPurchasedPlan(t *testing.T) {
	repo := newStubWebhookRepo()
	user := &models.User{ID: uuid.New(), Email: "ada@example.com"}
	current := &models.Subscription{
		ID:     uuid.New(),
		UserID: user.ID,
		Plan:   "free",
		Status: enums.SubscriptionStatusActive,
	}
	repo.current = current
	users := &stubUserStore{user: user}
	svc := newWebhookService(t, repo, webhookPlans(), users, nil)

	event := testEvent(t, "evt_8", "checkout.session.completed", map[string]any{
		"id":           "cs_1",
		"mode":         "subscription",
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata": map[string]any{
			"user_id":   user.ID.String(),
			"plan_code": "pro",
		},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if users.customerID != "cus_1" {
		t.Fatal("expected customer id persisted on user")
	}
	if current.Plan != "pro" || current.Status != enums.SubscriptionStatusActive {
		t.Fatal("expected plan activation")
	}
	if current.StripeSubscriptionID == nil || *current.StripeSubscriptionID != "sub_1" {
		t.Fatal("expected gateway subscription id attached")
	}
	if !current.Price.Equal(decimal.RequireFromString("9.99")) {
		t.Fatal("expected price snapshot from plan")
	}
}

func TestCheckoutCompletedForUnknownPlanIsSkipped(t *testing.T) {
	repo := newStubWebhookRepo()
	user := &models.User{ID: uuid.New(), Email: "ada@example.com"}
	users := &stubUserStore{user: user}
	svc := newWebhookService(t, repo, webhookPlans(), users, nil)

	event := testEvent(t, "evt_10", "checkout.session.completed", map[string]any{
		"id":           "cs_2",
		"mode":         "subscription",
		"customer":     "cus_2",
		"subscription": "sub_2",
		"metadata": map[string]any{
			"user_id":   user.ID.String(),
			"plan_code": "platinum",
		},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown plan must not fail the delivery: %v", err)
	}
	if len(repo.created) != 0 || len(repo.updated) != 0 {
		t.Fatal("no subscription writes expected for an unknown plan")
	}
}

func TestDuplicateDeliveryIsSkipped(t *testing.T) {
	repo := newStubWebhookRepo()
	sub := &models.Subscription{ID: uuid.New(), UserID: uuid.New(), Status: enums.SubscriptionStatusActive}
	repo.byStripeID["sub_1"] = sub
	store := newStubIdemStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	svc := newWebhookService(t, repo, webhookPlans(), &stubUserStore{}, guard)

	event := testEvent(t, "evt_9", "customer.subscription.updated", map[string]any{
		"id":     "sub_1",
		"status": "active",
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(repo.updated) != 1 {
		t.Fatalf("expected single write, got %d", len(repo.updated))
	}
}

func newWebhookService(t *testing.T, repo *stubWebhookRepo, plans *stubPlanLookup, users *stubUserStore, guard *IdempotencyGuard) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Subscriptions:     repo,
		Plans:             plans,
		Users:             users,
		TransactionRunner: stubTxRunner{},
		Guard:             guard,
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}
