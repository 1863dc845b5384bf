package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/riasas/ria-backend/pkg/logger"
)

const testSigningSecret = "whsec_test_secret"

type stubWebhookService struct {
	calls int
	err   error
	last  *stripe.Event
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	s.calls++
	s.last = event
	return s.err
}

type stubStripeClient struct{}

func (stubStripeClient) SigningSecret() string { return testSigningSecret }

func signPayload(payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := StripeWebhook(svc, stubStripeClient{}, logger.New(logger.Options{ServiceName: "test"}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not run without a signature")
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := StripeWebhook(svc, stubStripeClient{}, logger.New(logger.Options{ServiceName: "test"}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a forged signature, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not run for a forged signature")
	}
}

func TestStripeWebhookForwardsVerifiedEvent(t *testing.T) {
	svc := &stubWebhookService{}
	handler := StripeWebhook(svc, stubStripeClient{}, logger.New(logger.Options{ServiceName: "test"}))

	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, time.Now()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one service call, got %d", svc.calls)
	}
	if svc.last == nil || svc.last.ID != "evt_1" {
		t.Fatal("verified event should reach the service")
	}
}
