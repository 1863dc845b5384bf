package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/riasas/ria-backend/pkg/logger"
)

type memoryIdemStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryIdemStore() *memoryIdemStore {
	return &memoryIdemStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryIdemStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *memoryIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryIdemStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func idemHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"abc"}}`))
	})
}

func TestIdempotencyIgnoresUnlistedRoutes(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idemHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if calls != 1 {
		t.Fatal("unlisted routes should pass through")
	}
	if len(store.values) != 0 {
		t.Fatal("nothing should be recorded for unlisted routes")
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idemHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewReader([]byte(`{}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatal("handler should not run without the header")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idemHandler(&calls))

	body := []byte(`{"name":"Acme"}`)
	first := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewReader(body))
	first.Header.Set("Idempotency-Key", "key-1")
	firstResp := httptest.NewRecorder()
	handler.ServeHTTP(firstResp, first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewReader(body))
	second.Header.Set("Idempotency-Key", "key-1")
	secondResp := httptest.NewRecorder()
	handler.ServeHTTP(secondResp, second)

	if calls != 1 {
		t.Fatalf("expected one handler invocation, got %d", calls)
	}
	if secondResp.Code != http.StatusCreated {
		t.Fatalf("replay should keep the original status, got %d", secondResp.Code)
	}
	if secondResp.Body.String() != firstResp.Body.String() {
		t.Fatal("replay should return the stored body")
	}
	if ct := secondResp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("replay should restore content type, got %q", ct)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idemHandler(&calls))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewReader([]byte(`{"name":"Acme"}`)))
	first.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewReader([]byte(`{"name":"Other"}`)))
	second.Header.Set("Idempotency-Key", "key-1")
	secondResp := httptest.NewRecorder()
	handler.ServeHTTP(secondResp, second)

	if calls != 1 {
		t.Fatalf("expected one handler invocation, got %d", calls)
	}
	if secondResp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with new body, got %d", secondResp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(secondResp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "IDEMPOTENCY_ERROR" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idemHandler(&calls))

	body := []byte(`{"name":"Acme"}`)
	for _, userID := range []string{"user-a", "user-b"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewReader(body))
		req.Header.Set("Idempotency-Key", "key-1")
		req = req.WithContext(WithUserID(req.Context(), userID))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 {
		t.Fatalf("the same key under different users should not collide, got %d calls", calls)
	}
}

func TestIdempotencyBillingRoutesKeepRecordsLonger(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idemHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/upgrade", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	for key, ttl := range store.ttls {
		if ttl != criticalIdempotencyTTL {
			t.Fatalf("expected %v ttl for %s, got %v", criticalIdempotencyTTL, key, ttl)
		}
	}
	if len(store.ttls) != 1 {
		t.Fatal("expected exactly one stored record")
	}
}
