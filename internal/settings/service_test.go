package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/config"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/redis"
)

type stubSettingsRepo struct {
	stored map[string]json.RawMessage
}

func (s *stubSettingsRepo) FindBySection(_ context.Context, section string) (*models.Setting, error) {
	value, ok := s.stored[section]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Setting{Section: section, Value: value}, nil
}

func (s *stubSettingsRepo) Upsert(_ context.Context, setting *models.Setting) error {
	if s.stored == nil {
		s.stored = map[string]json.RawMessage{}
	}
	s.stored[setting.Section] = setting.Value
	return nil
}

type stubSectionCache struct {
	values  map[string]string
	sets    int
	deletes []string
}

func (c *stubSectionCache) Get(_ context.Context, key string) (string, error) {
	value, ok := c.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (c *stubSectionCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if c.values == nil {
		c.values = map[string]string{}
	}
	c.values[key] = value.(string)
	c.sets++
	return nil
}

func (c *stubSectionCache) Del(_ context.Context, keys ...string) error {
	c.deletes = append(c.deletes, keys...)
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *stubSectionCache) SettingsKey(section string) string {
	return "settings:" + section
}

func newSettingsService(t *testing.T, repo Repository, cache sectionCache) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Cache:  cache,
		Config: config.SettingsConfig{CacheTTL: time.Minute},
		Logger: logger.New(logger.Options{ServiceName: "settings-test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGetSectionReturnsDefaultsWhenUnset(t *testing.T) {
	svc := newSettingsService(t, &stubSettingsRepo{}, nil)

	raw, err := svc.GetSection(context.Background(), SectionBilling)
	if err != nil {
		t.Fatalf("get section: %v", err)
	}

	var billing BillingSettings
	if err := json.Unmarshal(raw, &billing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !billing.ProrationEnabled || billing.GracePeriodDays != 7 || billing.DefaultCurrency != "EUR" {
		t.Fatalf("unexpected defaults %+v", billing)
	}
}

func TestGetSectionPopulatesAndUsesCache(t *testing.T) {
	repo := &stubSettingsRepo{}
	cache := &stubSectionCache{}
	svc := newSettingsService(t, repo, cache)

	if _, err := svc.GetSection(context.Background(), SectionSystem); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected cache fill on miss, sets=%d", cache.sets)
	}

	// Second read must be served from cache without touching the repo.
	repo.stored = nil
	raw, err := svc.GetSection(context.Background(), SectionSystem)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	var system SystemSettings
	if err := json.Unmarshal(raw, &system); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if system.BackupFrequencyHours != 24 {
		t.Fatalf("unexpected cached value %+v", system)
	}
}

func TestUpdateSectionStoresAndInvalidatesCache(t *testing.T) {
	repo := &stubSettingsRepo{}
	cache := &stubSectionCache{values: map[string]string{"settings:security": `{"mfaRequired":false,"passwordMinLength":8,"tokenTtlMinutes":60}`}}
	svc := newSettingsService(t, repo, cache)

	payload := json.RawMessage(`{"mfaRequired":true,"passwordMinLength":12}`)
	raw, err := svc.UpdateSection(context.Background(), SectionSecurity, payload)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	var security SecuritySettings
	if err := json.Unmarshal(raw, &security); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !security.MFARequired || security.PasswordMinLength != 12 {
		t.Fatalf("unexpected stored section %+v", security)
	}
	// Omitted fields keep their defaults.
	if security.TokenTTLMinutes != 60 {
		t.Fatalf("expected default token ttl, got %d", security.TokenTTLMinutes)
	}

	if _, ok := repo.stored[SectionSecurity]; !ok {
		t.Fatalf("section not persisted")
	}
	if len(cache.deletes) != 1 || cache.deletes[0] != "settings:security" {
		t.Fatalf("cache not invalidated: %v", cache.deletes)
	}
}

func TestUpdateSectionRejectsUnknownFields(t *testing.T) {
	repo := &stubSettingsRepo{}
	svc := newSettingsService(t, repo, nil)

	_, err := svc.UpdateSection(context.Background(), SectionAccess, json.RawMessage(`{"maxAdminSessions":5,"bogus":true}`))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.stored) != 0 {
		t.Fatalf("invalid payload must not be persisted")
	}
}

func TestUpdateSectionUnknownSection(t *testing.T) {
	svc := newSettingsService(t, &stubSettingsRepo{}, nil)

	_, err := svc.UpdateSection(context.Background(), "smtp", json.RawMessage(`{}`))
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetAllMergesStoredAndDefaults(t *testing.T) {
	repo := &stubSettingsRepo{stored: map[string]json.RawMessage{
		SectionSystem: json.RawMessage(`{"maintenanceMode":true,"backupFrequencyHours":6}`),
	}}
	svc := newSettingsService(t, repo, nil)

	all, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if !all.System.MaintenanceMode || all.System.BackupFrequencyHours != 6 {
		t.Fatalf("stored section not reflected: %+v", all.System)
	}
	if all.Audit.RetentionDays != 90 || !all.Audit.ExportEnabled {
		t.Fatalf("default section not reflected: %+v", all.Audit)
	}
}
