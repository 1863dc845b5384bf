package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/config"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/redis"
)

// sectionCache is the slice of the Redis client the service needs.
type sectionCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SettingsKey(section string) string
}

// Service is the typed settings store. Reads go through the Redis cache;
// writes replace the whole section (last write wins) and invalidate it.
type Service interface {
	GetAll(ctx context.Context) (*Settings, error)
	GetSection(ctx context.Context, section string) (json.RawMessage, error)
	UpdateSection(ctx context.Context, section string, payload json.RawMessage) (json.RawMessage, error)
}

type ServiceParams struct {
	Repo   Repository
	Cache  sectionCache
	Config config.SettingsConfig
	Logger *logger.Logger
}

type service struct {
	repo     Repository
	cache    sectionCache
	cacheTTL time.Duration
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	ttl := params.Config.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &service{
		repo:     params.Repo,
		cache:    params.Cache,
		cacheTTL: ttl,
		logg:     params.Logger,
	}, nil
}

func (s *service) GetAll(ctx context.Context) (*Settings, error) {
	out := &Settings{}
	for _, section := range sectionOrder {
		raw, err := s.GetSection(ctx, section)
		if err != nil {
			return nil, err
		}
		value, _ := sectionDefault(section)
		if err := json.Unmarshal(raw, value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode settings section")
		}
		out.assign(section, value)
	}
	return out, nil
}

func (s *service) GetSection(ctx context.Context, section string) (json.RawMessage, error) {
	if _, ok := sectionDefault(section); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown settings section")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, s.cache.SettingsKey(section))
		if err == nil {
			return json.RawMessage(cached), nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"section": section, "error": err.Error()}), "settings cache read failed")
		}
	}

	raw, err := s.loadSection(ctx, section)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cache.SettingsKey(section), string(raw), s.cacheTTL); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"section": section, "error": err.Error()}), "settings cache write failed")
		}
	}
	return raw, nil
}

func (s *service) UpdateSection(ctx context.Context, section string, payload json.RawMessage) (json.RawMessage, error) {
	value, ok := sectionDefault(section)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown settings section")
	}
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings payload is required")
	}

	// Decode onto the defaults so partial payloads keep default values for
	// omitted fields, and unknown keys are rejected.
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid settings payload")
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settings section")
	}

	if err := s.repo.Upsert(ctx, &models.Setting{
		Section: section,
		Value:   normalized,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store settings section")
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, s.cache.SettingsKey(section)); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"section": section, "error": err.Error()}), "settings cache invalidation failed")
		}
	}

	s.logg.Info(s.logg.WithField(ctx, "section", section), "settings section updated")
	return normalized, nil
}

func (s *service) loadSection(ctx context.Context, section string) (json.RawMessage, error) {
	stored, err := s.repo.FindBySection(ctx, section)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			value, _ := sectionDefault(section)
			return json.Marshal(value)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings section")
	}
	return stored.Value, nil
}
