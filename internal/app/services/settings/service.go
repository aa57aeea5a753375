// Package settings manages the payout configuration rows and their typed view.
package settings

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/tourlink/marketplace/internal/app/domain/settings"
	"github.com/tourlink/marketplace/internal/app/storage"
	"github.com/tourlink/marketplace/internal/errors"
	"github.com/tourlink/marketplace/pkg/logger"
)

// Service reads and updates payout settings.
type Service struct {
	store storage.SettingsStore
	log   *logger.Logger
}

// New constructs a settings service.
func New(store storage.SettingsStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settings")
	}
	return &Service{store: store, log: log}
}

// Load builds the typed configuration from defaults plus stored rows.
// Malformed rows are skipped with a warning rather than failing the caller;
// a calculation run must always be able to read settings.
func (s *Service) Load(ctx context.Context) (domain.Payout, error) {
	cfg := domain.Default()

	rows, err := s.store.ListSettings(ctx)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("list settings: %w", err)
	}
	for _, row := range rows {
		if err := cfg.Overlay(row.Key, row.ValueJSON); err != nil {
			s.log.WithError(err).WithField("key", row.Key).Warn("skipping unusable setting row")
		}
	}
	return cfg, nil
}

// List returns the effective configuration as key/JSON pairs, merging stored
// rows over defaults so every well-known key is present.
func (s *Service) List(ctx context.Context) ([]domain.Row, error) {
	cfg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	updatedAt := map[string]domain.Row{}
	for _, row := range stored {
		updatedAt[row.Key] = row
	}

	var result []domain.Row
	for _, key := range domain.Keys() {
		value, err := cfg.MarshalKey(key)
		if err != nil {
			return nil, err
		}
		row := domain.Row{Key: key, ValueJSON: value}
		if existing, ok := updatedAt[key]; ok {
			row.UpdatedAt = existing.UpdatedAt
		}
		result = append(result, row)
	}
	return result, nil
}

// Update validates and persists one setting key. The new value is checked by
// round-tripping it through the typed configuration before any write.
func (s *Service) Update(ctx context.Context, key string, valueJSON []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.Validation("setting key is required")
	}

	cfg, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Overlay(key, valueJSON); err != nil {
		return errors.Validation("setting %s rejected: %v", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Validation("setting %s would break configuration: %v", key, err)
	}

	if err := s.store.UpsertSetting(ctx, key, valueJSON); err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}

	s.log.WithField("key", key).Info("payout setting updated")
	return nil
}
