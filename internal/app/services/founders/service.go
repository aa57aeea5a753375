// Package founders manages guide-to-store founder assignments.
package founders

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tourlink/marketplace/internal/app/domain/founder"
	settingssvc "github.com/tourlink/marketplace/internal/app/services/settings"
	"github.com/tourlink/marketplace/internal/app/storage"
	"github.com/tourlink/marketplace/internal/errors"
	"github.com/tourlink/marketplace/pkg/logger"
)

// Service manages the founder registry.
type Service struct {
	store    storage.FounderStore
	settings *settingssvc.Service
	log      *logger.Logger
}

// New constructs a founders service.
func New(store storage.FounderStore, settings *settingssvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("founders")
	}
	return &Service{store: store, settings: settings, log: log}
}

// Assign makes guideID the founder of storeID. A store has one founder, so
// reassignment overwrites. A guide holds at most founder_max_stores
// assignments; when the cap is hit the existing assignment is untouched.
func (s *Service) Assign(ctx context.Context, storeID, guideID string) (founder.Assignment, error) {
	storeID = strings.TrimSpace(storeID)
	guideID = strings.TrimSpace(guideID)
	if storeID == "" || guideID == "" {
		return founder.Assignment{}, errors.Validation("store_id and guide_id are required")
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return founder.Assignment{}, err
	}

	count, err := s.store.CountFoundersByGuide(ctx, guideID)
	if err != nil {
		return founder.Assignment{}, fmt.Errorf("count founder assignments: %w", err)
	}

	// Reassigning a store the guide already founds does not consume a slot.
	if existing, err := s.store.GetFounderByStore(ctx, storeID); err == nil && existing.GuideID == guideID {
		count--
	}

	if count >= cfg.FounderMaxStores {
		return founder.Assignment{}, errors.Capacity(
			"guide %s already founds %d stores; the limit is %d", guideID, count, cfg.FounderMaxStores)
	}

	assigned, err := s.store.UpsertFounder(ctx, founder.Assignment{StoreID: storeID, GuideID: guideID})
	if err != nil {
		return founder.Assignment{}, fmt.Errorf("assign founder: %w", err)
	}

	s.log.WithField("store_id", storeID).
		WithField("guide_id", guideID).
		Info("founder assigned")
	return assigned, nil
}

// Remove deletes a store's founder assignment unconditionally.
func (s *Service) Remove(ctx context.Context, storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return errors.Validation("store_id is required")
	}
	if err := s.store.RemoveFounder(ctx, storeID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("store %s has no founder", storeID)
		}
		return fmt.Errorf("remove founder: %w", err)
	}
	s.log.WithField("store_id", storeID).Info("founder removed")
	return nil
}

// GetByStore looks up a store's founder.
func (s *Service) GetByStore(ctx context.Context, storeID string) (founder.Assignment, error) {
	a, err := s.store.GetFounderByStore(ctx, storeID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return founder.Assignment{}, errors.NotFound("store %s has no founder", storeID)
		}
		return founder.Assignment{}, err
	}
	return a, nil
}

// CountByGuide reports how many stores a guide founds.
func (s *Service) CountByGuide(ctx context.Context, guideID string) (int, error) {
	return s.store.CountFoundersByGuide(ctx, guideID)
}

// ListByGuide lists a guide's assignments; an empty guideID lists all.
func (s *Service) ListByGuide(ctx context.Context, guideID string) ([]founder.Assignment, error) {
	if guideID == "" {
		return s.store.ListFounders(ctx)
	}
	return s.store.ListFoundersByGuide(ctx, guideID)
}
