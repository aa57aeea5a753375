// Package guides exposes the read-mostly guide and store directory.
package guides

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/tourlink/marketplace/internal/app/domain/directory"
	"github.com/tourlink/marketplace/internal/app/storage"
	"github.com/tourlink/marketplace/internal/errors"
	"github.com/tourlink/marketplace/pkg/logger"
)

// Service answers directory lookups for guides and stores.
type Service struct {
	store storage.DirectoryStore
	log   *logger.Logger
}

// New constructs a guides service.
func New(store storage.DirectoryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("guides")
	}
	return &Service{store: store, log: log}
}

// Get returns a guide by ID.
func (s *Service) Get(ctx context.Context, guideID string) (directory.Guide, error) {
	guideID = strings.TrimSpace(guideID)
	if guideID == "" {
		return directory.Guide{}, errors.Validation("guide_id is required")
	}
	g, err := s.store.GetGuide(ctx, guideID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return directory.Guide{}, errors.NotFound("guide %s not found", guideID)
		}
		return directory.Guide{}, err
	}
	return g, nil
}

// ResolveByDashboardKey identifies the guide behind a personal dashboard key.
// An unknown key is a plain not-found: callers render an empty dashboard
// rather than an error page.
func (s *Service) ResolveByDashboardKey(ctx context.Context, key string) (directory.Guide, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return directory.Guide{}, errors.Validation("dashboard key is required")
	}
	g, err := s.store.GetGuideByDashboardKey(ctx, key)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return directory.Guide{}, errors.NotFound("no guide for this dashboard key")
		}
		return directory.Guide{}, err
	}
	return g, nil
}

// List returns all known guides.
func (s *Service) List(ctx context.Context) ([]directory.Guide, error) {
	return s.store.ListGuides(ctx)
}

// GetStore returns a store by ID.
func (s *Service) GetStore(ctx context.Context, storeID string) (directory.Store, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return directory.Store{}, errors.Validation("store_id is required")
	}
	st, err := s.store.GetStore(ctx, storeID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return directory.Store{}, errors.NotFound("store %s not found", storeID)
		}
		return directory.Store{}, err
	}
	return st, nil
}

// ListStores returns all known stores.
func (s *Service) ListStores(ctx context.Context) ([]directory.Store, error) {
	return s.store.ListStores(ctx)
}
