// Package contributions manages the guide contribution ledger.
package contributions

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tourlink/marketplace/internal/app/domain/contribution"
	"github.com/tourlink/marketplace/internal/app/domain/month"
	settingssvc "github.com/tourlink/marketplace/internal/app/services/settings"
	"github.com/tourlink/marketplace/internal/app/storage"
	"github.com/tourlink/marketplace/internal/errors"
	"github.com/tourlink/marketplace/pkg/logger"
)

// Service records and lists guide contributions.
type Service struct {
	store     storage.ContributionStore
	directory storage.DirectoryStore
	settings  *settingssvc.Service
	log       *logger.Logger
}

// New constructs a contributions service.
func New(store storage.ContributionStore, directory storage.DirectoryStore, settings *settingssvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("contributions")
	}
	return &Service{
		store:     store,
		directory: directory,
		settings:  settings,
		log:       log,
	}
}

// Add records a contribution. Base points are derived from the type's point
// definition at insert time; an unknown type earns zero points rather than
// failing. Type "B" rows are capped per (guide, store, month).
func (s *Service) Add(ctx context.Context, storeID, guideID, monthID, contributionType, evidenceURL, memo string) (contribution.Record, error) {
	storeID = strings.TrimSpace(storeID)
	guideID = strings.TrimSpace(guideID)
	monthID = strings.TrimSpace(monthID)
	contributionType = strings.TrimSpace(contributionType)

	if storeID == "" || guideID == "" {
		return contribution.Record{}, errors.Validation("store_id and guide_id are required")
	}
	if contributionType == "" {
		return contribution.Record{}, errors.Validation("contribution type is required")
	}
	if !month.Valid(monthID) {
		return contribution.Record{}, errors.Validation("invalid month %q: want YYYY-MM", monthID)
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return contribution.Record{}, err
	}

	if contributionType == "B" {
		count, err := s.store.CountContributions(ctx, guideID, storeID, monthID, "B")
		if err != nil {
			return contribution.Record{}, fmt.Errorf("count B contributions: %w", err)
		}
		if count >= cfg.ContributionLimits.BMonthlyPerStore {
			return contribution.Record{}, errors.Capacity(
				"type B contributions are limited to %d per store per month for each guide",
				cfg.ContributionLimits.BMonthlyPerStore)
		}
	}

	rec := contribution.Record{
		StoreID:     storeID,
		GuideID:     guideID,
		Month:       monthID,
		Type:        contributionType,
		BasePoints:  cfg.PointsFor(contributionType),
		EvidenceURL: strings.TrimSpace(evidenceURL),
		Memo:        strings.TrimSpace(memo),
	}

	created, err := s.store.CreateContribution(ctx, rec)
	if err != nil {
		return contribution.Record{}, fmt.Errorf("create contribution: %w", err)
	}

	s.log.WithField("contribution_id", created.ID).
		WithField("guide_id", guideID).
		WithField("store_id", storeID).
		WithField("month", monthID).
		WithField("points", created.BasePoints).
		Info("contribution recorded")

	return created, nil
}

// Delete removes a contribution unconditionally. Scores and payouts are not
// recomputed automatically; a later calculation run picks up the change.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Validation("contribution id is required")
	}
	if err := s.store.DeleteContribution(ctx, id); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("contribution %s does not exist", id)
		}
		return fmt.Errorf("delete contribution: %w", err)
	}
	s.log.WithField("contribution_id", id).Info("contribution deleted")
	return nil
}

// List returns matching records newest-first, enriched with guide and store
// display names.
func (s *Service) List(ctx context.Context, f contribution.Filter) ([]contribution.View, error) {
	if f.Month != "" && !month.Valid(f.Month) {
		return nil, errors.Validation("invalid month %q: want YYYY-MM", f.Month)
	}

	records, err := s.store.ListContributions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}

	guideNames := map[string]string{}
	storeNames := map[string]string{}

	views := make([]contribution.View, 0, len(records))
	for _, rec := range records {
		view := contribution.View{Record: rec}

		if name, ok := guideNames[rec.GuideID]; ok {
			view.GuideName = name
		} else if guide, err := s.directory.GetGuide(ctx, rec.GuideID); err == nil {
			guideNames[rec.GuideID] = guide.GuideName
			view.GuideName = guide.GuideName
		}

		if name, ok := storeNames[rec.StoreID]; ok {
			view.StoreName = name
		} else if st, err := s.directory.GetStore(ctx, rec.StoreID); err == nil {
			storeNames[rec.StoreID] = st.StoreName
			view.StoreName = st.StoreName
		}

		views = append(views, view)
	}
	return views, nil
}
