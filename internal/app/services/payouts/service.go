// Package payouts implements the monthly calculation run: score every active
// guide, regenerate the month's payout rows, and manage the administrative
// month lock.
package payouts

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/tourlink/marketplace/internal/app/domain/contribution"
	"github.com/tourlink/marketplace/internal/app/domain/directory"
	"github.com/tourlink/marketplace/internal/app/domain/founder"
	"github.com/tourlink/marketplace/internal/app/domain/month"
	"github.com/tourlink/marketplace/internal/app/domain/payout"
	"github.com/tourlink/marketplace/internal/app/domain/score"
	"github.com/tourlink/marketplace/internal/app/domain/settings"
	"github.com/tourlink/marketplace/internal/app/metrics"
	settingssvc "github.com/tourlink/marketplace/internal/app/services/settings"
	"github.com/tourlink/marketplace/internal/app/storage"
	"github.com/tourlink/marketplace/internal/errors"
	"github.com/tourlink/marketplace/pkg/logger"
)

// Deps bundles the stores the payout engine reads and writes.
type Deps struct {
	Contributions storage.ContributionStore
	Founders      storage.FounderStore
	Scores        storage.ScoreStore
	Payouts       storage.PayoutStore
	Calc          storage.MonthCalcStore
	Audit         storage.AuditStore
	Directory     storage.DirectoryStore
	Settings      *settingssvc.Service
}

// Service runs monthly calculations and serves the derived rows.
type Service struct {
	deps Deps
	log  *logger.Logger
}

// New constructs the payout engine.
func New(deps Deps, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("payouts")
	}
	return &Service{deps: deps, log: log}
}

// RunMonthlyCalculation scores every guide active in the given month and
// regenerates the month's payout rows. The run is a full replace: prior score
// and payout rows for the month are discarded in the same transaction that
// writes the new ones, so a failed run leaves the previous state untouched.
// An administratively locked month is refused; unlock it first.
func (s *Service) RunMonthlyCalculation(ctx context.Context, monthStr string) (payout.RunSummary, error) {
	m, err := month.Parse(monthStr)
	if err != nil {
		return payout.RunSummary{}, errors.Validation("invalid month %q: expected YYYY-MM", monthStr)
	}

	locked, err := s.adminLocked(ctx, m.String())
	if err != nil {
		return payout.RunSummary{}, err
	}
	if locked {
		return payout.RunSummary{}, errors.Conflict("month %s is locked; unlock it before recalculating", m)
	}

	cfg, err := s.deps.Settings.Load(ctx)
	if err != nil {
		return payout.RunSummary{}, err
	}

	start := time.Now()
	scores, payoutRows, err := s.compute(ctx, m, cfg)
	if err != nil {
		metrics.RecordCalculationRun(time.Since(start), false)
		return payout.RunSummary{}, err
	}

	if err := s.deps.Calc.ReplaceMonth(ctx, m.String(), scores, payoutRows); err != nil {
		metrics.RecordCalculationRun(time.Since(start), false)
		return payout.RunSummary{}, fmt.Errorf("replace month %s: %w", m, err)
	}

	summary := payout.RunSummary{
		Month:        m.String(),
		GuidesScored: len(scores),
		CompletedAt:  time.Now().UTC(),
	}
	for _, p := range payoutRows {
		switch p.Type {
		case payout.TypePerpetual:
			summary.PerpetualTotal += p.Amount
		case payout.TypeContribution:
			summary.ContributionTotal += p.Amount
		}
	}
	summary.GrandTotal = summary.PerpetualTotal + summary.ContributionTotal

	metrics.RecordCalculationRun(time.Since(start), true)
	metrics.RecordPayoutTotals(summary.PerpetualTotal, summary.ContributionTotal)

	s.log.WithField("month", m.String()).
		WithField("guides_scored", summary.GuidesScored).
		WithField("grand_total", summary.GrandTotal).
		Info("monthly calculation completed")
	return summary, nil
}

// compute derives the month's score and payout rows without writing anything.
func (s *Service) compute(ctx context.Context, m month.Month, cfg settings.Payout) ([]score.MonthlyGuideScore, []payout.Payout, error) {
	contribs, err := s.deps.Contributions.ListContributions(ctx, contribution.Filter{Month: m.String()})
	if err != nil {
		return nil, nil, fmt.Errorf("list contributions: %w", err)
	}
	assignments, err := s.deps.Founders.ListFounders(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list founders: %w", err)
	}
	storeRows, err := s.deps.Directory.ListStores(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list stores: %w", err)
	}

	stores := make(map[string]directory.Store, len(storeRows))
	for _, st := range storeRows {
		stores[st.ID] = st
	}

	// Raw point totals per guide and per (store, guide).
	guidePoints := map[string]float64{}
	storeGuidePoints := map[string]map[string]float64{}
	for _, c := range contribs {
		guidePoints[c.GuideID] += float64(c.BasePoints)
		byGuide := storeGuidePoints[c.StoreID]
		if byGuide == nil {
			byGuide = map[string]float64{}
			storeGuidePoints[c.StoreID] = byGuide
		}
		byGuide[c.GuideID] += float64(c.BasePoints)
	}

	// Every guide with a contribution this month or any founder assignment
	// gets a score row, even when their point total is zero.
	guideSet := map[string]struct{}{}
	for guideID := range guidePoints {
		guideSet[guideID] = struct{}{}
	}
	for _, a := range assignments {
		guideSet[a.GuideID] = struct{}{}
	}
	guideIDs := make([]string, 0, len(guideSet))
	for guideID := range guideSet {
		guideIDs = append(guideIDs, guideID)
	}
	sort.Strings(guideIDs)

	scores := make([]score.MonthlyGuideScore, 0, len(guideIDs))
	rankByGuide := make(map[string]score.Rank, len(guideIDs))
	for _, guideID := range guideIDs {
		prev1, err := s.lookupScore(ctx, guideID, m.Sub(1))
		if err != nil {
			return nil, nil, err
		}
		prev2, err := s.lookupScore(ctx, guideID, m.Sub(2))
		if err != nil {
			return nil, nil, err
		}
		row := buildScore(guideID, m, guidePoints[guideID], prev1, prev2, cfg)
		scores = append(scores, row)
		rankByGuide[guideID] = row.Rank
	}

	payoutRows := s.perpetualPayouts(m, assignments, stores, cfg)
	contribRows, err := contributionPayouts(m, storeGuidePoints, stores, rankByGuide, cfg)
	if err != nil {
		return nil, nil, err
	}
	payoutRows = append(payoutRows, contribRows...)

	return scores, payoutRows, nil
}

// perpetualPayouts emits one flat payout per founder assignment whose store
// is active. The amount ignores contributions and rank entirely.
func (s *Service) perpetualPayouts(m month.Month, assignments []founder.Assignment, stores map[string]directory.Store, cfg settings.Payout) []payout.Payout {
	var rows []payout.Payout
	for _, a := range assignments {
		st, ok := stores[a.StoreID]
		if !ok || !st.IsActive {
			continue
		}
		details, _ := json.Marshal(map[string]string{"store_name": st.StoreName})
		rows = append(rows, payout.Payout{
			GuideID:     a.GuideID,
			StoreID:     a.StoreID,
			Month:       m.String(),
			Type:        payout.TypePerpetual,
			Amount:      cfg.Amounts.PerpetualPerStore,
			DetailsJSON: string(details),
		})
	}
	return rows
}

// contributionPayouts splits each active store's fixed pool across its
// contributing guides in proportion to rank-multiplier-weighted points.
// Amounts round half away from zero independently per guide; rows that round
// to zero or below are dropped rather than persisted.
func contributionPayouts(m month.Month, storeGuidePoints map[string]map[string]float64, stores map[string]directory.Store, rankByGuide map[string]score.Rank, cfg settings.Payout) ([]payout.Payout, error) {
	storeIDs := make([]string, 0, len(storeGuidePoints))
	for storeID := range storeGuidePoints {
		storeIDs = append(storeIDs, storeID)
	}
	sort.Strings(storeIDs)

	var rows []payout.Payout
	for _, storeID := range storeIDs {
		st, ok := stores[storeID]
		if !ok || !st.IsActive {
			continue
		}

		byGuide := storeGuidePoints[storeID]
		guideIDs := make([]string, 0, len(byGuide))
		for guideID := range byGuide {
			guideIDs = append(guideIDs, guideID)
		}
		sort.Strings(guideIDs)

		adjPoints := make(map[string]float64, len(guideIDs))
		var totalAdj float64
		for _, guideID := range guideIDs {
			adj := byGuide[guideID] * cfg.RankMultipliers.For(rankByGuide[guideID])
			adjPoints[guideID] = adj
			totalAdj += adj
		}
		if totalAdj == 0 {
			continue
		}

		pool := float64(cfg.Amounts.ContributionPerStore)
		for _, guideID := range guideIDs {
			amount := roundAmount(pool * adjPoints[guideID] / totalAdj)
			if amount <= 0 {
				continue
			}
			details, err := json.Marshal(contributionDetails{
				RawPoints:  byGuide[guideID],
				Multiplier: cfg.RankMultipliers.For(rankByGuide[guideID]),
				AdjPoints:  adjPoints[guideID],
				StoreTotal: totalAdj,
				Pool:       cfg.Amounts.ContributionPerStore,
			})
			if err != nil {
				return nil, fmt.Errorf("marshal payout details: %w", err)
			}
			rows = append(rows, payout.Payout{
				GuideID:     guideID,
				StoreID:     storeID,
				Month:       m.String(),
				Type:        payout.TypeContribution,
				Amount:      amount,
				DetailsJSON: string(details),
			})
		}
	}
	return rows, nil
}

// contributionDetails explains how one contribution payout amount was derived.
type contributionDetails struct {
	RawPoints  float64 `json:"raw_points"`
	Multiplier float64 `json:"multiplier"`
	AdjPoints  float64 `json:"adj_points"`
	StoreTotal float64 `json:"store_total_adj_points"`
	Pool       int64   `json:"pool"`
}

// lookupScore fetches a prior score row, treating absence as nil.
func (s *Service) lookupScore(ctx context.Context, guideID string, m month.Month) (*score.MonthlyGuideScore, error) {
	row, err := s.deps.Scores.GetScore(ctx, guideID, m.String())
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get score %s/%s: %w", guideID, m, err)
	}
	return &row, nil
}

// GetScore returns one guide's score row for a month.
func (s *Service) GetScore(ctx context.Context, guideID, monthStr string) (score.MonthlyGuideScore, error) {
	if !month.Valid(monthStr) {
		return score.MonthlyGuideScore{}, errors.Validation("invalid month %q: expected YYYY-MM", monthStr)
	}
	row, err := s.deps.Scores.GetScore(ctx, guideID, monthStr)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return score.MonthlyGuideScore{}, errors.NotFound("no score for guide %s in %s", guideID, monthStr)
		}
		return score.MonthlyGuideScore{}, err
	}
	return row, nil
}

// ListScores returns all score rows for a month, ordered by guide.
func (s *Service) ListScores(ctx context.Context, monthStr string) ([]score.MonthlyGuideScore, error) {
	if !month.Valid(monthStr) {
		return nil, errors.Validation("invalid month %q: expected YYYY-MM", monthStr)
	}
	return s.deps.Scores.ListScores(ctx, monthStr)
}

// ListPayouts returns a month's payout rows, optionally filtered to a guide.
func (s *Service) ListPayouts(ctx context.Context, monthStr, guideID string) ([]payout.Payout, error) {
	if !month.Valid(monthStr) {
		return nil, errors.Validation("invalid month %q: expected YYYY-MM", monthStr)
	}
	return s.deps.Payouts.ListPayouts(ctx, monthStr, guideID)
}
