package payouts

import (
	"context"
	"testing"

	"github.com/tourlink/marketplace/internal/app/domain/contribution"
	"github.com/tourlink/marketplace/internal/app/domain/directory"
	"github.com/tourlink/marketplace/internal/app/domain/founder"
	"github.com/tourlink/marketplace/internal/app/domain/payout"
	"github.com/tourlink/marketplace/internal/app/domain/score"
	settingssvc "github.com/tourlink/marketplace/internal/app/services/settings"
	"github.com/tourlink/marketplace/internal/app/storage/memory"
	"github.com/tourlink/marketplace/internal/errors"
)

func newEngine(store *memory.Store) *Service {
	return New(Deps{
		Contributions: store,
		Founders:      store,
		Scores:        store,
		Payouts:       store,
		Calc:          store,
		Audit:         store,
		Directory:     store,
		Settings:      settingssvc.New(store, nil),
	}, nil)
}

func seedContribution(t *testing.T, store *memory.Store, storeID, guideID, month string, points int) {
	t.Helper()
	_, err := store.CreateContribution(context.Background(), contribution.Record{
		StoreID: storeID, GuideID: guideID, Month: month, Type: "B", BasePoints: points,
	})
	if err != nil {
		t.Fatalf("seed contribution: %v", err)
	}
}

func seedFounder(t *testing.T, store *memory.Store, storeID, guideID string) {
	t.Helper()
	if _, err := store.UpsertFounder(context.Background(), founder.Assignment{
		StoreID: storeID, GuideID: guideID,
	}); err != nil {
		t.Fatalf("seed founder: %v", err)
	}
}

func TestRunEmptyMonth(t *testing.T) {
	store := memory.New()
	svc := newEngine(store)

	summary, err := svc.RunMonthlyCalculation(context.Background(), "2025-03")
	if err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}
	if summary.GuidesScored != 0 || summary.GrandTotal != 0 {
		t.Fatalf("expected empty run, got %+v", summary)
	}

	rows, err := svc.ListPayouts(context.Background(), "2025-03", "")
	if err != nil {
		t.Fatalf("ListPayouts: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no payouts, got %d", len(rows))
	}
}

func TestRunRejectsBadMonth(t *testing.T) {
	svc := newEngine(memory.New())
	if _, err := svc.RunMonthlyCalculation(context.Background(), "2025-3"); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected VALIDATION error, got %v", err)
	}
}

func TestRunFirstMonthScore(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	seedContribution(t, store, "store-1", "guide-1", "2025-03", 10)
	svc := newEngine(store)

	summary, err := svc.RunMonthlyCalculation(context.Background(), "2025-03")
	if err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}
	if summary.GuidesScored != 1 {
		t.Fatalf("expected 1 guide scored, got %d", summary.GuidesScored)
	}

	row, err := svc.GetScore(context.Background(), "guide-1", "2025-03")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	if row.MonthlyScore != 10 || row.Avg3Score != 10 || row.RankScore != 10 {
		t.Fatalf("unexpected scores: %+v", row)
	}
	if row.Rank != score.RankC {
		t.Fatalf("expected rank C for score 10, got %s", row.Rank)
	}
	if !row.Locked {
		t.Fatal("expected score row locked after run")
	}
}

func TestRunPerpetualPayouts(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	store.SeedStore(directory.Store{ID: "store-2", StoreName: "Closed Shop", IsActive: false})
	seedFounder(t, store, "store-1", "guide-1")
	seedFounder(t, store, "store-2", "guide-1")
	svc := newEngine(store)

	summary, err := svc.RunMonthlyCalculation(context.Background(), "2025-03")
	if err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}
	if summary.PerpetualTotal != 1000 {
		t.Fatalf("expected perpetual total 1000 (inactive store excluded), got %d", summary.PerpetualTotal)
	}

	rows, err := svc.ListPayouts(context.Background(), "2025-03", "guide-1")
	if err != nil {
		t.Fatalf("ListPayouts: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 payout, got %d", len(rows))
	}
	if rows[0].Type != payout.TypePerpetual || rows[0].Amount != 1000 || rows[0].StoreID != "store-1" {
		t.Fatalf("unexpected payout: %+v", rows[0])
	}
}

func TestRunContributionSplit(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	seedContribution(t, store, "store-1", "guide-1", "2025-03", 30)
	seedContribution(t, store, "store-1", "guide-2", "2025-03", 70)
	svc := newEngine(store)

	// Flatten multipliers so the split depends on raw points alone.
	ctx := context.Background()
	if err := settingssvc.New(store, nil).Update(ctx, "rank_multipliers", []byte(`{"S":1,"A":1,"B":1,"C":1}`)); err != nil {
		t.Fatalf("Update settings: %v", err)
	}

	summary, err := svc.RunMonthlyCalculation(ctx, "2025-03")
	if err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}
	if summary.ContributionTotal != 4000 {
		t.Fatalf("expected contribution total 4000, got %d", summary.ContributionTotal)
	}

	amounts := map[string]int64{}
	rows, err := svc.ListPayouts(ctx, "2025-03", "")
	if err != nil {
		t.Fatalf("ListPayouts: %v", err)
	}
	for _, p := range rows {
		if p.Type != payout.TypeContribution {
			t.Fatalf("unexpected payout type %s", p.Type)
		}
		amounts[p.GuideID] = p.Amount
	}
	if amounts["guide-1"] != 1200 || amounts["guide-2"] != 2800 {
		t.Fatalf("expected 1200/2800 split, got %v", amounts)
	}
}

func TestRunContributionPoolBound(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	// Odd point totals force fractional shares with independent rounding.
	seedContribution(t, store, "store-1", "guide-1", "2025-03", 33)
	seedContribution(t, store, "store-1", "guide-2", "2025-03", 33)
	seedContribution(t, store, "store-1", "guide-3", "2025-03", 35)
	svc := newEngine(store)

	ctx := context.Background()
	if _, err := svc.RunMonthlyCalculation(ctx, "2025-03"); err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}

	rows, err := svc.ListPayouts(ctx, "2025-03", "")
	if err != nil {
		t.Fatalf("ListPayouts: %v", err)
	}
	var total int64
	for _, p := range rows {
		if p.Amount > 4000 {
			t.Fatalf("single payout %d exceeds the pool", p.Amount)
		}
		total += p.Amount
	}
	// Independent rounding may drift from the pool by at most one unit per
	// guide beyond the first.
	if total > 4000+int64(len(rows)-1) || total < 4000-int64(len(rows)-1) {
		t.Fatalf("total %d deviates from pool by more than %d", total, len(rows)-1)
	}
}

func TestRunSkipsInactiveStorePool(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Closed Shop", IsActive: false})
	seedContribution(t, store, "store-1", "guide-1", "2025-03", 50)
	svc := newEngine(store)

	summary, err := svc.RunMonthlyCalculation(context.Background(), "2025-03")
	if err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}
	// The guide is still scored; only the payout is withheld.
	if summary.GuidesScored != 1 {
		t.Fatalf("expected 1 guide scored, got %d", summary.GuidesScored)
	}
	if summary.ContributionTotal != 0 {
		t.Fatalf("expected no contribution payouts for inactive store, got %d", summary.ContributionTotal)
	}
}

func TestRunDropsZeroAmountRows(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	seedContribution(t, store, "store-1", "guide-1", "2025-03", 100000)
	seedContribution(t, store, "store-1", "guide-2", "2025-03", 1)
	svc := newEngine(store)

	ctx := context.Background()
	if _, err := svc.RunMonthlyCalculation(ctx, "2025-03"); err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}

	rows, err := svc.ListPayouts(ctx, "2025-03", "guide-2")
	if err != nil {
		t.Fatalf("ListPayouts: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no payout row for a share that rounds to zero, got %+v", rows)
	}
}

func TestRunDecayLimit(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	svc := newEngine(store)
	ctx := context.Background()

	// Plant a prior month where the guide held rank S despite a monthly
	// score that will drag the blended score down hard.
	prior := score.MonthlyGuideScore{
		GuideID: "guide-1", Month: "2025-02", MonthlyScore: 0, Avg3Score: 0, RankScore: 90, Rank: score.RankS,
	}
	if err := store.ReplaceMonth(ctx, "2025-02", []score.MonthlyGuideScore{prior}, nil); err != nil {
		t.Fatalf("ReplaceMonth: %v", err)
	}

	seedContribution(t, store, "store-1", "guide-1", "2025-03", 10)
	if _, err := svc.RunMonthlyCalculation(ctx, "2025-03"); err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}

	row, err := svc.GetScore(ctx, "guide-1", "2025-03")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	// Raw rank is C (0.7·10 + 0.3·0 = 7 < 20) but decay limiting caps the
	// drop from S at one tier.
	if row.Rank != score.RankA {
		t.Fatalf("expected rank A after decay limiting, got %s", row.Rank)
	}
}

func TestRunIdempotent(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	seedFounder(t, store, "store-1", "guide-1")
	seedContribution(t, store, "store-1", "guide-1", "2025-03", 30)
	seedContribution(t, store, "store-1", "guide-2", "2025-03", 70)
	svc := newEngine(store)
	ctx := context.Background()

	first, err := svc.RunMonthlyCalculation(ctx, "2025-03")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstScores, _ := svc.ListScores(ctx, "2025-03")
	firstPayouts, _ := svc.ListPayouts(ctx, "2025-03", "")

	// A run self-locks its score rows; that must not block a re-run.
	second, err := svc.RunMonthlyCalculation(ctx, "2025-03")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	secondScores, _ := svc.ListScores(ctx, "2025-03")
	secondPayouts, _ := svc.ListPayouts(ctx, "2025-03", "")

	if first.GuidesScored != second.GuidesScored || first.GrandTotal != second.GrandTotal {
		t.Fatalf("summaries differ: %+v vs %+v", first, second)
	}
	if len(firstScores) != len(secondScores) {
		t.Fatalf("score counts differ: %d vs %d", len(firstScores), len(secondScores))
	}
	for i := range firstScores {
		a, b := firstScores[i], secondScores[i]
		if a.GuideID != b.GuideID || a.MonthlyScore != b.MonthlyScore || a.RankScore != b.RankScore || a.Rank != b.Rank {
			t.Fatalf("score row %d differs: %+v vs %+v", i, a, b)
		}
	}
	if len(firstPayouts) != len(secondPayouts) {
		t.Fatalf("payout counts differ: %d vs %d", len(firstPayouts), len(secondPayouts))
	}
	for i := range firstPayouts {
		a, b := firstPayouts[i], secondPayouts[i]
		if a.GuideID != b.GuideID || a.StoreID != b.StoreID || a.Type != b.Type || a.Amount != b.Amount {
			t.Fatalf("payout row %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestRunRefusesLockedMonth(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	seedContribution(t, store, "store-1", "guide-1", "2025-03", 10)
	svc := newEngine(store)
	ctx := context.Background()

	if _, err := svc.RunMonthlyCalculation(ctx, "2025-03"); err != nil {
		t.Fatalf("initial run: %v", err)
	}
	if _, err := svc.Lock(ctx, "2025-03", "alice", "admin", "books closed"); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// New data arrives; the locked month must not pick it up.
	seedContribution(t, store, "store-1", "guide-2", "2025-03", 50)

	_, err := svc.RunMonthlyCalculation(ctx, "2025-03")
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("expected CONFLICT error, got %v", err)
	}

	rows, err := svc.ListScores(ctx, "2025-03")
	if err != nil {
		t.Fatalf("ListScores: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("locked month was rewritten: %d score rows", len(rows))
	}
}

func TestRunBlendsConfiguredWeights(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	svc := newEngine(store)
	ctx := context.Background()

	// Two prior months on record puts the guide on the configured 0.6/0.4
	// blend.
	priors := []score.MonthlyGuideScore{
		{GuideID: "guide-1", Month: "2025-01", MonthlyScore: 40, Rank: score.RankB},
	}
	if err := store.ReplaceMonth(ctx, "2025-01", priors, nil); err != nil {
		t.Fatalf("ReplaceMonth 2025-01: %v", err)
	}
	priors = []score.MonthlyGuideScore{
		{GuideID: "guide-1", Month: "2025-02", MonthlyScore: 60, Rank: score.RankA},
	}
	if err := store.ReplaceMonth(ctx, "2025-02", priors, nil); err != nil {
		t.Fatalf("ReplaceMonth 2025-02: %v", err)
	}

	seedContribution(t, store, "store-1", "guide-1", "2025-03", 100)
	if _, err := svc.RunMonthlyCalculation(ctx, "2025-03"); err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}

	row, err := svc.GetScore(ctx, "guide-1", "2025-03")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	if row.Avg3Score != 50 {
		t.Fatalf("expected avg3 50 (mean of 60 and 40), got %v", row.Avg3Score)
	}
	// 0.6·100 + 0.4·50 = 80 ⇒ rank S.
	if row.RankScore != 80 || row.Rank != score.RankS {
		t.Fatalf("expected rank score 80 / rank S, got %v / %s", row.RankScore, row.Rank)
	}
}

func TestRunYearBoundaryPriors(t *testing.T) {
	store := memory.New()
	store.SeedStore(directory.Store{ID: "store-1", StoreName: "Harbor Cafe", IsActive: true})
	svc := newEngine(store)
	ctx := context.Background()

	prior := []score.MonthlyGuideScore{
		{GuideID: "guide-1", Month: "2024-12", MonthlyScore: 50, Rank: score.RankA},
	}
	if err := store.ReplaceMonth(ctx, "2024-12", prior, nil); err != nil {
		t.Fatalf("ReplaceMonth: %v", err)
	}

	seedContribution(t, store, "store-1", "guide-1", "2025-01", 10)
	if _, err := svc.RunMonthlyCalculation(ctx, "2025-01"); err != nil {
		t.Fatalf("RunMonthlyCalculation: %v", err)
	}

	row, err := svc.GetScore(ctx, "guide-1", "2025-01")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	// December 2024 must be found as the prior month: avg3 = 50 and the
	// two-month blend applies (0.7·10 + 0.3·50 = 22).
	if row.Avg3Score != 50 || row.RankScore != 22 {
		t.Fatalf("prior month not found across year boundary: %+v", row)
	}
}
