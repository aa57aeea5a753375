package settings

import (
	"context"
	"testing"

	domain "github.com/tourlink/marketplace/internal/app/domain/settings"
	"github.com/tourlink/marketplace/internal/app/storage/memory"
	"github.com/tourlink/marketplace/internal/errors"
)

func TestLoadAppliesStoredOverlays(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	if err := store.UpsertSetting(ctx, domain.KeyPayoutAmounts, []byte(`{"contribution_per_store": 5000}`)); err != nil {
		t.Fatalf("seed setting: %v", err)
	}

	cfg, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Amounts.ContributionPerStore != 5000 {
		t.Fatalf("stored value not applied: %d", cfg.Amounts.ContributionPerStore)
	}
	if cfg.Amounts.PerpetualPerStore != 1000 {
		t.Fatalf("default lost: %d", cfg.Amounts.PerpetualPerStore)
	}
}

func TestLoadSkipsMalformedRow(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	if err := store.UpsertSetting(ctx, domain.KeyWeights, []byte(`{not json`)); err != nil {
		t.Fatalf("seed setting: %v", err)
	}

	cfg, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("load must tolerate bad rows: %v", err)
	}
	if cfg.Weights.Monthly != 0.6 {
		t.Fatalf("defaults should survive: %v", cfg.Weights.Monthly)
	}
}

func TestUpdateRejectsInvalidValue(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	err := svc.Update(ctx, domain.KeyFounderMaxStores, []byte(`0`))
	if !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}

	if err := svc.Update(ctx, "bogus_key", []byte(`{}`)); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("unknown key should be VALIDATION, got %v", err)
	}
}

func TestUpdateThenLoadRoundTrips(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	if err := svc.Update(ctx, domain.KeyRankThresholds, []byte(`{"S": 95, "A": 60}`)); err != nil {
		t.Fatalf("update: %v", err)
	}

	cfg, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RankThresholds.S != 95 || cfg.RankThresholds.A != 60 {
		t.Fatalf("thresholds: %+v", cfg.RankThresholds)
	}
	if cfg.RankThresholds.B != 20 {
		t.Fatalf("untouched threshold changed: %v", cfg.RankThresholds.B)
	}
}

func TestListCoversAllWellKnownKeys(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	rows, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != len(domain.Keys()) {
		t.Fatalf("rows %d, want %d", len(rows), len(domain.Keys()))
	}
}
