package settings

import (
	"testing"

	"github.com/tourlink/marketplace/internal/app/domain/score"
)

func TestDefaultMatchesDocumentedValues(t *testing.T) {
	p := Default()
	if p.RankThresholds.S != 80 || p.RankThresholds.B != 20 {
		t.Fatalf("thresholds: %+v", p.RankThresholds)
	}
	if p.RankMultipliers.For(score.RankS) != 1.30 || p.RankMultipliers.For(score.RankC) != 0.85 {
		t.Fatalf("multipliers: %+v", p.RankMultipliers)
	}
	if p.Weights.Monthly != 0.6 || p.Weights.Avg3 != 0.4 {
		t.Fatalf("weights: %+v", p.Weights)
	}
	if p.Amounts.PerpetualPerStore != 1000 || p.Amounts.ContributionPerStore != 4000 {
		t.Fatalf("amounts: %+v", p.Amounts)
	}
	if p.FounderMaxStores != 200 {
		t.Fatalf("founder cap: %d", p.FounderMaxStores)
	}
	if p.ContributionLimits.BMonthlyPerStore != 1 {
		t.Fatalf("B cap: %d", p.ContributionLimits.BMonthlyPerStore)
	}
}

func TestPointsForUnknownTypeIsZero(t *testing.T) {
	p := Default()
	if p.PointsFor("Z") != 0 {
		t.Fatal("unknown type should earn zero points")
	}
	if p.PointsFor("B") != 10 {
		t.Fatalf("B points: %d", p.PointsFor("B"))
	}
}

func TestOverlayPartialRow(t *testing.T) {
	p := Default()
	if err := p.Overlay(KeyRankThresholds, []byte(`{"S": 90}`)); err != nil {
		t.Fatalf("overlay: %v", err)
	}
	if p.RankThresholds.S != 90 {
		t.Fatalf("S threshold not overlaid: %v", p.RankThresholds.S)
	}
	if p.RankThresholds.A != 50 {
		t.Fatalf("absent field must keep default: %v", p.RankThresholds.A)
	}
}

func TestOverlayLooselyTypedNumbers(t *testing.T) {
	p := Default()
	// Legacy rows sometimes store numbers as strings.
	if err := p.Overlay(KeyPayoutAmounts, []byte(`{"perpetual_per_store": "1500"}`)); err != nil {
		t.Fatalf("overlay: %v", err)
	}
	if p.Amounts.PerpetualPerStore != 1500 {
		t.Fatalf("amount: %d", p.Amounts.PerpetualPerStore)
	}
}

func TestOverlayFounderMaxStoresForms(t *testing.T) {
	p := Default()
	if err := p.Overlay(KeyFounderMaxStores, []byte(`150`)); err != nil {
		t.Fatalf("bare number: %v", err)
	}
	if p.FounderMaxStores != 150 {
		t.Fatalf("cap: %d", p.FounderMaxStores)
	}
	if err := p.Overlay(KeyFounderMaxStores, []byte(`{"value": 120}`)); err != nil {
		t.Fatalf("wrapped number: %v", err)
	}
	if p.FounderMaxStores != 120 {
		t.Fatalf("cap: %d", p.FounderMaxStores)
	}
}

func TestOverlayRejectsInvalidJSONAndUnknownKey(t *testing.T) {
	p := Default()
	if err := p.Overlay(KeyWeights, []byte(`{`)); err == nil {
		t.Fatal("invalid JSON should error")
	}
	if err := p.Overlay("mystery", []byte(`{}`)); err == nil {
		t.Fatal("unknown key should error")
	}
}

func TestValidate(t *testing.T) {
	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("default must validate: %v", err)
	}
	p.FounderMaxStores = 0
	if err := p.Validate(); err == nil {
		t.Fatal("zero founder cap must fail validation")
	}
}
