// Package settings defines the typed payout configuration. Settings persist
// as key/JSON rows in payout_settings; this package overlays those rows onto
// compiled-in defaults so the engines never defensively null-check values.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/tourlink/marketplace/internal/app/domain/score"
)

// Well-known setting keys.
const (
	KeyPointValues        = "point_values"
	KeyRankThresholds     = "rank_thresholds"
	KeyRankMultipliers    = "rank_multipliers"
	KeyWeights            = "weights"
	KeyPayoutAmounts      = "payout_amounts"
	KeyContributionLimits = "contribution_limits"
	KeyFounderMaxStores   = "founder_max_stores"
)

// Multipliers maps ranks to payout weight factors.
type Multipliers struct {
	S float64 `json:"S"`
	A float64 `json:"A"`
	B float64 `json:"B"`
	C float64 `json:"C"`
}

// For returns the factor for a rank.
func (m Multipliers) For(r score.Rank) float64 {
	switch r {
	case score.RankS:
		return m.S
	case score.RankA:
		return m.A
	case score.RankB:
		return m.B
	default:
		return m.C
	}
}

// Weights blends monthly and rolling-average scores into the rank score.
type Weights struct {
	Monthly float64 `json:"monthly_weight"`
	Avg3    float64 `json:"avg3_weight"`
}

// Amounts holds the two payout pool sizes in integer currency units.
type Amounts struct {
	PerpetualPerStore    int64 `json:"perpetual_per_store"`
	ContributionPerStore int64 `json:"contribution_per_store"`
}

// ContributionLimits caps contribution inserts per month.
type ContributionLimits struct {
	BMonthlyPerStore int `json:"B_monthly_per_store"`
}

// Payout is the full typed configuration read at the start of each
// calculation run. A run always uses current settings; there is no
// versioning.
type Payout struct {
	PointValues        map[string]int     `json:"point_values"`
	RankThresholds     score.Thresholds   `json:"rank_thresholds"`
	RankMultipliers    Multipliers        `json:"rank_multipliers"`
	Weights            Weights            `json:"weights"`
	Amounts            Amounts            `json:"payout_amounts"`
	ContributionLimits ContributionLimits `json:"contribution_limits"`
	FounderMaxStores   int                `json:"founder_max_stores"`
}

// Default returns the compiled-in configuration.
func Default() Payout {
	return Payout{
		PointValues:        map[string]int{"B": 10},
		RankThresholds:     score.Thresholds{S: 80, A: 50, B: 20, C: 0},
		RankMultipliers:    Multipliers{S: 1.30, A: 1.15, B: 1.00, C: 0.85},
		Weights:            Weights{Monthly: 0.6, Avg3: 0.4},
		Amounts:            Amounts{PerpetualPerStore: 1000, ContributionPerStore: 4000},
		ContributionLimits: ContributionLimits{BMonthlyPerStore: 1},
		FounderMaxStores:   200,
	}
}

// PointsFor returns the base points for a contribution type. Unknown types
// earn zero points rather than failing.
func (p Payout) PointsFor(contributionType string) int {
	return p.PointValues[contributionType]
}

// Overlay applies one stored key/value row onto p. Legacy rows may carry
// partially-populated or loosely-typed JSON, so fields are extracted
// tolerantly with gjson; absent fields keep their current value. Unknown
// keys are reported so callers can log them.
func (p *Payout) Overlay(key string, valueJSON []byte) error {
	if !gjson.ValidBytes(valueJSON) {
		return fmt.Errorf("setting %s: invalid JSON", key)
	}

	switch key {
	case KeyPointValues:
		values := map[string]int{}
		gjson.ParseBytes(valueJSON).ForEach(func(k, v gjson.Result) bool {
			values[k.String()] = int(v.Int())
			return true
		})
		if len(values) > 0 {
			p.PointValues = values
		}
	case KeyRankThresholds:
		overlayFloat(valueJSON, "S", &p.RankThresholds.S)
		overlayFloat(valueJSON, "A", &p.RankThresholds.A)
		overlayFloat(valueJSON, "B", &p.RankThresholds.B)
		overlayFloat(valueJSON, "C", &p.RankThresholds.C)
	case KeyRankMultipliers:
		overlayFloat(valueJSON, "S", &p.RankMultipliers.S)
		overlayFloat(valueJSON, "A", &p.RankMultipliers.A)
		overlayFloat(valueJSON, "B", &p.RankMultipliers.B)
		overlayFloat(valueJSON, "C", &p.RankMultipliers.C)
	case KeyWeights:
		overlayFloat(valueJSON, "monthly_weight", &p.Weights.Monthly)
		overlayFloat(valueJSON, "avg3_weight", &p.Weights.Avg3)
	case KeyPayoutAmounts:
		overlayInt(valueJSON, "perpetual_per_store", &p.Amounts.PerpetualPerStore)
		overlayInt(valueJSON, "contribution_per_store", &p.Amounts.ContributionPerStore)
	case KeyContributionLimits:
		if v := gjson.GetBytes(valueJSON, "B_monthly_per_store"); v.Exists() {
			p.ContributionLimits.BMonthlyPerStore = int(v.Int())
		}
	case KeyFounderMaxStores:
		// Stored either as a bare number or as {"value": n}.
		parsed := gjson.ParseBytes(valueJSON)
		if parsed.Type == gjson.Number {
			p.FounderMaxStores = int(parsed.Int())
		} else if v := parsed.Get("value"); v.Exists() {
			p.FounderMaxStores = int(v.Int())
		}
	default:
		return fmt.Errorf("unknown setting key %s", key)
	}
	return nil
}

// Validate rejects configurations that would break the engines.
func (p Payout) Validate() error {
	if p.FounderMaxStores <= 0 {
		return fmt.Errorf("founder_max_stores must be positive")
	}
	if p.ContributionLimits.BMonthlyPerStore <= 0 {
		return fmt.Errorf("contribution_limits.B_monthly_per_store must be positive")
	}
	if p.Amounts.PerpetualPerStore < 0 || p.Amounts.ContributionPerStore < 0 {
		return fmt.Errorf("payout amounts cannot be negative")
	}
	if p.Weights.Monthly < 0 || p.Weights.Avg3 < 0 {
		return fmt.Errorf("weights cannot be negative")
	}
	return nil
}

// MarshalKey serialises the current value of one key back to JSON, used by
// the settings service when listing effective configuration.
func (p Payout) MarshalKey(key string) ([]byte, error) {
	switch key {
	case KeyPointValues:
		return json.Marshal(p.PointValues)
	case KeyRankThresholds:
		return json.Marshal(p.RankThresholds)
	case KeyRankMultipliers:
		return json.Marshal(p.RankMultipliers)
	case KeyWeights:
		return json.Marshal(p.Weights)
	case KeyPayoutAmounts:
		return json.Marshal(p.Amounts)
	case KeyContributionLimits:
		return json.Marshal(p.ContributionLimits)
	case KeyFounderMaxStores:
		return json.Marshal(p.FounderMaxStores)
	default:
		return nil, fmt.Errorf("unknown setting key %s", key)
	}
}

// Keys lists the well-known setting keys in display order.
func Keys() []string {
	return []string{
		KeyPointValues,
		KeyRankThresholds,
		KeyRankMultipliers,
		KeyWeights,
		KeyPayoutAmounts,
		KeyContributionLimits,
		KeyFounderMaxStores,
	}
}

func overlayFloat(raw []byte, path string, dst *float64) {
	if v := gjson.GetBytes(raw, path); v.Exists() {
		*dst = v.Float()
	}
}

func overlayInt(raw []byte, path string, dst *int64) {
	if v := gjson.GetBytes(raw, path); v.Exists() {
		*dst = v.Int()
	}
}
