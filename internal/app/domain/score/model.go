// Package score holds monthly guide scores and the rank tier rules.
package score

import "time"

// Rank is a guide's payout tier.
type Rank string

const (
	RankC Rank = "C"
	RankB Rank = "B"
	RankA Rank = "A"
	RankS Rank = "S"
)

// RankOrder lists tiers from lowest to highest. Decay limiting is index
// arithmetic over this sequence.
var RankOrder = []Rank{RankC, RankB, RankA, RankS}

// Index returns the position of r in RankOrder, or 0 for unknown values.
func Index(r Rank) int {
	for i, candidate := range RankOrder {
		if candidate == r {
			return i
		}
	}
	return 0
}

// Thresholds holds the minimum rank score for each tier.
type Thresholds struct {
	S float64 `json:"S"`
	A float64 `json:"A"`
	B float64 `json:"B"`
	C float64 `json:"C"`
}

// RankFor derives the tier from a rank score; the highest qualifying tier
// wins, checked in order S, A, B, C.
func RankFor(rankScore float64, t Thresholds) Rank {
	switch {
	case rankScore >= t.S:
		return RankS
	case rankScore >= t.A:
		return RankA
	case rankScore >= t.B:
		return RankB
	default:
		return RankC
	}
}

// LimitDrop applies the one-tier-per-month decay limit: the returned rank is
// never more than one tier below prev. Upgrades pass through unchanged.
func LimitDrop(prev, computed Rank) Rank {
	prevIdx := Index(prev)
	compIdx := Index(computed)
	if compIdx < prevIdx-1 {
		return RankOrder[prevIdx-1]
	}
	return computed
}

// MonthlyGuideScore is one guide's scored month. One row per (GuideID, Month).
type MonthlyGuideScore struct {
	GuideID      string    `json:"guide_id"`
	Month        string    `json:"month"`
	MonthlyScore float64   `json:"monthly_score"`
	Avg3Score    float64   `json:"avg3_score"`
	RankScore    float64   `json:"rank_score"`
	Rank         Rank      `json:"rank"`
	Locked       bool      `json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
}
