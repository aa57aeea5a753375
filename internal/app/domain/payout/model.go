// Package payout holds generated payout rows and run summaries.
package payout

import "time"

// Type distinguishes the two payout pools.
type Type string

const (
	// TypePerpetual is the flat per-store payout to a founder.
	TypePerpetual Type = "PERPETUAL"
	// TypeContribution is the rank-weighted share of a store's pool.
	TypeContribution Type = "CONTRIB"
)

// Payout is one generated payment to a guide for a store and month. The
// payout table is a derived view: rows for a month are wholly regenerated by
// each calculation run.
type Payout struct {
	ID          string    `json:"id"`
	GuideID     string    `json:"guide_id"`
	StoreID     string    `json:"store_id"`
	Month       string    `json:"month"`
	Type        Type      `json:"type"`
	Amount      int64     `json:"amount"` // integer currency units
	DetailsJSON string    `json:"details_json,omitempty"`
	Locked      bool      `json:"locked"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunSummary reports the outcome of a monthly calculation run.
type RunSummary struct {
	Month             string    `json:"month"`
	GuidesScored      int       `json:"guides_scored"`
	PerpetualTotal    int64     `json:"perpetual_total"`
	ContributionTotal int64     `json:"contribution_total"`
	GrandTotal        int64     `json:"grand_total"`
	CompletedAt       time.Time `json:"completed_at"`
}
