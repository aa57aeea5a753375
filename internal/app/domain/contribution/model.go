// Package contribution holds guide contribution ledger records.
package contribution

import "time"

// Record is one point-earning guide action at a store in a month. BasePoints
// is derived from Type at insert time and immutable thereafter.
type Record struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	GuideID     string    `json:"guide_id"`
	Month       string    `json:"month"` // YYYY-MM
	Type        string    `json:"type"`  // single letter code, e.g. "B" = usage/experience
	BasePoints  int       `json:"base_points"`
	EvidenceURL string    `json:"evidence_url,omitempty"`
	Memo        string    `json:"memo,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// View is a Record enriched with display names for the admin list endpoints.
// The names come from a read-side join and are not part of the entity.
type View struct {
	Record
	GuideName string `json:"guide_name"`
	StoreName string `json:"store_name"`
}

// Filter narrows ledger queries. Zero values match everything.
type Filter struct {
	Month   string
	GuideID string
	StoreID string
}
