package storage

import (
	"context"
	"errors"

	"github.com/tourlink/marketplace/internal/app/domain/audit"
	"github.com/tourlink/marketplace/internal/app/domain/contribution"
	"github.com/tourlink/marketplace/internal/app/domain/directory"
	"github.com/tourlink/marketplace/internal/app/domain/founder"
	"github.com/tourlink/marketplace/internal/app/domain/payout"
	"github.com/tourlink/marketplace/internal/app/domain/score"
	"github.com/tourlink/marketplace/internal/app/domain/settings"
)

// ErrNotFound reports an absent row. Both store implementations return it
// (possibly wrapped) so services can distinguish absence from failure.
var ErrNotFound = errors.New("not found")

// SettingsStore persists payout_settings rows.
type SettingsStore interface {
	ListSettings(ctx context.Context) ([]settings.Row, error)
	UpsertSetting(ctx context.Context, key string, valueJSON []byte) error
}

// ContributionStore persists the contribution ledger.
type ContributionStore interface {
	CreateContribution(ctx context.Context, rec contribution.Record) (contribution.Record, error)
	DeleteContribution(ctx context.Context, id string) error
	// ListContributions returns matching records newest-first.
	ListContributions(ctx context.Context, f contribution.Filter) ([]contribution.Record, error)
	// CountContributions counts rows for (guide, store, month, type).
	CountContributions(ctx context.Context, guideID, storeID, month, contributionType string) (int, error)
}

// FounderStore persists founder assignments, one per store.
type FounderStore interface {
	UpsertFounder(ctx context.Context, a founder.Assignment) (founder.Assignment, error)
	RemoveFounder(ctx context.Context, storeID string) error
	GetFounderByStore(ctx context.Context, storeID string) (founder.Assignment, error)
	ListFounders(ctx context.Context) ([]founder.Assignment, error)
	ListFoundersByGuide(ctx context.Context, guideID string) ([]founder.Assignment, error)
	CountFoundersByGuide(ctx context.Context, guideID string) (int, error)
}

// ScoreStore reads monthly guide scores. Writes happen only through
// MonthCalcStore.ReplaceMonth.
type ScoreStore interface {
	GetScore(ctx context.Context, guideID, month string) (score.MonthlyGuideScore, error)
	ListScores(ctx context.Context, month string) ([]score.MonthlyGuideScore, error)
}

// PayoutStore reads generated payouts. An empty guideID matches all guides.
type PayoutStore interface {
	ListPayouts(ctx context.Context, month, guideID string) ([]payout.Payout, error)
}

// MonthCalcStore atomically replaces one month's derived rows: delete all
// scores and payouts for the month, insert the new rows, then mark the
// month's score rows locked. Either everything becomes visible or nothing.
type MonthCalcStore interface {
	ReplaceMonth(ctx context.Context, month string, scores []score.MonthlyGuideScore, payouts []payout.Payout) error
}

// AuditStore persists the append-only lock/unlock trail.
type AuditStore interface {
	AppendAudit(ctx context.Context, e audit.Entry) (audit.Entry, error)
	// ListAuditByMonth returns entries oldest-first.
	ListAuditByMonth(ctx context.Context, month string) ([]audit.Entry, error)
}

// DirectoryStore reads the externally-owned guide and store registries.
type DirectoryStore interface {
	GetGuide(ctx context.Context, id string) (directory.Guide, error)
	GetGuideByDashboardKey(ctx context.Context, key string) (directory.Guide, error)
	ListGuides(ctx context.Context) ([]directory.Guide, error)
	GetStore(ctx context.Context, id string) (directory.Store, error)
	ListStores(ctx context.Context) ([]directory.Store, error)
}
