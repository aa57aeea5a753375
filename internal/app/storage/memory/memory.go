package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tourlink/marketplace/internal/app/domain/audit"
	"github.com/tourlink/marketplace/internal/app/domain/contribution"
	"github.com/tourlink/marketplace/internal/app/domain/directory"
	"github.com/tourlink/marketplace/internal/app/domain/founder"
	"github.com/tourlink/marketplace/internal/app/domain/payout"
	"github.com/tourlink/marketplace/internal/app/domain/score"
	"github.com/tourlink/marketplace/internal/app/domain/settings"
	"github.com/tourlink/marketplace/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	settings      map[string]settings.Row
	contributions map[string]contribution.Record
	founders      map[string]founder.Assignment // keyed by store ID
	scores        map[string]score.MonthlyGuideScore
	payouts       map[string]payout.Payout
	auditLog      []audit.Entry
	guides        map[string]directory.Guide
	stores        map[string]directory.Store
}

var _ storage.SettingsStore = (*Store)(nil)
var _ storage.ContributionStore = (*Store)(nil)
var _ storage.FounderStore = (*Store)(nil)
var _ storage.ScoreStore = (*Store)(nil)
var _ storage.PayoutStore = (*Store)(nil)
var _ storage.MonthCalcStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)
var _ storage.DirectoryStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		settings:      make(map[string]settings.Row),
		contributions: make(map[string]contribution.Record),
		founders:      make(map[string]founder.Assignment),
		scores:        make(map[string]score.MonthlyGuideScore),
		payouts:       make(map[string]payout.Payout),
		guides:        make(map[string]directory.Guide),
		stores:        make(map[string]directory.Store),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func scoreKey(guideID, month string) string {
	return guideID + "|" + month
}

// SettingsStore implementation ------------------------------------------------

func (s *Store) ListSettings(_ context.Context) ([]settings.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]settings.Row, 0, len(s.settings))
	for _, row := range s.settings {
		rows = append(rows, cloneSettingRow(row))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}

func (s *Store) UpsertSetting(_ context.Context, key string, valueJSON []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = settings.Row{
		Key:       key,
		ValueJSON: append(json.RawMessage(nil), valueJSON...),
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// ContributionStore implementation --------------------------------------------

func (s *Store) CreateContribution(_ context.Context, rec contribution.Record) (contribution.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	} else if _, exists := s.contributions[rec.ID]; exists {
		return contribution.Record{}, fmt.Errorf("contribution %s already exists", rec.ID)
	}
	rec.CreatedAt = time.Now().UTC()

	s.contributions[rec.ID] = rec
	return rec, nil
}

func (s *Store) DeleteContribution(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contributions[id]; !ok {
		return fmt.Errorf("contribution %s: %w", id, storage.ErrNotFound)
	}
	delete(s.contributions, id)
	return nil
}

func (s *Store) ListContributions(_ context.Context, f contribution.Filter) ([]contribution.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []contribution.Record
	for _, rec := range s.contributions {
		if f.Month != "" && rec.Month != f.Month {
			continue
		}
		if f.GuideID != "" && rec.GuideID != f.GuideID {
			continue
		}
		if f.StoreID != "" && rec.StoreID != f.StoreID {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) CountContributions(_ context.Context, guideID, storeID, month, contributionType string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.contributions {
		if rec.GuideID == guideID && rec.StoreID == storeID && rec.Month == month && rec.Type == contributionType {
			count++
		}
	}
	return count, nil
}

// FounderStore implementation --------------------------------------------------

func (s *Store) UpsertFounder(_ context.Context, a founder.Assignment) (founder.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.AssignedAt = time.Now().UTC()
	s.founders[a.StoreID] = a
	return a, nil
}

func (s *Store) RemoveFounder(_ context.Context, storeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.founders[storeID]; !ok {
		return fmt.Errorf("founder for store %s: %w", storeID, storage.ErrNotFound)
	}
	delete(s.founders, storeID)
	return nil
}

func (s *Store) GetFounderByStore(_ context.Context, storeID string) (founder.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.founders[storeID]
	if !ok {
		return founder.Assignment{}, fmt.Errorf("founder for store %s: %w", storeID, storage.ErrNotFound)
	}
	return a, nil
}

func (s *Store) ListFounders(_ context.Context) ([]founder.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]founder.Assignment, 0, len(s.founders))
	for _, a := range s.founders {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StoreID < result[j].StoreID })
	return result, nil
}

func (s *Store) ListFoundersByGuide(_ context.Context, guideID string) ([]founder.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []founder.Assignment
	for _, a := range s.founders {
		if a.GuideID == guideID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StoreID < result[j].StoreID })
	return result, nil
}

func (s *Store) CountFoundersByGuide(_ context.Context, guideID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.founders {
		if a.GuideID == guideID {
			count++
		}
	}
	return count, nil
}

// ScoreStore implementation ----------------------------------------------------

func (s *Store) GetScore(_ context.Context, guideID, month string) (score.MonthlyGuideScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.scores[scoreKey(guideID, month)]
	if !ok {
		return score.MonthlyGuideScore{}, fmt.Errorf("score %s/%s: %w", guideID, month, storage.ErrNotFound)
	}
	return row, nil
}

func (s *Store) ListScores(_ context.Context, month string) ([]score.MonthlyGuideScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []score.MonthlyGuideScore
	for _, row := range s.scores {
		if row.Month == month {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GuideID < result[j].GuideID })
	return result, nil
}

// PayoutStore implementation ---------------------------------------------------

func (s *Store) ListPayouts(_ context.Context, month, guideID string) ([]payout.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payout.Payout
	for _, p := range s.payouts {
		if p.Month != month {
			continue
		}
		if guideID != "" && p.GuideID != guideID {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].GuideID == result[j].GuideID {
			return result[i].StoreID < result[j].StoreID
		}
		return result[i].GuideID < result[j].GuideID
	})
	return result, nil
}

// MonthCalcStore implementation ------------------------------------------------

// ReplaceMonth swaps one month's derived rows under a single write lock so
// readers never observe a partially-applied run.
func (s *Store) ReplaceMonth(_ context.Context, month string, scores []score.MonthlyGuideScore, payouts []payout.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, row := range s.scores {
		if row.Month == month {
			delete(s.scores, key)
		}
	}
	for id, p := range s.payouts {
		if p.Month == month {
			delete(s.payouts, id)
		}
	}

	now := time.Now().UTC()
	for _, row := range scores {
		row.Locked = true
		row.CreatedAt = now
		s.scores[scoreKey(row.GuideID, row.Month)] = row
	}
	for _, p := range payouts {
		if p.ID == "" {
			p.ID = s.nextIDLocked()
		}
		p.Locked = true
		p.CreatedAt = now
		s.payouts[p.ID] = p
	}
	return nil
}

// AuditStore implementation ----------------------------------------------------

func (s *Store) AppendAudit(_ context.Context, e audit.Entry) (audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.auditLog = append(s.auditLog, e)
	return e, nil
}

func (s *Store) ListAuditByMonth(_ context.Context, month string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []audit.Entry
	for _, e := range s.auditLog {
		if e.Month == month {
			result = append(result, e)
		}
	}
	return result, nil
}

// DirectoryStore implementation ------------------------------------------------

func (s *Store) GetGuide(_ context.Context, id string) (directory.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guides[id]
	if !ok {
		return directory.Guide{}, fmt.Errorf("guide %s: %w", id, storage.ErrNotFound)
	}
	return g, nil
}

func (s *Store) GetGuideByDashboardKey(_ context.Context, key string) (directory.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.guides {
		if g.DashboardKey != "" && g.DashboardKey == key {
			return g, nil
		}
	}
	return directory.Guide{}, fmt.Errorf("dashboard key: %w", storage.ErrNotFound)
}

func (s *Store) ListGuides(_ context.Context) ([]directory.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]directory.Guide, 0, len(s.guides))
	for _, g := range s.guides {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) GetStore(_ context.Context, id string) (directory.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	if !ok {
		return directory.Store{}, fmt.Errorf("store %s: %w", id, storage.ErrNotFound)
	}
	return st, nil
}

func (s *Store) ListStores(_ context.Context) ([]directory.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]directory.Store, 0, len(s.stores))
	for _, st := range s.stores {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Seeding helpers --------------------------------------------------------------

// SeedGuide registers a guide in the directory. The registries are owned by
// the wider platform in production; tests and local development seed them
// directly.
func (s *Store) SeedGuide(g directory.Guide) directory.Guide {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = s.nextIDLocked()
	}
	s.guides[g.ID] = g
	return g
}

// SeedStore registers a sponsor store in the directory.
func (s *Store) SeedStore(st directory.Store) directory.Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = s.nextIDLocked()
	}
	s.stores[st.ID] = st
	return st
}

func cloneSettingRow(row settings.Row) settings.Row {
	row.ValueJSON = append(json.RawMessage(nil), row.ValueJSON...)
	return row
}
