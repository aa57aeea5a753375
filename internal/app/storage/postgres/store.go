package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tourlink/marketplace/internal/app/domain/audit"
	"github.com/tourlink/marketplace/internal/app/domain/contribution"
	"github.com/tourlink/marketplace/internal/app/domain/directory"
	"github.com/tourlink/marketplace/internal/app/domain/founder"
	"github.com/tourlink/marketplace/internal/app/domain/payout"
	"github.com/tourlink/marketplace/internal/app/domain/score"
	"github.com/tourlink/marketplace/internal/app/domain/settings"
	"github.com/tourlink/marketplace/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.SettingsStore = (*Store)(nil)
var _ storage.ContributionStore = (*Store)(nil)
var _ storage.FounderStore = (*Store)(nil)
var _ storage.ScoreStore = (*Store)(nil)
var _ storage.PayoutStore = (*Store)(nil)
var _ storage.MonthCalcStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)
var _ storage.DirectoryStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const fkViolation = "23503"

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == fkViolation {
		return fmt.Errorf("%s: %w", pqErr.Detail, storage.ErrNotFound)
	}
	return err
}

// --- SettingsStore ----------------------------------------------------------

func (s *Store) ListSettings(ctx context.Context) ([]settings.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value_json, updated_at
		FROM payout_settings
		ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settings.Row
	for rows.Next() {
		var row settings.Row
		if err := rows.Scan(&row.Key, &row.ValueJSON, &row.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *Store) UpsertSetting(ctx context.Context, key string, valueJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payout_settings (key, value_json, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value_json = EXCLUDED.value_json, updated_at = EXCLUDED.updated_at
	`, key, valueJSON, time.Now().UTC())
	return err
}

// --- ContributionStore ------------------------------------------------------

func (s *Store) CreateContribution(ctx context.Context, rec contribution.Record) (contribution.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contributions (id, store_id, guide_id, month, type, base_points, evidence_url, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.StoreID, rec.GuideID, rec.Month, rec.Type, rec.BasePoints, rec.EvidenceURL, rec.Memo, rec.CreatedAt)
	if err != nil {
		return contribution.Record{}, translateErr(err)
	}
	return rec, nil
}

func (s *Store) DeleteContribution(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM contributions WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("contribution %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListContributions(ctx context.Context, f contribution.Filter) ([]contribution.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, guide_id, month, type, base_points, evidence_url, memo, created_at
		FROM contributions
		WHERE ($1 = '' OR month = $1)
		  AND ($2 = '' OR guide_id = $2)
		  AND ($3 = '' OR store_id = $3)
		ORDER BY created_at DESC
	`, f.Month, f.GuideID, f.StoreID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contribution.Record
	for rows.Next() {
		var rec contribution.Record
		if err := rows.Scan(&rec.ID, &rec.StoreID, &rec.GuideID, &rec.Month, &rec.Type, &rec.BasePoints, &rec.EvidenceURL, &rec.Memo, &rec.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *Store) CountContributions(ctx context.Context, guideID, storeID, month, contributionType string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM contributions
		WHERE guide_id = $1 AND store_id = $2 AND month = $3 AND type = $4
	`, guideID, storeID, month, contributionType).Scan(&count)
	return count, err
}

// --- FounderStore -----------------------------------------------------------

func (s *Store) UpsertFounder(ctx context.Context, a founder.Assignment) (founder.Assignment, error) {
	a.AssignedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_founders (store_id, guide_id, assigned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (store_id) DO UPDATE SET guide_id = EXCLUDED.guide_id, assigned_at = EXCLUDED.assigned_at
	`, a.StoreID, a.GuideID, a.AssignedAt)
	if err != nil {
		return founder.Assignment{}, translateErr(err)
	}
	return a, nil
}

func (s *Store) RemoveFounder(ctx context.Context, storeID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM store_founders WHERE store_id = $1
	`, storeID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("founder for store %s: %w", storeID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) GetFounderByStore(ctx context.Context, storeID string) (founder.Assignment, error) {
	var a founder.Assignment
	err := s.db.QueryRowContext(ctx, `
		SELECT store_id, guide_id, assigned_at
		FROM store_founders
		WHERE store_id = $1
	`, storeID).Scan(&a.StoreID, &a.GuideID, &a.AssignedAt)
	if err != nil {
		return founder.Assignment{}, translateErr(err)
	}
	return a, nil
}

func (s *Store) ListFounders(ctx context.Context) ([]founder.Assignment, error) {
	return s.listFounders(ctx, "")
}

func (s *Store) ListFoundersByGuide(ctx context.Context, guideID string) ([]founder.Assignment, error) {
	return s.listFounders(ctx, guideID)
}

func (s *Store) listFounders(ctx context.Context, guideID string) ([]founder.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT store_id, guide_id, assigned_at
		FROM store_founders
		WHERE $1 = '' OR guide_id = $1
		ORDER BY store_id
	`, guideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []founder.Assignment
	for rows.Next() {
		var a founder.Assignment
		if err := rows.Scan(&a.StoreID, &a.GuideID, &a.AssignedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) CountFoundersByGuide(ctx context.Context, guideID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM store_founders WHERE guide_id = $1
	`, guideID).Scan(&count)
	return count, err
}

// --- ScoreStore -------------------------------------------------------------

func (s *Store) GetScore(ctx context.Context, guideID, month string) (score.MonthlyGuideScore, error) {
	var row score.MonthlyGuideScore
	err := s.db.QueryRowContext(ctx, `
		SELECT guide_id, month, monthly_score, avg3_score, rank_score, rank, locked, created_at
		FROM monthly_guide_scores
		WHERE guide_id = $1 AND month = $2
	`, guideID, month).Scan(&row.GuideID, &row.Month, &row.MonthlyScore, &row.Avg3Score, &row.RankScore, &row.Rank, &row.Locked, &row.CreatedAt)
	if err != nil {
		return score.MonthlyGuideScore{}, translateErr(err)
	}
	return row, nil
}

func (s *Store) ListScores(ctx context.Context, month string) ([]score.MonthlyGuideScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guide_id, month, monthly_score, avg3_score, rank_score, rank, locked, created_at
		FROM monthly_guide_scores
		WHERE month = $1
		ORDER BY guide_id
	`, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []score.MonthlyGuideScore
	for rows.Next() {
		var row score.MonthlyGuideScore
		if err := rows.Scan(&row.GuideID, &row.Month, &row.MonthlyScore, &row.Avg3Score, &row.RankScore, &row.Rank, &row.Locked, &row.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// --- PayoutStore ------------------------------------------------------------

func (s *Store) ListPayouts(ctx context.Context, month, guideID string) ([]payout.Payout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guide_id, store_id, month, type, amount, details_json, locked, created_at
		FROM payouts
		WHERE month = $1 AND ($2 = '' OR guide_id = $2)
		ORDER BY guide_id, store_id
	`, month, guideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []payout.Payout
	for rows.Next() {
		var p payout.Payout
		if err := rows.Scan(&p.ID, &p.GuideID, &p.StoreID, &p.Month, &p.Type, &p.Amount, &p.DetailsJSON, &p.Locked, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- MonthCalcStore ---------------------------------------------------------

// ReplaceMonth runs the delete+insert+lock sequence for one month inside a
// single transaction so a failed run leaves no partial state.
func (s *Store) ReplaceMonth(ctx context.Context, month string, scores []score.MonthlyGuideScore, payouts []payout.Payout) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin replace month: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payouts WHERE month = $1`, month); err != nil {
		return fmt.Errorf("delete payouts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_guide_scores WHERE month = $1`, month); err != nil {
		return fmt.Errorf("delete scores: %w", err)
	}

	now := time.Now().UTC()
	for _, row := range scores {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO monthly_guide_scores (guide_id, month, monthly_score, avg3_score, rank_score, rank, locked, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		`, row.GuideID, row.Month, row.MonthlyScore, row.Avg3Score, row.RankScore, row.Rank, now); err != nil {
			return fmt.Errorf("insert score for guide %s: %w", row.GuideID, err)
		}
	}

	for _, p := range payouts {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payouts (id, guide_id, store_id, month, type, amount, details_json, locked, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
		`, id, p.GuideID, p.StoreID, p.Month, p.Type, p.Amount, p.DetailsJSON, now); err != nil {
			return fmt.Errorf("insert payout for guide %s store %s: %w", p.GuideID, p.StoreID, err)
		}
	}

	// Self-lock: every successful run freezes its score rows.
	if _, err := tx.ExecContext(ctx, `
		UPDATE monthly_guide_scores SET locked = TRUE WHERE month = $1
	`, month); err != nil {
		return fmt.Errorf("lock scores: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace month: %w", err)
	}
	return nil
}

// --- AuditStore -------------------------------------------------------------

func (s *Store) AppendAudit(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, month, action, "user", role, reason, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Month, e.Action, e.User, e.Role, e.Reason, e.Timestamp)
	if err != nil {
		return audit.Entry{}, err
	}
	return e, nil
}

func (s *Store) ListAuditByMonth(ctx context.Context, month string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, month, action, "user", role, reason, timestamp
		FROM audit_logs
		WHERE month = $1
		ORDER BY timestamp, id
	`, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.Month, &e.Action, &e.User, &e.Role, &e.Reason, &e.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// --- DirectoryStore ---------------------------------------------------------

func (s *Store) GetGuide(ctx context.Context, id string) (directory.Guide, error) {
	var g directory.Guide
	err := s.db.QueryRowContext(ctx, `
		SELECT id, guide_name, preferred_language, contact_method, dashboard_key
		FROM tourism_guides
		WHERE id = $1
	`, id).Scan(&g.ID, &g.GuideName, &g.PreferredLanguage, &g.ContactMethod, &g.DashboardKey)
	if err != nil {
		return directory.Guide{}, translateErr(err)
	}
	return g, nil
}

func (s *Store) GetGuideByDashboardKey(ctx context.Context, key string) (directory.Guide, error) {
	var g directory.Guide
	err := s.db.QueryRowContext(ctx, `
		SELECT id, guide_name, preferred_language, contact_method, dashboard_key
		FROM tourism_guides
		WHERE dashboard_key = $1
	`, key).Scan(&g.ID, &g.GuideName, &g.PreferredLanguage, &g.ContactMethod, &g.DashboardKey)
	if err != nil {
		return directory.Guide{}, translateErr(err)
	}
	return g, nil
}

func (s *Store) ListGuides(ctx context.Context) ([]directory.Guide, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guide_name, preferred_language, contact_method, dashboard_key
		FROM tourism_guides
		ORDER BY guide_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []directory.Guide
	for rows.Next() {
		var g directory.Guide
		if err := rows.Scan(&g.ID, &g.GuideName, &g.PreferredLanguage, &g.ContactMethod, &g.DashboardKey); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) GetStore(ctx context.Context, id string) (directory.Store, error) {
	var st directory.Store
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_name, is_active
		FROM sponsor_stores
		WHERE id = $1
	`, id).Scan(&st.ID, &st.StoreName, &st.IsActive)
	if err != nil {
		return directory.Store{}, translateErr(err)
	}
	return st, nil
}

func (s *Store) ListStores(ctx context.Context) ([]directory.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_name, is_active
		FROM sponsor_stores
		ORDER BY store_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []directory.Store
	for rows.Next() {
		var st directory.Store
		if err := rows.Scan(&st.ID, &st.StoreName, &st.IsActive); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}
