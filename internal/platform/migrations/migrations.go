// Package migrations creates and evolves the payout schema. Statements are
// ordered and idempotent so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS tourism_guides (
		id                 TEXT PRIMARY KEY,
		guide_name         TEXT NOT NULL,
		preferred_language TEXT NOT NULL DEFAULT '',
		contact_method     TEXT NOT NULL DEFAULT '',
		dashboard_key      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tourism_guides_dashboard_key
		ON tourism_guides (dashboard_key) WHERE dashboard_key <> ''`,
	`CREATE TABLE IF NOT EXISTS sponsor_stores (
		id         TEXT PRIMARY KEY,
		store_name TEXT NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS payout_settings (
		key        TEXT PRIMARY KEY,
		value_json JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS contributions (
		id           TEXT PRIMARY KEY,
		store_id     TEXT NOT NULL,
		guide_id     TEXT NOT NULL,
		month        TEXT NOT NULL,
		type         TEXT NOT NULL,
		base_points  INTEGER NOT NULL DEFAULT 0,
		evidence_url TEXT NOT NULL DEFAULT '',
		memo         TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contributions_month ON contributions (month, guide_id, store_id)`,
	`CREATE TABLE IF NOT EXISTS store_founders (
		store_id    TEXT PRIMARY KEY,
		guide_id    TEXT NOT NULL,
		assigned_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_store_founders_guide ON store_founders (guide_id)`,
	`CREATE TABLE IF NOT EXISTS monthly_guide_scores (
		guide_id      TEXT NOT NULL,
		month         TEXT NOT NULL,
		monthly_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg3_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
		rank_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
		rank          TEXT NOT NULL DEFAULT 'C',
		locked        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (guide_id, month)
	)`,
	`CREATE TABLE IF NOT EXISTS payouts (
		id           TEXT PRIMARY KEY,
		guide_id     TEXT NOT NULL,
		store_id     TEXT NOT NULL,
		month        TEXT NOT NULL,
		type         TEXT NOT NULL,
		amount       BIGINT NOT NULL DEFAULT 0,
		details_json TEXT NOT NULL DEFAULT '',
		locked       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payouts_month ON payouts (month, guide_id)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id        TEXT PRIMARY KEY,
		month     TEXT NOT NULL,
		action    TEXT NOT NULL,
		"user"    TEXT NOT NULL,
		role      TEXT NOT NULL,
		reason    TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_month ON audit_logs (month, timestamp)`,
}

// Apply executes all migration statements in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
