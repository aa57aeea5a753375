package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tourlink/marketplace/internal/app/domain/contribution"
	"github.com/tourlink/marketplace/internal/app/domain/payout"
	"github.com/tourlink/marketplace/internal/app/domain/score"
	"github.com/tourlink/marketplace/internal/app/storage"
	_ "github.com/lib/pq"
)

func TestReplaceMonthCommitsFullSequence(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM payouts`).WithArgs("2025-03").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM monthly_guide_scores`).WithArgs("2025-03").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO monthly_guide_scores`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO payouts`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE monthly_guide_scores SET locked`).WithArgs("2025-03").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := New(db)
	scores := []score.MonthlyGuideScore{{GuideID: "g1", Month: "2025-03", MonthlyScore: 10, Avg3Score: 10, RankScore: 10, Rank: score.RankC}}
	payouts := []payout.Payout{{GuideID: "g1", StoreID: "s1", Month: "2025-03", Type: payout.TypePerpetual, Amount: 1000}}

	if err := store.ReplaceMonth(context.Background(), "2025-03", scores, payouts); err != nil {
		t.Fatalf("replace month: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceMonthRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	boom := errors.New("constraint violated")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM payouts`).WithArgs("2025-03").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM monthly_guide_scores`).WithArgs("2025-03").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO monthly_guide_scores`).WillReturnError(boom)
	mock.ExpectRollback()

	store := New(db)
	scores := []score.MonthlyGuideScore{{GuideID: "g1", Month: "2025-03"}}

	err = store.ReplaceMonth(context.Background(), "2025-03", scores, nil)
	if err == nil {
		t.Fatal("expected insert failure to surface")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("rollback not observed: %v", err)
	}
}

func TestTranslateErrMapsNoRows(t *testing.T) {
	if got := translateErr(sql.ErrNoRows); !errors.Is(got, storage.ErrNotFound) {
		t.Fatalf("translate sql.ErrNoRows: %v", got)
	}
	if translateErr(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()

	if err := store.UpsertSetting(ctx, "founder_max_stores", []byte(`200`)); err != nil {
		t.Fatalf("upsert setting: %v", err)
	}

	rec, err := store.CreateContribution(ctx, contribution.Record{
		StoreID: "store-1", GuideID: "guide-1", Month: "2025-03", Type: "B", BasePoints: 10,
	})
	if err != nil {
		t.Fatalf("create contribution: %v", err)
	}

	count, err := store.CountContributions(ctx, "guide-1", "store-1", "2025-03", "B")
	if err != nil {
		t.Fatalf("count contributions: %v", err)
	}
	if count < 1 {
		t.Fatalf("count: %d", count)
	}

	if err := store.DeleteContribution(ctx, rec.ID); err != nil {
		t.Fatalf("delete contribution: %v", err)
	}
}
