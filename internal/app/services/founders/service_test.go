package founders

import (
	"context"
	"testing"

	settingssvc "github.com/tourlink/marketplace/internal/app/services/settings"
	"github.com/tourlink/marketplace/internal/app/storage/memory"
	"github.com/tourlink/marketplace/internal/errors"
)

func newService(store *memory.Store) *Service {
	return New(store, settingssvc.New(store, nil), nil)
}

func TestAssignAndGet(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	a, err := svc.Assign(ctx, "store-1", "guide-1")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if a.StoreID != "store-1" || a.GuideID != "guide-1" {
		t.Fatalf("unexpected assignment: %+v", a)
	}
	if a.AssignedAt.IsZero() {
		t.Fatal("expected AssignedAt to be set")
	}

	got, err := svc.GetByStore(ctx, "store-1")
	if err != nil {
		t.Fatalf("GetByStore: %v", err)
	}
	if got.GuideID != "guide-1" {
		t.Fatalf("expected guide-1, got %s", got.GuideID)
	}
}

func TestAssignOverwritesStoreFounder(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	if _, err := svc.Assign(ctx, "store-1", "guide-1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := svc.Assign(ctx, "store-1", "guide-2"); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	got, err := svc.GetByStore(ctx, "store-1")
	if err != nil {
		t.Fatalf("GetByStore: %v", err)
	}
	if got.GuideID != "guide-2" {
		t.Fatalf("expected guide-2 after reassignment, got %s", got.GuideID)
	}

	count, err := svc.CountByGuide(ctx, "guide-1")
	if err != nil {
		t.Fatalf("CountByGuide: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected guide-1 to hold 0 stores, got %d", count)
	}
}

func TestAssignEnforcesGuideCap(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	if err := settingssvc.New(store, nil).Update(ctx, "founder_max_stores", []byte(`2`)); err != nil {
		t.Fatalf("Update settings: %v", err)
	}

	if _, err := svc.Assign(ctx, "store-1", "guide-1"); err != nil {
		t.Fatalf("Assign 1: %v", err)
	}
	if _, err := svc.Assign(ctx, "store-2", "guide-1"); err != nil {
		t.Fatalf("Assign 2: %v", err)
	}

	_, err := svc.Assign(ctx, "store-3", "guide-1")
	if !errors.IsCode(err, errors.CodeCapacity) {
		t.Fatalf("expected CAPACITY error, got %v", err)
	}

	// The failed assignment must not have taken effect.
	if _, err := svc.GetByStore(ctx, "store-3"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected store-3 unassigned, got %v", err)
	}

	// Re-founding an already-held store is not blocked by the cap.
	if _, err := svc.Assign(ctx, "store-2", "guide-1"); err != nil {
		t.Fatalf("reassign held store: %v", err)
	}
}

func TestAssignValidation(t *testing.T) {
	svc := newService(memory.New())
	if _, err := svc.Assign(context.Background(), " ", "guide-1"); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected VALIDATION error, got %v", err)
	}
	if _, err := svc.Assign(context.Background(), "store-1", ""); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected VALIDATION error, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	if _, err := svc.Assign(ctx, "store-1", "guide-1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := svc.Remove(ctx, "store-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := svc.GetByStore(ctx, "store-1"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND after removal, got %v", err)
	}

	if err := svc.Remove(ctx, "store-1"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for missing assignment, got %v", err)
	}
}

func TestListByGuide(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	for _, pair := range [][2]string{{"store-1", "guide-1"}, {"store-2", "guide-1"}, {"store-3", "guide-2"}} {
		if _, err := svc.Assign(ctx, pair[0], pair[1]); err != nil {
			t.Fatalf("Assign %s: %v", pair[0], err)
		}
	}

	mine, err := svc.ListByGuide(ctx, "guide-1")
	if err != nil {
		t.Fatalf("ListByGuide: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 assignments for guide-1, got %d", len(mine))
	}

	all, err := svc.ListByGuide(ctx, "")
	if err != nil {
		t.Fatalf("ListByGuide all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 assignments total, got %d", len(all))
	}
}
