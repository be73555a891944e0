package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecocollect-backend/internal/models"
)

func newTestReconciler(store *memStore) *Reconciler {
	return NewReconciler(newTestDeriver(store), store, store)
}

func TestProcessExistingBackfillsAndIsIdempotent(t *testing.T) {
	store := newMemStore()
	r := newTestReconciler(store)
	ctx := context.Background()

	seedStop(store, "stop-missed", models.StopMissed, testNow.Unix())
	seedStop(store, "stop-skipped", models.StopSkipped, testNow.Unix())
	seedStop(store, "stop-overdue", models.StopPending, testNow.Add(-24*time.Hour).Unix())
	seedStop(store, "stop-done", models.StopDone, testNow.Unix())
	// This one already has an active followup and must be skipped.
	covered := seedStop(store, "stop-covered", models.StopMissed, testNow.Unix())
	coveredID := covered.StopID
	seedFollowup(store, "fu-existing", models.FollowupPending, models.FollowupReasonMissed, &coveredID)

	first, err := r.ProcessExisting(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Created != 3 {
		t.Fatalf("first run created %d, want 3", first.Created)
	}
	if first.Skipped != 1 {
		t.Fatalf("first run skipped %d, want 1", first.Skipped)
	}
	if first.Failed != 0 {
		t.Fatalf("first run failed %d, want 0", first.Failed)
	}

	second, err := r.ProcessExisting(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 {
		t.Fatalf("second run created %d, want 0", second.Created)
	}
	if len(store.followups) != 4 {
		t.Fatalf("expected 4 followups total, have %d", len(store.followups))
	}
}

func TestProcessExistingAccumulatesRowFailures(t *testing.T) {
	store := newMemStore()
	r := newTestReconciler(store)
	ctx := context.Background()

	seedStop(store, "stop-ok", models.StopMissed, testNow.Unix())
	bad := seedStop(store, "stop-bad", models.StopSkipped, testNow.Unix())
	bad.BinID = "bin-broken"
	store.createFollowupErr["bin-broken"] = errors.New("row corrupt")

	result, err := r.ProcessExisting(ctx)
	if err != nil {
		t.Fatalf("a single bad row must not abort the batch: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("created = %d, want 1", result.Created)
	}
	if result.Failed != 1 {
		t.Fatalf("failed = %d, want 1", result.Failed)
	}
	if len(result.Failures) != 1 || result.Failures[0].StopID != "stop-bad" {
		t.Fatalf("failures = %+v, want stop-bad", result.Failures)
	}
}

func TestRenormalizePrioritiesIsIdempotent(t *testing.T) {
	store := newMemStore()
	r := newTestReconciler(store)
	ctx := context.Background()

	// Drifted rows: priorities disagree with the classifier.
	drifted := seedFollowup(store, "fu-skipped", models.FollowupPending, models.FollowupReasonSkipped, nil)
	drifted.Priority = models.PriorityHigh
	drifted2 := seedFollowup(store, "fu-missed", models.FollowupAssigned, models.FollowupReasonMissed, nil)
	drifted2.Priority = models.PriorityNormal
	// Correct row, untouched.
	seedFollowup(store, "fu-ok", models.FollowupPending, models.FollowupReasonOverdue, nil)
	// Terminal row with drift: renormalize only touches active followups.
	terminal := seedFollowup(store, "fu-done", models.FollowupDone, models.FollowupReasonSkipped, nil)
	terminal.Priority = models.PriorityHigh

	updated, err := r.RenormalizePriorities(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if updated != 2 {
		t.Fatalf("first run updated %d, want 2", updated)
	}

	updated, err = r.RenormalizePriorities(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if updated != 0 {
		t.Fatalf("second run updated %d, want 0", updated)
	}

	// The invariant holds for every active followup afterwards.
	active, _ := store.ListFollowups(ctx, FollowupFilter{ActiveOnly: true})
	for _, f := range active {
		if f.Priority != Classify(f.ReasonCode) {
			t.Fatalf("followup %s priority %s disagrees with Classify(%s)", f.ID, f.Priority, f.ReasonCode)
		}
	}
	if store.followups["fu-done"].Priority != models.PriorityHigh {
		t.Fatal("terminal followup must not be rewritten")
	}
}
