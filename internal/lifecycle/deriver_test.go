package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ecocollect-backend/internal/models"
)

var testNow = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

func newTestDeriver(store *memStore) *Deriver {
	d := NewDeriver(store, store, store, DefaultSLAConfig())
	d.now = func() time.Time { return testNow }
	return d
}

func seedStop(store *memStore, id string, status models.StopStatus, plannedEta int64) *models.RouteStop {
	driver := "driver-1"
	stop := &models.RouteStop{
		StopID:     id,
		RouteID:    "route-1",
		BinID:      "bin-1",
		DriverID:   &driver,
		StopOrder:  1,
		Status:     status,
		Collected:  status == models.StopDone,
		ReasonCode: models.StopReasonNone,
		PlannedEta: plannedEta,
		Source:     models.StopSourceQR,
		Version:    1,
	}
	store.stops[id] = stop
	return stop
}

func TestDeriveFromMissedStop(t *testing.T) {
	store := newMemStore()
	store.routeWards["route-1"] = "ward-9"
	store.wasteTypes["bin-1"] = "Organic"
	d := newTestDeriver(store)
	stop := seedStop(store, "stop-1", models.StopMissed, testNow.Unix())

	followup, created, err := d.DeriveFromStop(context.Background(), stop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected a new followup to be created")
	}
	if followup.ReasonCode != models.FollowupReasonMissed {
		t.Fatalf("reason = %s, want MISSED", followup.ReasonCode)
	}
	if followup.Priority != models.PriorityHigh {
		t.Fatalf("priority = %s, want HIGH", followup.Priority)
	}
	if followup.Status != models.FollowupPending {
		t.Fatalf("status = %s, want PENDING", followup.Status)
	}
	if followup.OriginatingStopID == nil || *followup.OriginatingStopID != "stop-1" {
		t.Fatal("expected originating stop id stop-1")
	}
	if followup.WardID != "ward-9" {
		t.Fatalf("ward = %s, want ward-9", followup.WardID)
	}
	if followup.WasteType != "Organic" {
		t.Fatalf("waste type = %s, want Organic", followup.WasteType)
	}
	wantDue := testNow.Add(24 * time.Hour).Unix()
	if followup.DueAt != wantDue {
		t.Fatalf("due at = %d, want %d", followup.DueAt, wantDue)
	}
}

func TestDeriveIsNoOpWhenActiveFollowupExists(t *testing.T) {
	store := newMemStore()
	d := newTestDeriver(store)
	stop := seedStop(store, "stop-1", models.StopSkipped, testNow.Unix())

	first, created, err := d.DeriveFromStop(context.Background(), stop)
	if err != nil || !created {
		t.Fatalf("first derivation failed: created=%v err=%v", created, err)
	}
	second, created, err := d.DeriveFromStop(context.Background(), stop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("second derivation must be a no-op")
	}
	if second.ID != first.ID {
		t.Fatalf("expected the existing followup %s back, got %s", first.ID, second.ID)
	}
	if len(store.followups) != 1 {
		t.Fatalf("expected 1 followup, have %d", len(store.followups))
	}
}

func TestDeriveRejectsNonTerminalStop(t *testing.T) {
	store := newMemStore()
	d := newTestDeriver(store)
	stop := seedStop(store, "stop-1", models.StopPending, testNow.Unix())

	_, _, err := d.DeriveFromStop(context.Background(), stop)
	var pfe *PreconditionFailedError
	if !errors.As(err, &pfe) {
		t.Fatalf("expected PreconditionFailedError, got %v", err)
	}
}

func TestConcurrentDerivationCreatesOneFollowup(t *testing.T) {
	store := newMemStore()
	d := newTestDeriver(store)
	stop := seedStop(store, "stop-1", models.StopMissed, testNow.Unix())

	var wg sync.WaitGroup
	createdCount := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := d.DeriveFromStop(context.Background(), stop)
			if err != nil {
				t.Errorf("derivation error: %v", err)
				return
			}
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	total := 0
	for created := range createdCount {
		if created {
			total++
		}
	}
	if total != 1 {
		t.Fatalf("expected exactly 1 creation across concurrent attempts, got %d", total)
	}
	if len(store.followups) != 1 {
		t.Fatalf("expected 1 followup, have %d", len(store.followups))
	}
}

func TestScanOverdueCreatesOverdueFollowup(t *testing.T) {
	store := newMemStore()
	store.routeWards["route-1"] = "ward-9"
	d := newTestDeriver(store)
	yesterday := testNow.Add(-24 * time.Hour).Unix()
	tomorrow := testNow.Add(24 * time.Hour).Unix()
	seedStop(store, "stop-overdue", models.StopPending, yesterday)
	seedStop(store, "stop-future", models.StopPending, tomorrow)
	seedStop(store, "stop-done", models.StopDone, yesterday)

	result, err := d.ScanOverdue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 1 || result.Skipped != 0 || result.Failed != 0 {
		t.Fatalf("result = %+v, want created=1 skipped=0 failed=0", result)
	}

	followup, err := store.ActiveFollowupForStop(context.Background(), "stop-overdue")
	if err != nil || followup == nil {
		t.Fatalf("expected an active followup for stop-overdue, got %v, %v", followup, err)
	}
	if followup.ReasonCode != models.FollowupReasonOverdue {
		t.Fatalf("reason = %s, want OVERDUE", followup.ReasonCode)
	}
	if followup.Priority != models.PriorityHigh {
		t.Fatalf("priority = %s, want HIGH", followup.Priority)
	}
	wantDue := testNow.Add(4 * time.Hour).Unix()
	if followup.DueAt != wantDue {
		t.Fatalf("due at = %d, want %d", followup.DueAt, wantDue)
	}

	// The stop itself stays PENDING: the followup tracks the work now.
	stop, _ := store.GetStop(context.Background(), "stop-overdue")
	if stop.Status != models.StopPending {
		t.Fatalf("stop status = %s, want PENDING", stop.Status)
	}
}

func TestScanOverdueIsIdempotent(t *testing.T) {
	store := newMemStore()
	d := newTestDeriver(store)
	seedStop(store, "stop-overdue", models.StopPending, testNow.Add(-time.Hour).Unix())

	if _, err := d.ScanOverdue(context.Background()); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := d.ScanOverdue(context.Background())
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if second.Created != 0 {
		t.Fatalf("second scan created %d followups, want 0", second.Created)
	}
	if second.Skipped != 1 {
		t.Fatalf("second scan skipped %d, want 1", second.Skipped)
	}
}

func TestCreateManualFollowup(t *testing.T) {
	store := newMemStore()
	d := newTestDeriver(store)

	followup, err := d.CreateManual(context.Background(), models.CreateFollowupRequest{
		BinID:  "bin-77",
		WardID: "ward-2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if followup.ReasonCode != models.FollowupReasonManual {
		t.Fatalf("reason = %s, want MANUAL", followup.ReasonCode)
	}
	if followup.Priority != models.PriorityHigh {
		t.Fatalf("priority = %s, want HIGH", followup.Priority)
	}
	if followup.WasteType != "General" {
		t.Fatalf("waste type = %s, want General default", followup.WasteType)
	}
}

func TestCreateManualValidation(t *testing.T) {
	store := newMemStore()
	d := newTestDeriver(store)

	_, err := d.CreateManual(context.Background(), models.CreateFollowupRequest{WardID: "ward-2"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for missing bin_id, got %v", err)
	}
	_, err = d.CreateManual(context.Background(), models.CreateFollowupRequest{BinID: "bin-1"})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for missing ward_id, got %v", err)
	}
}
