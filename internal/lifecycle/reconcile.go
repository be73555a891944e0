package lifecycle

import (
	"context"
	"log"

	"ecocollect-backend/internal/models"
)

// Reconciler backfills followups for historical missed, skipped and overdue
// stops and re-normalizes priority drift. Both sweeps are idempotent: a
// second run right after a successful one changes nothing. They may run
// concurrently with live traffic and with themselves; safety comes from the
// store's uniqueness constraint, not from any job-level lock.
type Reconciler struct {
	deriver   *Deriver
	stops     RouteStopStore
	followups FollowupStore
}

// NewReconciler creates a reconciler sharing the event-driven deriver, so
// batch and live paths agree on what a valid followup is.
func NewReconciler(deriver *Deriver, stops RouteStopStore, followups FollowupStore) *Reconciler {
	return &Reconciler{deriver: deriver, stops: stops, followups: followups}
}

// ProcessExisting sweeps historical data: every MISSED or SKIPPED stop
// without an active followup gets one, then the overdue scan runs over
// PENDING stops. A failing row is recorded and skipped, never fatal.
func (r *Reconciler) ProcessExisting(ctx context.Context) (*SweepResult, error) {
	log.Println("🔄 Reconcile: processing existing missed/skipped/overdue stops")
	result := &SweepResult{}

	for _, status := range []models.StopStatus{models.StopMissed, models.StopSkipped} {
		stops, err := r.stops.ListStops(ctx, StopFilter{Status: status})
		if err != nil {
			return nil, err
		}
		for i := range stops {
			_, created, err := r.deriver.DeriveFromStop(ctx, &stops[i])
			if err != nil {
				log.Printf("⚠️  Reconcile: stop %s failed: %v", stops[i].StopID, err)
				result.Failed++
				result.Failures = append(result.Failures, StopFailure{StopID: stops[i].StopID, Error: err.Error()})
				continue
			}
			if created {
				result.Created++
			} else {
				result.Skipped++
			}
		}
	}

	overdue, err := r.deriver.ScanOverdue(ctx)
	if err != nil {
		return nil, err
	}
	result.Created += overdue.Created
	result.Skipped += overdue.Skipped
	result.Failed += overdue.Failed
	result.Failures = append(result.Failures, overdue.Failures...)

	log.Printf("✅ Reconcile complete: %d created, %d skipped, %d failed", result.Created, result.Skipped, result.Failed)
	return result, nil
}

// RenormalizePriorities rewrites the priority of every non-terminal
// followup that disagrees with Classify(reasonCode) and returns how many
// rows changed. Immediately re-running it returns zero.
func (r *Reconciler) RenormalizePriorities(ctx context.Context) (int, error) {
	followups, err := r.followups.ListFollowups(ctx, FollowupFilter{ActiveOnly: true})
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range followups {
		want := Classify(followups[i].ReasonCode)
		if followups[i].Priority == want {
			continue
		}
		priority := want
		if _, err := r.followups.UpdateFollowup(ctx, followups[i].ID, followups[i].Version, FollowupUpdate{Priority: &priority}); err != nil {
			log.Printf("⚠️  Renormalize: followup %s failed: %v", followups[i].ID, err)
			continue
		}
		updated++
	}

	log.Printf("✅ Renormalize complete: %d followups updated", updated)
	return updated, nil
}
