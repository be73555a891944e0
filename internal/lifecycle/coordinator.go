package lifecycle

import (
	"context"
	"log"
	"time"

	"ecocollect-backend/internal/models"
)

// Coordinator orchestrates multi-entity assignment for routes and followups.
//
// The two protocols deliberately differ. Route assignment is three
// independently retryable steps (collector, truck, activate) and a failure
// mid-protocol leaves a valid partial state the caller can observe and
// retry. Followup completion is a single transaction across the followup
// and its originating stop; a partial application there would hand the
// field collector an unactionable work item.
type Coordinator struct {
	routes    RouteStore
	stops     RouteStopStore
	followups FollowupStore
	deriver   *Deriver
	now       func() time.Time
}

// NewCoordinator creates an assignment coordinator
func NewCoordinator(routes RouteStore, stops RouteStopStore, followups FollowupStore, deriver *Deriver) *Coordinator {
	return &Coordinator{
		routes:    routes,
		stops:     stops,
		followups: followups,
		deriver:   deriver,
		now:       time.Now,
	}
}

// --- Route assignment protocol (three steps, non-atomic) ---

// AssignCollector is step 1: version-checked upsert of the route's
// collector. Re-assigning the same collector is a no-op.
func (c *Coordinator) AssignCollector(ctx context.Context, routeID, collectorID string) (*models.Route, error) {
	if collectorID == "" {
		return nil, &ValidationError{Field: "collector_id", Message: "required"}
	}
	route, err := c.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if route.Status == models.RouteCompleted {
		return nil, &PreconditionFailedError{Message: "route " + routeID + " is completed, assignment is frozen"}
	}
	if route.AssignedCollectorID != nil && *route.AssignedCollectorID == collectorID {
		return route, nil
	}
	return c.routes.UpdateRouteCollector(ctx, routeID, route.Version, collectorID)
}

// AssignTruck is step 2: version-checked upsert of the route's truck
func (c *Coordinator) AssignTruck(ctx context.Context, routeID, truckID string) (*models.Route, error) {
	if truckID == "" {
		return nil, &ValidationError{Field: "truck_id", Message: "required"}
	}
	route, err := c.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if route.Status == models.RouteCompleted {
		return nil, &PreconditionFailedError{Message: "route " + routeID + " is completed, assignment is frozen"}
	}
	if route.AssignedTruckID != nil && *route.AssignedTruckID == truckID {
		return route, nil
	}
	return c.routes.UpdateRouteTruck(ctx, routeID, route.Version, truckID)
}

// ActivateRoute is step 3: pending -> in_progress, gated on both
// assignment targets being present.
func (c *Coordinator) ActivateRoute(ctx context.Context, routeID string) (*models.Route, error) {
	route, err := c.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if route.AssignedCollectorID == nil {
		return nil, &PreconditionFailedError{Message: "route " + routeID + " has no collector assigned"}
	}
	if route.AssignedTruckID == nil {
		return nil, &PreconditionFailedError{Message: "route " + routeID + " has no truck assigned"}
	}
	if err := CanTransitionRoute(route.Status, models.RouteInProgress); err != nil {
		return nil, err
	}
	return c.routes.UpdateRouteStatus(ctx, routeID, route.Version, models.RouteInProgress)
}

// UpdateRouteStatus handles PUT /routes/:id/status. Activation goes through
// the precondition gate; any other edge only needs the validator.
func (c *Coordinator) UpdateRouteStatus(ctx context.Context, routeID string, requested models.RouteStatus) (*models.Route, error) {
	if requested == models.RouteInProgress {
		return c.ActivateRoute(ctx, routeID)
	}
	route, err := c.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if err := CanTransitionRoute(route.Status, requested); err != nil {
		return nil, err
	}
	return c.routes.UpdateRouteStatus(ctx, routeID, route.Version, requested)
}

// AssignRoute runs all three steps in order. On failure it stops, leaves
// the completed steps applied, and returns a *PartialAssignmentError
// naming the failed step. There is no rollback: "collector assigned, truck
// not yet" is a legitimate observable state.
func (c *Coordinator) AssignRoute(ctx context.Context, routeID, collectorID, truckID string) (*models.Route, error) {
	state := &PartialAssignmentError{RouteID: routeID}

	if _, err := c.AssignCollector(ctx, routeID, collectorID); err != nil {
		state.FailedStep = "assign_collector"
		state.Err = err
		return nil, state
	}
	state.CollectorAssigned = true

	if _, err := c.AssignTruck(ctx, routeID, truckID); err != nil {
		state.FailedStep = "assign_truck"
		state.Err = err
		return nil, state
	}
	state.TruckAssigned = true

	route, err := c.ActivateRoute(ctx, routeID)
	if err != nil {
		state.FailedStep = "activate"
		state.Err = err
		return nil, state
	}
	state.Activated = true

	log.Printf("🚛 Route %s assigned: collector %s, truck %s, now in progress", routeID, collectorID, truckID)
	return route, nil
}

// --- Route stop operations ---

// UpdateStopStatus validates and applies a stop status transition. When
// deriveFollowup is set and the new status is MISSED or SKIPPED, a followup
// is derived in the same request; the second return value is non-nil when
// derivation produced or found one.
func (c *Coordinator) UpdateStopStatus(ctx context.Context, stopID string, requested models.StopStatus, deriveFollowup bool) (*models.RouteStop, *models.FollowupPickup, error) {
	stop, err := c.stops.GetStop(ctx, stopID)
	if err != nil {
		return nil, nil, err
	}
	if err := CanTransitionStop(stop.Status, requested); err != nil {
		return nil, nil, err
	}

	updated, err := c.stops.UpdateStopStatus(ctx, stopID, stop.Version, requested)
	if err != nil {
		return nil, nil, err
	}

	var followup *models.FollowupPickup
	if deriveFollowup && (requested == models.StopMissed || requested == models.StopSkipped) {
		followup, _, err = c.deriver.DeriveFromStop(ctx, updated)
		if err != nil {
			// The stop transition already committed; surface the derivation
			// failure without undoing it. The reconcile sweep will backfill.
			log.Printf("⚠️  Stop %s transitioned to %s but followup derivation failed: %v", stopID, requested, err)
			return updated, nil, err
		}
	}
	return updated, followup, nil
}

// SetStopCollected handles PUT /route-stops/:id/collected. Collected and
// DONE are two views of the same fact, so collected=true is a validated
// transition to DONE and collected=false is rejected once the stop is DONE.
func (c *Coordinator) SetStopCollected(ctx context.Context, stopID string, collected bool) (*models.RouteStop, error) {
	stop, err := c.stops.GetStop(ctx, stopID)
	if err != nil {
		return nil, err
	}
	if collected == stop.Collected {
		return stop, nil
	}
	if !collected {
		// Only a DONE stop can have collected=true, and DONE is terminal.
		return nil, &InvalidTransitionError{Entity: KindRouteStop, From: string(stop.Status), To: string(models.StopPending)}
	}
	if err := CanTransitionStop(stop.Status, models.StopDone); err != nil {
		return nil, err
	}
	return c.stops.UpdateStopStatus(ctx, stopID, stop.Version, models.StopDone)
}

// UpdateStopFields applies non-status field updates (weight, photo, notes,
// reason, arrival). No transition check; version check still applies.
func (c *Coordinator) UpdateStopFields(ctx context.Context, stopID string, update StopFieldUpdate) (*models.RouteStop, error) {
	stop, err := c.stops.GetStop(ctx, stopID)
	if err != nil {
		return nil, err
	}
	return c.stops.UpdateStopFields(ctx, stopID, stop.Version, update)
}

// ReassignStop changes the stop's driver for the next attempt
func (c *Coordinator) ReassignStop(ctx context.Context, stopID, newDriverID string) (*models.RouteStop, error) {
	if newDriverID == "" {
		return nil, &ValidationError{Field: "new_driver_id", Message: "required"}
	}
	return c.UpdateStopFields(ctx, stopID, StopFieldUpdate{DriverID: &newDriverID})
}

// --- Followup operations ---

// AssignFollowup upserts the followup's driver and/or truck. A PENDING
// followup becomes ASSIGNED; re-assigning an ASSIGNED one keeps it
// ASSIGNED. Anything further along is denied by the validator.
func (c *Coordinator) AssignFollowup(ctx context.Context, followupID string, driverID, truckID *string) (*models.FollowupPickup, error) {
	if driverID == nil && truckID == nil {
		return nil, &ValidationError{Message: "at least one of new_assigned_driver_id, assigned_truck_id is required"}
	}
	followup, err := c.followups.GetFollowup(ctx, followupID)
	if err != nil {
		return nil, err
	}

	update := FollowupUpdate{NewAssignedDriverID: driverID, AssignedTruckID: truckID}
	if followup.Status != models.FollowupAssigned {
		if err := CanTransitionFollowup(followup.Status, models.FollowupAssigned); err != nil {
			return nil, err
		}
		assigned := models.FollowupAssigned
		update.Status = &assigned
	}
	return c.followups.UpdateFollowup(ctx, followupID, followup.Version, update)
}

// CompleteAssignment assigns a driver, truck and collection date to a
// followup, moves it to IN_PROGRESS, and updates the originating stop's
// driver and planned ETA for the new attempt — all in one transaction.
// A PENDING followup passes through ASSIGNED implicitly; both hops are
// validator-checked before anything is written.
func (c *Coordinator) CompleteAssignment(ctx context.Context, followupID, driverID, truckID string, collectionDate int64) (*models.FollowupPickup, *models.RouteStop, error) {
	if driverID == "" {
		return nil, nil, &ValidationError{Field: "new_assigned_driver_id", Message: "required"}
	}
	if truckID == "" {
		return nil, nil, &ValidationError{Field: "assigned_truck_id", Message: "required"}
	}
	if collectionDate <= 0 {
		return nil, nil, &ValidationError{Field: "collection_date", Message: "required"}
	}

	followup, err := c.followups.GetFollowup(ctx, followupID)
	if err != nil {
		return nil, nil, err
	}

	switch followup.Status {
	case models.FollowupPending:
		if err := CanTransitionFollowup(models.FollowupPending, models.FollowupAssigned); err != nil {
			return nil, nil, err
		}
		if err := CanTransitionFollowup(models.FollowupAssigned, models.FollowupInProgress); err != nil {
			return nil, nil, err
		}
	default:
		if err := CanTransitionFollowup(followup.Status, models.FollowupInProgress); err != nil {
			return nil, nil, err
		}
	}

	params := CompleteAssignmentParams{
		FollowupID:      followupID,
		FollowupVersion: followup.Version,
		DriverID:        driverID,
		TruckID:         truckID,
		CollectionDate:  collectionDate,
	}
	if followup.OriginatingStopID != nil {
		stop, err := c.stops.GetStop(ctx, *followup.OriginatingStopID)
		if err != nil {
			return nil, nil, err
		}
		params.StopID = stop.StopID
		params.StopVersion = stop.Version
	}

	updatedFollowup, updatedStop, err := c.followups.CompleteAssignment(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("🚛 Followup %s assignment completed: driver %s, truck %s", followupID, driverID, truckID)
	return updatedFollowup, updatedStop, nil
}

// MarkFollowupCompleted transitions an in-progress followup to DONE
func (c *Coordinator) MarkFollowupCompleted(ctx context.Context, followupID string, notes *string) (*models.FollowupPickup, error) {
	followup, err := c.followups.GetFollowup(ctx, followupID)
	if err != nil {
		return nil, err
	}
	if err := CanTransitionFollowup(followup.Status, models.FollowupDone); err != nil {
		return nil, err
	}
	done := models.FollowupDone
	completedAt := c.now().Unix()
	return c.followups.UpdateFollowup(ctx, followupID, followup.Version, FollowupUpdate{
		Status:      &done,
		CompletedAt: &completedAt,
		Notes:       notes,
	})
}

// CancelFollowup transitions any non-terminal followup to CANCELLED
func (c *Coordinator) CancelFollowup(ctx context.Context, followupID string, reason *string) (*models.FollowupPickup, error) {
	followup, err := c.followups.GetFollowup(ctx, followupID)
	if err != nil {
		return nil, err
	}
	if err := CanTransitionFollowup(followup.Status, models.FollowupCancelled); err != nil {
		return nil, err
	}
	cancelled := models.FollowupCancelled
	return c.followups.UpdateFollowup(ctx, followupID, followup.Version, FollowupUpdate{
		Status: &cancelled,
		Notes:  reason,
	})
}

// UpdateFollowupStatus applies a validator-gated status change
func (c *Coordinator) UpdateFollowupStatus(ctx context.Context, followupID string, requested models.FollowupStatus) (*models.FollowupPickup, error) {
	followup, err := c.followups.GetFollowup(ctx, followupID)
	if err != nil {
		return nil, err
	}
	if err := CanTransitionFollowup(followup.Status, requested); err != nil {
		return nil, err
	}
	update := FollowupUpdate{Status: &requested}
	if requested == models.FollowupDone {
		completedAt := c.now().Unix()
		update.CompletedAt = &completedAt
	}
	return c.followups.UpdateFollowup(ctx, followupID, followup.Version, update)
}
