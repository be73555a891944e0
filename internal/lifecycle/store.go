package lifecycle

import (
	"context"

	"ecocollect-backend/internal/models"
)

// Store contracts for the lifecycle engine. The SQL implementations live in
// internal/database; tests run against in-memory fakes. Every write carries
// the caller's last-read version and fails with *ConflictError when the
// persisted version has moved on.

// RouteStore persists routes with optimistic-concurrency writes
type RouteStore interface {
	GetRoute(ctx context.Context, routeID string) (*models.Route, error)
	ListRoutes(ctx context.Context) ([]models.Route, error)
	UpdateRouteCollector(ctx context.Context, routeID string, version int, collectorID string) (*models.Route, error)
	UpdateRouteTruck(ctx context.Context, routeID string, version int, truckID string) (*models.Route, error)
	UpdateRouteStatus(ctx context.Context, routeID string, version int, status models.RouteStatus) (*models.Route, error)
}

// StopFilter narrows ListStops. Zero values mean "no constraint";
// OverdueAsOf selects PENDING stops whose planned ETA is before it.
type StopFilter struct {
	RouteID     string
	DriverID    string
	Status      models.StopStatus
	OverdueAsOf int64
}

// StopFieldUpdate carries non-status field writes. Nil pointers leave the
// column untouched; no transition check applies to these fields.
type StopFieldUpdate struct {
	DriverID   *string
	ArrivedAt  *int64
	PlannedEta *int64
	WeightKg   *float64
	PhotoURL   *string
	Notes      *string
	ReasonCode *models.StopReasonCode
}

// RouteStopStore persists route stops with optimistic-concurrency writes
type RouteStopStore interface {
	GetStop(ctx context.Context, stopID string) (*models.RouteStop, error)
	ListStops(ctx context.Context, filter StopFilter) ([]models.RouteStop, error)
	// UpdateStopStatus writes the status and keeps collected = (status == DONE).
	UpdateStopStatus(ctx context.Context, stopID string, version int, status models.StopStatus) (*models.RouteStop, error)
	UpdateStopFields(ctx context.Context, stopID string, version int, update StopFieldUpdate) (*models.RouteStop, error)
}

// FollowupFilter narrows ListFollowups. Zero values mean "no constraint";
// DriverID matches either the original or the newly assigned driver, and
// OverdueAsOf selects non-terminal followups due before it.
type FollowupFilter struct {
	Status      models.FollowupStatus
	WardID      string
	DriverID    string
	ActiveOnly  bool
	OverdueAsOf int64
}

// FollowupUpdate carries followup field writes. Nil pointers leave the
// column untouched. Status writes must already be validator-approved.
type FollowupUpdate struct {
	NewAssignedDriverID *string
	AssignedTruckID     *string
	CollectionDate      *int64
	Status              *models.FollowupStatus
	Priority            *models.Priority
	Notes               *string
	CompletedAt         *int64
}

// CompleteAssignmentParams is the atomic two-entity write behind
// POST /followup-pickups/:id/complete-assignment. Either both rows commit
// or neither does.
type CompleteAssignmentParams struct {
	FollowupID      string
	FollowupVersion int
	StopID          string // empty when the followup has no originating stop
	StopVersion     int
	DriverID        string
	TruckID         string
	CollectionDate  int64
}

// FollowupStore persists followup pickups. CreateFollowup returns
// ErrDuplicateFollowup when an active followup already exists for the same
// originating stop; the store-level uniqueness constraint is what makes
// concurrent derivation safe.
type FollowupStore interface {
	CreateFollowup(ctx context.Context, followup *models.FollowupPickup) error
	GetFollowup(ctx context.Context, id string) (*models.FollowupPickup, error)
	ListFollowups(ctx context.Context, filter FollowupFilter) ([]models.FollowupPickup, error)
	// ActiveFollowupForStop returns nil, nil when no non-terminal followup
	// references the stop.
	ActiveFollowupForStop(ctx context.Context, stopID string) (*models.FollowupPickup, error)
	UpdateFollowup(ctx context.Context, id string, version int, update FollowupUpdate) (*models.FollowupPickup, error)
	// CompleteAssignment updates the followup and its originating stop in one
	// transaction.
	CompleteAssignment(ctx context.Context, params CompleteAssignmentParams) (*models.FollowupPickup, *models.RouteStop, error)
}

// Directory resolves read-only collaborator lookups the deriver needs
type Directory interface {
	// WardForRoute returns the ward scoping a route's zone, empty when the
	// zone has no ward registered.
	WardForRoute(ctx context.Context, routeID string) (string, error)
	// WasteTypeForBin returns the bin's registered waste type, defaulting to
	// "General" for unknown bins.
	WasteTypeForBin(ctx context.Context, binID string) (string, error)
}
