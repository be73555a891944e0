package lifecycle

import "ecocollect-backend/internal/models"

// EntityKind identifies which transition table applies
type EntityKind string

const (
	KindRouteStop EntityKind = "route_stop"
	KindFollowup  EntityKind = "followup_pickup"
	KindRoute     EntityKind = "route"
)

// Transition tables. A status missing from its table is terminal: every
// edge out of it is denied. Corrective work for a terminal stop happens on
// the derived followup, never by reopening the stop.
var (
	routeStopEdges = map[models.StopStatus][]models.StopStatus{
		models.StopPending:    {models.StopInProgress, models.StopDone, models.StopMissed, models.StopSkipped},
		models.StopInProgress: {models.StopDone, models.StopMissed, models.StopSkipped},
	}

	followupEdges = map[models.FollowupStatus][]models.FollowupStatus{
		models.FollowupPending:    {models.FollowupAssigned, models.FollowupCancelled},
		models.FollowupAssigned:   {models.FollowupInProgress, models.FollowupCancelled},
		models.FollowupInProgress: {models.FollowupDone, models.FollowupCancelled},
	}

	routeEdges = map[models.RouteStatus][]models.RouteStatus{
		models.RoutePending:    {models.RouteInProgress},
		models.RouteInProgress: {models.RouteCompleted},
	}
)

// CanTransition is the single authority on legal status edges. It is pure:
// no reads, no writes, just allow (nil) or deny (*InvalidTransitionError).
// Every component calls it before writing a status.
func CanTransition(kind EntityKind, current, requested string) error {
	switch kind {
	case KindRouteStop:
		if allowedStopEdge(models.StopStatus(current), models.StopStatus(requested)) {
			return nil
		}
	case KindFollowup:
		if allowedFollowupEdge(models.FollowupStatus(current), models.FollowupStatus(requested)) {
			return nil
		}
	case KindRoute:
		if allowedRouteEdge(models.RouteStatus(current), models.RouteStatus(requested)) {
			return nil
		}
	}
	return &InvalidTransitionError{Entity: kind, From: current, To: requested}
}

// CanTransitionStop is a typed convenience wrapper over CanTransition
func CanTransitionStop(current, requested models.StopStatus) error {
	return CanTransition(KindRouteStop, string(current), string(requested))
}

// CanTransitionFollowup is a typed convenience wrapper over CanTransition
func CanTransitionFollowup(current, requested models.FollowupStatus) error {
	return CanTransition(KindFollowup, string(current), string(requested))
}

// CanTransitionRoute is a typed convenience wrapper over CanTransition
func CanTransitionRoute(current, requested models.RouteStatus) error {
	return CanTransition(KindRoute, string(current), string(requested))
}

func allowedStopEdge(current, requested models.StopStatus) bool {
	for _, next := range routeStopEdges[current] {
		if next == requested {
			return true
		}
	}
	return false
}

func allowedFollowupEdge(current, requested models.FollowupStatus) bool {
	for _, next := range followupEdges[current] {
		if next == requested {
			return true
		}
	}
	return false
}

func allowedRouteEdge(current, requested models.RouteStatus) bool {
	for _, next := range routeEdges[current] {
		if next == requested {
			return true
		}
	}
	return false
}
