package models

// RouteStatus is the lifecycle status of a collection route.
// Lower-case values match what route planning writes historically.
type RouteStatus string

const (
	RoutePending    RouteStatus = "pending"
	RouteInProgress RouteStatus = "in_progress"
	RouteCompleted  RouteStatus = "completed"
)

// ParseRouteStatus validates a raw status string from a request.
func ParseRouteStatus(raw string) (RouteStatus, bool) {
	switch RouteStatus(raw) {
	case RoutePending, RouteInProgress, RouteCompleted:
		return RouteStatus(raw), true
	}
	return "", false
}

// Route represents a planned collection run for one collector and truck
type Route struct {
	RouteID             string      `json:"route_id" db:"route_id"`
	RouteName           string      `json:"route_name" db:"route_name"`
	ZoneID              string      `json:"zone_id" db:"zone_id"`
	CollectionDate      int64       `json:"collection_date" db:"collection_date"` // Unix timestamp
	AssignedCollectorID *string     `json:"assigned_collector_id,omitempty" db:"assigned_collector_id"`
	AssignedTruckID     *string     `json:"assigned_truck_id,omitempty" db:"assigned_truck_id"`
	Status              RouteStatus `json:"status" db:"status"`
	Version             int         `json:"version" db:"version"`
	CreatedAt           int64       `json:"created_at" db:"created_at"`
	UpdatedAt           int64       `json:"updated_at" db:"updated_at"`
}

// AssignRouteRequest is the request body for POST /api/routes/:id/assign
// (the three-step convenience endpoint: collector, truck, then activation)
type AssignRouteRequest struct {
	CollectorID string `json:"collector_id"`
	TruckID     string `json:"truck_id"`
}

// RouteAssignmentState reports which steps of the route assignment
// protocol have completed. Partial completion is a valid state the
// dispatcher UI is expected to show as-is.
type RouteAssignmentState struct {
	CollectorAssigned bool   `json:"collector_assigned"`
	TruckAssigned     bool   `json:"truck_assigned"`
	Activated         bool   `json:"activated"`
	FailedStep        string `json:"failed_step,omitempty"`
	Error             string `json:"error,omitempty"`
}
