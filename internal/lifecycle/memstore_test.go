package lifecycle

import (
	"context"
	"sync"

	"ecocollect-backend/internal/models"
)

// memStore is an in-memory implementation of the store contracts with the
// same version-check and uniqueness semantics as the SQL stores, plus
// fault-injection hooks for failure-path tests.
type memStore struct {
	mu        sync.Mutex
	routes    map[string]*models.Route
	stops     map[string]*models.RouteStop
	followups map[string]*models.FollowupPickup

	routeWards map[string]string // route id -> ward id
	wasteTypes map[string]string // bin id -> waste type

	// fault injection
	afterGetRoute         func() // fired once after the next GetRoute, outside the lock
	updateTruckErr        error
	createFollowupErr     map[string]error // keyed by bin id
	completeAssignmentErr error
}

func newMemStore() *memStore {
	return &memStore{
		routes:            make(map[string]*models.Route),
		stops:             make(map[string]*models.RouteStop),
		followups:         make(map[string]*models.FollowupPickup),
		routeWards:        make(map[string]string),
		wasteTypes:        make(map[string]string),
		createFollowupErr: make(map[string]error),
	}
}

// --- RouteStore ---

func (m *memStore) GetRoute(_ context.Context, routeID string) (*models.Route, error) {
	m.mu.Lock()
	route, ok := m.routes[routeID]
	if !ok {
		m.mu.Unlock()
		return nil, &NotFoundError{Entity: KindRoute, ID: routeID}
	}
	cp := *route
	hook := m.afterGetRoute
	m.afterGetRoute = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return &cp, nil
}

func (m *memStore) ListRoutes(_ context.Context) ([]models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Route, 0, len(m.routes))
	for _, r := range m.routes {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) UpdateRouteCollector(_ context.Context, routeID string, version int, collectorID string) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	route, ok := m.routes[routeID]
	if !ok {
		return nil, &NotFoundError{Entity: KindRoute, ID: routeID}
	}
	if route.Version != version {
		return nil, &ConflictError{Entity: KindRoute, ID: routeID}
	}
	id := collectorID
	route.AssignedCollectorID = &id
	route.Version++
	cp := *route
	return &cp, nil
}

func (m *memStore) UpdateRouteTruck(_ context.Context, routeID string, version int, truckID string) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateTruckErr != nil {
		return nil, m.updateTruckErr
	}
	route, ok := m.routes[routeID]
	if !ok {
		return nil, &NotFoundError{Entity: KindRoute, ID: routeID}
	}
	if route.Version != version {
		return nil, &ConflictError{Entity: KindRoute, ID: routeID}
	}
	id := truckID
	route.AssignedTruckID = &id
	route.Version++
	cp := *route
	return &cp, nil
}

func (m *memStore) UpdateRouteStatus(_ context.Context, routeID string, version int, status models.RouteStatus) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	route, ok := m.routes[routeID]
	if !ok {
		return nil, &NotFoundError{Entity: KindRoute, ID: routeID}
	}
	if route.Version != version {
		return nil, &ConflictError{Entity: KindRoute, ID: routeID}
	}
	route.Status = status
	route.Version++
	cp := *route
	return &cp, nil
}

// --- RouteStopStore ---

func (m *memStore) GetStop(_ context.Context, stopID string) (*models.RouteStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stop, ok := m.stops[stopID]
	if !ok {
		return nil, &NotFoundError{Entity: KindRouteStop, ID: stopID}
	}
	cp := *stop
	return &cp, nil
}

func (m *memStore) ListStops(_ context.Context, filter StopFilter) ([]models.RouteStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RouteStop
	for _, s := range m.stops {
		if filter.RouteID != "" && s.RouteID != filter.RouteID {
			continue
		}
		if filter.DriverID != "" && (s.DriverID == nil || *s.DriverID != filter.DriverID) {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.OverdueAsOf != 0 && s.PlannedEta >= filter.OverdueAsOf {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) UpdateStopStatus(_ context.Context, stopID string, version int, status models.StopStatus) (*models.RouteStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stop, ok := m.stops[stopID]
	if !ok {
		return nil, &NotFoundError{Entity: KindRouteStop, ID: stopID}
	}
	if stop.Version != version {
		return nil, &ConflictError{Entity: KindRouteStop, ID: stopID}
	}
	stop.Status = status
	stop.Collected = status == models.StopDone
	stop.Version++
	cp := *stop
	return &cp, nil
}

func (m *memStore) UpdateStopFields(_ context.Context, stopID string, version int, update StopFieldUpdate) (*models.RouteStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stop, ok := m.stops[stopID]
	if !ok {
		return nil, &NotFoundError{Entity: KindRouteStop, ID: stopID}
	}
	if stop.Version != version {
		return nil, &ConflictError{Entity: KindRouteStop, ID: stopID}
	}
	if update.DriverID != nil {
		stop.DriverID = update.DriverID
	}
	if update.ArrivedAt != nil {
		stop.ArrivedAt = update.ArrivedAt
	}
	if update.PlannedEta != nil {
		stop.PlannedEta = *update.PlannedEta
	}
	if update.WeightKg != nil {
		stop.WeightKg = *update.WeightKg
	}
	if update.PhotoURL != nil {
		stop.PhotoURL = update.PhotoURL
	}
	if update.Notes != nil {
		stop.Notes = update.Notes
	}
	if update.ReasonCode != nil {
		stop.ReasonCode = *update.ReasonCode
	}
	stop.Version++
	cp := *stop
	return &cp, nil
}

// --- FollowupStore ---

func (m *memStore) CreateFollowup(_ context.Context, followup *models.FollowupPickup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createFollowupErr[followup.BinID]; err != nil {
		return err
	}
	if followup.OriginatingStopID != nil {
		for _, f := range m.followups {
			if f.OriginatingStopID != nil && *f.OriginatingStopID == *followup.OriginatingStopID && !f.Status.IsTerminal() {
				return ErrDuplicateFollowup
			}
		}
	}
	cp := *followup
	m.followups[followup.ID] = &cp
	return nil
}

func (m *memStore) GetFollowup(_ context.Context, id string) (*models.FollowupPickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.followups[id]
	if !ok {
		return nil, &NotFoundError{Entity: KindFollowup, ID: id}
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) ListFollowups(_ context.Context, filter FollowupFilter) ([]models.FollowupPickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FollowupPickup
	for _, f := range m.followups {
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.WardID != "" && f.WardID != filter.WardID {
			continue
		}
		if filter.DriverID != "" {
			original := f.OriginalDriverID != nil && *f.OriginalDriverID == filter.DriverID
			assigned := f.NewAssignedDriverID != nil && *f.NewAssignedDriverID == filter.DriverID
			if !original && !assigned {
				continue
			}
		}
		if filter.ActiveOnly && f.Status.IsTerminal() {
			continue
		}
		if filter.OverdueAsOf != 0 && (f.DueAt >= filter.OverdueAsOf || f.Status.IsTerminal()) {
			continue
		}
		out = append(out, *f)
	}
	return out, nil
}

func (m *memStore) ActiveFollowupForStop(_ context.Context, stopID string) (*models.FollowupPickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.followups {
		if f.OriginatingStopID != nil && *f.OriginatingStopID == stopID && !f.Status.IsTerminal() {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdateFollowup(_ context.Context, id string, version int, update FollowupUpdate) (*models.FollowupPickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.followups[id]
	if !ok {
		return nil, &NotFoundError{Entity: KindFollowup, ID: id}
	}
	if f.Version != version {
		return nil, &ConflictError{Entity: KindFollowup, ID: id}
	}
	applyFollowupUpdate(f, update)
	f.Version++
	cp := *f
	return &cp, nil
}

func (m *memStore) CompleteAssignment(_ context.Context, params CompleteAssignmentParams) (*models.FollowupPickup, *models.RouteStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// The injected failure models a transaction abort: nothing is mutated.
	if m.completeAssignmentErr != nil {
		return nil, nil, m.completeAssignmentErr
	}
	f, ok := m.followups[params.FollowupID]
	if !ok {
		return nil, nil, &NotFoundError{Entity: KindFollowup, ID: params.FollowupID}
	}
	if f.Version != params.FollowupVersion {
		return nil, nil, &ConflictError{Entity: KindFollowup, ID: params.FollowupID}
	}
	var stop *models.RouteStop
	if params.StopID != "" {
		stop, ok = m.stops[params.StopID]
		if !ok {
			return nil, nil, &NotFoundError{Entity: KindRouteStop, ID: params.StopID}
		}
		if stop.Version != params.StopVersion {
			return nil, nil, &ConflictError{Entity: KindRouteStop, ID: params.StopID}
		}
	}

	driverID := params.DriverID
	truckID := params.TruckID
	collectionDate := params.CollectionDate
	f.NewAssignedDriverID = &driverID
	f.AssignedTruckID = &truckID
	f.CollectionDate = &collectionDate
	f.Status = models.FollowupInProgress
	f.Version++

	var stopCopy *models.RouteStop
	if stop != nil {
		stop.DriverID = &driverID
		stop.PlannedEta = collectionDate
		stop.Version++
		cp := *stop
		stopCopy = &cp
	}
	fCopy := *f
	return &fCopy, stopCopy, nil
}

func applyFollowupUpdate(f *models.FollowupPickup, update FollowupUpdate) {
	if update.NewAssignedDriverID != nil {
		f.NewAssignedDriverID = update.NewAssignedDriverID
	}
	if update.AssignedTruckID != nil {
		f.AssignedTruckID = update.AssignedTruckID
	}
	if update.CollectionDate != nil {
		f.CollectionDate = update.CollectionDate
	}
	if update.Status != nil {
		f.Status = *update.Status
	}
	if update.Priority != nil {
		f.Priority = *update.Priority
	}
	if update.Notes != nil {
		f.Notes = update.Notes
	}
	if update.CompletedAt != nil {
		f.CompletedAt = update.CompletedAt
	}
}

// --- Directory ---

func (m *memStore) WardForRoute(_ context.Context, routeID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routeWards[routeID], nil
}

func (m *memStore) WasteTypeForBin(_ context.Context, binID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wt, ok := m.wasteTypes[binID]; ok {
		return wt, nil
	}
	return "General", nil
}
