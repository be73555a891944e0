package database

import (
	"context"
	"database/sql"
	"errors"

	"ecocollect-backend/internal/lifecycle"
	"ecocollect-backend/internal/models"
)

func (s *Store) GetRoute(ctx context.Context, routeID string) (*models.Route, error) {
	var route models.Route
	err := s.db.GetContext(ctx, &route, `
		SELECT route_id, route_name, zone_id, collection_date,
		       assigned_collector_id, assigned_truck_id, status, version,
		       created_at, updated_at
		FROM routes
		WHERE route_id = $1
	`, routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &lifecycle.NotFoundError{Entity: lifecycle.KindRoute, ID: routeID}
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func (s *Store) ListRoutes(ctx context.Context) ([]models.Route, error) {
	routes := []models.Route{}
	err := s.db.SelectContext(ctx, &routes, `
		SELECT route_id, route_name, zone_id, collection_date,
		       assigned_collector_id, assigned_truck_id, status, version,
		       created_at, updated_at
		FROM routes
		ORDER BY collection_date DESC, route_name
	`)
	if err != nil {
		return nil, err
	}
	return routes, nil
}

func (s *Store) UpdateRouteCollector(ctx context.Context, routeID string, version int, collectorID string) (*models.Route, error) {
	return s.updateRoute(ctx, routeID, version, `
		UPDATE routes
		SET assigned_collector_id = $3,
		    version = version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE route_id = $1 AND version = $2
		RETURNING route_id, route_name, zone_id, collection_date,
		          assigned_collector_id, assigned_truck_id, status, version,
		          created_at, updated_at
	`, collectorID)
}

func (s *Store) UpdateRouteTruck(ctx context.Context, routeID string, version int, truckID string) (*models.Route, error) {
	return s.updateRoute(ctx, routeID, version, `
		UPDATE routes
		SET assigned_truck_id = $3,
		    version = version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE route_id = $1 AND version = $2
		RETURNING route_id, route_name, zone_id, collection_date,
		          assigned_collector_id, assigned_truck_id, status, version,
		          created_at, updated_at
	`, truckID)
}

func (s *Store) UpdateRouteStatus(ctx context.Context, routeID string, version int, status models.RouteStatus) (*models.Route, error) {
	return s.updateRoute(ctx, routeID, version, `
		UPDATE routes
		SET status = $3,
		    version = version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE route_id = $1 AND version = $2
		RETURNING route_id, route_name, zone_id, collection_date,
		          assigned_collector_id, assigned_truck_id, status, version,
		          created_at, updated_at
	`, string(status))
}

func (s *Store) updateRoute(ctx context.Context, routeID string, version int, query string, value interface{}) (*models.Route, error) {
	var route models.Route
	err := s.db.GetContext(ctx, &route, query, routeID, version, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.resolveWriteMiss(lifecycle.KindRoute, "routes", "route_id", routeID)
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}
