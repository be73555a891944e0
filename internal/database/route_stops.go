package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ecocollect-backend/internal/lifecycle"
	"ecocollect-backend/internal/models"
)

const stopColumns = `stop_id, route_id, bin_id, driver_id, stop_order, collected,
	status, reason_code, planned_eta, arrived_at, weight_kg, photo_url, notes,
	source, version, created_at, updated_at`

func (s *Store) GetStop(ctx context.Context, stopID string) (*models.RouteStop, error) {
	var stop models.RouteStop
	err := s.db.GetContext(ctx, &stop, `SELECT `+stopColumns+` FROM route_stops WHERE stop_id = $1`, stopID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &lifecycle.NotFoundError{Entity: lifecycle.KindRouteStop, ID: stopID}
	}
	if err != nil {
		return nil, err
	}
	return &stop, nil
}

func (s *Store) ListStops(ctx context.Context, filter lifecycle.StopFilter) ([]models.RouteStop, error) {
	where := []string{}
	args := []interface{}{}

	if filter.RouteID != "" {
		args = append(args, filter.RouteID)
		where = append(where, fmt.Sprintf("route_id = $%d", len(args)))
	}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		where = append(where, fmt.Sprintf("driver_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OverdueAsOf != 0 {
		// Unscheduled stops (planned_eta 0) are never overdue
		args = append(args, filter.OverdueAsOf)
		where = append(where, fmt.Sprintf("planned_eta > 0 AND planned_eta < $%d", len(args)))
	}

	query := `SELECT ` + stopColumns + ` FROM route_stops`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY route_id, stop_order"

	stops := []models.RouteStop{}
	if err := s.db.SelectContext(ctx, &stops, query, args...); err != nil {
		return nil, err
	}
	return stops, nil
}

func (s *Store) UpdateStopStatus(ctx context.Context, stopID string, version int, status models.StopStatus) (*models.RouteStop, error) {
	var stop models.RouteStop
	err := s.db.GetContext(ctx, &stop, `
		UPDATE route_stops
		SET status = $3,
		    collected = ($3 = 'DONE'),
		    version = version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE stop_id = $1 AND version = $2
		RETURNING `+stopColumns+`
	`, stopID, version, string(status))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.resolveWriteMiss(lifecycle.KindRouteStop, "route_stops", "stop_id", stopID)
	}
	if err != nil {
		return nil, err
	}
	return &stop, nil
}

func (s *Store) UpdateStopFields(ctx context.Context, stopID string, version int, update lifecycle.StopFieldUpdate) (*models.RouteStop, error) {
	set := []string{}
	args := []interface{}{stopID, version}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.DriverID != nil {
		add("driver_id", *update.DriverID)
	}
	if update.ArrivedAt != nil {
		add("arrived_at", *update.ArrivedAt)
	}
	if update.PlannedEta != nil {
		add("planned_eta", *update.PlannedEta)
	}
	if update.WeightKg != nil {
		add("weight_kg", *update.WeightKg)
	}
	if update.PhotoURL != nil {
		add("photo_url", *update.PhotoURL)
	}
	if update.Notes != nil {
		add("notes", *update.Notes)
	}
	if update.ReasonCode != nil {
		add("reason_code", string(*update.ReasonCode))
	}
	if len(set) == 0 {
		return nil, &lifecycle.ValidationError{Message: "no fields to update"}
	}
	set = append(set, "version = version + 1", "updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT")

	var stop models.RouteStop
	query := `UPDATE route_stops SET ` + strings.Join(set, ", ") +
		` WHERE stop_id = $1 AND version = $2 RETURNING ` + stopColumns
	err := s.db.GetContext(ctx, &stop, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.resolveWriteMiss(lifecycle.KindRouteStop, "route_stops", "stop_id", stopID)
	}
	if err != nil {
		return nil, err
	}
	return &stop, nil
}
