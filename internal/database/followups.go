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

const followupColumns = `id, bin_id, ward_id, waste_type, originating_stop_id,
	original_driver_id, new_assigned_driver_id, assigned_truck_id, priority,
	reason_code, due_at, collection_date, status, notes, completed_at, version,
	created_at, updated_at`

func (s *Store) CreateFollowup(ctx context.Context, followup *models.FollowupPickup) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO followup_pickups (
			id, bin_id, ward_id, waste_type, originating_stop_id,
			original_driver_id, new_assigned_driver_id, assigned_truck_id,
			priority, reason_code, due_at, collection_date, status, notes,
			completed_at, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		followup.ID, followup.BinID, followup.WardID, followup.WasteType,
		followup.OriginatingStopID, followup.OriginalDriverID,
		followup.NewAssignedDriverID, followup.AssignedTruckID,
		string(followup.Priority), string(followup.ReasonCode), followup.DueAt,
		followup.CollectionDate, string(followup.Status), followup.Notes,
		followup.CompletedAt, followup.Version, followup.CreatedAt, followup.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return lifecycle.ErrDuplicateFollowup
	}
	return err
}

func (s *Store) GetFollowup(ctx context.Context, id string) (*models.FollowupPickup, error) {
	var followup models.FollowupPickup
	err := s.db.GetContext(ctx, &followup, `SELECT `+followupColumns+` FROM followup_pickups WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &lifecycle.NotFoundError{Entity: lifecycle.KindFollowup, ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &followup, nil
}

func (s *Store) ListFollowups(ctx context.Context, filter lifecycle.FollowupFilter) ([]models.FollowupPickup, error) {
	where := []string{}
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.WardID != "" {
		args = append(args, filter.WardID)
		where = append(where, fmt.Sprintf("ward_id = $%d", len(args)))
	}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		where = append(where, fmt.Sprintf("(original_driver_id = $%d OR new_assigned_driver_id = $%d)", len(args), len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "status IN ('PENDING', 'ASSIGNED', 'IN_PROGRESS')")
	}
	if filter.OverdueAsOf != 0 {
		args = append(args, filter.OverdueAsOf)
		where = append(where, fmt.Sprintf("due_at < $%d", len(args)))
		where = append(where, "status IN ('PENDING', 'ASSIGNED', 'IN_PROGRESS')")
	}

	query := `SELECT ` + followupColumns + ` FROM followup_pickups`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY priority = 'HIGH' DESC, due_at`

	followups := []models.FollowupPickup{}
	if err := s.db.SelectContext(ctx, &followups, query, args...); err != nil {
		return nil, err
	}
	return followups, nil
}

func (s *Store) ActiveFollowupForStop(ctx context.Context, stopID string) (*models.FollowupPickup, error) {
	var followup models.FollowupPickup
	err := s.db.GetContext(ctx, &followup, `
		SELECT `+followupColumns+`
		FROM followup_pickups
		WHERE originating_stop_id = $1
		  AND status IN ('PENDING', 'ASSIGNED', 'IN_PROGRESS')
	`, stopID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &followup, nil
}

func (s *Store) UpdateFollowup(ctx context.Context, id string, version int, update lifecycle.FollowupUpdate) (*models.FollowupPickup, error) {
	set := []string{}
	args := []interface{}{id, version}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.NewAssignedDriverID != nil {
		add("new_assigned_driver_id", *update.NewAssignedDriverID)
	}
	if update.AssignedTruckID != nil {
		add("assigned_truck_id", *update.AssignedTruckID)
	}
	if update.CollectionDate != nil {
		add("collection_date", *update.CollectionDate)
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.Priority != nil {
		add("priority", string(*update.Priority))
	}
	if update.Notes != nil {
		add("notes", *update.Notes)
	}
	if update.CompletedAt != nil {
		add("completed_at", *update.CompletedAt)
	}
	if len(set) == 0 {
		return nil, &lifecycle.ValidationError{Message: "no fields to update"}
	}
	set = append(set, "version = version + 1", "updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT")

	var followup models.FollowupPickup
	query := `UPDATE followup_pickups SET ` + strings.Join(set, ", ") +
		` WHERE id = $1 AND version = $2 RETURNING ` + followupColumns
	err := s.db.GetContext(ctx, &followup, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.resolveWriteMiss(lifecycle.KindFollowup, "followup_pickups", "id", id)
	}
	if err != nil {
		return nil, err
	}
	return &followup, nil
}

// CompleteAssignment writes the followup and its originating stop inside one
// serializable transaction. Either both rows commit or neither does; a
// followup with a driver but an un-updated stop would be unactionable in the
// field.
func (s *Store) CompleteAssignment(ctx context.Context, params lifecycle.CompleteAssignmentParams) (*models.FollowupPickup, *models.RouteStop, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var followup models.FollowupPickup
	err = tx.GetContext(ctx, &followup, `
		UPDATE followup_pickups
		SET new_assigned_driver_id = $3,
		    assigned_truck_id = $4,
		    collection_date = $5,
		    status = 'IN_PROGRESS',
		    version = version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $1 AND version = $2
		RETURNING `+followupColumns+`
	`, params.FollowupID, params.FollowupVersion, params.DriverID, params.TruckID, params.CollectionDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, s.resolveWriteMiss(lifecycle.KindFollowup, "followup_pickups", "id", params.FollowupID)
	}
	if err != nil {
		return nil, nil, err
	}

	var stop *models.RouteStop
	if params.StopID != "" {
		var updated models.RouteStop
		err = tx.GetContext(ctx, &updated, `
			UPDATE route_stops
			SET driver_id = $3,
			    planned_eta = $4,
			    version = version + 1,
			    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			WHERE stop_id = $1 AND version = $2
			RETURNING `+stopColumns+`
		`, params.StopID, params.StopVersion, params.DriverID, params.CollectionDate)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, s.resolveWriteMiss(lifecycle.KindRouteStop, "route_stops", "stop_id", params.StopID)
		}
		if err != nil {
			return nil, nil, err
		}
		stop = &updated
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit assignment: %w", err)
	}
	return &followup, stop, nil
}
