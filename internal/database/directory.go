package database

import (
	"context"
	"database/sql"
	"errors"

	"ecocollect-backend/internal/models"
)

// Read-only collaborator lookups: the collector/truck/ward directories and
// the two resolutions the followup deriver needs.

func (s *Store) WardForRoute(ctx context.Context, routeID string) (string, error) {
	var wardID string
	err := s.db.GetContext(ctx, &wardID, `
		SELECT w.ward_id
		FROM routes r
		JOIN wards w ON w.zone_id = r.zone_id
		WHERE r.route_id = $1
		ORDER BY w.ward_id
		LIMIT 1
	`, routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return wardID, nil
}

func (s *Store) WasteTypeForBin(ctx context.Context, binID string) (string, error) {
	var wasteType string
	err := s.db.GetContext(ctx, &wasteType, `SELECT waste_type FROM bins WHERE bin_id = $1`, binID)
	if errors.Is(err, sql.ErrNoRows) {
		return "General", nil
	}
	if err != nil {
		return "", err
	}
	return wasteType, nil
}

func (s *Store) ListCollectors(ctx context.Context) ([]models.UserResponse, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, `
		SELECT id, email, password, name, role, created_at, updated_at
		FROM users
		WHERE role = 'collector'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToUserResponse())
	}
	return out, nil
}

func (s *Store) ListTrucks(ctx context.Context) ([]models.Truck, error) {
	trucks := []models.Truck{}
	err := s.db.SelectContext(ctx, &trucks, `
		SELECT truck_id, truck_name, plate_number, capacity_kg, active, created_at
		FROM trucks
		ORDER BY truck_name
	`)
	if err != nil {
		return nil, err
	}
	return trucks, nil
}

func (s *Store) ListWards(ctx context.Context) ([]models.Ward, error) {
	wards := []models.Ward{}
	err := s.db.SelectContext(ctx, &wards, `
		SELECT ward_id, ward_name, zone_id
		FROM wards
		ORDER BY ward_name
	`)
	if err != nil {
		return nil, err
	}
	return wards, nil
}
