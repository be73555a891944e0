package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to Postgres...")
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ Database connection failed: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ Database ping failed: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('collector', 'dispatcher', 'admin')),
			fcm_token TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create zones table
		`CREATE TABLE IF NOT EXISTS zones (
			zone_id TEXT PRIMARY KEY,
			zone_name TEXT NOT NULL
		)`,

		// Create wards table
		`CREATE TABLE IF NOT EXISTS wards (
			ward_id TEXT PRIMARY KEY,
			ward_name TEXT NOT NULL,
			zone_id TEXT NOT NULL REFERENCES zones(zone_id)
		)`,

		// Create trucks table
		`CREATE TABLE IF NOT EXISTS trucks (
			truck_id TEXT PRIMARY KEY,
			truck_name TEXT NOT NULL,
			plate_number TEXT NOT NULL,
			capacity_kg INT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create bins table
		`CREATE TABLE IF NOT EXISTS bins (
			bin_id TEXT PRIMARY KEY,
			bin_number INT NOT NULL UNIQUE,
			ward_id TEXT NOT NULL REFERENCES wards(ward_id),
			waste_type TEXT NOT NULL DEFAULT 'General' CHECK(waste_type IN ('General', 'Recyclable', 'Organic')),
			address TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create routes table
		`CREATE TABLE IF NOT EXISTS routes (
			route_id TEXT PRIMARY KEY,
			route_name TEXT NOT NULL,
			zone_id TEXT NOT NULL REFERENCES zones(zone_id),
			collection_date BIGINT NOT NULL,
			assigned_collector_id TEXT REFERENCES users(id),
			assigned_truck_id TEXT REFERENCES trucks(truck_id),
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'in_progress', 'completed')),
			version INT NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create route_stops table.
		// collected is the same fact as status = 'DONE'; the CHECK keeps the
		// two columns from drifting apart no matter who writes.
		`CREATE TABLE IF NOT EXISTS route_stops (
			stop_id TEXT PRIMARY KEY,
			route_id TEXT NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
			bin_id TEXT NOT NULL,
			driver_id TEXT REFERENCES users(id),
			stop_order INT NOT NULL DEFAULT 0,
			collected BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK(status IN ('PENDING', 'IN_PROGRESS', 'DONE', 'MISSED', 'SKIPPED')),
			reason_code TEXT NOT NULL DEFAULT 'NONE' CHECK(reason_code IN ('NONE', 'BLOCKED', 'NO_BIN_OUT', 'SAFETY', 'OTHER')),
			planned_eta BIGINT NOT NULL DEFAULT 0,
			arrived_at BIGINT,
			weight_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
			photo_url TEXT,
			notes TEXT,
			source TEXT NOT NULL DEFAULT 'MANUAL' CHECK(source IN ('QR', 'MANUAL')),
			version INT NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			CHECK (collected = (status = 'DONE'))
		)`,

		// Create followup_pickups table
		`CREATE TABLE IF NOT EXISTS followup_pickups (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			ward_id TEXT NOT NULL DEFAULT '',
			waste_type TEXT NOT NULL DEFAULT 'General',
			originating_stop_id TEXT REFERENCES route_stops(stop_id),
			original_driver_id TEXT,
			new_assigned_driver_id TEXT,
			assigned_truck_id TEXT,
			priority TEXT NOT NULL DEFAULT 'NORMAL' CHECK(priority IN ('HIGH', 'NORMAL')),
			reason_code TEXT NOT NULL CHECK(reason_code IN ('MISSED', 'SKIPPED', 'OVERDUE', 'MANUAL')),
			due_at BIGINT NOT NULL,
			collection_date BIGINT,
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK(status IN ('PENDING', 'ASSIGNED', 'IN_PROGRESS', 'DONE', 'CANCELLED')),
			notes TEXT,
			completed_at BIGINT,
			version INT NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// At most one non-terminal followup per originating stop. Concurrent
		// derivation attempts (live traffic racing the reconcile job, or two
		// overlapping job runs) hit a 23505 here, which the store reports as
		// "already derived".
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_followup_active_stop
			ON followup_pickups (originating_stop_id)
			WHERE originating_stop_id IS NOT NULL
			  AND status IN ('PENDING', 'ASSIGNED', 'IN_PROGRESS')`,

		`CREATE INDEX IF NOT EXISTS idx_route_stops_route ON route_stops(route_id)`,
		`CREATE INDEX IF NOT EXISTS idx_route_stops_status ON route_stops(status)`,
		`CREATE INDEX IF NOT EXISTS idx_followups_status ON followup_pickups(status)`,
		`CREATE INDEX IF NOT EXISTS idx_followups_due_at ON followup_pickups(due_at)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("✅ Database migrations completed")
	return nil
}
