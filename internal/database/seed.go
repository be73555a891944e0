package database

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	collectorPassword, err := bcrypt.GenerateFromPassword([]byte("collector123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	dispatcherPassword, err := bcrypt.GenerateFromPassword([]byte("dispatcher123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []map[string]interface{}{
		{
			"id":       uuid.New().String(),
			"email":    "collector@ecocollect.com",
			"password": string(collectorPassword),
			"name":     "Ravi Collector",
			"role":     "collector",
		},
		{
			"id":       uuid.New().String(),
			"email":    "collector2@ecocollect.com",
			"password": string(collectorPassword),
			"name":     "Meena Collector",
			"role":     "collector",
		},
		{
			"id":       uuid.New().String(),
			"email":    "dispatcher@ecocollect.com",
			"password": string(dispatcherPassword),
			"name":     "Daily Dispatcher",
			"role":     "dispatcher",
		},
		{
			"id":       uuid.New().String(),
			"email":    "admin@ecocollect.com",
			"password": string(adminPassword),
			"name":     "Admin User",
			"role":     "admin",
		},
	}

	for _, user := range users {
		query := `
			INSERT INTO users (id, email, password, name, role)
			VALUES (:id, :email, :password, :name, :role)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", user["email"], user["role"])
	}

	log.Println("✓ Successfully seeded test users")
	log.Println("  📧 Collector:  collector@ecocollect.com / collector123")
	log.Println("  📧 Dispatcher: dispatcher@ecocollect.com / dispatcher123")
	log.Println("  📧 Admin:      admin@ecocollect.com / admin123")
	return nil
}

func SeedZonesAndBins(db *sqlx.DB) error {
	// Check if zones already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM zones"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Zones already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding zones, wards, trucks and bins...")

	zones := []map[string]interface{}{
		{"zone_id": "zone-north", "zone_name": "North Zone"},
		{"zone_id": "zone-south", "zone_name": "South Zone"},
	}
	for _, zone := range zones {
		if _, err := db.NamedExec(`INSERT INTO zones (zone_id, zone_name) VALUES (:zone_id, :zone_name)`, zone); err != nil {
			return err
		}
	}

	wards := []map[string]interface{}{
		{"ward_id": "ward-1", "ward_name": "Ward 1 - Market", "zone_id": "zone-north"},
		{"ward_id": "ward-2", "ward_name": "Ward 2 - Riverside", "zone_id": "zone-north"},
		{"ward_id": "ward-3", "ward_name": "Ward 3 - Industrial", "zone_id": "zone-south"},
	}
	for _, ward := range wards {
		if _, err := db.NamedExec(`INSERT INTO wards (ward_id, ward_name, zone_id) VALUES (:ward_id, :ward_name, :zone_id)`, ward); err != nil {
			return err
		}
	}

	trucks := []map[string]interface{}{
		{"truck_id": uuid.New().String(), "truck_name": "Compactor 1", "plate_number": "KA-01-4821", "capacity_kg": 5000},
		{"truck_id": uuid.New().String(), "truck_name": "Compactor 2", "plate_number": "KA-01-7733", "capacity_kg": 5000},
		{"truck_id": uuid.New().String(), "truck_name": "Mini Tipper", "plate_number": "KA-02-1190", "capacity_kg": 1500},
	}
	for _, truck := range trucks {
		query := `
			INSERT INTO trucks (truck_id, truck_name, plate_number, capacity_kg)
			VALUES (:truck_id, :truck_name, :plate_number, :capacity_kg)
		`
		if _, err := db.NamedExec(query, truck); err != nil {
			return err
		}
	}

	bins := []map[string]interface{}{
		{"bin_number": 1, "ward_id": "ward-1", "waste_type": "General", "address": "Market Rd / Gate 2"},
		{"bin_number": 2, "ward_id": "ward-1", "waste_type": "Recyclable", "address": "Main Bazaar Corner"},
		{"bin_number": 3, "ward_id": "ward-1", "waste_type": "Organic", "address": "Vegetable Market Rear"},
		{"bin_number": 4, "ward_id": "ward-2", "waste_type": "General", "address": "Riverside Park Entrance"},
		{"bin_number": 5, "ward_id": "ward-2", "waste_type": "General", "address": "Bridge St 14"},
		{"bin_number": 6, "ward_id": "ward-2", "waste_type": "Recyclable", "address": "Ferry Point"},
		{"bin_number": 7, "ward_id": "ward-3", "waste_type": "General", "address": "Mill Lane 3"},
		{"bin_number": 8, "ward_id": "ward-3", "waste_type": "General", "address": "Depot Access Rd"},
	}
	for _, bin := range bins {
		bin["bin_id"] = uuid.New().String()
		query := `
			INSERT INTO bins (bin_id, bin_number, ward_id, waste_type, address)
			VALUES (:bin_id, :bin_number, :ward_id, :waste_type, :address)
		`
		if _, err := db.NamedExec(query, bin); err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d zones, %d wards, %d trucks, %d bins", len(zones), len(wards), len(trucks), len(bins))
	return nil
}

func SeedDemoRoute(db *sqlx.DB) error {
	// Check if routes already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM routes"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Routes already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding demo route...")

	routeID := uuid.New().String()
	today := time.Now().Truncate(24 * time.Hour).Unix()

	_, err := db.Exec(`
		INSERT INTO routes (route_id, route_name, zone_id, collection_date, status)
		VALUES ($1, $2, $3, $4, 'pending')
	`, routeID, "North Zone Morning Run", "zone-north", today)
	if err != nil {
		return err
	}

	binIDs := []string{}
	if err := db.Select(&binIDs, `SELECT bin_id FROM bins WHERE ward_id IN ('ward-1', 'ward-2') ORDER BY bin_number`); err != nil {
		return err
	}

	planned := time.Now().Add(1 * time.Hour)
	for i, binID := range binIDs {
		_, err := db.Exec(`
			INSERT INTO route_stops (stop_id, route_id, bin_id, stop_order, planned_eta)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New().String(), routeID, binID, i+1, planned.Add(time.Duration(i)*15*time.Minute).Unix())
		if err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded demo route with %d stops", len(binIDs))
	return nil
}
