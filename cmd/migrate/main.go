package main

import (
	"log"
	"os"

	"ecocollect-backend/internal/database"

	"github.com/joho/godotenv"
)

// Standalone migrate-and-seed tool for environments where the server is not
// allowed to touch the schema on boot.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if os.Getenv("SKIP_SEED") == "" {
		if err := database.SeedUsers(db); err != nil {
			log.Fatalf("User seeding failed: %v", err)
		}
		if err := database.SeedZonesAndBins(db); err != nil {
			log.Fatalf("Zone/bin seeding failed: %v", err)
		}
		if err := database.SeedDemoRoute(db); err != nil {
			log.Fatalf("Route seeding failed: %v", err)
		}
	}

	log.Println("Migration completed successfully!")
}
