package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"ecocollect-backend/internal/database"
	"ecocollect-backend/internal/handlers"
	"ecocollect-backend/internal/lifecycle"
	"ecocollect-backend/internal/middleware"
	"ecocollect-backend/internal/services"
	"ecocollect-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 ECOCOLLECT BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Connect to database
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	// Seed database
	if err := database.SeedUsers(db); err != nil {
		log.Fatal(err)
	}
	if err := database.SeedZonesAndBins(db); err != nil {
		log.Fatal(err)
	}
	if err := database.SeedDemoRoute(db); err != nil {
		log.Fatal(err)
	}

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for Railway/cloud deployments)
	var fcmService *services.FCMService
	if fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64"); fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}
		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Wire the lifecycle engine
	store := database.NewStore(db)
	sla := slaConfigFromEnv()
	deriver := lifecycle.NewDeriver(store, store, store, sla)
	coordinator := lifecycle.NewCoordinator(store, store, store, deriver)
	reconciler := lifecycle.NewReconciler(deriver, store, store)
	log.Printf("✅ Lifecycle engine ready (SLA: missed %s, skipped %s, overdue %s, manual %s)",
		sla.Missed, sla.Skipped, sla.Overdue, sla.Manual)

	// Periodic overdue scan, disabled when the interval is unset or zero
	if minutes := envInt("OVERDUE_SCAN_INTERVAL_MINUTES", 0); minutes > 0 {
		interval := time.Duration(minutes) * time.Minute
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for range ticker.C {
				if _, err := deriver.ScanOverdue(context.Background()); err != nil {
					log.Printf("⚠️  Periodic overdue scan failed: %v", err)
				}
			}
		}()
		log.Printf("✅ Overdue scan scheduled every %s", interval)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/auth/status", handlers.GetAuthStatus(db))
			r.Post("/users/fcm-token", handlers.RegisterFCMToken(db))

			// Directory
			r.Get("/collectors", handlers.GetCollectors(store))
			r.Get("/trucks", handlers.GetTrucks(store))
			r.Get("/wards", handlers.GetWards(store))

			// Routes
			r.Get("/routes", handlers.GetRoutes(store))
			r.Get("/routes/{id}", handlers.GetRoute(store))

			// Route stops: reads and field-level collector updates
			r.Get("/route-stops", handlers.GetRouteStops(store))
			r.Get("/route-stops/my", handlers.GetMyStops(store))
			r.Get("/route-stops/route/{routeId}", handlers.GetStopsByRoute(store))
			r.Get("/route-stops/route/{routeId}/status/{status}", handlers.GetStopsByStatus(store))
			r.Get("/route-stops/driver/{driverId}", handlers.GetStopsByDriver(store))
			r.Get("/route-stops/status/{status}", handlers.GetStopsByStatus(store))
			r.Get("/route-stops/{id}", handlers.GetRouteStop(store))
			r.Put("/route-stops/{id}/status", handlers.UpdateStopStatus(coordinator, wsHub, false))
			r.Put("/route-stops/{id}/status-with-followup", handlers.UpdateStopStatus(coordinator, wsHub, true))
			r.Put("/route-stops/{id}/collected", handlers.SetStopCollected(coordinator, wsHub))
			r.Put("/route-stops/{id}/weight", handlers.UpdateStopWeight(coordinator))
			r.Put("/route-stops/{id}/photo", handlers.UpdateStopPhoto(coordinator))
			r.Put("/route-stops/{id}/notes", handlers.UpdateStopNotes(coordinator))
			r.Put("/route-stops/{id}/reason", handlers.UpdateStopReason(coordinator))
			r.Put("/route-stops/{id}/arrived", handlers.UpdateStopArrived(coordinator))

			// Followups: reads and collector-side status changes
			r.Get("/followup-pickups", handlers.GetFollowups(store))
			r.Get("/followup-pickups/pending", handlers.GetPendingFollowups(store))
			r.Get("/followup-pickups/overdue", handlers.GetOverdueFollowups(store))
			r.Get("/followup-pickups/{id}", handlers.GetFollowup(store))
			r.Put("/followup-pickups/{id}/status", handlers.UpdateFollowupStatus(coordinator, wsHub))
			r.Put("/followup-pickups/{id}/complete", handlers.CompleteFollowup(coordinator, wsHub))
		})

		// Dispatcher endpoints (require authentication + dispatcher or admin role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("dispatcher", "admin"))

			// Route assignment protocol
			r.Put("/routes/{id}/assign-collector", handlers.AssignRouteCollector(coordinator, wsHub))
			r.Put("/routes/{id}/assign-truck", handlers.AssignRouteTruck(coordinator, wsHub))
			r.Put("/routes/{id}/activate", handlers.ActivateRoute(coordinator, wsHub, fcmService, db))
			r.Post("/routes/{id}/assign", handlers.AssignRoute(coordinator, wsHub, fcmService, db))
			r.Put("/routes/{id}/status", handlers.UpdateRouteStatus(coordinator, wsHub))

			// Stop reassignment
			r.Put("/route-stops/{id}/reassign", handlers.ReassignStop(coordinator, wsHub))

			// Followup dispatch
			r.Post("/followup-pickups", handlers.CreateFollowup(deriver, wsHub))
			r.Put("/followup-pickups/{id}/assign", handlers.AssignFollowup(coordinator, wsHub, fcmService, db))
			r.Post("/followup-pickups/{id}/complete-assignment", handlers.CompleteAssignment(coordinator, wsHub, fcmService, db))
			r.Put("/followup-pickups/{id}/cancel", handlers.CancelFollowup(coordinator, wsHub))

			// Batch jobs
			r.Post("/followup-pickups/scan-overdue", handlers.ScanOverdue(deriver))
			r.Post("/followup-pickups/process-existing", handlers.ProcessExisting(reconciler))
			r.Post("/followup-pickups/update-priority-reason-codes", handlers.RenormalizePriorities(reconciler))
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}

// slaConfigFromEnv reads the per-reason followup windows, falling back to
// the standing dispatch targets
func slaConfigFromEnv() lifecycle.SLAConfig {
	def := lifecycle.DefaultSLAConfig()
	return lifecycle.SLAConfig{
		Missed:  time.Duration(envInt("FOLLOWUP_SLA_MISSED_HOURS", int(def.Missed.Hours()))) * time.Hour,
		Skipped: time.Duration(envInt("FOLLOWUP_SLA_SKIPPED_HOURS", int(def.Skipped.Hours()))) * time.Hour,
		Overdue: time.Duration(envInt("FOLLOWUP_SLA_OVERDUE_HOURS", int(def.Overdue.Hours()))) * time.Hour,
		Manual:  time.Duration(envInt("FOLLOWUP_SLA_MANUAL_HOURS", int(def.Manual.Hours()))) * time.Hour,
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return value
}
