package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"ecocollect-backend/internal/lifecycle"
	"ecocollect-backend/internal/models"
	"ecocollect-backend/internal/services"
	"ecocollect-backend/internal/websocket"
	"ecocollect-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type assignCollectorRequest struct {
	CollectorID string `json:"collector_id"`
}

type assignTruckRequest struct {
	TruckID string `json:"truck_id"`
}

type updateRouteStatusRequest struct {
	Status string `json:"status"`
}

// GetRoutes returns all routes
func GetRoutes(routes lifecycle.RouteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := routes.ListRoutes(r.Context())
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Routes retrieved", list)
	}
}

// GetRoute returns one route by id
func GetRoute(routes lifecycle.RouteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		route, err := routes.GetRoute(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Route retrieved", route)
	}
}

// AssignRouteCollector handles step 1 of the route assignment protocol
func AssignRouteCollector(coordinator *lifecycle.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collectorID := r.URL.Query().Get("collectorId")
		if collectorID == "" {
			var req assignCollectorRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				utils.Error(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			collectorID = req.CollectorID
		}

		route, err := coordinator.AssignCollector(r.Context(), chi.URLParam(r, "id"), collectorID)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastRouteUpdate(hub, route)
		utils.Success(w, http.StatusOK, "Collector assigned", route)
	}
}

// AssignRouteTruck handles step 2 of the route assignment protocol
func AssignRouteTruck(coordinator *lifecycle.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		truckID := r.URL.Query().Get("truckId")
		if truckID == "" {
			var req assignTruckRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				utils.Error(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			truckID = req.TruckID
		}

		route, err := coordinator.AssignTruck(r.Context(), chi.URLParam(r, "id"), truckID)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastRouteUpdate(hub, route)
		utils.Success(w, http.StatusOK, "Truck assigned", route)
	}
}

// ActivateRoute handles step 3 of the route assignment protocol
func ActivateRoute(coordinator *lifecycle.Coordinator, hub *websocket.Hub, fcm *services.FCMService, db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		route, err := coordinator.ActivateRoute(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastRouteUpdate(hub, route)
		notifyRouteAssigned(fcm, db, route)
		utils.Success(w, http.StatusOK, "Route activated", route)
	}
}

// AssignRoute runs all three assignment steps. On a mid-protocol failure the
// completed steps stay applied and the response reports which step failed.
func AssignRoute(coordinator *lifecycle.Coordinator, hub *websocket.Hub, fcm *services.FCMService, db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.AssignRouteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		route, err := coordinator.AssignRoute(r.Context(), chi.URLParam(r, "id"), req.CollectorID, req.TruckID)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastRouteUpdate(hub, route)
		notifyRouteAssigned(fcm, db, route)
		utils.Success(w, http.StatusOK, "Route assigned", route)
	}
}

// UpdateRouteStatus applies a validator-gated route status change
func UpdateRouteStatus(coordinator *lifecycle.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("status")
		if raw == "" {
			var req updateRouteStatusRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				utils.Error(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			raw = req.Status
		}

		status, ok := models.ParseRouteStatus(raw)
		if !ok {
			utils.Error(w, http.StatusBadRequest, "unknown route status: "+raw)
			return
		}

		route, err := coordinator.UpdateRouteStatus(r.Context(), chi.URLParam(r, "id"), status)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastRouteUpdate(hub, route)
		utils.Success(w, http.StatusOK, "Route status updated", route)
	}
}

func broadcastRouteUpdate(hub *websocket.Hub, route *models.Route) {
	event := websocket.Event{Type: "route_assignment_updated", Data: route}
	hub.BroadcastToRoles(event, "dispatcher", "admin")
	if route.AssignedCollectorID != nil {
		hub.BroadcastToUser(*route.AssignedCollectorID, event)
	}
}

// notifyRouteAssigned sends a best-effort push to the assigned collector.
// Delivery failures are logged, never surfaced to the API caller.
func notifyRouteAssigned(fcm *services.FCMService, db *sqlx.DB, route *models.Route) {
	if fcm == nil || route.AssignedCollectorID == nil {
		return
	}
	token := fcmTokenForUser(db, *route.AssignedCollectorID)
	if token == "" {
		return
	}
	if err := fcm.SendRouteAssignedNotification(token, route.RouteID, route.RouteName); err != nil {
		log.Printf("⚠️ FCM route notification failed: %v", err)
	}
}
