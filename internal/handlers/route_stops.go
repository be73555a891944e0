package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ecocollect-backend/internal/lifecycle"
	"ecocollect-backend/internal/middleware"
	"ecocollect-backend/internal/models"
	"ecocollect-backend/internal/websocket"
	"ecocollect-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

type updateStopStatusRequest struct {
	Status string `json:"status"`
}

type setStopCollectedRequest struct {
	Collected bool `json:"collected"`
}

type stopStatusData struct {
	Stop     *models.RouteStop      `json:"stop"`
	Followup *models.FollowupPickup `json:"followup,omitempty"`
}

// GetRouteStops lists stops filtered by route_id, driver_id and/or status
// query parameters
func GetRouteStops(stops lifecycle.RouteStopStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := lifecycle.StopFilter{
			RouteID:  r.URL.Query().Get("route_id"),
			DriverID: r.URL.Query().Get("driver_id"),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, ok := models.ParseStopStatus(raw)
			if !ok {
				utils.Error(w, http.StatusBadRequest, "unknown stop status: "+raw)
				return
			}
			filter.Status = status
		}

		list, err := stops.ListStops(r.Context(), filter)
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stops retrieved", list)
	}
}

// GetStopsByRoute lists a route's stops
func GetStopsByRoute(stops lifecycle.RouteStopStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := stops.ListStops(r.Context(), lifecycle.StopFilter{RouteID: chi.URLParam(r, "routeId")})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stops retrieved", list)
	}
}

// GetStopsByDriver lists a driver's stops
func GetStopsByDriver(stops lifecycle.RouteStopStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := stops.ListStops(r.Context(), lifecycle.StopFilter{DriverID: chi.URLParam(r, "driverId")})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stops retrieved", list)
	}
}

// GetStopsByStatus lists stops in a given status, optionally scoped to a route
func GetStopsByStatus(stops lifecycle.RouteStopStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, ok := models.ParseStopStatus(chi.URLParam(r, "status"))
		if !ok {
			utils.Error(w, http.StatusBadRequest, "unknown stop status: "+chi.URLParam(r, "status"))
			return
		}

		list, err := stops.ListStops(r.Context(), lifecycle.StopFilter{
			RouteID: chi.URLParam(r, "routeId"),
			Status:  status,
		})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stops retrieved", list)
	}
}

// GetMyStops lists the authenticated collector's stops
func GetMyStops(stops lifecycle.RouteStopStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		list, err := stops.ListStops(r.Context(), lifecycle.StopFilter{DriverID: claims.UserID})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stops retrieved", list)
	}
}

// GetRouteStop returns one stop by id
func GetRouteStop(stops lifecycle.RouteStopStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stop, err := stops.GetStop(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stop retrieved", stop)
	}
}

// UpdateStopStatus applies a stop status transition. With deriveFollowup
// set (the status-with-followup endpoint), a transition to MISSED or SKIPPED
// derives a followup pickup in the same request and the response carries
// both the stop and the followup.
func UpdateStopStatus(coordinator *lifecycle.Coordinator, hub *websocket.Hub, deriveFollowup bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("status")
		if raw == "" {
			var req updateStopStatusRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				utils.Error(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			raw = req.Status
		}

		status, ok := models.ParseStopStatus(raw)
		if !ok {
			utils.Error(w, http.StatusBadRequest, "unknown stop status: "+raw)
			return
		}

		stop, followup, err := coordinator.UpdateStopStatus(r.Context(), chi.URLParam(r, "id"), status, deriveFollowup)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastStopUpdate(hub, stop)
		if followup != nil {
			hub.BroadcastToRoles(websocket.Event{Type: "followup_created", Data: followup}, "dispatcher", "admin")
		}
		utils.Success(w, http.StatusOK, "Stop status updated", stopStatusData{Stop: stop, Followup: followup})
	}
}

// SetStopCollected marks a stop collected or not. Collected mirrors the DONE
// status, so this goes through the same transition validation.
func SetStopCollected(coordinator *lifecycle.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var collected bool
		if raw := r.URL.Query().Get("collected"); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				utils.Error(w, http.StatusBadRequest, "collected must be true or false")
				return
			}
			collected = value
		} else {
			var req setStopCollectedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				utils.Error(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			collected = req.Collected
		}

		stop, err := coordinator.SetStopCollected(r.Context(), chi.URLParam(r, "id"), collected)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastStopUpdate(hub, stop)
		utils.Success(w, http.StatusOK, "Stop updated", stop)
	}
}

// UpdateStopWeight records the collected weight for a stop
func UpdateStopWeight(coordinator *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateStopWeightRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.WeightKg < 0 {
			utils.Error(w, http.StatusBadRequest, "weight_kg must not be negative")
			return
		}

		stop, err := coordinator.UpdateStopFields(r.Context(), chi.URLParam(r, "id"), lifecycle.StopFieldUpdate{WeightKg: &req.WeightKg})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stop weight updated", stop)
	}
}

// UpdateStopPhoto records a proof photo URL for a stop
func UpdateStopPhoto(coordinator *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateStopPhotoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhotoURL == "" {
			utils.Error(w, http.StatusBadRequest, "photo_url is required")
			return
		}

		stop, err := coordinator.UpdateStopFields(r.Context(), chi.URLParam(r, "id"), lifecycle.StopFieldUpdate{PhotoURL: &req.PhotoURL})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stop photo updated", stop)
	}
}

// UpdateStopNotes records free-form notes on a stop
func UpdateStopNotes(coordinator *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateStopNotesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		stop, err := coordinator.UpdateStopFields(r.Context(), chi.URLParam(r, "id"), lifecycle.StopFieldUpdate{Notes: &req.Notes})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stop notes updated", stop)
	}
}

// UpdateStopReason records why a stop was not collected normally
func UpdateStopReason(coordinator *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateStopReasonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		reason, ok := models.ParseStopReasonCode(req.ReasonCode)
		if !ok {
			utils.Error(w, http.StatusBadRequest, "unknown reason code: "+req.ReasonCode)
			return
		}

		stop, err := coordinator.UpdateStopFields(r.Context(), chi.URLParam(r, "id"), lifecycle.StopFieldUpdate{ReasonCode: &reason})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stop reason updated", stop)
	}
}

// UpdateStopArrived records when the collector reached the stop. Defaults to
// now when no timestamp is given.
func UpdateStopArrived(coordinator *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		arrivedAt := time.Now().Unix()
		if raw := r.URL.Query().Get("arrivedAt"); raw != "" {
			value, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || value <= 0 {
				utils.Error(w, http.StatusBadRequest, "arrivedAt must be a unix timestamp")
				return
			}
			arrivedAt = value
		}

		stop, err := coordinator.UpdateStopFields(r.Context(), chi.URLParam(r, "id"), lifecycle.StopFieldUpdate{ArrivedAt: &arrivedAt})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Stop arrival recorded", stop)
	}
}

// ReassignStop switches the stop to a different collector for the next attempt
func ReassignStop(coordinator *lifecycle.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ReassignStopRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		stop, err := coordinator.ReassignStop(r.Context(), chi.URLParam(r, "id"), req.NewDriverID)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastStopUpdate(hub, stop)
		hub.BroadcastToUser(req.NewDriverID, websocket.Event{Type: "stop_reassigned", Data: stop})
		utils.Success(w, http.StatusOK, "Stop reassigned", stop)
	}
}

func broadcastStopUpdate(hub *websocket.Hub, stop *models.RouteStop) {
	event := websocket.Event{Type: "stop_status_updated", Data: stop}
	hub.BroadcastToRoles(event, "dispatcher", "admin")
	if stop.DriverID != nil {
		hub.BroadcastToUser(*stop.DriverID, event)
	}
}
