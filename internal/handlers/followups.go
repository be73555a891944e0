package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"ecocollect-backend/internal/lifecycle"
	"ecocollect-backend/internal/models"
	"ecocollect-backend/internal/services"
	"ecocollect-backend/internal/websocket"
	"ecocollect-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type completeAssignmentData struct {
	Followup *models.FollowupPickup `json:"followup"`
	Stop     *models.RouteStop      `json:"stop,omitempty"`
}

// GetFollowups lists followup pickups filtered by status, ward_id and/or
// driver_id query parameters
func GetFollowups(followups lifecycle.FollowupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := lifecycle.FollowupFilter{
			WardID:   r.URL.Query().Get("ward_id"),
			DriverID: r.URL.Query().Get("driver_id"),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, ok := models.ParseFollowupStatus(raw)
			if !ok {
				utils.Error(w, http.StatusBadRequest, "unknown followup status: "+raw)
				return
			}
			filter.Status = status
		}

		list, err := followups.ListFollowups(r.Context(), filter)
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Followups retrieved", list)
	}
}

// GetFollowup returns one followup pickup by id
func GetFollowup(followups lifecycle.FollowupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		followup, err := followups.GetFollowup(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Followup retrieved", followup)
	}
}

// GetPendingFollowups lists followups awaiting assignment, high priority first
func GetPendingFollowups(followups lifecycle.FollowupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := followups.ListFollowups(r.Context(), lifecycle.FollowupFilter{Status: models.FollowupPending})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Pending followups retrieved", list)
	}
}

// GetOverdueFollowups lists active followups whose due time has passed
func GetOverdueFollowups(followups lifecycle.FollowupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := followups.ListFollowups(r.Context(), lifecycle.FollowupFilter{
			ActiveOnly:  true,
			OverdueAsOf: time.Now().Unix(),
		})
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Overdue followups retrieved", list)
	}
}

// CreateFollowup creates a dispatcher-initiated manual followup
func CreateFollowup(deriver *lifecycle.Deriver, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateFollowupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		followup, err := deriver.CreateManual(r.Context(), req)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		hub.BroadcastToRoles(websocket.Event{Type: "followup_created", Data: followup}, "dispatcher", "admin")
		utils.Success(w, http.StatusCreated, "Followup created", followup)
	}
}

// ScanOverdue runs the on-demand overdue sweep over PENDING stops
func ScanOverdue(deriver *lifecycle.Deriver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deriver.ScanOverdue(r.Context())
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Overdue scan complete", result)
	}
}

// ProcessExisting runs the reconcile backfill over historical stops
func ProcessExisting(reconciler *lifecycle.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := reconciler.ProcessExisting(r.Context())
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Reconcile complete", result)
	}
}

// RenormalizePriorities rewrites priorities that drifted from their reason code
func RenormalizePriorities(reconciler *lifecycle.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		updated, err := reconciler.RenormalizePriorities(r.Context())
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Priorities renormalized", map[string]int{"updated": updated})
	}
}

// AssignFollowup upserts the followup's driver and/or truck
func AssignFollowup(coordinator *lifecycle.Coordinator, hub *websocket.Hub, fcm *services.FCMService, db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.AssignFollowupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		followup, err := coordinator.AssignFollowup(r.Context(), chi.URLParam(r, "id"), req.NewAssignedDriverID, req.AssignedTruckID)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastFollowupUpdate(hub, followup)
		notifyFollowupAssigned(fcm, db, followup)
		utils.Success(w, http.StatusOK, "Followup assigned", followup)
	}
}

// CompleteAssignment assigns driver, truck and collection date atomically,
// updating the originating stop's driver and planned ETA in the same
// transaction
func CompleteAssignment(coordinator *lifecycle.Coordinator, hub *websocket.Hub, fcm *services.FCMService, db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CompleteAssignmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		followup, stop, err := coordinator.CompleteAssignment(r.Context(), chi.URLParam(r, "id"),
			req.NewAssignedDriverID, req.AssignedTruckID, req.CollectionDate)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastFollowupUpdate(hub, followup)
		if stop != nil {
			broadcastStopUpdate(hub, stop)
		}
		notifyFollowupAssigned(fcm, db, followup)
		utils.Success(w, http.StatusOK, "Assignment completed", completeAssignmentData{Followup: followup, Stop: stop})
	}
}

// UpdateFollowupStatus applies a validator-gated followup status change
func UpdateFollowupStatus(coordinator *lifecycle.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateFollowupStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		status, ok := models.ParseFollowupStatus(req.Status)
		if !ok {
			utils.Error(w, http.StatusBadRequest, "unknown followup status: "+req.Status)
			return
		}

		followup, err := coordinator.UpdateFollowupStatus(r.Context(), chi.URLParam(r, "id"), status)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastFollowupUpdate(hub, followup)
		utils.Success(w, http.StatusOK, "Followup status updated", followup)
	}
}

// CompleteFollowup marks an in-progress followup DONE
func CompleteFollowup(coordinator *lifecycle.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CompleteFollowupRequest
		if r.Body != nil {
			// Body is optional for completion
			json.NewDecoder(r.Body).Decode(&req)
		}

		followup, err := coordinator.MarkFollowupCompleted(r.Context(), chi.URLParam(r, "id"), req.Notes)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastFollowupUpdate(hub, followup)
		utils.Success(w, http.StatusOK, "Followup completed", followup)
	}
}

// CancelFollowup cancels a non-terminal followup
func CancelFollowup(coordinator *lifecycle.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CancelFollowupRequest
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&req)
		}

		followup, err := coordinator.CancelFollowup(r.Context(), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			respondEngineError(w, err)
			return
		}

		broadcastFollowupUpdate(hub, followup)
		utils.Success(w, http.StatusOK, "Followup cancelled", followup)
	}
}

func broadcastFollowupUpdate(hub *websocket.Hub, followup *models.FollowupPickup) {
	event := websocket.Event{Type: "followup_updated", Data: followup}
	hub.BroadcastToRoles(event, "dispatcher", "admin")
	if followup.NewAssignedDriverID != nil {
		hub.BroadcastToUser(*followup.NewAssignedDriverID, event)
	}
}

// notifyFollowupAssigned sends a best-effort push to the assigned collector
func notifyFollowupAssigned(fcm *services.FCMService, db *sqlx.DB, followup *models.FollowupPickup) {
	if fcm == nil || followup.NewAssignedDriverID == nil {
		return
	}
	token := fcmTokenForUser(db, *followup.NewAssignedDriverID)
	if token == "" {
		return
	}
	if err := fcm.SendFollowupAssignedNotification(token, followup.ID, string(followup.Priority), followup.WardID); err != nil {
		log.Printf("⚠️ FCM followup notification failed: %v", err)
	}
}
