package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecocollect-backend/internal/lifecycle"
	"ecocollect-backend/internal/models"
	"ecocollect-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

func TestRespondEngineErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &lifecycle.ValidationError{Field: "truck_id", Message: "required"}, http.StatusBadRequest},
		{"not found", &lifecycle.NotFoundError{Entity: lifecycle.KindRoute, ID: "r1"}, http.StatusNotFound},
		{"version conflict", &lifecycle.ConflictError{Entity: lifecycle.KindFollowup, ID: "f1"}, http.StatusConflict},
		{"duplicate followup", lifecycle.ErrDuplicateFollowup, http.StatusConflict},
		{"invalid transition", &lifecycle.InvalidTransitionError{Entity: lifecycle.KindRouteStop, From: "DONE", To: "PENDING"}, http.StatusUnprocessableEntity},
		{"precondition", &lifecycle.PreconditionFailedError{Message: "no truck assigned"}, http.StatusPreconditionFailed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondEngineError(rec, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}

			var resp utils.APIResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Success {
				t.Fatal("error response must have success=false")
			}
			if resp.Message == "" {
				t.Fatal("error response must carry a message")
			}
		})
	}
}

func TestRespondEngineErrorPartialAssignmentCarriesState(t *testing.T) {
	partial := &lifecycle.PartialAssignmentError{
		RouteID:           "route-1",
		CollectorAssigned: true,
		FailedStep:        "assign_truck",
		Err:               &lifecycle.ConflictError{Entity: lifecycle.KindRoute, ID: "route-1"},
	}

	rec := httptest.NewRecorder()
	respondEngineError(rec, partial)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}

	var resp struct {
		Success bool                       `json:"success"`
		Data    models.RouteAssignmentState `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Data.CollectorAssigned {
		t.Fatal("partial state must report the collector step as applied")
	}
	if resp.Data.TruckAssigned || resp.Data.Activated {
		t.Fatal("steps that did not run must not be reported as applied")
	}
	if resp.Data.FailedStep != "assign_truck" {
		t.Fatalf("failed step = %q, want assign_truck", resp.Data.FailedStep)
	}
}

// stubStopStore serves list queries only; handlers under test never write.
type stubStopStore struct {
	lifecycle.RouteStopStore
	gotFilter lifecycle.StopFilter
	stops     []models.RouteStop
}

func (s *stubStopStore) ListStops(ctx context.Context, filter lifecycle.StopFilter) ([]models.RouteStop, error) {
	s.gotFilter = filter
	return s.stops, nil
}

func TestGetRouteStopsParsesFilterParams(t *testing.T) {
	store := &stubStopStore{stops: []models.RouteStop{{StopID: "s1", Status: models.StopMissed}}}

	req := httptest.NewRequest(http.MethodGet, "/api/route-stops?route_id=r1&status=MISSED", nil)
	rec := httptest.NewRecorder()
	GetRouteStops(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.gotFilter.RouteID != "r1" {
		t.Fatalf("route filter = %q, want r1", store.gotFilter.RouteID)
	}
	if store.gotFilter.Status != models.StopMissed {
		t.Fatalf("status filter = %q, want MISSED", store.gotFilter.Status)
	}
}

func TestGetRouteStopsRejectsUnknownStatus(t *testing.T) {
	store := &stubStopStore{}

	req := httptest.NewRequest(http.MethodGet, "/api/route-stops?status=LOST", nil)
	rec := httptest.NewRecorder()
	GetRouteStops(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateStopStatusRejectsUnknownStatus(t *testing.T) {
	r := chi.NewRouter()
	// The parse failure short-circuits before the coordinator is touched
	r.Put("/route-stops/{id}/status", UpdateStopStatus(nil, nil, false))

	req := httptest.NewRequest(http.MethodPut, "/route-stops/s1/status", strings.NewReader(`{"status":"GONE"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
