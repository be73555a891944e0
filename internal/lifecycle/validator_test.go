package lifecycle

import (
	"errors"
	"testing"

	"ecocollect-backend/internal/models"
)

func TestRouteStopTerminalStatesAreImmutable(t *testing.T) {
	terminals := []models.StopStatus{models.StopDone, models.StopMissed, models.StopSkipped}
	all := []models.StopStatus{models.StopPending, models.StopInProgress, models.StopDone, models.StopMissed, models.StopSkipped}

	for _, from := range terminals {
		for _, to := range all {
			err := CanTransitionStop(from, to)
			if err == nil {
				t.Fatalf("expected %s -> %s to be denied", from, to)
			}
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Fatalf("expected InvalidTransitionError for %s -> %s, got %T", from, to, err)
			}
		}
	}
}

func TestRouteStopAllowedEdges(t *testing.T) {
	cases := []struct {
		from, to models.StopStatus
		allowed  bool
	}{
		{models.StopPending, models.StopInProgress, true},
		{models.StopPending, models.StopDone, true},
		{models.StopPending, models.StopMissed, true},
		{models.StopPending, models.StopSkipped, true},
		{models.StopInProgress, models.StopDone, true},
		{models.StopInProgress, models.StopMissed, true},
		{models.StopInProgress, models.StopSkipped, true},
		{models.StopInProgress, models.StopPending, false},
		{models.StopPending, models.StopPending, false},
		{models.StopDone, models.StopPending, false},
	}
	for _, c := range cases {
		err := CanTransitionStop(c.from, c.to)
		if c.allowed && err != nil {
			t.Fatalf("expected %s -> %s to be allowed, got %v", c.from, c.to, err)
		}
		if !c.allowed && err == nil {
			t.Fatalf("expected %s -> %s to be denied", c.from, c.to)
		}
	}
}

func TestFollowupEdges(t *testing.T) {
	cases := []struct {
		from, to models.FollowupStatus
		allowed  bool
	}{
		{models.FollowupPending, models.FollowupAssigned, true},
		{models.FollowupPending, models.FollowupCancelled, true},
		{models.FollowupPending, models.FollowupInProgress, false},
		{models.FollowupPending, models.FollowupDone, false},
		{models.FollowupAssigned, models.FollowupInProgress, true},
		{models.FollowupAssigned, models.FollowupCancelled, true},
		{models.FollowupAssigned, models.FollowupDone, false},
		{models.FollowupInProgress, models.FollowupDone, true},
		{models.FollowupInProgress, models.FollowupCancelled, true},
		{models.FollowupInProgress, models.FollowupAssigned, false},
		{models.FollowupDone, models.FollowupPending, false},
		{models.FollowupDone, models.FollowupInProgress, false},
		{models.FollowupCancelled, models.FollowupPending, false},
		{models.FollowupCancelled, models.FollowupAssigned, false},
	}
	for _, c := range cases {
		err := CanTransitionFollowup(c.from, c.to)
		if c.allowed && err != nil {
			t.Fatalf("expected %s -> %s to be allowed, got %v", c.from, c.to, err)
		}
		if !c.allowed && err == nil {
			t.Fatalf("expected %s -> %s to be denied", c.from, c.to)
		}
	}
}

func TestRouteEdges(t *testing.T) {
	cases := []struct {
		from, to models.RouteStatus
		allowed  bool
	}{
		{models.RoutePending, models.RouteInProgress, true},
		{models.RoutePending, models.RouteCompleted, false},
		{models.RouteInProgress, models.RouteCompleted, true},
		{models.RouteInProgress, models.RoutePending, false},
		{models.RouteCompleted, models.RoutePending, false},
		{models.RouteCompleted, models.RouteInProgress, false},
	}
	for _, c := range cases {
		err := CanTransitionRoute(c.from, c.to)
		if c.allowed && err != nil {
			t.Fatalf("expected %s -> %s to be allowed, got %v", c.from, c.to, err)
		}
		if !c.allowed && err == nil {
			t.Fatalf("expected %s -> %s to be denied", c.from, c.to)
		}
	}
}

func TestCanTransitionUnknownKindDenied(t *testing.T) {
	if err := CanTransition(EntityKind("truck"), "a", "b"); err == nil {
		t.Fatal("expected unknown entity kind to be denied")
	}
}
