package lifecycle

import (
	"context"
	"errors"
	"log"
	"time"

	"ecocollect-backend/internal/models"

	"github.com/google/uuid"
)

// SLAConfig holds the per-reason windows used to compute a followup's
// due time. Values come from configuration, not code.
type SLAConfig struct {
	Missed  time.Duration
	Skipped time.Duration
	Overdue time.Duration
	Manual  time.Duration
}

// DefaultSLAConfig mirrors the dispatch desk's standing targets: next day
// for missed and manual, two days for skipped, four hours for overdue.
func DefaultSLAConfig() SLAConfig {
	return SLAConfig{
		Missed:  24 * time.Hour,
		Skipped: 48 * time.Hour,
		Overdue: 4 * time.Hour,
		Manual:  24 * time.Hour,
	}
}

func (c SLAConfig) window(reason models.FollowupReason) time.Duration {
	switch reason {
	case models.FollowupReasonMissed:
		return c.Missed
	case models.FollowupReasonSkipped:
		return c.Skipped
	case models.FollowupReasonOverdue:
		return c.Overdue
	case models.FollowupReasonManual:
		return c.Manual
	}
	return c.Manual
}

// StopFailure records one stop a batch sweep could not process
type StopFailure struct {
	StopID string `json:"stop_id"`
	Error  string `json:"error"`
}

// SweepResult summarizes a derivation sweep (overdue scan or backfill)
type SweepResult struct {
	Created  int           `json:"created"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Failures []StopFailure `json:"failures,omitempty"`
}

// Deriver creates followup pickups from route stops. It guarantees at most
// one active followup per originating stop: the check-then-create race is
// closed by the store's uniqueness constraint, so the deriver may run
// concurrently with itself and with live traffic.
type Deriver struct {
	stops     RouteStopStore
	followups FollowupStore
	directory Directory
	sla       SLAConfig
	now       func() time.Time
}

// NewDeriver creates a deriver with the given SLA windows
func NewDeriver(stops RouteStopStore, followups FollowupStore, directory Directory, sla SLAConfig) *Deriver {
	return &Deriver{
		stops:     stops,
		followups: followups,
		directory: directory,
		sla:       sla,
		now:       time.Now,
	}
}

// DeriveFromStop creates a followup for a stop that just went MISSED or
// SKIPPED. Returns the followup and whether this call created it; when an
// active followup already exists the call is a no-op returning it.
func (d *Deriver) DeriveFromStop(ctx context.Context, stop *models.RouteStop) (*models.FollowupPickup, bool, error) {
	var reason models.FollowupReason
	switch stop.Status {
	case models.StopMissed:
		reason = models.FollowupReasonMissed
	case models.StopSkipped:
		reason = models.FollowupReasonSkipped
	default:
		return nil, false, &PreconditionFailedError{
			Message: "followup derivation requires a MISSED or SKIPPED stop, got " + string(stop.Status),
		}
	}
	return d.derive(ctx, stop, reason)
}

// ScanOverdue sweeps PENDING stops whose planned ETA has passed and derives
// an OVERDUE followup for each that lacks one. The stop itself stays
// PENDING; the followup is where the remedial work is tracked. Re-running
// the scan creates nothing new.
func (d *Deriver) ScanOverdue(ctx context.Context) (*SweepResult, error) {
	asOf := d.now().Unix()
	stops, err := d.stops.ListStops(ctx, StopFilter{Status: models.StopPending, OverdueAsOf: asOf})
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for i := range stops {
		_, created, err := d.derive(ctx, &stops[i], models.FollowupReasonOverdue)
		if err != nil {
			log.Printf("⚠️  Overdue scan: stop %s failed: %v", stops[i].StopID, err)
			result.Failed++
			result.Failures = append(result.Failures, StopFailure{StopID: stops[i].StopID, Error: err.Error()})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// CreateManual creates a dispatcher-initiated followup outside the stop
// lifecycle, e.g. from a resident complaint. The same priority rule applies.
func (d *Deriver) CreateManual(ctx context.Context, req models.CreateFollowupRequest) (*models.FollowupPickup, error) {
	if req.BinID == "" {
		return nil, &ValidationError{Field: "bin_id", Message: "required"}
	}
	if req.WardID == "" {
		return nil, &ValidationError{Field: "ward_id", Message: "required"}
	}
	wasteType := req.WasteType
	if wasteType == "" {
		wasteType = "General"
	}

	reason := models.FollowupReasonManual
	now := d.now()
	followup := &models.FollowupPickup{
		ID:                uuid.New().String(),
		BinID:             req.BinID,
		WardID:            req.WardID,
		WasteType:         wasteType,
		OriginatingStopID: req.OriginatingStopID,
		Priority:          Classify(reason),
		ReasonCode:        reason,
		DueAt:             now.Add(d.sla.window(reason)).Unix(),
		Status:            models.FollowupPending,
		Notes:             req.Notes,
		Version:           1,
		CreatedAt:         now.Unix(),
		UpdatedAt:         now.Unix(),
	}

	if err := d.followups.CreateFollowup(ctx, followup); err != nil {
		if errors.Is(err, ErrDuplicateFollowup) && req.OriginatingStopID != nil {
			existing, lookupErr := d.followups.ActiveFollowupForStop(ctx, *req.OriginatingStopID)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	log.Printf("📋 Manual followup %s created for bin %s (ward %s)", followup.ID, followup.BinID, followup.WardID)
	return followup, nil
}

func (d *Deriver) derive(ctx context.Context, stop *models.RouteStop, reason models.FollowupReason) (*models.FollowupPickup, bool, error) {
	existing, err := d.followups.ActiveFollowupForStop(ctx, stop.StopID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	wardID, err := d.directory.WardForRoute(ctx, stop.RouteID)
	if err != nil {
		return nil, false, err
	}
	wasteType, err := d.directory.WasteTypeForBin(ctx, stop.BinID)
	if err != nil {
		return nil, false, err
	}

	now := d.now()
	stopID := stop.StopID
	followup := &models.FollowupPickup{
		ID:                uuid.New().String(),
		BinID:             stop.BinID,
		WardID:            wardID,
		WasteType:         wasteType,
		OriginatingStopID: &stopID,
		OriginalDriverID:  stop.DriverID,
		Priority:          Classify(reason),
		ReasonCode:        reason,
		DueAt:             now.Add(d.sla.window(reason)).Unix(),
		Status:            models.FollowupPending,
		Version:           1,
		CreatedAt:         now.Unix(),
		UpdatedAt:         now.Unix(),
	}

	if err := d.followups.CreateFollowup(ctx, followup); err != nil {
		// Lost a derivation race: another actor already created the active
		// followup for this stop. Treat as already derived.
		if errors.Is(err, ErrDuplicateFollowup) {
			existing, lookupErr := d.followups.ActiveFollowupForStop(ctx, stop.StopID)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	log.Printf("📋 Followup %s derived from stop %s (reason %s, priority %s)",
		followup.ID, stop.StopID, followup.ReasonCode, followup.Priority)
	return followup, true, nil
}
