package models

// StopStatus is the lifecycle status of a route stop.
// Status only moves forward; DONE, MISSED and SKIPPED are terminal.
type StopStatus string

const (
	StopPending    StopStatus = "PENDING"
	StopInProgress StopStatus = "IN_PROGRESS"
	StopDone       StopStatus = "DONE"
	StopMissed     StopStatus = "MISSED"
	StopSkipped    StopStatus = "SKIPPED"
)

// IsTerminal reports whether no further status transitions are allowed.
func (s StopStatus) IsTerminal() bool {
	return s == StopDone || s == StopMissed || s == StopSkipped
}

// ParseStopStatus validates a raw status string from a request.
func ParseStopStatus(raw string) (StopStatus, bool) {
	switch StopStatus(raw) {
	case StopPending, StopInProgress, StopDone, StopMissed, StopSkipped:
		return StopStatus(raw), true
	}
	return "", false
}

// StopReasonCode explains why a stop was not collected normally
type StopReasonCode string

const (
	StopReasonNone     StopReasonCode = "NONE"
	StopReasonBlocked  StopReasonCode = "BLOCKED"
	StopReasonNoBinOut StopReasonCode = "NO_BIN_OUT"
	StopReasonSafety   StopReasonCode = "SAFETY"
	StopReasonOther    StopReasonCode = "OTHER"
)

// ParseStopReasonCode validates a raw reason code string
func ParseStopReasonCode(raw string) (StopReasonCode, bool) {
	switch StopReasonCode(raw) {
	case StopReasonNone, StopReasonBlocked, StopReasonNoBinOut, StopReasonSafety, StopReasonOther:
		return StopReasonCode(raw), true
	}
	return "", false
}

// StopSource records how the stop event was captured in the field
type StopSource string

const (
	StopSourceQR     StopSource = "QR"
	StopSourceManual StopSource = "MANUAL"
)

// RouteStop represents one bin visit within a route
type RouteStop struct {
	StopID     string         `json:"stop_id" db:"stop_id"`
	RouteID    string         `json:"route_id" db:"route_id"`
	BinID      string         `json:"bin_id" db:"bin_id"`
	DriverID   *string        `json:"driver_id,omitempty" db:"driver_id"`
	StopOrder  int            `json:"stop_order" db:"stop_order"`
	Collected  bool           `json:"collected" db:"collected"`
	Status     StopStatus     `json:"status" db:"status"`
	ReasonCode StopReasonCode `json:"reason_code" db:"reason_code"`
	PlannedEta int64          `json:"planned_eta" db:"planned_eta"` // Unix timestamp
	ArrivedAt  *int64         `json:"arrived_at,omitempty" db:"arrived_at"`
	WeightKg   float64        `json:"weight_kg" db:"weight_kg"`
	PhotoURL   *string        `json:"photo_url,omitempty" db:"photo_url"`
	Notes      *string        `json:"notes,omitempty" db:"notes"`
	Source     StopSource     `json:"source" db:"source"`
	Version    int            `json:"version" db:"version"`
	CreatedAt  int64          `json:"created_at" db:"created_at"`
	UpdatedAt  int64          `json:"updated_at" db:"updated_at"`
}

// ReassignStopRequest is the request body for PUT /api/route-stops/:id/reassign
type ReassignStopRequest struct {
	NewDriverID string `json:"new_driver_id"`
}

// UpdateStopWeightRequest is the request body for PUT /api/route-stops/:id/weight
type UpdateStopWeightRequest struct {
	WeightKg float64 `json:"weight_kg"`
}

// UpdateStopPhotoRequest is the request body for PUT /api/route-stops/:id/photo
type UpdateStopPhotoRequest struct {
	PhotoURL string `json:"photo_url"`
}

// UpdateStopNotesRequest is the request body for PUT /api/route-stops/:id/notes
type UpdateStopNotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateStopReasonRequest is the request body for PUT /api/route-stops/:id/reason
type UpdateStopReasonRequest struct {
	ReasonCode string `json:"reason_code"`
}
