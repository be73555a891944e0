package models

// FollowupStatus is the lifecycle status of a followup pickup.
// DONE and CANCELLED are terminal.
type FollowupStatus string

const (
	FollowupPending    FollowupStatus = "PENDING"
	FollowupAssigned   FollowupStatus = "ASSIGNED"
	FollowupInProgress FollowupStatus = "IN_PROGRESS"
	FollowupDone       FollowupStatus = "DONE"
	FollowupCancelled  FollowupStatus = "CANCELLED"
)

// IsTerminal reports whether the followup can no longer change status.
func (s FollowupStatus) IsTerminal() bool {
	return s == FollowupDone || s == FollowupCancelled
}

// ParseFollowupStatus validates a raw status string from a request.
func ParseFollowupStatus(raw string) (FollowupStatus, bool) {
	switch FollowupStatus(raw) {
	case FollowupPending, FollowupAssigned, FollowupInProgress, FollowupDone, FollowupCancelled:
		return FollowupStatus(raw), true
	}
	return "", false
}

// FollowupReason classifies why the followup was derived
type FollowupReason string

const (
	FollowupReasonMissed  FollowupReason = "MISSED"
	FollowupReasonSkipped FollowupReason = "SKIPPED"
	FollowupReasonOverdue FollowupReason = "OVERDUE"
	FollowupReasonManual  FollowupReason = "MANUAL"
)

// ParseFollowupReason validates a raw reason string from a request.
func ParseFollowupReason(raw string) (FollowupReason, bool) {
	switch FollowupReason(raw) {
	case FollowupReasonMissed, FollowupReasonSkipped, FollowupReasonOverdue, FollowupReasonManual:
		return FollowupReason(raw), true
	}
	return "", false
}

// Priority is the urgency of a followup, always derived from its reason code
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
)

// FollowupPickup represents a derived remedial work item for a stop that was
// missed, skipped, went overdue, or was flagged manually by a dispatcher
type FollowupPickup struct {
	ID                  string         `json:"id" db:"id"`
	BinID               string         `json:"bin_id" db:"bin_id"`
	WardID              string         `json:"ward_id" db:"ward_id"`
	WasteType           string         `json:"waste_type" db:"waste_type"`
	OriginatingStopID   *string        `json:"originating_stop_id,omitempty" db:"originating_stop_id"`
	OriginalDriverID    *string        `json:"original_driver_id,omitempty" db:"original_driver_id"`
	NewAssignedDriverID *string        `json:"new_assigned_driver_id,omitempty" db:"new_assigned_driver_id"`
	AssignedTruckID     *string        `json:"assigned_truck_id,omitempty" db:"assigned_truck_id"`
	Priority            Priority       `json:"priority" db:"priority"`
	ReasonCode          FollowupReason `json:"reason_code" db:"reason_code"`
	DueAt               int64          `json:"due_at" db:"due_at"` // Unix timestamp
	CollectionDate      *int64         `json:"collection_date,omitempty" db:"collection_date"`
	Status              FollowupStatus `json:"status" db:"status"`
	Notes               *string        `json:"notes,omitempty" db:"notes"`
	CompletedAt         *int64         `json:"completed_at,omitempty" db:"completed_at"`
	Version             int            `json:"version" db:"version"`
	CreatedAt           int64          `json:"created_at" db:"created_at"`
	UpdatedAt           int64          `json:"updated_at" db:"updated_at"`
}

// CreateFollowupRequest is the request body for POST /api/followup-pickups (manual creation)
type CreateFollowupRequest struct {
	BinID             string  `json:"bin_id"`
	WardID            string  `json:"ward_id"`
	WasteType         string  `json:"waste_type"`
	OriginatingStopID *string `json:"originating_stop_id,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// AssignFollowupRequest is the request body for PUT /api/followup-pickups/:id/assign
type AssignFollowupRequest struct {
	NewAssignedDriverID *string `json:"new_assigned_driver_id,omitempty"`
	AssignedTruckID     *string `json:"assigned_truck_id,omitempty"`
}

// CompleteAssignmentRequest is the request body for POST /api/followup-pickups/:id/complete-assignment
type CompleteAssignmentRequest struct {
	NewAssignedDriverID string `json:"new_assigned_driver_id"`
	AssignedTruckID     string `json:"assigned_truck_id"`
	CollectionDate      int64  `json:"collection_date"` // Unix timestamp
}

// CompleteFollowupRequest is the request body for PUT /api/followup-pickups/:id/complete
type CompleteFollowupRequest struct {
	Notes    *string `json:"notes,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

// CancelFollowupRequest is the request body for PUT /api/followup-pickups/:id/cancel
type CancelFollowupRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// UpdateFollowupStatusRequest is the request body for PUT /api/followup-pickups/:id/status
type UpdateFollowupStatusRequest struct {
	Status string `json:"status"`
}
