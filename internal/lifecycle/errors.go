package lifecycle

import (
	"errors"
	"fmt"
)

// ErrDuplicateFollowup is returned by stores when an insert would create a
// second active followup for the same originating stop. Callers treat it as
// "already derived", never as a failure to surface.
var ErrDuplicateFollowup = errors.New("active followup already exists for originating stop")

// ValidationError rejects a request before any state change
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// InvalidTransitionError is a validator denial of a status edge
type InvalidTransitionError struct {
	Entity EntityKind
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

// ConflictError is an optimistic-concurrency version mismatch. The caller
// must re-read the entity and retry the write.
type ConflictError struct {
	Entity EntityKind
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s %s", e.Entity, e.ID)
}

// NotFoundError reports an unknown entity id
type NotFoundError struct {
	Entity EntityKind
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// PreconditionFailedError rejects an operation whose prerequisites are not
// met, e.g. activating a route with no truck assigned.
type PreconditionFailedError struct {
	Message string
}

func (e *PreconditionFailedError) Error() string {
	return "precondition failed: " + e.Message
}

// PartialAssignmentError reports which steps of the three-step route
// assignment protocol completed before one failed. Completed steps stay
// applied; the caller retries only the failed step.
type PartialAssignmentError struct {
	RouteID           string
	CollectorAssigned bool
	TruckAssigned     bool
	Activated         bool
	FailedStep        string
	Err               error
}

func (e *PartialAssignmentError) Error() string {
	return fmt.Sprintf("route %s assignment stopped at step %q: %v", e.RouteID, e.FailedStep, e.Err)
}

func (e *PartialAssignmentError) Unwrap() error {
	return e.Err
}
