package handlers

import (
	"errors"
	"log"
	"net/http"

	"ecocollect-backend/internal/lifecycle"
	"ecocollect-backend/internal/models"
	"ecocollect-backend/pkg/utils"
)

// respondEngineError maps lifecycle engine errors onto HTTP statuses.
// Version conflicts and duplicate followups are 409, validator denials
// are 422, unmet preconditions are 412.
func respondEngineError(w http.ResponseWriter, err error) {
	var validationErr *lifecycle.ValidationError
	var notFoundErr *lifecycle.NotFoundError
	var conflictErr *lifecycle.ConflictError
	var transitionErr *lifecycle.InvalidTransitionError
	var preconditionErr *lifecycle.PreconditionFailedError
	var partialErr *lifecycle.PartialAssignmentError

	switch {
	// Checked first: it wraps the step error, which would otherwise match
	// one of the narrower cases and lose the partial state.
	case errors.As(err, &partialErr):
		utils.ErrorWithData(w, http.StatusConflict, partialErr.Error(), models.RouteAssignmentState{
			CollectorAssigned: partialErr.CollectorAssigned,
			TruckAssigned:     partialErr.TruckAssigned,
			Activated:         partialErr.Activated,
			FailedStep:        partialErr.FailedStep,
			Error:             partialErr.Err.Error(),
		})
	case errors.As(err, &validationErr):
		utils.Error(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		utils.Error(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr), errors.Is(err, lifecycle.ErrDuplicateFollowup):
		utils.Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &transitionErr):
		utils.Error(w, http.StatusUnprocessableEntity, transitionErr.Error())
	case errors.As(err, &preconditionErr):
		utils.Error(w, http.StatusPreconditionFailed, preconditionErr.Error())
	default:
		log.Printf("❌ Internal error: %v", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
