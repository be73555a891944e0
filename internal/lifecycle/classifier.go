package lifecycle

import "ecocollect-backend/internal/models"

// Classify maps a followup reason code to its priority. Priority is never
// set independently of this mapping; the reconciler rewrites any followup
// whose stored priority disagrees with it.
func Classify(reason models.FollowupReason) models.Priority {
	switch reason {
	case models.FollowupReasonMissed, models.FollowupReasonManual, models.FollowupReasonOverdue:
		return models.PriorityHigh
	case models.FollowupReasonSkipped:
		return models.PriorityNormal
	}
	return models.PriorityNormal
}
