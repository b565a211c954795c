package domain

// AggregateProgress computes a parent's progress and status from its children.
// With no children the parent is complete. A computed 100 is held at 99 and
// PENDING_VALIDATION until someone signs it off.
func AggregateProgress(total, validated int) (int, ActionStatus) {
	if total <= 0 {
		return 100, StatusValidated
	}
	if validated > total {
		validated = total
	}
	progress := validated * 100 / total
	if progress >= 100 {
		return 99, StatusPendingValidation
	}
	return progress, StatusInProgress
}
