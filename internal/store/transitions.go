package store

import (
	"fmt"

	"autoflow/workshop-service/internal/models"
)

type TransitionPolicy string

const (
	// TransitionsPermissive allows any status to move to any other status.
	TransitionsPermissive TransitionPolicy = "permissive"
	// TransitionsStrict only allows the moves listed in transitionMap.
	TransitionsStrict TransitionPolicy = "strict"
)

var transitionMap = map[models.Status][]models.Status{
	models.StatusCheckedIn:       {models.StatusInDiagnostics, models.StatusWorkInProgress},
	models.StatusInDiagnostics:   {models.StatusWaitingForParts, models.StatusWorkInProgress, models.StatusCheckedIn},
	models.StatusWaitingForParts: {models.StatusWorkInProgress, models.StatusInDiagnostics},
	models.StatusWorkInProgress:  {models.StatusReadyForPickup, models.StatusWaitingForParts, models.StatusInDiagnostics},
	models.StatusReadyForPickup:  {models.StatusWorkInProgress},
}

func ParseTransitionPolicy(raw string) (TransitionPolicy, error) {
	switch TransitionPolicy(raw) {
	case "", TransitionsPermissive:
		return TransitionsPermissive, nil
	case TransitionsStrict:
		return TransitionsStrict, nil
	default:
		return "", fmt.Errorf("unknown transition policy %q", raw)
	}
}

func ValidTransition(policy TransitionPolicy, from, to models.Status) bool {
	if !to.Valid() {
		return false
	}
	if from == to || policy != TransitionsStrict {
		return true
	}
	for _, status := range transitionMap[from] {
		if status == to {
			return true
		}
	}
	return false
}

// NextStatuses lists where a job in status from may move under policy.
func NextStatuses(policy TransitionPolicy, from models.Status) []models.Status {
	var next []models.Status
	for _, status := range models.Statuses {
		if status != from && ValidTransition(policy, from, status) {
			next = append(next, status)
		}
	}
	return next
}
