package evaluation

import (
	"fmt"

	"appraise/internal/domain/auth"
)

// guard is one row of the transition table: which statuses an action may
// start from, where it lands (empty keeps the current status) and which
// relations to the row may perform it.
type guard struct {
	from         map[string]struct{}
	to           string
	ownerOK      bool
	managerOK    bool
	elevatedOnly bool
}

func statusSet(statuses ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		out[s] = struct{}{}
	}
	return out
}

var transitions = map[Action]guard{
	ActionSaveSelf: {
		from:    statusSet(StatusNotStarted, StatusDraft),
		to:      StatusDraft,
		ownerOK: true,
	},
	ActionSubmitSelf: {
		from:    statusSet(StatusNotStarted, StatusDraft),
		to:      StatusSelfSubmitted,
		ownerOK: true,
	},
	// Manager review data waits for the self evaluation; drafts of the
	// review side are only possible once the employee has submitted.
	ActionSaveManager: {
		from:      statusSet(StatusSelfSubmitted),
		managerOK: true,
	},
	ActionSubmitManager: {
		from:      statusSet(StatusSelfSubmitted),
		to:        StatusManagerReviewed,
		managerOK: true,
	},
	ActionScheduleMeeting: {
		from:      statusSet(StatusManagerReviewed),
		managerOK: true,
	},
	ActionRecordMeeting: {
		from:      statusSet(StatusManagerReviewed),
		managerOK: true,
	},
	ActionFinalize: {
		from:      statusSet(StatusSelfSubmitted, StatusManagerReviewed),
		to:        StatusCompleted,
		managerOK: true,
	},
	ActionCalibrate: {
		from:         statusSet(StatusCompleted),
		elevatedOnly: true,
	},
}

// CanTransition checks the guard table for one action. HR and admin roles
// pass every relation check except where an action is itself restricted to
// them; owners and managers pass only the relations the table grants.
func CanTransition(action Action, currentStatus, roleName string, isOwner, isManager bool) error {
	g, ok := transitions[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if _, ok := g.from[currentStatus]; !ok {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, currentStatus)
	}
	elevated := auth.Elevated(roleName)
	if g.elevatedOnly {
		if !elevated {
			return fmt.Errorf("%w: %s requires an HR or admin role", ErrActorNotAllowed, action)
		}
		return nil
	}
	if elevated {
		return nil
	}
	if g.ownerOK && isOwner {
		return nil
	}
	if g.managerOK && isManager {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrActorNotAllowed, action)
}

// NextStatus returns the status after a permitted action.
func NextStatus(action Action, currentStatus string) string {
	g, ok := transitions[action]
	if !ok || g.to == "" {
		return currentStatus
	}
	return g.to
}
