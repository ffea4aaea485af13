package rsvp

import (
	"fmt"

	"github.com/gatherly/backend/internal/models"
)

// transitions maps each status to the set of statuses it may move to.
// A first-time RSVP has no prior status and bypasses the table entirely.
// Waitlist never appears as a requested destination from interested/going/
// cancelled: callers ask for going and the capacity check parks them.
var transitions = map[models.RSVPStatus][]models.RSVPStatus{
	models.StatusInterested: {models.StatusGoing, models.StatusCancelled},
	models.StatusGoing:      {models.StatusInterested, models.StatusCancelled},
	models.StatusCancelled:  {models.StatusInterested, models.StatusGoing},
	models.StatusWaitlist:   {models.StatusGoing, models.StatusInterested, models.StatusCancelled},
}

// AllowedTransitions returns the legal destination statuses from a given status.
func AllowedTransitions(from models.RSVPStatus) []models.RSVPStatus {
	return transitions[from]
}

// CanTransition reports whether from → to is legal. A request for the
// current status is treated as a legal no-op re-save.
func CanTransition(from, to models.RSVPStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports an illegal status change along with the
// destinations the client could have requested instead.
type InvalidTransitionError struct {
	From    models.RSVPStatus
	To      models.RSVPStatus
	Allowed []models.RSVPStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid rsvp transition from %q to %q", e.From, e.To)
}

func newInvalidTransition(from, to models.RSVPStatus) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to, Allowed: AllowedTransitions(from)}
}
