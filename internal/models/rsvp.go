package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVPStatus is a user's attendance response state for an event.
type RSVPStatus string

const (
	StatusInterested RSVPStatus = "interested"
	StatusGoing      RSVPStatus = "going"
	StatusWaitlist   RSVPStatus = "waitlist"
	StatusCancelled  RSVPStatus = "cancelled"
)

// Valid reports whether s is one of the known RSVP statuses.
func (s RSVPStatus) Valid() bool {
	switch s {
	case StatusInterested, StatusGoing, StatusWaitlist, StatusCancelled:
		return true
	}
	return false
}

// RSVP is a user's attendance response to an event. At most one row exists
// per (user, event); status changes mutate the row in place.
type RSVP struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	EventID   uuid.UUID  `json:"event_id"`
	Status    RSVPStatus `json:"status"`
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
