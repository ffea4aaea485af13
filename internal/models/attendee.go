package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendeeRecord is an RSVP joined with the responding user's display
// identity. The visibility layer decides which records and fields a given
// caller may see.
type AttendeeRecord struct {
	RSVPID    uuid.UUID  `json:"rsvp_id"`
	UserID    uuid.UUID  `json:"user_id"`
	FullName  string     `json:"full_name"`
	Status    RSVPStatus `json:"status"`
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
