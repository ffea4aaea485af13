package rsvp

// HasOpenCapacity reports whether an event with the given capacity can admit
// one more going RSVP. A nil maxAttendees means unlimited capacity.
func HasOpenCapacity(maxAttendees *int, goingCount int) bool {
	if maxAttendees == nil {
		return true
	}
	return goingCount < *maxAttendees
}
