package rsvp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatherly/backend/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.RSVPStatus
		ok       bool
	}{
		{models.StatusInterested, models.StatusGoing, true},
		{models.StatusInterested, models.StatusCancelled, true},
		{models.StatusInterested, models.StatusWaitlist, false},
		{models.StatusGoing, models.StatusInterested, true},
		{models.StatusGoing, models.StatusCancelled, true},
		{models.StatusGoing, models.StatusWaitlist, false},
		{models.StatusCancelled, models.StatusInterested, true},
		{models.StatusCancelled, models.StatusGoing, true},
		{models.StatusCancelled, models.StatusWaitlist, false},
		{models.StatusWaitlist, models.StatusGoing, true},
		{models.StatusWaitlist, models.StatusInterested, true},
		{models.StatusWaitlist, models.StatusCancelled, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionSameStatusIsNoOp(t *testing.T) {
	for _, s := range []models.RSVPStatus{models.StatusInterested, models.StatusGoing, models.StatusWaitlist, models.StatusCancelled} {
		assert.True(t, CanTransition(s, s), "re-requesting %s must be legal", s)
	}
}

func TestInvalidTransitionCarriesAllowedSet(t *testing.T) {
	err := newInvalidTransition(models.StatusCancelled, models.StatusWaitlist)
	assert.Equal(t, models.StatusCancelled, err.From)
	assert.Equal(t, models.StatusWaitlist, err.To)
	assert.ElementsMatch(t, []models.RSVPStatus{models.StatusInterested, models.StatusGoing}, err.Allowed)
	assert.Contains(t, err.Error(), "cancelled")
	assert.Contains(t, err.Error(), "waitlist")
}

func TestHasOpenCapacity(t *testing.T) {
	assert.True(t, HasOpenCapacity(nil, 1000), "unset capacity means unlimited")

	three := 3
	assert.True(t, HasOpenCapacity(&three, 0))
	assert.True(t, HasOpenCapacity(&three, 2))
	assert.False(t, HasOpenCapacity(&three, 3))
	assert.False(t, HasOpenCapacity(&three, 4))
}
