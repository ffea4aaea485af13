package visibility

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/models"
)

func testEvent(owner uuid.UUID, maxAttendees *int) *models.Event {
	return &models.Event{
		ID:           uuid.New(),
		Title:        "go meetup",
		Description:  "monthly meetup",
		Location:     "berlin",
		StartTime:    time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2026, 4, 10, 21, 0, 0, 0, time.UTC),
		CreatedBy:    owner,
		MaxAttendees: maxAttendees,
	}
}

func record(userID uuid.UUID, status models.RSVPStatus, note string, createdAt time.Time) models.AttendeeRecord {
	return models.AttendeeRecord{
		RSVPID:    uuid.New(),
		UserID:    userID,
		FullName:  "user " + userID.String()[:8],
		Status:    status,
		Note:      note,
		CreatedAt: createdAt,
	}
}

func TestResolve(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	event := testEvent(owner, nil)

	tests := []struct {
		name   string
		userID *uuid.UUID
		role   string
		event  *models.Event
		want   Tag
	}{
		{"nil user is anonymous", nil, "", event, TagAnonymous},
		{"nil event is anonymous", &other, string(models.RoleAttendee), nil, TagAnonymous},
		{"admin role wins", &other, string(models.RoleAdmin), event, TagAdmin},
		{"event creator is owner", &owner, string(models.RoleOrganizer), event, TagOwner},
		{"organizer of another event is just authenticated", &other, string(models.RoleOrganizer), event, TagAuthenticated},
		{"attendee is authenticated", &other, string(models.RoleAttendee), event, TagAuthenticated},
		{"unknown role is authenticated", &other, "whatever", event, TagAuthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.userID, tt.role, tt.event).Tag)
		})
	}
}

func TestCanManage(t *testing.T) {
	id := uuid.New()
	assert.True(t, Caller{Tag: TagOwner, UserID: &id}.CanManage())
	assert.True(t, Caller{Tag: TagAdmin, UserID: &id}.CanManage())
	assert.False(t, Caller{Tag: TagAuthenticated, UserID: &id}.CanManage())
	assert.False(t, Caller{Tag: TagAnonymous}.CanManage())
}

func TestProjectAnonymousSeesCoreFieldsOnly(t *testing.T) {
	event := testEvent(uuid.New(), nil)
	records := []models.AttendeeRecord{
		record(uuid.New(), models.StatusGoing, "", time.Now()),
		record(uuid.New(), models.StatusInterested, "", time.Now()),
	}

	view := Project(event, records, Caller{Tag: TagAnonymous})

	assert.Equal(t, event.Title, view.Title)
	assert.Nil(t, view.Attendees)
	assert.Nil(t, view.MyStatus)
	assert.Nil(t, view.Counts)
	assert.Nil(t, view.UniqueAttendees)
	assert.Nil(t, view.RSVPTimeline)
}

func TestProjectAuthenticatedSeesGoingAttendeesAndOwnStatus(t *testing.T) {
	event := testEvent(uuid.New(), nil)
	me := uuid.New()
	going := uuid.New()
	records := []models.AttendeeRecord{
		record(going, models.StatusGoing, "front row", time.Now()),
		record(me, models.StatusInterested, "", time.Now()),
		record(uuid.New(), models.StatusWaitlist, "", time.Now()),
		record(uuid.New(), models.StatusCancelled, "", time.Now()),
	}

	view := Project(event, records, Caller{Tag: TagAuthenticated, UserID: &me})

	require.NotNil(t, view.MyStatus)
	assert.Equal(t, models.StatusInterested, *view.MyStatus)
	require.Len(t, view.Attendees, 1)
	assert.Equal(t, going, view.Attendees[0].UserID)
	// Display identity only: no status or note for non-owners.
	assert.Nil(t, view.Attendees[0].Status)
	assert.Empty(t, view.Attendees[0].Note)
	assert.Nil(t, view.Counts)
}

func TestProjectOwnerSeesEverything(t *testing.T) {
	owner := uuid.New()
	capacity := 10
	event := testEvent(owner, &capacity)

	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	records := []models.AttendeeRecord{
		record(uuid.New(), models.StatusGoing, "first time", day1),
		record(uuid.New(), models.StatusGoing, "", day1),
		record(uuid.New(), models.StatusGoing, "", day2),
		record(uuid.New(), models.StatusInterested, "", day2),
		record(uuid.New(), models.StatusInterested, "", day2),
	}

	view := Project(event, records, Caller{Tag: TagOwner, UserID: &owner})

	assert.Len(t, view.Attendees, 5)
	require.NotNil(t, view.Attendees[0].Status)
	assert.Equal(t, models.StatusGoing, *view.Attendees[0].Status)
	assert.Equal(t, "first time", view.Attendees[0].Note)

	require.NotNil(t, view.Counts)
	assert.Equal(t, StatusCounts{Going: 3, Interested: 2}, *view.Counts)

	require.NotNil(t, view.UniqueAttendees)
	assert.Equal(t, 5, *view.UniqueAttendees)

	require.NotNil(t, view.CapacityUtilization)
	assert.InDelta(t, 0.3, *view.CapacityUtilization, 1e-9)

	require.Len(t, view.RSVPTimeline, 2)
	assert.Equal(t, TimelineBucket{Date: "2026-03-01", Count: 2}, view.RSVPTimeline[0])
	assert.Equal(t, TimelineBucket{Date: "2026-03-02", Count: 3}, view.RSVPTimeline[1])
}

func TestProjectUnlimitedCapacityOmitsUtilization(t *testing.T) {
	owner := uuid.New()
	event := testEvent(owner, nil)
	records := []models.AttendeeRecord{
		record(uuid.New(), models.StatusGoing, "", time.Now()),
	}

	view := Project(event, records, Caller{Tag: TagAdmin, UserID: &owner})
	assert.Nil(t, view.CapacityUtilization)
	require.NotNil(t, view.Counts)
	assert.Equal(t, 1, view.Counts.Going)
}
