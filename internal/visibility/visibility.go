// Package visibility decides what a caller may see of an event and its
// attendees. The caller's relationship to the event is resolved once into a
// tag; projections consume only the tag and never re-inspect role flags.
package visibility

import (
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
)

// Tag classifies a caller's relationship to a specific event.
type Tag string

const (
	TagAnonymous     Tag = "anonymous"
	TagAuthenticated Tag = "authenticated"
	TagOwner         Tag = "organizer-owner"
	TagAdmin         Tag = "admin"
)

// Caller is a resolved caller: its visibility tag plus its user ID when
// authenticated.
type Caller struct {
	Tag    Tag
	UserID *uuid.UUID
}

// Resolve computes the caller tag for an event from the authenticated user's
// ID and role. Anything unresolvable collapses to anonymous (fail-closed).
func Resolve(userID *uuid.UUID, role string, event *models.Event) Caller {
	if userID == nil || event == nil {
		return Caller{Tag: TagAnonymous}
	}
	switch {
	case role == string(models.RoleAdmin):
		return Caller{Tag: TagAdmin, UserID: userID}
	case *userID == event.CreatedBy:
		return Caller{Tag: TagOwner, UserID: userID}
	default:
		return Caller{Tag: TagAuthenticated, UserID: userID}
	}
}

// FromContext resolves the caller for an event from gin context claims set
// by the JWT middleware. Missing or malformed claims yield anonymous.
func FromContext(c *gin.Context, event *models.Event) Caller {
	idVal, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return Caller{Tag: TagAnonymous}
	}
	userID, ok := idVal.(uuid.UUID)
	if !ok {
		return Caller{Tag: TagAnonymous}
	}
	role, _ := c.Get(middleware.ContextUserRole)
	roleStr, _ := role.(string)
	return Resolve(&userID, roleStr, event)
}

// CanManage reports whether the caller may mutate the event.
func (c Caller) CanManage() bool {
	return c.Tag == TagOwner || c.Tag == TagAdmin
}

// StatusCounts is the per-status RSVP tally for an event.
type StatusCounts struct {
	Going      int `json:"going"`
	Interested int `json:"interested"`
	Waitlist   int `json:"waitlist"`
	Cancelled  int `json:"cancelled"`
}

// AttendeeView is one attendee row shaped for the caller.
type AttendeeView struct {
	UserID   uuid.UUID          `json:"user_id"`
	FullName string             `json:"full_name"`
	Status   *models.RSVPStatus `json:"status,omitempty"` // owners and admins only
	Note     string             `json:"note,omitempty"`
}

// TimelineBucket is one day of RSVP creations.
type TimelineBucket struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// EventView is the role-shaped projection of an event and its attendees.
type EventView struct {
	ID                uuid.UUID          `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Location          string             `json:"location"`
	StartTime         time.Time          `json:"start_time"`
	EndTime           time.Time          `json:"end_time"`
	CategoryID        *uuid.UUID         `json:"category_id,omitempty"`
	Tags              []models.EventTag  `json:"tags,omitempty"`
	IsRecurring       bool               `json:"is_recurring"`
	RecurrencePattern string             `json:"recurrence_pattern,omitempty"`
	MaxAttendees      *int               `json:"max_attendees,omitempty"`

	// Authenticated callers and up.
	MyStatus *models.RSVPStatus `json:"my_status,omitempty"`

	// Attendee list: going-only display identities for authenticated
	// callers, every status with notes for owners and admins.
	Attendees []AttendeeView `json:"attendees,omitempty"`

	// Owners and admins only.
	Counts              *StatusCounts    `json:"counts,omitempty"`
	CapacityUtilization *float64         `json:"capacity_utilization,omitempty"`
	UniqueAttendees     *int             `json:"unique_attendees,omitempty"`
	RSVPTimeline        []TimelineBucket `json:"rsvp_timeline,omitempty"`
}

// Project shapes an event and its full attendee record set for the caller.
// It never errors; an unknown tag is treated as anonymous.
func Project(event *models.Event, records []models.AttendeeRecord, caller Caller) EventView {
	view := EventView{
		ID:                event.ID,
		Title:             event.Title,
		Description:       event.Description,
		Location:          event.Location,
		StartTime:         event.StartTime,
		EndTime:           event.EndTime,
		CategoryID:        event.CategoryID,
		Tags:              event.Tags,
		IsRecurring:       event.IsRecurring,
		RecurrencePattern: event.RecurrencePattern,
		MaxAttendees:      event.MaxAttendees,
	}

	switch caller.Tag {
	case TagAuthenticated:
		view.MyStatus = ownStatus(records, caller.UserID)
		for _, rec := range records {
			if rec.Status != models.StatusGoing {
				continue
			}
			view.Attendees = append(view.Attendees, AttendeeView{
				UserID:   rec.UserID,
				FullName: rec.FullName,
			})
		}
	case TagOwner, TagAdmin:
		view.MyStatus = ownStatus(records, caller.UserID)
		counts := StatusCounts{}
		unique := make(map[uuid.UUID]struct{})
		timeline := make(map[string]int)
		for _, rec := range records {
			status := rec.Status
			view.Attendees = append(view.Attendees, AttendeeView{
				UserID:   rec.UserID,
				FullName: rec.FullName,
				Status:   &status,
				Note:     rec.Note,
			})
			switch rec.Status {
			case models.StatusGoing:
				counts.Going++
			case models.StatusInterested:
				counts.Interested++
			case models.StatusWaitlist:
				counts.Waitlist++
			case models.StatusCancelled:
				counts.Cancelled++
			}
			unique[rec.UserID] = struct{}{}
			timeline[rec.CreatedAt.UTC().Format("2006-01-02")]++
		}
		view.Counts = &counts
		n := len(unique)
		view.UniqueAttendees = &n
		if event.MaxAttendees != nil && *event.MaxAttendees > 0 {
			u := float64(counts.Going) / float64(*event.MaxAttendees)
			view.CapacityUtilization = &u
		}
		view.RSVPTimeline = buckets(timeline)
	default:
		// anonymous: core fields only
	}
	return view
}

func ownStatus(records []models.AttendeeRecord, userID *uuid.UUID) *models.RSVPStatus {
	if userID == nil {
		return nil
	}
	for _, rec := range records {
		if rec.UserID == *userID {
			status := rec.Status
			return &status
		}
	}
	return nil
}

func buckets(byDay map[string]int) []TimelineBucket {
	if len(byDay) == 0 {
		return nil
	}
	out := make([]TimelineBucket, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, TimelineBucket{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
