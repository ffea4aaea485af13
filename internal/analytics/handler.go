package analytics

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/visibility"
	"github.com/gatherly/backend/pkg/response"
)

// Handler handles GET /events/:id/analytics.
type Handler struct {
	pool      *pgxpool.Pool
	eventRepo *events.Repository
}

// NewHandler creates an analytics handler.
func NewHandler(pool *pgxpool.Pool, eventRepo *events.Repository) *Handler {
	return &Handler{pool: pool, eventRepo: eventRepo}
}

// SummaryResponse is the JSON shape for event analytics.
type SummaryResponse struct {
	Counts              visibility.StatusCounts     `json:"counts"`
	CapacityUtilization *float64                    `json:"capacity_utilization,omitempty"`
	UniqueAttendees     int                         `json:"unique_attendees"`
	RSVPTimeline        []visibility.TimelineBucket `json:"rsvp_timeline"`
	AverageRating       *float64                    `json:"average_rating,omitempty"`
	ReviewCount         int                         `json:"review_count"`
}

// GetByEvent handles GET /events/:id/analytics. Owner or admin only.
func (h *Handler) GetByEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()

	event, err := h.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	caller := visibility.FromContext(c, event)
	if !caller.CanManage() {
		response.Forbidden(c, "only the organizer or an admin can view analytics")
		return
	}

	var out SummaryResponse
	const countQ = `SELECT
		COUNT(*) FILTER (WHERE status = 'going'),
		COUNT(*) FILTER (WHERE status = 'interested'),
		COUNT(*) FILTER (WHERE status = 'waitlist'),
		COUNT(*) FILTER (WHERE status = 'cancelled'),
		COUNT(DISTINCT user_id)
		FROM rsvps WHERE event_id = $1`
	if err := h.pool.QueryRow(ctx, countQ, id).Scan(
		&out.Counts.Going, &out.Counts.Interested, &out.Counts.Waitlist, &out.Counts.Cancelled,
		&out.UniqueAttendees); err != nil {
		response.Internal(c, "failed to load rsvp counts")
		return
	}

	if event.MaxAttendees != nil && *event.MaxAttendees > 0 {
		u := float64(out.Counts.Going) / float64(*event.MaxAttendees)
		out.CapacityUtilization = &u
	}

	const timelineQ = `SELECT date_trunc('day', created_at)::date, COUNT(*)
		FROM rsvps WHERE event_id = $1 GROUP BY 1 ORDER BY 1`
	rows, err := h.pool.Query(ctx, timelineQ, id)
	if err != nil {
		response.Internal(c, "failed to load rsvp timeline")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var day time.Time
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			response.Internal(c, "failed to load rsvp timeline")
			return
		}
		out.RSVPTimeline = append(out.RSVPTimeline, visibility.TimelineBucket{
			Date:  day.Format("2006-01-02"),
			Count: n,
		})
	}
	if rows.Err() != nil {
		response.Internal(c, "failed to load rsvp timeline")
		return
	}

	const reviewQ = `SELECT COUNT(*), AVG(rating) FROM reviews WHERE event_id = $1`
	_ = h.pool.QueryRow(ctx, reviewQ, id).Scan(&out.ReviewCount, &out.AverageRating)

	response.OK(c, out)
}
