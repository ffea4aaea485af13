package events

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/rsvp"
	"github.com/gatherly/backend/internal/visibility"
	"github.com/gatherly/backend/pkg/response"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title             string   `json:"title" binding:"required"`
	Description       string   `json:"description"`
	Location          string   `json:"location" binding:"required"`
	StartTime         string   `json:"start_time" binding:"required"`
	EndTime           string   `json:"end_time" binding:"required"`
	MaxAttendees      *int     `json:"max_attendees" binding:"omitempty,min=1"`
	CategoryID        *string  `json:"category_id"`
	Tags              []string `json:"tags"`
	IsRecurring       bool     `json:"is_recurring"`
	RecurrencePattern string   `json:"recurrence_pattern"`
}

// UpdateRequest is the body for PATCH /events/:id. Nil fields keep current values.
type UpdateRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Location      *string `json:"location"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	MaxAttendees  *int    `json:"max_attendees" binding:"omitempty,min=1"`
	ClearCapacity bool    `json:"clear_capacity"` // explicitly remove the attendee cap
	Tags          []string `json:"tags"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo     *Repository
	rsvpRepo *rsvp.Repository
	logger   *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(repo *Repository, rsvpRepo *rsvp.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, rsvpRepo: rsvpRepo, logger: logger}
}

// Create handles POST /events (organizer or admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	startTime, err := parseTime(req.StartTime)
	if err != nil {
		response.BadRequest(c, "invalid start_time")
		return
	}
	endTime, err := parseTime(req.EndTime)
	if err != nil {
		response.BadRequest(c, "invalid end_time")
		return
	}
	if endTime.Before(startTime) {
		response.BadRequest(c, "end_time must not be before start_time")
		return
	}

	var categoryID *uuid.UUID
	if req.CategoryID != nil {
		id, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			response.BadRequest(c, "invalid category_id")
			return
		}
		categoryID = &id
	}

	e := &models.Event{
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		StartTime:         startTime,
		EndTime:           endTime,
		CreatedBy:         userID,
		MaxAttendees:      req.MaxAttendees,
		CategoryID:        categoryID,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
	}
	if err := h.repo.Create(c.Request.Context(), e, req.Tags); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// List handles GET /events. Public; supports search, filter and sort params.
func (h *Handler) List(c *gin.Context) {
	params := SearchParams{
		Query:    c.Query("q"),
		Location: c.Query("location"),
		SortBy:   c.Query("sort_by"),
		SortAsc:  c.Query("sort_order") == "asc",
	}
	if v := c.Query("category"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid category")
			return
		}
		params.CategoryID = &id
	}
	if v := c.Query("organizer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid organizer_id")
			return
		}
		params.OrganizerID = &id
	}
	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.BadRequest(c, "invalid date_from")
			return
		}
		params.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.BadRequest(c, "invalid date_to")
			return
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		params.DateTo = &end
	}

	list, err := h.repo.Search(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("search events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id. The payload is shaped by the caller's
// visibility tag: anonymous callers get core fields, authenticated callers
// additionally get the going list and their own status, owners and admins
// get the full attendee breakdown.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load event")
		return
	}

	caller := visibility.FromContext(c, e)
	var records []models.AttendeeRecord
	if caller.Tag != visibility.TagAnonymous {
		records, err = h.rsvpRepo.ListAttendees(c.Request.Context(), id)
		if err != nil {
			response.Internal(c, "failed to load attendees")
			return
		}
	}
	response.OK(c, visibility.Project(e, records, caller))
}

// Attendees handles GET /events/:id/attendees, shaped per caller.
func (h *Handler) Attendees(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load event")
		return
	}
	caller := visibility.FromContext(c, e)
	if caller.Tag == visibility.TagAnonymous {
		response.OK(c, []visibility.AttendeeView{})
		return
	}
	records, err := h.rsvpRepo.ListAttendees(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load attendees")
		return
	}
	view := visibility.Project(e, records, caller)
	attendees := view.Attendees
	if attendees == nil {
		attendees = []visibility.AttendeeView{}
	}
	response.OK(c, attendees)
}

// Update handles PATCH /events/:id (owner or admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load event")
		return
	}
	caller := visibility.FromContext(c, e)
	if !caller.CanManage() {
		response.Forbidden(c, "only the organizer or an admin can update this event")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var startTime, endTime *time.Time
	if req.StartTime != nil {
		t, err := parseTime(*req.StartTime)
		if err != nil {
			response.BadRequest(c, "invalid start_time")
			return
		}
		startTime = &t
	}
	if req.EndTime != nil {
		t, err := parseTime(*req.EndTime)
		if err != nil {
			response.BadRequest(c, "invalid end_time")
			return
		}
		endTime = &t
	}

	if err := h.repo.Update(c.Request.Context(), id, req.Title, req.Description, req.Location,
		startTime, endTime, req.MaxAttendees, req.ClearCapacity); err != nil {
		h.writeError(c, err, "failed to update event")
		return
	}
	if req.Tags != nil {
		if err := h.repo.SetTags(c.Request.Context(), e, req.Tags); err != nil {
			response.Internal(c, "failed to update tags")
			return
		}
	}
	updated, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load event")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /events/:id (owner or admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load event")
		return
	}
	caller := visibility.FromContext(c, e)
	if !caller.CanManage() {
		response.Forbidden(c, "only the organizer or an admin can delete this event")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// Stats handles GET /events/:id/stats (owner or admin).
func (h *Handler) Stats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load event")
		return
	}
	caller := visibility.FromContext(c, e)
	if !caller.CanManage() {
		response.Forbidden(c, "only the organizer or an admin can view event stats")
		return
	}
	stats, err := h.repo.GetStats(c.Request.Context(), e)
	if err != nil {
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, stats)
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list categories")
		return
	}
	response.OK(c, list)
}

// ListTags handles GET /tags.
func (h *Handler) ListTags(c *gin.Context) {
	list, err := h.repo.ListTags(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list tags")
		return
	}
	response.OK(c, list)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	response.Internal(c, fallback)
}
