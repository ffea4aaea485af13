package rsvp

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// RequestBody is the body for POST /events/:id/rsvp.
type RequestBody struct {
	Status string `json:"status"` // optional, defaults to interested
	Note   string `json:"note"`
}

// Handler handles RSVP HTTP endpoints.
type Handler struct {
	service *Service
	repo    *Repository
	logger  *zap.Logger
}

// NewHandler creates an RSVP handler.
func NewHandler(service *Service, repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, logger: logger}
}

// Request handles POST /events/:id/rsvp. Creates or updates the caller's
// RSVP. The returned status may differ from the requested one: a going
// request against a full event comes back as waitlist.
func (h *Handler) Request(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req RequestBody
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	desired := models.StatusInterested
	if req.Status != "" {
		desired = models.RSVPStatus(req.Status)
		if !desired.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
	}

	result, err := h.service.RequestStatus(c.Request.Context(), userID, eventID, desired, req.Note)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if result.Created {
		response.Created(c, result.RSVP)
		return
	}
	response.OK(c, result.RSVP)
}

// Cancel handles POST /events/:id/rsvp/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	rv, err := h.service.Cancel(c.Request.Context(), userID, eventID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rv)
}

// MyRSVPs handles GET /rsvps/me. Returns all of the caller's RSVPs, newest first.
func (h *Handler) MyRSVPs(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list rsvps")
		return
	}
	response.OK(c, list)
}

// MyEvents handles GET /rsvps/me/events. Returns events the caller is going
// to, ordered by start time.
func (h *Handler) MyEvents(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListGoingByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var invalid *InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		response.BadRequestWithDetails(c, invalid.Error(), gin.H{
			"from":    invalid.From,
			"to":      invalid.To,
			"allowed": invalid.Allowed,
		})
	case errors.Is(err, ErrEventNotFound):
		response.NotFound(c, "event not found")
	case errors.Is(err, ErrRSVPNotFound):
		response.NotFound(c, "no rsvp found for this event")
	case errors.Is(err, ErrEventPast):
		response.BadRequest(c, "cannot rsvp to past events")
	default:
		h.logger.Error("rsvp request failed", zap.Error(err))
		response.Internal(c, "failed to process rsvp")
	}
}
