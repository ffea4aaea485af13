package reviews

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// CreateRequest is the body for POST /events/:id/reviews.
type CreateRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// Handler handles review HTTP endpoints.
type Handler struct {
	repo      *Repository
	eventRepo *events.Repository
	logger    *zap.Logger
}

// NewHandler creates a review handler.
func NewHandler(repo *Repository, eventRepo *events.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, eventRepo: eventRepo, logger: logger}
}

// Create handles POST /events/:id/reviews. Only users who attended a past
// event (going RSVP) may review it.
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	event, err := h.eventRepo.GetByID(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	if !event.IsPast(time.Now()) {
		response.BadRequest(c, "can only review past events")
		return
	}
	attended, err := h.repo.HasGoingRSVP(c.Request.Context(), userID, eventID)
	if err != nil {
		response.Internal(c, "failed to check attendance")
		return
	}
	if !attended {
		response.Forbidden(c, "can only review events you attended")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rev := &models.Review{
		UserID:  userID,
		EventID: eventID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := h.repo.Create(c.Request.Context(), rev); err != nil {
		h.logger.Error("create review failed", zap.Error(err))
		response.Internal(c, "failed to create review")
		return
	}
	response.Created(c, rev)
}

// ListByEvent handles GET /events/:id/reviews.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list reviews")
		return
	}
	response.OK(c, list)
}
