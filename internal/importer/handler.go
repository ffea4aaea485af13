package importer

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// Handler handles external event HTTP endpoints.
type Handler struct {
	service *Service
	repo    *Repository
	logger  *zap.Logger
}

// NewHandler creates an importer handler.
func NewHandler(service *Service, repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, logger: logger}
}

// List handles GET /external-events. Optional ?provider= and ?imported= filters.
func (h *Handler) List(c *gin.Context) {
	provider := c.Query("provider")
	var imported *bool
	switch c.Query("imported") {
	case "":
	case "true", "1":
		v := true
		imported = &v
	case "false", "0":
		v := false
		imported = &v
	default:
		response.BadRequest(c, "invalid imported filter")
		return
	}
	list, err := h.repo.List(c.Request.Context(), provider, imported)
	if err != nil {
		response.Internal(c, "failed to list external events")
		return
	}
	response.OK(c, list)
}

// Search handles GET /external-events/search. Queries the provider API and
// stages the results.
func (h *Handler) Search(c *gin.Context) {
	provider := models.Provider(c.DefaultQuery("provider", string(models.ProviderTicketmaster)))
	if provider != models.ProviderTicketmaster && provider != models.ProviderSeatGeek {
		response.BadRequest(c, "unsupported provider")
		return
	}
	params := SearchParams{
		Query:    c.Query("q"),
		Location: c.Query("location"),
		Category: c.Query("category"),
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
		params.DateTo = &t
	}

	list, err := h.service.Search(c.Request.Context(), provider, params)
	if err != nil {
		h.logger.Error("provider search failed", zap.Error(err), zap.String("provider", string(provider)))
		response.ServiceUnavailable(c, "provider search failed")
		return
	}
	response.OK(c, gin.H{
		"events":   list,
		"total":    len(list),
		"provider": provider,
	})
}

// Import handles POST /external-events/:id/import (organizer or admin).
func (h *Handler) Import(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid external event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	event, err := h.service.Import(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, ErrExternalEventNotFound) {
			response.NotFound(c, "external event not found")
			return
		}
		h.logger.Error("import external event failed", zap.Error(err))
		response.Internal(c, "failed to import event")
		return
	}
	response.Created(c, event)
}
