package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/models"
)

// SearchParams filters a provider search.
type SearchParams struct {
	Query    string
	Location string
	Category string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Client fetches events from one provider.
type Client interface {
	Search(ctx context.Context, p SearchParams) ([]models.ExternalEvent, error)
}

// fetchDedupTTL suppresses identical provider fetches for this window.
const fetchDedupTTL = 5 * time.Minute

// Service runs provider searches, stages results and imports them as native events.
type Service struct {
	repo      *Repository
	eventRepo *events.Repository
	clients   map[models.Provider]Client
	rdb       *redis.Client
	logger    *zap.Logger
}

// NewService creates an importer service.
func NewService(repo *Repository, eventRepo *events.Repository, clients map[models.Provider]Client, rdb *redis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, eventRepo: eventRepo, clients: clients, rdb: rdb, logger: logger}
}

// Search queries a provider and stages every fetched event. Identical
// searches within the dedup window return the staged rows without hitting
// the provider again.
func (s *Service) Search(ctx context.Context, provider models.Provider, p SearchParams) ([]models.ExternalEvent, error) {
	client, ok := s.clients[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	dedupKey := fmt.Sprintf("importer:search:%s:%s:%s:%s", provider, p.Query, p.Location, p.Category)
	if s.rdb != nil {
		if hit, err := s.rdb.Exists(ctx, dedupKey).Result(); err == nil && hit > 0 {
			s.logger.Debug("provider search served from staged rows", zap.String("provider", string(provider)))
			return s.repo.List(ctx, string(provider), nil)
		}
	}

	fetched, err := client.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	for i := range fetched {
		if err := s.repo.Upsert(ctx, &fetched[i]); err != nil {
			s.logger.Error("stage external event failed",
				zap.Error(err),
				zap.String("external_id", fetched[i].ExternalID),
			)
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, dedupKey, 1, fetchDedupTTL).Err(); err != nil {
			s.logger.Warn("set dedup key failed", zap.Error(err))
		}
	}
	return fetched, nil
}

// Import creates a native event from a staged external event, owned by the
// importing organizer, and links the two.
func (s *Service) Import(ctx context.Context, externalID, organizerID uuid.UUID) (*models.Event, error) {
	ext, err := s.repo.GetByID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if ext.IsImported && ext.ImportedEventID != nil {
		return s.eventRepo.GetByID(ctx, *ext.ImportedEventID)
	}

	e := &models.Event{
		Title:            ext.Title,
		Description:      importDescription(ext),
		Location:         importLocation(ext),
		StartTime:        ext.StartTime,
		CreatedBy:        organizerID,
		ExternalID:       ext.ExternalID,
		ExternalProvider: string(ext.Provider),
	}
	if ext.EndTime != nil {
		e.EndTime = *ext.EndTime
	} else {
		// Providers often omit end times; assume a typical duration.
		e.EndTime = ext.StartTime.Add(3 * time.Hour)
	}
	if ext.Category != "" {
		cat, err := s.eventRepo.GetOrCreateCategory(ctx, ext.Category)
		if err != nil {
			return nil, fmt.Errorf("map category: %w", err)
		}
		e.CategoryID = &cat.ID
	}
	if err := s.eventRepo.Create(ctx, e, ext.Tags); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	if err := s.repo.MarkImported(ctx, ext.ID, e.ID); err != nil {
		return nil, fmt.Errorf("mark imported: %w", err)
	}
	s.logger.Info("external event imported",
		zap.String("external_id", ext.ExternalID),
		zap.String("event_id", e.ID.String()),
	)
	return e, nil
}

// Sync runs a provider search for each configured keyword against every
// registered provider. Used by the background worker.
func (s *Service) Sync(ctx context.Context, keywords []string, location string) {
	for provider := range s.clients {
		for _, kw := range keywords {
			if _, err := s.Search(ctx, provider, SearchParams{Query: kw, Location: location}); err != nil {
				s.logger.Warn("provider sync failed",
					zap.Error(err),
					zap.String("provider", string(provider)),
					zap.String("keyword", kw),
				)
			}
		}
	}
}

func importDescription(ext *models.ExternalEvent) string {
	desc := ext.Description
	if ext.TicketURL != "" {
		if desc != "" {
			desc += "\n\n"
		}
		desc += "Tickets: " + ext.TicketURL
	}
	return desc
}

func importLocation(ext *models.ExternalEvent) string {
	switch {
	case ext.VenueName != "" && ext.Location != "":
		return ext.VenueName + ", " + ext.Location
	case ext.VenueName != "":
		return ext.VenueName
	default:
		return ext.Location
	}
}
