// Package main runs the event-booking platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatherly/backend/config"
	"github.com/gatherly/backend/internal/analytics"
	"github.com/gatherly/backend/internal/auth"
	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/importer"
	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/reviews"
	"github.com/gatherly/backend/internal/rsvp"
	"github.com/gatherly/backend/pkg/database"
	"github.com/gatherly/backend/pkg/queue"
	"github.com/gatherly/backend/pkg/redis"
	"github.com/gatherly/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)

	// RSVPs
	rsvpRepo := rsvp.NewRepository(pool)
	rsvpService := rsvp.NewService(rsvpRepo, rsvp.NewQueueNotifier(jobQueue), logger)
	rsvpHandler := rsvp.NewHandler(rsvpService, rsvpRepo, logger)

	eventHandler := events.NewHandler(eventRepo, rsvpRepo, logger)

	// Reviews
	reviewRepo := reviews.NewRepository(pool)
	reviewHandler := reviews.NewHandler(reviewRepo, eventRepo, logger)

	// Analytics (owner or admin)
	analyticsHandler := analytics.NewHandler(pool, eventRepo)

	// External event providers
	fetchTimeout := time.Duration(cfg.Providers.FetchTimeoutSec) * time.Second
	clients := map[models.Provider]importer.Client{
		models.ProviderTicketmaster: importer.NewTicketmasterClient(cfg.Providers.TicketmasterBaseURL, cfg.Providers.TicketmasterAPIKey, cfg.Providers.PageSize, fetchTimeout),
		models.ProviderSeatGeek:     importer.NewSeatGeekClient(cfg.Providers.SeatGeekBaseURL, cfg.Providers.SeatGeekClientID, cfg.Providers.PageSize, fetchTimeout),
	}
	importerRepo := importer.NewRepository(pool)
	importerService := importer.NewService(importerRepo, eventRepo, clients, rdb.Client, logger)
	importerHandler := importer.NewHandler(importerService, importerRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public reads; an optional JWT upgrades the response shape per caller.
	public := router.Group("")
	public.Use(middleware.OptionalJWT(jwtService))
	{
		public.GET("/events", eventHandler.List)
		public.GET("/events/:id", eventHandler.Get)
		public.GET("/events/:id/attendees", eventHandler.Attendees)
		public.GET("/events/:id/reviews", reviewHandler.ListByEvent)
		public.GET("/categories", eventHandler.ListCategories)
		public.GET("/tags", eventHandler.ListTags)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Event management
		api.POST("/events", middleware.RequireRole("organizer", "admin"), eventHandler.Create)
		api.PATCH("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)
		api.GET("/events/:id/stats", eventHandler.Stats)
		api.GET("/events/:id/analytics", analyticsHandler.GetByEvent)

		// RSVPs
		api.POST("/events/:id/rsvp", rsvpHandler.Request)
		api.POST("/events/:id/rsvp/cancel", rsvpHandler.Cancel)
		api.GET("/rsvps/me", rsvpHandler.MyRSVPs)
		api.GET("/rsvps/me/events", rsvpHandler.MyEvents)

		// Reviews
		api.POST("/events/:id/reviews", reviewHandler.Create)

		// External providers
		api.GET("/external-events", importerHandler.List)
		api.GET("/external-events/search", importerHandler.Search)
		api.POST("/external-events/:id/import", middleware.RequireRole("organizer", "admin"), importerHandler.Import)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
