// Package main runs the background worker: RSVP notification delivery and
// the periodic external-provider sync.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatherly/backend/config"
	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/importer"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/notifier"
	"github.com/gatherly/backend/pkg/database"
	"github.com/gatherly/backend/pkg/queue"
	"github.com/gatherly/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)

	var mailer notifier.Mailer
	if cfg.Email.SMTPHost != "" {
		mailer = notifier.NewSMTPMailer(cfg.Email)
	} else {
		mailer = notifier.NewLogMailer(logger)
	}
	processor := notifier.NewProcessor(pool, mailer, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go processor.Run(workerCtx)

	if cfg.Worker.ProviderSyncMinutes > 0 {
		fetchTimeout := time.Duration(cfg.Providers.FetchTimeoutSec) * time.Second
		clients := map[models.Provider]importer.Client{}
		if cfg.Providers.TicketmasterAPIKey != "" {
			clients[models.ProviderTicketmaster] = importer.NewTicketmasterClient(cfg.Providers.TicketmasterBaseURL, cfg.Providers.TicketmasterAPIKey, cfg.Providers.PageSize, fetchTimeout)
		}
		clients[models.ProviderSeatGeek] = importer.NewSeatGeekClient(cfg.Providers.SeatGeekBaseURL, cfg.Providers.SeatGeekClientID, cfg.Providers.PageSize, fetchTimeout)

		eventRepo := events.NewRepository(pool)
		importerRepo := importer.NewRepository(pool)
		importerService := importer.NewService(importerRepo, eventRepo, clients, rdb.Client, logger)

		go runProviderSync(workerCtx, importerService, cfg.Worker, logger)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}

func runProviderSync(ctx context.Context, svc *importer.Service, cfg config.WorkerConfig, logger *zap.Logger) {
	interval := time.Duration(cfg.ProviderSyncMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("provider sync started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Sync(ctx, cfg.Keywords(), cfg.SyncLocation)
		}
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
