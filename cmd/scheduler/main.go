package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate_portal_backend/internal/adapters"
	"estate_portal_backend/internal/appointments/repository"
	"estate_portal_backend/internal/bootstrap"
	"estate_portal_backend/internal/email"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/internal/eventstream"
	"estate_portal_backend/internal/notification"
	"estate_portal_backend/internal/scheduler"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"
	"estate_portal_backend/platform/otelx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelx.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		panic("failed to initialize tracing: " + err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	// Reminder emails go out through the same notification handlers as the API.
	notificationModule := notification.New(email.NewSender(cfg), adapters.NewPropertyDirectory(pool), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	if cfg.IsKafkaEnabled() {
		relay := eventstream.New(cfg, log)
		relay.RegisterHandlers(eventBus)
		defer func() { _ = relay.Close() }()
	}

	worker, err := scheduler.NewWorker(cfg, repository.New(pool, cfg.GetAppointmentLockTimeout()), eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}
