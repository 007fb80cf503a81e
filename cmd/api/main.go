package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate_portal_backend/internal/abuse"
	"estate_portal_backend/internal/adapters"
	"estate_portal_backend/internal/appointments"
	"estate_portal_backend/internal/appointments/service"
	"estate_portal_backend/internal/bootstrap"
	"estate_portal_backend/internal/email"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/internal/eventstream"
	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/internal/http/router"
	"estate_portal_backend/internal/notification"
	"estate_portal_backend/internal/scheduler"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/db"
	"estate_portal_backend/platform/logger"
	"estate_portal_backend/platform/otelx"
	"estate_portal_backend/platform/validator"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelx.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		panic("failed to initialize tracing: " + err.Error())
	}

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := bootstrap.WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	properties := adapters.NewPropertyDirectory(pool)
	agents := adapters.NewAgentDirectory(pool)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events and serves the staff live feed
	notificationModule := notification.New(email.NewSender(cfg), properties, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	var relay *eventstream.Relay
	if cfg.IsKafkaEnabled() {
		relay = eventstream.New(cfg, log)
		relay.RegisterHandlers(eventBus)
	}

	deps := service.Deps{
		Properties: properties,
		Agents:     agents,
		EventBus:   eventBus,
		Log:        log,
	}
	if reminderScheduler != nil {
		deps.Reminders = reminderScheduler
	}
	if cfg.IsAbuseScoringEnabled() {
		deps.Scorer = abuse.NewRecaptchaScorer(cfg)
	}

	appointmentsModule, err := appointments.NewModule(pool, val, deps, appointmentSettings(cfg), cfg.GetAppointmentLockTimeout())
	if err != nil {
		log.Error("failed to initialize appointments module", "error", err)
		panic("failed to initialize appointments module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			appointmentsModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(engine, cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// SSE streams never finish on their own
		notificationModule.SSE().Close()
		err := server.Shutdown(shutdownCtx)
		eventBus.Wait()
		if relay != nil {
			if cerr := relay.Close(); cerr != nil {
				log.Warn("event stream relay close failed", "error", cerr)
			}
		}
		if terr := shutdownTracing(shutdownCtx); terr != nil {
			log.Warn("tracing shutdown failed", "error", terr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	log.Info("server stopped")
}

func appointmentSettings(cfg *config.Config) service.Settings {
	settings := service.DefaultSettings()
	settings.DuplicateWindow = cfg.GetDuplicateRequestWindow()
	settings.ViewableStatuses = cfg.GetViewablePropertyStatuses()
	settings.ScoringEnabled = cfg.IsAbuseScoringEnabled()
	settings.ScoreThreshold = cfg.GetAbuseScoreThreshold()
	settings.ReminderLeadTime = cfg.GetReminderLeadTime()
	settings.Location = cfg.GetAppointmentLocation()
	return settings
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; appointment reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}
