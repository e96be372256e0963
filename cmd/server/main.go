package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/config"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/database"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dataverse"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/logging"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/routes"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/scheduler"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdoutHandler := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Optional audit database
	var audit services.AuditLog = services.NopAuditLog{}
	var pgLogHandler *logging.PGHandler
	if cfg.DatabaseEnabled() {
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler = logging.NewPGHandler(database.DB)
		slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, pgLogHandler)))
		audit = services.NewGormAuditLog(database.DB)
	} else {
		slog.Info("DB_HOST not set, running without audit database")
	}

	// Records store
	cred, err := dataverse.NewCredential(cfg.TenantID, cfg.ApplicationID, cfg.ClientSecret)
	if err != nil {
		slog.Error("dataverse credential failed", "error", err)
		os.Exit(1)
	}
	records, err := dataverse.NewClient(cred, dataverse.Config{
		URL: cfg.DataverseURL,
		Fields: dataverse.Fields{
			EntitySet:         cfg.EntityName,
			EntityLogicalName: cfg.EntityNameSingular,
			CustomerID:        cfg.ClientIDField,
			Email:             cfg.EmailField,
			Subscription:      cfg.SubscriptionField,
			SubscriptionID:    cfg.SubscriptionIDField,
		},
		PageSize: cfg.DataversePageSize,
		Timeout:  cfg.HTTPTimeout,
	})
	if err != nil {
		slog.Error("dataverse client failed", "error", err)
		os.Exit(1)
	}

	// Payment provider
	payments := mollie.NewClient(cfg.MollieAPIKey, cfg.MollieAPIURL, cfg.HTTPTimeout)

	// Services
	subscriptionService := services.NewSubscriptionService(payments, records, services.SettingsFromConfig(cfg))
	syncService := services.NewSyncService(payments, records, audit)

	// Handlers
	healthHandler := handlers.NewHealthHandler(database.Ping, database.ErrNotConfigured)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	webhookHandler := handlers.NewWebhookHandler(subscriptionService, audit)
	syncHandler := handlers.NewSyncHandler(syncService, subscriptionService)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Timer triggers
	sched := scheduler.New()
	mustSchedule(sched, "subscription-sync", cfg.SyncSchedule, func(ctx context.Context) error {
		_, err := syncService.Run(ctx, services.TriggerSchedule)
		return err
	})
	mustSchedule(sched, "subscription-monitor", cfg.MonitorSchedule, func(ctx context.Context) error {
		_, err := syncService.Monitor(ctx)
		return err
	})
	if cfg.DatabaseEnabled() {
		mustSchedule(sched, "log-cleanup", "0 30 3 * * *", func(ctx context.Context) error {
			return logging.Cleanup(ctx, database.DB, cfg.LogRetentionDays)
		})
	}
	sched.Start()
	if cfg.SyncRunOnStartup {
		if err := sched.RunNow("subscription-sync"); err != nil {
			slog.Error("startup sync failed to start", "error", err)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, healthHandler, subscriptionHandler, webhookHandler, syncHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := sched.Stop(stopCtx); err != nil {
		slog.Error("scheduler stop error", "error", err)
	}
	cancel()

	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func mustSchedule(s *scheduler.Scheduler, name, spec string, job scheduler.Job) {
	if err := s.Add(name, spec, job); err != nil {
		slog.Error("invalid schedule", "job", name, "error", err)
		os.Exit(1)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
