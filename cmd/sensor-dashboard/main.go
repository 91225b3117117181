package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/sensor-dashboard/internal/api/http"
	"github.com/i474232898/sensor-dashboard/internal/auth"
	"github.com/i474232898/sensor-dashboard/internal/config"
	"github.com/i474232898/sensor-dashboard/internal/logging"
	"github.com/i474232898/sensor-dashboard/internal/scheduler"
	"github.com/i474232898/sensor-dashboard/internal/store"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
	"github.com/i474232898/sensor-dashboard/internal/telemetry/thingspeak"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog := logging.NewLogger(cfg.LogLevel)

	// Measurement store.
	// With DB_DRIVER=memory measurements live in process and only users
	// go to the sqlite file.
	var connect store.ConnectorFunc
	var memStore *store.MemoryStore
	switch cfg.DBDriver {
	case "postgres":
		connect = store.NewPostgreSQLConnector(cfg.DBDSN, appLog)
	case "memory":
		memStore = store.NewMemoryStore(cfg.StoreQueryLimit)
		connect = store.NewSQLiteConnector(cfg.DBPath)
	default:
		connect = store.NewSQLiteConnector(cfg.DBPath)
	}
	db, err := store.New(connect, appLog)
	if err != nil {
		appLog.Fatalf("failed to open %s store: %v", cfg.DBDriver, err)
	}
	defer db.Close()

	// Upstream channel with resilience (backoff + circuit breaker).
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	source := thingspeak.NewClient(httpClient, thingspeak.Options{
		BaseURL:   cfg.ThingSpeakURL,
		ChannelID: cfg.ThingSpeakChannel,
		APIKey:    cfg.ThingSpeakAPIKey,
		Results:   cfg.ThingSpeakResults,
	})

	// Core service orchestrating the upstream and the store.
	service := telemetry.NewService(source, cfg.Fields.Titles(), cfg.StoreQueryLimit, appLog)

	if cfg.JWTSecret == "" {
		appLog.Warnf("JWT_SECRET is not set; using a random secret, sessions will not survive a restart")
	}
	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		appLog.Fatalf("failed to set up auth: %v", err)
	}

	// Scheduler that keeps the store warm.
	sched := scheduler.New(cfg.SyncInterval, service, func(ctx context.Context) (telemetry.MeasurementStore, func(), error) {
		if memStore != nil {
			return memStore, func() {}, nil
		}
		sess, err := db.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return sess, sess.Release, nil
	}, appLog)
	if err := sched.Start(); err != nil {
		appLog.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "sensor-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "sensor-dashboard",
		})
	})

	sessions := httpapi.StoreSessions(db)
	if memStore != nil {
		sessions = httpapi.MemorySessions(memStore, db)
	}

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:       service,
		Sessions:      sessions,
		Auth:          tokens,
		Fields:        cfg.Fields,
		ExportLimit:   cfg.ExportLimit,
		SecureCookies: cfg.CookieSecure,
		Log:           appLog,
	})

	go func() {
		appLog.Infof("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLog.Errorf("error during shutdown: %v", err)
	}
}
