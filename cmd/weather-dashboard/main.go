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

	httpapi "github.com/sirapopw/weather-dashboard/internal/api/http"
	"github.com/sirapopw/weather-dashboard/internal/auth"
	"github.com/sirapopw/weather-dashboard/internal/config"
	"github.com/sirapopw/weather-dashboard/internal/logging"
	"github.com/sirapopw/weather-dashboard/internal/scheduler"
	"github.com/sirapopw/weather-dashboard/internal/store"
	"github.com/sirapopw/weather-dashboard/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	locationStore := store.NewMemoryStore()
	weatherClient := upstream.NewClient(httpClient, cfg.UpstreamBaseURL)

	deps := httpapi.Deps{
		Weather:        weatherClient,
		Latest:         upstream.NewResponseCache(cfg.LatestCacheTTL),
		Hourly:         upstream.NewResponseCache(cfg.HourlyCacheTTL),
		Daily:          upstream.NewResponseCache(cfg.DailyCacheTTL),
		Locations:      locationStore,
		Issuer:         auth.NewIssuer(cfg.AuthSecret, cfg.TokenTTL),
		DemoUser:       cfg.DemoUser,
		DemoPassword:   cfg.DemoPassword,
		GeocoderAPIKey: cfg.GeocoderAPIKey,
		Logger:         logg,
	}

	// Periodically warm the current-conditions cache for followed cities.
	sched := scheduler.New(locationStore, weatherClient, deps.Latest, cfg.RefreshInterval, logg)
	if err := sched.Start(); err != nil {
		logg.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	httpapi.RegisterRoutes(app, deps)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logg.Error().Err(err).Msg("fiber server stopped")
		}
	}()
	logg.Info().Str("port", cfg.Port).Msg("weather dashboard listening")

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Error().Err(err).Msg("error during shutdown")
	}
}
