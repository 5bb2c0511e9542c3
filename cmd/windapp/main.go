package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpapi "github.com/i474232898/windapp/internal/api/http"
	"github.com/i474232898/windapp/internal/config"
	"github.com/i474232898/windapp/internal/runner"
	"github.com/i474232898/windapp/internal/scheduler"
	"github.com/i474232898/windapp/internal/weather"
	"github.com/i474232898/windapp/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	// Single background runner that executes every forecast fetch.
	bg := runner.New()
	defer bg.Close()

	provider := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL)
	service := weather.NewService(provider, bg, cfg.FetchTimeout)

	if cfg.Chart.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Chart.Path), 0o755); err != nil {
			log.Fatalf("failed to create chart directory: %v", err)
		}
	}

	// Optional job keeping the chart for the configured location fresh.
	if cfg.Chart.RefreshEnabled() {
		sched := scheduler.New(service, *cfg.Chart.Lat, *cfg.Chart.Lon, cfg.Chart.Path, cfg.Chart.Interval)
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "windapp",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Must outlast the fetch timeout so the 500 body can still be written.
		WriteTimeout: cfg.FetchTimeout + 10*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "windapp",
		})
	})

	httpapi.RegisterRoutes(app, service, httpapi.Options{
		ChartEnabled: cfg.Chart.Enabled,
		ChartPath:    cfg.Chart.Path,
	})

	go func() {
		log.Printf("INFO: listening on :%s (forecast source: %s)", cfg.Port, service.ForecastSource())
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
