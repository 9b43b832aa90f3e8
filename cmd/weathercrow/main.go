package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	httpapi "github.com/i474232898/weathercrow/internal/api/http"
	"github.com/i474232898/weathercrow/internal/config"
	"github.com/i474232898/weathercrow/internal/flashfs"
	"github.com/i474232898/weathercrow/internal/scheduler"
	"github.com/i474232898/weathercrow/internal/store"
	"github.com/i474232898/weathercrow/internal/weather"
	"github.com/i474232898/weathercrow/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	location := cfg.Location
	if !location.HasCoordinates() {
		resolved, err := providers.ResolveLocation(location, cfg.GeocoderAPIKey)
		if err != nil {
			log.Printf("ERROR: cannot resolve coordinates for %q: %v", location.Name, err)
		}
		location = resolved
	}

	// Flash-style record store. A failed mount is retried by every fetch cycle.
	fsys := flashfs.NewDir(cfg.DataDir)
	recordStore := store.New(fsys)
	storageReady := true
	if err := recordStore.Initialize(); err != nil {
		log.Printf("ERROR: storage unavailable, serving defaults until it mounts: %v", err)
		storageReady = false
	}

	// OpenWeatherMap first when a key is configured; Open-Meteo needs none.
	var fetchers []weather.Fetcher
	if cfg.OpenWeatherAPIKey != "" {
		fetchers = append(fetchers, providers.NewOpenWeatherFetcher(httpClient, cfg.OpenWeatherAPIKey, cfg.Units))
	}
	fetchers = append(fetchers, providers.NewOpenMeteoFetcher(httpClient, cfg.Units))

	service := weather.NewService(recordStore, providers.NewFailover(fetchers...), location, storageReady)
	if n := service.FailureCount(); n > 0 {
		log.Printf("INFO: resuming after %d consecutive fetch failures", n)
	}

	// Scheduler that periodically fetches and stores data.
	sched := scheduler.New(cfg.RefreshInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp()

	// Global middleware
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(recover.New())

	httpapi.RegisterHealth(app, service, fsys)
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: weathercrow listening on :%s, refreshing %s every %s", cfg.Port, location.Key(), cfg.RefreshInterval)

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
