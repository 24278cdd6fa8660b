package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/canopyops/geoscene/internal/adapters/geoip"
	"github.com/canopyops/geoscene/internal/adapters/http"
	natsadapter "github.com/canopyops/geoscene/internal/adapters/nats"
	"github.com/canopyops/geoscene/internal/adapters/postgres"
	"github.com/canopyops/geoscene/internal/adapters/stylegl"
	"github.com/canopyops/geoscene/internal/adapters/valkey"
	"github.com/canopyops/geoscene/internal/core/ports"
	"github.com/canopyops/geoscene/internal/core/scene"
	"github.com/canopyops/geoscene/internal/core/usecases"
	"github.com/canopyops/geoscene/internal/pkg/config"
	"github.com/canopyops/geoscene/internal/pkg/logging"
	"github.com/canopyops/geoscene/internal/pkg/metrics"
	"github.com/canopyops/geoscene/internal/pkg/telemetry"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load("geoscene-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.SetupWith(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cache ports.CacheService
	valkeyCache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cache = valkeyCache
		defer valkeyCache.Close()
	}

	// NATS
	var (
		publisher  ports.EventPublisher
		subscriber *natsadapter.Subscriber
	)
	nc, err := natsadapter.Connect(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Drain()
		if p, err := natsadapter.NewPublisher(nc); err != nil {
			slog.Warn("nats publisher unavailable", "error", err)
		} else {
			publisher = p
		}
		if s, err := natsadapter.NewSubscriber(nc); err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			subscriber = s
		}
	}

	// GeoIP
	var geo ports.GeoResolver
	if cfg.GeoIP.DBPath != "" {
		resolver, err := geoip.Open(cfg.GeoIP.DBPath)
		if err != nil {
			slog.Warn("geoip database unavailable", "path", cfg.GeoIP.DBPath, "error", err)
		} else {
			geo = resolver
			defer resolver.Close()
		}
	}

	// Scene
	engines := stylegl.NewHost(stylegl.Options{
		StyleURL: cfg.Mapbox.StyleURL,
		Fetcher:  stylegl.NewHTTPFetcher(cfg.Mapbox.APIBase, 10*time.Second),
		Camera:   cfg.Scene.DefaultView.Camera(),
		Logger:   logger,
	})
	ctrl := scene.NewController(engines.Factory(), scene.Options{
		AccessToken:   cfg.Mapbox.AccessToken,
		Registry:      scene.NewRegistry(cfg.Mapbox.ImageryURL),
		DefaultView:   cfg.Scene.DefaultView.Camera(),
		ResetDuration: cfg.Scene.DefaultView.Duration(),
		Logger:        logger,
	})
	if err := ctrl.Mount(ctx); err != nil {
		// The controller is now errored; viewers get the explanation panel.
		slog.Error("mount scene", "error", err)
	}
	defer ctrl.Unmount()

	// Repos
	pointRepo := postgres.NewPointRepo(db)
	journeyRepo := postgres.NewJourneyRepo(db)

	// Use cases
	snapshots := usecases.NewSnapshotService(pointRepo, journeyRepo, geo, cache, publisher, ctrl, usecases.SnapshotOptions{
		JourneyLimit: cfg.Scene.JourneyLimit,
		ArcSegments:  cfg.Scene.ArcSegments,
		CacheTTL:     cfg.Scene.CacheTTL,
		Facilities:   cfg.Facilities,
		Logger:       logger,
	})
	journeySvc := usecases.NewJourneyService(journeyRepo, cfg.Scene.JourneyLimit)

	go snapshots.Run(ctx, cfg.Scene.RefreshInterval)

	if subscriber != nil {
		err := subscriber.SubscribeChanges(ctx, func(ctx context.Context, subject string) error {
			snapshots.Trigger("event")
			return nil
		})
		if err != nil {
			slog.Warn("subscribe to back-office changes", "error", err)
		}
		defer subscriber.Close()
	}

	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{
		Scene:     ctrl,
		Engines:   engines,
		Snapshots: snapshots,
		Journeys:  journeySvc,
		MapToken:  cfg.Mapbox.AccessToken,
		NATS:      nc,
		DB:        db,
		Cache:     valkeyCache,
		Logger:    logger,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "geoscene",
		ErrorHandler: http.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, Retry-After, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats publishes pool gauges until ctx ends.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		metrics.UpdateDBPoolMetrics(db.Stat())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
