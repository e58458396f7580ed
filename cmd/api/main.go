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

	"github.com/samirrijal/canopyviz/internal/adapters/earthengine"
	"github.com/samirrijal/canopyviz/internal/adapters/http"
	natsadapter "github.com/samirrijal/canopyviz/internal/adapters/nats"
	"github.com/samirrijal/canopyviz/internal/adapters/postgres"
	"github.com/samirrijal/canopyviz/internal/adapters/valkey"
	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/core/ports"
	"github.com/samirrijal/canopyviz/internal/core/usecases"
	"github.com/samirrijal/canopyviz/internal/pkg/config"
	"github.com/samirrijal/canopyviz/internal/pkg/logging"
	"github.com/samirrijal/canopyviz/internal/pkg/metrics"
	"github.com/samirrijal/canopyviz/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("canopyviz-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Earth Engine
	tokens, err := earthengine.NewTokenSource(ctx, cfg.EarthEngine.AccessToken)
	if err != nil {
		log.Fatalf("earthengine: %v", err)
	}
	ee, err := earthengine.New(earthengine.Options{
		BaseURL:     cfg.EarthEngine.BaseURL,
		Project:     cfg.EarthEngine.Project,
		Timeout:     cfg.EarthEngine.RequestTimeout(),
		TokenSource: tokens,
	})
	if err != nil {
		log.Fatalf("earthengine: %v", err)
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	viz := usecases.NewVisualizationService(
		ee,
		postgres.NewLayerRepo(db),
		postgres.NewThumbnailRepo(db),
		cache,
		events,
		cfg.EarthEngine.ThumbnailTTL,
	)

	deps := &http.Dependencies{
		Viz:   viz,
		View:  domain.NewMapView(cfg.Viewer.CenterLon, cfg.Viewer.CenterLat, cfg.Viewer.Zoom),
		NATS:  natsConn,
		DB:    db,
		Cache: vc,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "canopyviz API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "project", cfg.EarthEngine.Project)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		}
	}
}
