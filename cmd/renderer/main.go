package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/canopyviz/internal/adapters/earthengine"
	natsadapter "github.com/samirrijal/canopyviz/internal/adapters/nats"
	"github.com/samirrijal/canopyviz/internal/adapters/postgres"
	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/core/ports"
	"github.com/samirrijal/canopyviz/internal/core/usecases"
	"github.com/samirrijal/canopyviz/internal/pkg/config"
	"github.com/samirrijal/canopyviz/internal/pkg/logging"
	"github.com/samirrijal/canopyviz/internal/workflows"
)

func main() {
	cfg, err := config.Load("canopyviz-renderer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, thumbnails will not be announced", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Thumbnails are announced by RecordThumbnail, so the service itself
	// gets no publisher.
	viz := usecases.NewVisualizationService(ee, nil, postgres.NewThumbnailRepo(db), nil, nil, 0)

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
		Logger:   tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	// Every newly registered layer gets a preview thumbnail.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, previews disabled", "error", err)
	} else {
		defer sub.Close()
		err = sub.SubscribeLayers(ctx, func(ctx context.Context, layer *domain.MapLayer) error {
			opts := workflows.PreviewStartOptions(layer.ID, cfg.Temporal.TaskQueue)
			run, err := c.ExecuteWorkflow(ctx, opts, workflows.ThumbnailWorkflow, workflows.PreviewInput(*layer))
			if workflows.IsDuplicateStart(err) {
				slog.Debug("preview already rendered", "layer_id", layer.ID)
				return nil
			}
			if err != nil {
				return err
			}
			slog.Info("preview scheduled", "layer_id", layer.ID, "run_id", run.GetRunID())
			return nil
		})
		if err != nil {
			slog.Warn("subscribe layers failed", "error", err)
		}
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ThumbnailWorkflow)
	w.RegisterActivity(&workflows.ThumbnailActivities{Viz: viz, Events: events})

	slog.Info("renderer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
