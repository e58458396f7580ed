// Command canopy visualizes the GLAD 2020 forest canopy height image: it
// prints the dataset metadata, registers the map layer centred on the
// configured view and prints a 4096 px self-masked thumbnail URL.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/samirrijal/canopyviz/internal/adapters/earthengine"
	natsadapter "github.com/samirrijal/canopyviz/internal/adapters/nats"
	"github.com/samirrijal/canopyviz/internal/adapters/postgres"
	"github.com/samirrijal/canopyviz/internal/adapters/valkey"
	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/core/ports"
	"github.com/samirrijal/canopyviz/internal/core/usecases"
	"github.com/samirrijal/canopyviz/internal/pkg/config"
	"github.com/samirrijal/canopyviz/internal/pkg/logging"
)

func main() {
	fs := pflag.NewFlagSet("canopy", pflag.ExitOnError)
	fs.String("config", "", "path to a YAML config file")
	offline := fs.Bool("offline", false, "skip the database, cache and event broker")
	asJSON := fs.Bool("json", false, "print the full report as JSON")
	fs.String("earthengine.project", "", "Cloud project billed for Earth Engine calls")
	fs.Float64("viewer.center_lon", 10, "map centre longitude")
	fs.Float64("viewer.center_lat", 0, "map centre latitude")
	fs.Int("viewer.zoom", 5, "map zoom level")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadFlags("canopyviz-cli", fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// stdout carries the report
	logging.SetupWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *offline, *asJSON, os.Stdout); err != nil {
		slog.Error("canopy height visualization failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, offline, asJSON bool, out io.Writer) error {
	tokens, err := earthengine.NewTokenSource(ctx, cfg.EarthEngine.AccessToken)
	if err != nil {
		return err
	}
	ee, err := earthengine.New(earthengine.Options{
		BaseURL:     cfg.EarthEngine.BaseURL,
		Project:     cfg.EarthEngine.Project,
		Timeout:     cfg.EarthEngine.RequestTimeout(),
		TokenSource: tokens,
	})
	if err != nil {
		return err
	}

	var (
		layers ports.LayerRepository
		thumbs ports.ThumbnailRepository
		cache  ports.CacheService
		events ports.EventPublisher
		ttl    int
	)
	if !offline {
		if db, err := postgres.New(ctx, cfg.Database.DSN()); err != nil {
			slog.Warn("database unavailable, results will not be stored", "error", err)
		} else {
			defer db.Close()
			layers = postgres.NewLayerRepo(db)
			thumbs = postgres.NewThumbnailRepo(db)
		}
		if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
			ttl = cfg.EarthEngine.ThumbnailTTL
		}
		if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	viz := usecases.NewVisualizationService(ee, layers, thumbs, cache, events, ttl)
	view := domain.NewMapView(cfg.Viewer.CenterLon, cfg.Viewer.CenterLat, cfg.Viewer.Zoom)

	report, err := viz.CanopyHeight(ctx, view)
	if err != nil {
		return err
	}
	return printReport(out, report, asJSON)
}

func printReport(w io.Writer, r *usecases.CanopyReport, asJSON bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if asJSON {
		return enc.Encode(r)
	}
	if err := enc.Encode(r.Dataset); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s\n", r.Layer.Name, r.Layer.TileURL)
	_, err := fmt.Fprintln(w, r.Thumbnail.URL)
	return err
}
