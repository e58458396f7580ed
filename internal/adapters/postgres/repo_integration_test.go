//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/canopyviz/internal/adapters/postgres"
	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/pkg/config"
)

// setupTestDB connects to the database named by the CANOPY_DATABASE_* env.
// Migrations must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Setenv("CANOPY_EARTHENGINE_PROJECT", "integration")
	cfg, err := config.Load("canopy-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestLayerRepo_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewLayerRepo(db)
	ctx := context.Background()

	layer := &domain.MapLayer{
		ID:        uuid.NewString(),
		Name:      domain.CanopyHeightLayerName,
		Dataset:   domain.Dataset(domain.CanopyHeightDataset),
		MapName:   "projects/p/maps/m1",
		TileURL:   "https://earthengine.googleapis.com/v1/projects/p/maps/m1/tiles/{z}/{x}/{y}",
		Vis:       domain.CanopyHeightVis(),
		View:      domain.CanopyView(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.Insert(ctx, layer); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.GetByID(ctx, layer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != layer.Name || !got.Vis.SameStretch(layer.Vis) || got.View != layer.View {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if _, err := repo.GetByID(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestThumbnailRepo_List(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewThumbnailRepo(db)
	ctx := context.Background()

	thumb := &domain.Thumbnail{
		ID:        uuid.NewString(),
		Dataset:   domain.Dataset(domain.CanopyHeightDataset).SelfMasked(),
		ThumbName: "projects/p/thumbnails/t1",
		URL:       "https://earthengine.googleapis.com/v1/projects/p/thumbnails/t1:getPixels",
		Vis:       domain.CanopyThumbnailVis(),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Insert(ctx, thumb); err != nil {
		t.Fatalf("insert: %v", err)
	}

	thumbs, err := repo.List(ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(thumbs) == 0 || thumbs[0].ID != thumb.ID {
		t.Fatalf("expected newest thumbnail first, got %+v", thumbs)
	}
	if thumbs[0].Vis.Dimensions != 4096 || !thumbs[0].Dataset.Masked {
		t.Errorf("unexpected thumbnail: %+v", thumbs[0])
	}
}
