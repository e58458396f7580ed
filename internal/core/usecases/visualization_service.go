package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/core/ports"
	"github.com/samirrijal/canopyviz/internal/pkg/metrics"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// VisualizationService registers map layers and requests thumbnails for
// catalog datasets. Layers, thumbnails, cache and events may each be nil.
type VisualizationService struct {
	ee        ports.EarthEngine
	layers    ports.LayerRepository
	thumbs    ports.ThumbnailRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	thumbTTL  int
	now       func() time.Time
}

// NewVisualizationService creates a new VisualizationService.
// thumbnailTTL is the cache lifetime of a thumbnail URL in seconds; zero
// disables caching.
func NewVisualizationService(
	ee ports.EarthEngine,
	layers ports.LayerRepository,
	thumbs ports.ThumbnailRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	thumbnailTTL int,
) *VisualizationService {
	return &VisualizationService{
		ee:        ee,
		layers:    layers,
		thumbs:    thumbs,
		cache:     cache,
		publisher: publisher,
		thumbTTL:  thumbnailTTL,
		now:       time.Now,
	}
}

// Describe returns catalog metadata for a dataset.
func (s *VisualizationService) Describe(ctx context.Context, datasetID string) (*domain.DatasetInfo, error) {
	if err := domain.Dataset(datasetID).Validate(); err != nil {
		return nil, err
	}
	info, err := s.ee.GetAsset(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", datasetID, err)
	}
	return info, nil
}

// Display registers dataset rendered with vis as a named interactive layer.
// Dimensions on vis are ignored.
func (s *VisualizationService) Display(ctx context.Context, dataset domain.DatasetRef, vis domain.VisParams, name string, view domain.MapView) (*domain.MapLayer, error) {
	if err := dataset.Validate(); err != nil {
		return nil, err
	}
	vis = vis.WithDimensions(0)
	if err := vis.Validate(); err != nil {
		return nil, err
	}
	if err := view.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = dataset.ID
	}

	handle, err := s.ee.CreateMap(ctx, dataset, vis)
	if err != nil {
		return nil, fmt.Errorf("create map: %w", err)
	}

	layer := &domain.MapLayer{
		ID:        uuid.NewString(),
		Name:      name,
		Dataset:   dataset,
		MapName:   handle.Name,
		TileURL:   handle.TileURL,
		Vis:       vis,
		View:      view,
		CreatedAt: s.now().UTC(),
	}

	if s.layers != nil {
		if err := s.layers.Insert(ctx, layer); err != nil {
			return nil, fmt.Errorf("save layer: %w", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishLayerRegistered(ctx, layer); err != nil {
			slog.WarnContext(ctx, "publish layer event failed", "layer_id", layer.ID, "error", err)
		}
	}
	metrics.LayersRegistered.WithLabelValues(dataset.ID).Inc()

	slog.InfoContext(ctx, "map layer registered", "layer_id", layer.ID, "name", name, "map", handle.Name)
	return layer, nil
}

// Thumbnail renders dataset with vis and returns a hosted image URL.
// vis.Dimensions must be set.
func (s *VisualizationService) Thumbnail(ctx context.Context, dataset domain.DatasetRef, vis domain.VisParams) (*domain.Thumbnail, error) {
	if err := dataset.Validate(); err != nil {
		return nil, err
	}
	if err := vis.Validate(); err != nil {
		return nil, err
	}
	if vis.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: thumbnail dimensions are required", domain.ErrInvalidParams)
	}

	cacheKey := thumbnailCacheKey(dataset, vis)
	if s.cache != nil && s.thumbTTL > 0 {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var thumb domain.Thumbnail
			if err := json.Unmarshal(data, &thumb); err == nil {
				metrics.CacheHits.WithLabelValues("thumbnail").Inc()
				return &thumb, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("thumbnail").Inc()
	}

	handle, err := s.ee.CreateThumbnail(ctx, dataset, vis)
	if err != nil {
		return nil, fmt.Errorf("create thumbnail: %w", err)
	}
	if err := checkURL(handle.URL); err != nil {
		return nil, err
	}

	thumb := &domain.Thumbnail{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		ThumbName: handle.Name,
		URL:       handle.URL,
		Vis:       vis,
		CreatedAt: s.now().UTC(),
	}

	if s.thumbs != nil {
		if err := s.thumbs.Insert(ctx, thumb); err != nil {
			return nil, fmt.Errorf("save thumbnail: %w", err)
		}
	}
	if s.cache != nil && s.thumbTTL > 0 {
		if data, err := json.Marshal(thumb); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.thumbTTL)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishThumbnailCreated(ctx, thumb); err != nil {
			slog.WarnContext(ctx, "publish thumbnail event failed", "thumbnail_id", thumb.ID, "error", err)
		}
	}
	metrics.ThumbnailsGenerated.WithLabelValues(dataset.ID).Inc()

	slog.InfoContext(ctx, "thumbnail generated", "thumbnail_id", thumb.ID, "dimensions", vis.Dimensions)
	return thumb, nil
}

// GetLayer returns a registered layer by id. Ids that are not UUIDs are
// reported as not found.
func (s *VisualizationService) GetLayer(ctx context.Context, id string) (*domain.MapLayer, error) {
	if s.layers == nil {
		return nil, fmt.Errorf("layer %s: %w", id, domain.ErrNotFound)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("layer %q: %w", id, domain.ErrNotFound)
	}
	return s.layers.GetByID(ctx, id)
}

// ListLayers returns the most recently registered layers.
func (s *VisualizationService) ListLayers(ctx context.Context, limit int) ([]domain.MapLayer, error) {
	if s.layers == nil {
		return nil, nil
	}
	return s.layers.List(ctx, clampLimit(limit))
}

// ListThumbnails returns the most recently generated thumbnails.
func (s *VisualizationService) ListThumbnails(ctx context.Context, limit int) ([]domain.Thumbnail, error) {
	if s.thumbs == nil {
		return nil, nil
	}
	return s.thumbs.List(ctx, clampLimit(limit))
}

// CanopyReport is the outcome of the canopy height visualization run.
type CanopyReport struct {
	Dataset   *domain.DatasetInfo `json:"dataset"`
	View      domain.MapView      `json:"view"`
	Layer     *domain.MapLayer    `json:"layer"`
	Thumbnail *domain.Thumbnail   `json:"thumbnail"`
}

// CanopyHeight describes the canopy height dataset, registers it as a map
// layer centred on view, then requests a self-masked 4096 px thumbnail.
func (s *VisualizationService) CanopyHeight(ctx context.Context, view domain.MapView) (*CanopyReport, error) {
	dataset := domain.Dataset(domain.CanopyHeightDataset)

	info, err := s.Describe(ctx, dataset.ID)
	if err != nil {
		return nil, err
	}

	layer, err := s.Display(ctx, dataset, domain.CanopyHeightVis(), domain.CanopyHeightLayerName, view)
	if err != nil {
		return nil, err
	}

	thumb, err := s.Thumbnail(ctx, dataset.SelfMasked(), domain.CanopyThumbnailVis())
	if err != nil {
		return nil, err
	}

	return &CanopyReport{Dataset: info, View: view, Layer: layer, Thumbnail: thumb}, nil
}

func thumbnailCacheKey(dataset domain.DatasetRef, vis domain.VisParams) string {
	data, _ := json.Marshal(struct {
		D domain.DatasetRef
		V domain.VisParams
	}{dataset, vis})
	sum := sha256.Sum256(data)
	return "thumb:" + hex.EncodeToString(sum[:12])
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("thumbnail url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" || u.Path == "" {
		return fmt.Errorf("thumbnail url %q is missing scheme, host or path", raw)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
