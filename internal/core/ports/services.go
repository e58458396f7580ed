package ports

import (
	"context"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// MapHandle identifies a map registered on the rendering platform.
type MapHandle struct {
	Name    string
	TileURL string
}

// ThumbnailHandle identifies a rendered thumbnail on the platform.
type ThumbnailHandle struct {
	Name string
	URL  string
}

// EarthEngine is the hosted catalog and rendering platform.
type EarthEngine interface {
	GetAsset(ctx context.Context, id string) (*domain.DatasetInfo, error)
	CreateMap(ctx context.Context, dataset domain.DatasetRef, vis domain.VisParams) (*MapHandle, error)
	CreateThumbnail(ctx context.Context, dataset domain.DatasetRef, vis domain.VisParams) (*ThumbnailHandle, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishLayerRegistered(ctx context.Context, layer *domain.MapLayer) error
	PublishThumbnailCreated(ctx context.Context, thumb *domain.Thumbnail) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeLayers(ctx context.Context, handler func(ctx context.Context, layer *domain.MapLayer) error) error
	SubscribeThumbnails(ctx context.Context, handler func(ctx context.Context, thumb *domain.Thumbnail) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
