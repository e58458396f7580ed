package ports

import (
	"context"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// LayerRepository persists registered map layers.
type LayerRepository interface {
	Insert(ctx context.Context, layer *domain.MapLayer) error
	GetByID(ctx context.Context, id string) (*domain.MapLayer, error)
	List(ctx context.Context, limit int) ([]domain.MapLayer, error)
}

// ThumbnailRepository persists generated thumbnails.
type ThumbnailRepository interface {
	Insert(ctx context.Context, thumb *domain.Thumbnail) error
	List(ctx context.Context, limit int) ([]domain.Thumbnail, error)
}
