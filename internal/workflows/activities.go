package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/core/ports"
	"github.com/samirrijal/canopyviz/internal/core/usecases"
)

// ThumbnailActivities holds the activity implementations for the thumbnail workflow.
type ThumbnailActivities struct {
	Viz    *usecases.VisualizationService
	Events ports.EventPublisher // optional
}

// RenderThumbnail asks the platform for a thumbnail URL.
func (a *ThumbnailActivities) RenderThumbnail(ctx context.Context, input ThumbnailInput) (*domain.Thumbnail, error) {
	thumb, err := a.Viz.Thumbnail(ctx, input.datasetRef(), input.Vis)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", input.Dataset, err)
	}
	return thumb, nil
}

// RecordThumbnail announces a finished thumbnail to subscribers.
func (a *ThumbnailActivities) RecordThumbnail(ctx context.Context, thumb domain.Thumbnail) error {
	logger := activity.GetLogger(ctx)
	if a.Events == nil {
		logger.Info("thumbnail ready (no publisher)", "thumbnail_id", thumb.ID, "url", thumb.URL)
		return nil
	}
	if err := a.Events.PublishThumbnailCreated(ctx, &thumb); err != nil {
		return fmt.Errorf("publish thumbnail %s: %w", thumb.ID, err)
	}
	logger.Info("thumbnail recorded", "thumbnail_id", thumb.ID)
	return nil
}
