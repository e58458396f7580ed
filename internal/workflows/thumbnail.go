package workflows

import (
	"errors"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// ThumbnailInput is the input for the thumbnail workflow.
type ThumbnailInput struct {
	Dataset string
	Masked  bool
	Vis     domain.VisParams
}

func (in ThumbnailInput) datasetRef() domain.DatasetRef {
	d := domain.Dataset(in.Dataset)
	if in.Masked {
		d = d.SelfMasked()
	}
	return d
}

// CanopyThumbnailInput renders the self-masked canopy height image.
func CanopyThumbnailInput() ThumbnailInput {
	return ThumbnailInput{
		Dataset: domain.CanopyHeightDataset,
		Masked:  true,
		Vis:     domain.CanopyThumbnailVis(),
	}
}

// PreviewDimensions is the output size of layer preview thumbnails.
const PreviewDimensions = 1024

// PreviewInput renders a registered layer as a small thumbnail with the
// layer's own stretch and mask.
func PreviewInput(layer domain.MapLayer) ThumbnailInput {
	return ThumbnailInput{
		Dataset: layer.Dataset.ID,
		Masked:  layer.Dataset.Masked,
		Vis:     layer.Vis.WithDimensions(PreviewDimensions),
	}
}

// PreviewWorkflowID keys preview runs by layer.
func PreviewWorkflowID(layerID string) string {
	return "preview-" + layerID
}

// PreviewStartOptions starts at most one preview per layer. A redelivered
// event joins the open run or, once it has closed, is rejected.
func PreviewStartOptions(layerID, taskQueue string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                    PreviewWorkflowID(layerID),
		TaskQueue:             taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
}

// IsDuplicateStart reports whether err means the preview already ran.
func IsDuplicateStart(err error) bool {
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	return errors.As(err, &started)
}

// ThumbnailWorkflow renders a thumbnail and then records it. Rendering is
// attempted exactly once; platform errors fail the workflow unchanged.
func ThumbnailWorkflow(ctx workflow.Context, input ThumbnailInput) (*domain.Thumbnail, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting thumbnail workflow", "dataset", input.Dataset, "dimensions", input.Vis.Dimensions)

	renderCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	var thumb domain.Thumbnail
	if err := workflow.ExecuteActivity(renderCtx, "RenderThumbnail", input).Get(ctx, &thumb); err != nil {
		return nil, err
	}

	recordCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	if err := workflow.ExecuteActivity(recordCtx, "RecordThumbnail", thumb).Get(ctx, nil); err != nil {
		// The URL is already valid; a lost notification should not fail the run.
		logger.Warn("record thumbnail failed", "thumbnail_id", thumb.ID, "error", err)
	}

	logger.Info("Thumbnail workflow completed", "thumbnail_id", thumb.ID)
	return &thumb, nil
}
