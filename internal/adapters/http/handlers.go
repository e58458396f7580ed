package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/pkg/colorramp"
	"github.com/samirrijal/canopyviz/internal/pkg/geospatial"
)

// visRequest is the JSON form of a visualization parameter set. A nil
// request selects the canopy height preset.
type visRequest struct {
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	Palette    []string `json:"palette"`
	Dimensions int      `json:"dimensions"`
}

func (v *visRequest) params() domain.VisParams {
	out := domain.CanopyHeightVis()
	if v == nil {
		return out
	}
	if v.Min != nil {
		out.Min = *v.Min
	}
	if v.Max != nil {
		out.Max = *v.Max
	}
	if len(v.Palette) > 0 {
		out.Palette = domain.NormalizePalette(v.Palette)
	}
	out.Dimensions = v.Dimensions
	return out
}

type layerRequest struct {
	Dataset string          `json:"dataset"`
	Masked  bool            `json:"masked"`
	Name    string          `json:"name"`
	Vis     *visRequest     `json:"vis"`
	View    *domain.MapView `json:"view"`
}

type thumbnailRequest struct {
	Dataset string      `json:"dataset"`
	Masked  *bool       `json:"masked"` // default true
	Vis     *visRequest `json:"vis"`
}

// DescribeDatasetHandler returns catalog metadata for the dataset id in the path.
func DescribeDatasetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.Trim(c.Params("*"), "/")
		if id == "" {
			return errBadRequest(c, "dataset id is required")
		}
		info, err := deps.Viz.Describe(c.UserContext(), id)
		if err != nil {
			return errFromUsecase(c, err)
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(info)
	}
}

// CreateLayerHandler registers a map layer.
func CreateLayerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req layerRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		dataset := domain.Dataset(req.Dataset)
		name := req.Name
		if dataset.ID == "" {
			dataset.ID = domain.CanopyHeightDataset
			if name == "" {
				name = domain.CanopyHeightLayerName
			}
		}
		if req.Masked {
			dataset = dataset.SelfMasked()
		}
		view := deps.View
		if req.View != nil {
			view = *req.View
		}

		layer, err := deps.Viz.Display(c.UserContext(), dataset, req.Vis.params(), name, view)
		if err != nil {
			return errFromUsecase(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(layer)
	}
}

// ListLayersHandler returns recently registered layers.
func ListLayersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		layers, err := deps.Viz.ListLayers(c.UserContext(), c.QueryInt("limit", 20))
		if err != nil {
			return errFromUsecase(c, err)
		}
		if layers == nil {
			layers = []domain.MapLayer{}
		}
		return c.JSON(fiber.Map{"data": layers, "count": len(layers)})
	}
}

// GetLayerHandler returns a single layer with its viewport.
func GetLayerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		layer, err := deps.Viz.GetLayer(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromUsecase(c, err)
		}
		w := c.QueryInt("width", 1024)
		h := c.QueryInt("height", 768)
		if w <= 0 || w > 8192 || h <= 0 || h > 8192 {
			return errBadRequest(c, "width and height must be between 1 and 8192")
		}
		return c.JSON(fiber.Map{
			"layer":    layer,
			"viewport": geospatial.ViewBounds(layer.View, w, h),
		})
	}
}

// CreateThumbnailHandler requests a thumbnail URL. The dataset is
// self-masked unless "masked": false is sent.
func CreateThumbnailHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req thumbnailRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		dataset := domain.Dataset(req.Dataset)
		if dataset.ID == "" {
			dataset.ID = domain.CanopyHeightDataset
		}
		if req.Masked == nil || *req.Masked {
			dataset = dataset.SelfMasked()
		}
		vis := req.Vis.params()
		if vis.Dimensions == 0 {
			vis.Dimensions = domain.CanopyThumbnailDimensions
		}

		thumb, err := deps.Viz.Thumbnail(c.UserContext(), dataset, vis)
		if err != nil {
			return errFromUsecase(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(thumb)
	}
}

// ListThumbnailsHandler returns recently generated thumbnails.
func ListThumbnailsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		thumbs, err := deps.Viz.ListThumbnails(c.UserContext(), c.QueryInt("limit", 20))
		if err != nil {
			return errFromUsecase(c, err)
		}
		if thumbs == nil {
			thumbs = []domain.Thumbnail{}
		}
		return c.JSON(fiber.Map{"data": thumbs, "count": len(thumbs)})
	}
}

// CanopyPreset is the canopy height visualization in one document.
type CanopyPreset struct {
	Dataset      string                  `json:"dataset"`
	LayerName    string                  `json:"layer_name"`
	Vis          domain.VisParams        `json:"vis"`
	ThumbnailVis domain.VisParams        `json:"thumbnail_vis"`
	View         domain.MapView          `json:"view"`
	Legend       []colorramp.LegendEntry `json:"legend"`
}

func canopyPreset() (*CanopyPreset, error) {
	vis := domain.CanopyHeightVis()
	ramp, err := colorramp.New(vis)
	if err != nil {
		return nil, err
	}
	return &CanopyPreset{
		Dataset:      domain.CanopyHeightDataset,
		LayerName:    domain.CanopyHeightLayerName,
		Vis:          vis,
		ThumbnailVis: domain.CanopyThumbnailVis(),
		View:         domain.CanopyView(),
		Legend:       ramp.Legend(len(vis.Palette)),
	}, nil
}

// CanopyPresetHandler returns the canopy height parameters and legend.
func CanopyPresetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		preset, err := canopyPreset()
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(preset)
	}
}
