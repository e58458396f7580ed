package domain

// Forest canopy height 2020 (GLAD, University of Maryland), metres.
const (
	CanopyHeightDataset       = "projects/glad/GLCLU2020/Forest_height_2020"
	CanopyHeightLayerName     = "Forest Canopy Height"
	CanopyThumbnailDimensions = 4096
)

var canopyPalette = []string{
	"ffffff", "fcd163", "99b718", "66a000", "3e8601", "207401", "056201",
	"004c00", "011301",
}

// CanopyHeightVis returns the display stretch for canopy height: 3 m to 30 m.
func CanopyHeightVis() VisParams {
	return VisParams{
		Min:     3,
		Max:     30,
		Palette: Palette(canopyPalette).Clone(),
	}
}

// CanopyThumbnailVis is CanopyHeightVis with the thumbnail output size set.
func CanopyThumbnailVis() VisParams {
	return CanopyHeightVis().WithDimensions(CanopyThumbnailDimensions)
}

// CanopyView is the default map view over central Africa.
func CanopyView() MapView {
	return NewMapView(10, 0, 5)
}
