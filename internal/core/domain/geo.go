package domain

import "fmt"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// MaxZoom is the deepest zoom level accepted for a map view.
const MaxZoom = 24

// MapView is the centre and zoom level of an interactive map.
type MapView struct {
	Center GeoPoint `json:"center"`
	Zoom   int      `json:"zoom"`
}

// NewMapView builds a view from lon/lat order, the order map clients use.
func NewMapView(lon, lat float64, zoom int) MapView {
	return MapView{Center: GeoPoint{Lat: lat, Lon: lon}, Zoom: zoom}
}

// Validate checks coordinate ranges and zoom level.
func (v MapView) Validate() error {
	if v.Center.Lat < -90 || v.Center.Lat > 90 {
		return fmt.Errorf("%w: latitude %.4f out of range [-90, 90]", ErrInvalidParams, v.Center.Lat)
	}
	if v.Center.Lon < -180 || v.Center.Lon > 180 {
		return fmt.Errorf("%w: longitude %.4f out of range [-180, 180]", ErrInvalidParams, v.Center.Lon)
	}
	if v.Zoom < 0 || v.Zoom > MaxZoom {
		return fmt.Errorf("%w: zoom %d out of range [0, %d]", ErrInvalidParams, v.Zoom, MaxZoom)
	}
	return nil
}
