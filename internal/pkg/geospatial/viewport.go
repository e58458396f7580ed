package geospatial

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

const (
	tileSize = 256.0
	// maxMercatorLat is the latitude at which Web Mercator becomes square.
	maxMercatorLat = 85.05112878
)

// Viewport describes what a map of a given pixel size shows around a view.
type Viewport struct {
	Center       domain.GeoPoint `json:"center"`
	Zoom         int             `json:"zoom"`
	Bounds       domain.Bounds   `json:"bounds"`
	DiagonalKm   float64         `json:"diagonal_km"`
	WidthPixels  int             `json:"width_px"`
	HeightPixels int             `json:"height_px"`
}

// ViewBounds computes the Web Mercator viewport of a map widthPx x heightPx
// pixels centred on view. Longitudes are clamped to [-180, 180] rather than
// wrapped, so a world-sized viewport reports the whole globe.
func ViewBounds(view domain.MapView, widthPx, heightPx int) Viewport {
	ll := s2.LatLngFromDegrees(view.Center.Lat, view.Center.Lon).Normalized()
	lat := clamp(ll.Lat.Degrees(), -maxMercatorLat, maxMercatorLat)
	lon := ll.Lng.Degrees()

	worldPx := tileSize * math.Exp2(float64(view.Zoom))
	cx, cy := project(lat, lon, worldPx)

	halfW, halfH := float64(widthPx)/2, float64(heightPx)/2
	north, west := unproject(cx-halfW, cy-halfH, worldPx)
	south, east := unproject(cx+halfW, cy+halfH, worldPx)

	b := domain.Bounds{
		MinLat: clamp(south, -maxMercatorLat, maxMercatorLat),
		MaxLat: clamp(north, -maxMercatorLat, maxMercatorLat),
		MinLon: clamp(west, -180, 180),
		MaxLon: clamp(east, -180, 180),
	}

	return Viewport{
		Center:       domain.GeoPoint{Lat: lat, Lon: lon},
		Zoom:         view.Zoom,
		Bounds:       b,
		DiagonalKm:   Haversine(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon) / 1000,
		WidthPixels:  widthPx,
		HeightPixels: heightPx,
	}
}

// project converts degrees to global pixel coordinates at the given world size.
func project(lat, lon, worldPx float64) (x, y float64) {
	x = (lon + 180) / 360 * worldPx
	sin := math.Sin(toRad(lat))
	y = (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * worldPx
	return x, y
}

func unproject(x, y, worldPx float64) (lat, lon float64) {
	lon = x/worldPx*360 - 180
	n := math.Pi - 2*math.Pi*y/worldPx
	lat = math.Atan(math.Sinh(n)) * 180 / math.Pi
	return lat, lon
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
