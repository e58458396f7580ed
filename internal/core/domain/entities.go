package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Palette is an ordered list of 6-digit hex colours, lowest value first.
type Palette []string

// NormalizePalette strips leading '#' and lowercases every entry.
func NormalizePalette(colors []string) Palette {
	p := make(Palette, len(colors))
	for i, c := range colors {
		p[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "#"))
	}
	return p
}

// Validate checks that the palette is non-empty and every entry is a hex colour.
func (p Palette) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: palette must not be empty", ErrInvalidParams)
	}
	for i, c := range p {
		if !IsHexColor(c) {
			return fmt.Errorf("%w: palette[%d] %q is not a 6-digit hex colour", ErrInvalidParams, i, c)
		}
	}
	return nil
}

// Clone returns an independent copy.
func (p Palette) Clone() Palette {
	if p == nil {
		return nil
	}
	out := make(Palette, len(p))
	copy(out, p)
	return out
}

// IsHexColor reports whether s is exactly six hex digits (no '#').
func IsHexColor(s string) bool {
	if len(s) != 6 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// VisParams is a visualization parameter set: a linear stretch from Min to Max
// rendered through Palette. Dimensions is only meaningful for thumbnails;
// zero means unset.
type VisParams struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Palette    Palette `json:"palette"`
	Dimensions int     `json:"dimensions,omitempty"`
}

// Validate enforces Min < Max, a valid palette and non-negative dimensions.
func (v VisParams) Validate() error {
	if !(v.Min < v.Max) {
		return fmt.Errorf("%w: min (%g) must be less than max (%g)", ErrInvalidParams, v.Min, v.Max)
	}
	if err := v.Palette.Validate(); err != nil {
		return err
	}
	if v.Dimensions < 0 {
		return fmt.Errorf("%w: dimensions must not be negative, got %d", ErrInvalidParams, v.Dimensions)
	}
	return nil
}

// WithDimensions returns a copy of v with the output size set.
func (v VisParams) WithDimensions(px int) VisParams {
	out := v
	out.Palette = v.Palette.Clone()
	out.Dimensions = px
	return out
}

// SameStretch reports whether two sets share min, max and palette.
func (v VisParams) SameStretch(o VisParams) bool {
	if v.Min != o.Min || v.Max != o.Max || len(v.Palette) != len(o.Palette) {
		return false
	}
	for i := range v.Palette {
		if v.Palette[i] != o.Palette[i] {
			return false
		}
	}
	return true
}

// DatasetRef points at a catalog image. Masked means the image is masked by
// itself, hiding zero and nodata pixels.
type DatasetRef struct {
	ID     string `json:"id"`
	Masked bool   `json:"masked"`
}

// Dataset returns an unmasked reference to a catalog id.
func Dataset(id string) DatasetRef {
	return DatasetRef{ID: id}
}

// SelfMasked returns a copy of d with the self-mask applied.
func (d DatasetRef) SelfMasked() DatasetRef {
	d.Masked = true
	return d
}

// Validate rejects empty ids and ids that would not stay a single catalog
// path: whitespace, URL delimiters, escapes and dot segments.
func (d DatasetRef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: dataset id is required", ErrInvalidParams)
	}
	if strings.ContainsAny(d.ID, " \t\r\n") {
		return fmt.Errorf("%w: dataset id %q contains whitespace", ErrInvalidParams, d.ID)
	}
	if strings.ContainsAny(d.ID, "?#%\\") {
		return fmt.Errorf("%w: dataset id %q contains a reserved character", ErrInvalidParams, d.ID)
	}
	for _, seg := range strings.Split(strings.Trim(d.ID, "/"), "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: dataset id %q has an empty or relative path segment", ErrInvalidParams, d.ID)
		}
	}
	return nil
}

// MapLayer is a visualized dataset registered for interactive viewing.
type MapLayer struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Dataset   DatasetRef `json:"dataset"`
	MapName   string     `json:"map_name"`
	TileURL   string     `json:"tile_url"`
	Vis       VisParams  `json:"vis"`
	View      MapView    `json:"view"`
	CreatedAt time.Time  `json:"created_at"`
}

// Thumbnail is a rendered static image hosted by the platform.
type Thumbnail struct {
	ID        string     `json:"id"`
	Dataset   DatasetRef `json:"dataset"`
	ThumbName string     `json:"thumb_name"`
	URL       string     `json:"url"`
	Vis       VisParams  `json:"vis"`
	CreatedAt time.Time  `json:"created_at"`
}

// BandInfo describes one band of a catalog image.
type BandInfo struct {
	ID        string `json:"id"`
	Precision string `json:"precision,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	CRS       string `json:"crs,omitempty"`
}

// DatasetInfo is the catalog metadata of an image asset.
type DatasetInfo struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Bands      []BandInfo     `json:"bands"`
	SizeBytes  int64          `json:"size_bytes,omitempty"`
	UpdateTime *time.Time     `json:"update_time,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}
