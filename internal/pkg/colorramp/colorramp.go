// Package colorramp maps numeric values onto a palette the way the
// rendering platform stretches an image: a linear ramp from min to max with
// the first stop at min and the last at max.
package colorramp

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// Ramp is a parsed visualization stretch.
type Ramp struct {
	min, max float64
	stops    []colorful.Color
}

// LegendEntry is one swatch of a rendered legend.
type LegendEntry struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// New parses vis into a Ramp. vis must satisfy VisParams.Validate.
func New(vis domain.VisParams) (*Ramp, error) {
	if err := vis.Validate(); err != nil {
		return nil, err
	}
	stops := make([]colorful.Color, len(vis.Palette))
	for i, hex := range vis.Palette {
		c, err := colorful.Hex("#" + hex)
		if err != nil {
			return nil, fmt.Errorf("palette[%d]: %w", i, err)
		}
		stops[i] = c
	}
	return &Ramp{min: vis.Min, max: vis.Max, stops: stops}, nil
}

// At returns the colour for v. Values outside [min, max] clamp to the end stops.
func (r *Ramp) At(v float64) colorful.Color {
	if len(r.stops) == 1 || math.IsNaN(v) || v <= r.min {
		return r.stops[0]
	}
	if v >= r.max {
		return r.stops[len(r.stops)-1]
	}

	pos := (v - r.min) / (r.max - r.min) * float64(len(r.stops)-1)
	idx := int(pos)
	if idx >= len(r.stops)-1 {
		return r.stops[len(r.stops)-1]
	}
	return r.stops[idx].BlendRgb(r.stops[idx+1], pos-float64(idx)).Clamped()
}

// Hex is At formatted as a 6-digit hex string without '#'.
func (r *Ramp) Hex(v float64) string {
	return r.At(v).Hex()[1:]
}

// Legend returns n evenly spaced swatches from min to max inclusive.
func (r *Ramp) Legend(n int) []LegendEntry {
	if n < 2 {
		n = 2
	}
	out := make([]LegendEntry, n)
	step := (r.max - r.min) / float64(n-1)
	for i := range out {
		v := r.min + step*float64(i)
		if i == n-1 {
			v = r.max
		}
		out[i] = LegendEntry{Value: v, Color: r.Hex(v)}
	}
	return out
}
