package earthengine

import (
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

type visualizationOptions struct {
	Ranges        []valueRange `json:"ranges"`
	PaletteColors []string     `json:"paletteColors,omitempty"`
}

type valueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func visOptions(vis domain.VisParams) *visualizationOptions {
	return &visualizationOptions{
		Ranges:        []valueRange{{Min: vis.Min, Max: vis.Max}},
		PaletteColors: []string(vis.Palette.Clone()),
	}
}

// renderRequest is the body of both maps.create and thumbnails.create.
type renderRequest struct {
	Expression           Expression            `json:"expression"`
	FileFormat           string                `json:"fileFormat"`
	VisualizationOptions *visualizationOptions `json:"visualizationOptions"`
}

type namedResource struct {
	Name string `json:"name"`
}

// int64String decodes proto3 JSON int64 values, which arrive quoted.
type int64String int64

func (n *int64String) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*n = int64String(v)
	return nil
}

type assetResponse struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	ID         string         `json:"id"`
	UpdateTime string         `json:"updateTime"`
	SizeBytes  int64String    `json:"sizeBytes"`
	Properties map[string]any `json:"properties"`
	Bands      []struct {
		ID       string `json:"id"`
		DataType struct {
			Precision string `json:"precision"`
		} `json:"dataType"`
		Grid struct {
			CRSCode    string `json:"crsCode"`
			Dimensions struct {
				Width  int `json:"width"`
				Height int `json:"height"`
			} `json:"dimensions"`
		} `json:"grid"`
	} `json:"bands"`
}

func (a *assetResponse) toDomain(requestedID string) *domain.DatasetInfo {
	info := &domain.DatasetInfo{
		ID:         a.ID,
		Name:       a.Name,
		Type:       a.Type,
		SizeBytes:  int64(a.SizeBytes),
		Properties: a.Properties,
	}
	if info.ID == "" {
		info.ID = requestedID
	}
	if t, err := time.Parse(time.RFC3339Nano, a.UpdateTime); err == nil {
		info.UpdateTime = &t
	}
	for _, b := range a.Bands {
		info.Bands = append(info.Bands, domain.BandInfo{
			ID:        b.ID,
			Precision: b.DataType.Precision,
			Width:     b.Grid.Dimensions.Width,
			Height:    b.Grid.Dimensions.Height,
			CRS:       b.Grid.CRSCode,
		})
	}
	return info
}
