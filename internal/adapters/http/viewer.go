package http

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/pkg/colorramp"
	"github.com/samirrijal/canopyviz/internal/pkg/geospatial"
)

var viewerTmpl = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{if .Layer}}{{.Layer.Name}}{{else}}canopyviz{{end}}</title>
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
  <style>
    html,body,#map{height:100%;margin:0}
    .legend{background:#fff;padding:6px 8px;font:12px sans-serif;border-radius:4px}
    .legend i{display:inline-block;width:14px;height:10px;margin-right:4px}
  </style>
</head>
<body>
  <div id="map"></div>
  <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
  <script>
    const map = L.map('map').setView([{{.View.Center.Lat}}, {{.View.Center.Lon}}], {{.View.Zoom}});
    L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
      attribution: '&copy; OpenStreetMap contributors'
    }).addTo(map);
    {{if .Layer}}
    L.tileLayer({{.Layer.TileURL}}, {attribution: {{.Layer.Dataset.ID}}, opacity: 0.9})
      .addTo(map).bindTooltip({{.Layer.Name}});
    {{end}}
    const legend = L.control({position: 'bottomright'});
    legend.onAdd = function () {
      const div = L.DomUtil.create('div', 'legend');
      div.innerHTML = {{.LegendHTML}} + '<small>' + {{printf "%.0f" .Viewport.DiagonalKm}} + ' km across</small>';
      return div;
    };
    legend.addTo(map);
  </script>
</body>
</html>`))

var legendTmpl = template.Must(template.New("legend").Parse(
	`<b>{{.Title}}</b><br>{{range .Entries}}<i style="background:#{{.Color}}"></i>{{printf "%.1f" .Value}}<br>{{end}}`))

type viewerData struct {
	Layer      *domain.MapLayer
	View       domain.MapView
	Viewport   geospatial.Viewport
	LegendHTML string
}

// ViewerHandler serves a Leaflet map showing a registered layer. The layer
// is chosen by ?layer=<id>, falling back to the most recent one; with none
// registered the base map is shown at the configured view.
func ViewerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var layer *domain.MapLayer
		if id := c.Query("layer"); id != "" {
			l, err := deps.Viz.GetLayer(ctx, id)
			if err != nil {
				return errFromUsecase(c, err)
			}
			layer = l
		} else {
			recent, err := deps.Viz.ListLayers(ctx, 1)
			if err != nil {
				return errFromUsecase(c, err)
			}
			if len(recent) > 0 {
				layer = &recent[0]
			}
		}

		data := viewerData{Layer: layer, View: deps.View}
		vis := domain.CanopyHeightVis()
		title := domain.CanopyHeightLayerName
		if layer != nil {
			data.View = layer.View
			vis = layer.Vis
			title = layer.Name
		}
		data.Viewport = geospatial.ViewBounds(data.View, 1280, 800)

		legend, err := renderLegend(title, vis)
		if err != nil {
			return errInternal(c, err.Error())
		}
		data.LegendHTML = legend

		var buf bytes.Buffer
		if err := viewerTmpl.Execute(&buf, data); err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(buf.Bytes())
	}
}

func renderLegend(title string, vis domain.VisParams) (string, error) {
	ramp, err := colorramp.New(vis)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = legendTmpl.Execute(&buf, struct {
		Title   string
		Entries []colorramp.LegendEntry
	}{title, ramp.Legend(len(vis.Palette))})
	return buf.String(), err
}
