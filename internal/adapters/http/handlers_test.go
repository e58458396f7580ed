package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/canopyviz/internal/adapters/earthengine"
	handler "github.com/samirrijal/canopyviz/internal/adapters/http"
	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/core/ports"
	"github.com/samirrijal/canopyviz/internal/core/usecases"
)

// ---- Mocks ----

type mockEarthEngine struct {
	getAssetFn        func(ctx context.Context, id string) (*domain.DatasetInfo, error)
	createMapFn       func(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.MapHandle, error)
	createThumbnailFn func(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.ThumbnailHandle, error)
}

func (m *mockEarthEngine) GetAsset(ctx context.Context, id string) (*domain.DatasetInfo, error) {
	if m.getAssetFn != nil {
		return m.getAssetFn(ctx, id)
	}
	return &domain.DatasetInfo{
		ID:    id,
		Name:  "projects/glad/assets/GLCLU2020/Forest_height_2020",
		Type:  "IMAGE",
		Bands: []domain.BandInfo{{ID: "b1", Precision: "INT"}},
	}, nil
}

func (m *mockEarthEngine) CreateMap(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.MapHandle, error) {
	if m.createMapFn != nil {
		return m.createMapFn(ctx, d, vis)
	}
	return &ports.MapHandle{
		Name:    "projects/p/maps/m1",
		TileURL: "https://earthengine.googleapis.com/v1/projects/p/maps/m1/tiles/{z}/{x}/{y}",
	}, nil
}

func (m *mockEarthEngine) CreateThumbnail(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.ThumbnailHandle, error) {
	if m.createThumbnailFn != nil {
		return m.createThumbnailFn(ctx, d, vis)
	}
	return &ports.ThumbnailHandle{
		Name: "projects/p/thumbnails/t1",
		URL:  "https://earthengine.googleapis.com/v1/projects/p/thumbnails/t1:getPixels",
	}, nil
}

type mockLayerRepo struct {
	mu     sync.Mutex
	layers []domain.MapLayer
}

func (m *mockLayerRepo) Insert(ctx context.Context, l *domain.MapLayer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers = append([]domain.MapLayer{*l}, m.layers...)
	return nil
}

func (m *mockLayerRepo) GetByID(ctx context.Context, id string) (*domain.MapLayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.layers {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("layer %s: %w", id, domain.ErrNotFound)
}

func (m *mockLayerRepo) List(ctx context.Context, limit int) ([]domain.MapLayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit < len(m.layers) {
		return m.layers[:limit], nil
	}
	return m.layers, nil
}

type mockThumbRepo struct {
	thumbs []domain.Thumbnail
}

func (m *mockThumbRepo) Insert(ctx context.Context, t *domain.Thumbnail) error {
	m.thumbs = append(m.thumbs, *t)
	return nil
}

func (m *mockThumbRepo) List(ctx context.Context, limit int) ([]domain.Thumbnail, error) {
	return m.thumbs, nil
}

// ---- Helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

type fixture struct {
	ee     *mockEarthEngine
	layers *mockLayerRepo
	thumbs *mockThumbRepo
}

func makeDeps(opts ...func(*fixture)) (*handler.Dependencies, *fixture) {
	f := &fixture{ee: &mockEarthEngine{}, layers: &mockLayerRepo{}, thumbs: &mockThumbRepo{}}
	for _, o := range opts {
		o(f)
	}
	d := &handler.Dependencies{
		Viz:  usecases.NewVisualizationService(f.ee, f.layers, f.thumbs, nil, nil, 0),
		View: domain.CanopyView(),
	}
	return d, f
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func jsonRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decode(t *testing.T, body io.Reader, out any) {
	t.Helper()
	if err := json.Unmarshal(readBody(t, body), out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

// ---- Dataset ----

func TestDescribeDataset_Success(t *testing.T) {
	var gotID string
	deps, _ := makeDeps(func(f *fixture) {
		f.ee.getAssetFn = func(ctx context.Context, id string) (*domain.DatasetInfo, error) {
			gotID = id
			return &domain.DatasetInfo{ID: id, Type: "IMAGE"}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/datasets/projects/glad/GLCLU2020/Forest_height_2020", ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	if gotID != domain.CanopyHeightDataset {
		t.Errorf("expected id %q, got %q", domain.CanopyHeightDataset, gotID)
	}
	var info domain.DatasetInfo
	decode(t, resp.Body, &info)
	if info.Type != "IMAGE" {
		t.Errorf("expected IMAGE, got %q", info.Type)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestDescribeDataset_RejectsEncodedDelimiters(t *testing.T) {
	calls := 0
	deps, _ := makeDeps(func(f *fixture) {
		f.ee.getAssetFn = func(_ context.Context, id string) (*domain.DatasetInfo, error) {
			calls++
			return &domain.DatasetInfo{ID: id}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/datasets/USGS/SRTMGL1_003%23frag", ""), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if calls != 0 {
		t.Errorf("expected no platform calls, got %d", calls)
	}
}

func TestDescribeDataset_UpstreamNotFound(t *testing.T) {
	deps, _ := makeDeps(func(f *fixture) {
		f.ee.getAssetFn = func(ctx context.Context, id string) (*domain.DatasetInfo, error) {
			return nil, &earthengine.APIError{HTTPStatus: 404, Code: 404, Message: "Asset not found.", Status: "NOT_FOUND"}
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/datasets/projects/nope/missing", ""), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	decode(t, resp.Body, &apiErr)
	if apiErr.Code != "not_found" || apiErr.Message != "Asset not found." {
		t.Errorf("unexpected error body: %+v", apiErr)
	}
}

// ---- Layers ----

func TestCreateLayer_DefaultsToCanopy(t *testing.T) {
	var gotVis domain.VisParams
	var gotDataset domain.DatasetRef
	deps, f := makeDeps(func(f *fixture) {
		f.ee.createMapFn = func(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.MapHandle, error) {
			gotDataset, gotVis = d, vis
			return &ports.MapHandle{Name: "projects/p/maps/m1", TileURL: "https://ee.test/v1/projects/p/maps/m1/tiles/{z}/{x}/{y}"}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/layers", ""), -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var layer domain.MapLayer
	decode(t, resp.Body, &layer)
	if layer.Name != domain.CanopyHeightLayerName {
		t.Errorf("expected layer name %q, got %q", domain.CanopyHeightLayerName, layer.Name)
	}
	if layer.View != domain.CanopyView() {
		t.Errorf("expected canopy view, got %+v", layer.View)
	}
	if gotDataset.ID != domain.CanopyHeightDataset || gotDataset.Masked {
		t.Errorf("unexpected dataset %+v", gotDataset)
	}
	if !gotVis.SameStretch(domain.CanopyHeightVis()) || gotVis.Dimensions != 0 {
		t.Errorf("unexpected vis %+v", gotVis)
	}
	if len(f.layers.layers) != 1 {
		t.Errorf("expected 1 stored layer, got %d", len(f.layers.layers))
	}
}

func TestCreateLayer_CustomParams(t *testing.T) {
	var gotVis domain.VisParams
	deps, _ := makeDeps(func(f *fixture) {
		f.ee.createMapFn = func(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.MapHandle, error) {
			gotVis = vis
			return &ports.MapHandle{Name: "projects/p/maps/m2", TileURL: "https://ee.test/tiles"}, nil
		}
	})
	app := setupApp(deps)

	body := `{"dataset":"USGS/SRTMGL1_003","name":"Elevation","vis":{"min":0,"max":4000,"palette":["#000000","FFFFFF"]},"view":{"center":{"lat":27.9,"lon":86.9},"zoom":8}}`
	resp, _ := app.Test(jsonRequest("POST", "/v1/layers", body), -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	var layer domain.MapLayer
	decode(t, resp.Body, &layer)
	if layer.Name != "Elevation" || layer.View.Zoom != 8 {
		t.Errorf("unexpected layer %+v", layer)
	}
	if gotVis.Max != 4000 || gotVis.Palette[1] != "ffffff" {
		t.Errorf("unexpected vis %+v", gotVis)
	}
}

func TestCreateLayer_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"min above max", `{"vis":{"min":30,"max":3}}`},
		{"bad colour", `{"vis":{"palette":["notacolour"]}}`},
		{"zoom out of range", `{"view":{"center":{"lat":0,"lon":0},"zoom":40}}`},
		{"malformed body", `{"vis":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, f := makeDeps()
			app := setupApp(deps)

			resp, _ := app.Test(jsonRequest("POST", "/v1/layers", tt.body), -1)
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var apiErr handler.APIError
			decode(t, resp.Body, &apiErr)
			if apiErr.Code != "bad_request" {
				t.Errorf("expected bad_request, got %q", apiErr.Code)
			}
			if len(f.layers.layers) != 0 {
				t.Error("no layer should be stored on invalid input")
			}
		})
	}
}

func TestCreateLayer_UpstreamError(t *testing.T) {
	deps, _ := makeDeps(func(f *fixture) {
		f.ee.createMapFn = func(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.MapHandle, error) {
			return nil, &earthengine.APIError{HTTPStatus: 403, Code: 403, Message: "Permission denied.", Status: "PERMISSION_DENIED"}
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/layers", ""), -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	decode(t, resp.Body, &apiErr)
	if apiErr.Code != "upstream_error" || apiErr.Message != "Permission denied." {
		t.Errorf("unexpected error body: %+v", apiErr)
	}
}

func TestGetLayer_WithViewport(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/layers", ""), -1)
	var created domain.MapLayer
	decode(t, resp.Body, &created)

	resp, _ = app.Test(jsonRequest("GET", "/v1/layers/"+created.ID+"?width=512&height=512", ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Layer    domain.MapLayer `json:"layer"`
		Viewport struct {
			Bounds      domain.Bounds `json:"bounds"`
			WidthPixels int           `json:"width_px"`
		} `json:"viewport"`
	}
	decode(t, resp.Body, &result)
	if result.Layer.ID != created.ID {
		t.Errorf("expected layer %s, got %s", created.ID, result.Layer.ID)
	}
	if result.Viewport.WidthPixels != 512 {
		t.Errorf("expected 512 px, got %d", result.Viewport.WidthPixels)
	}
	b := result.Viewport.Bounds
	if !(b.MinLon < 10 && b.MaxLon > 10 && b.MinLat < 0 && b.MaxLat > 0) {
		t.Errorf("viewport %+v does not contain the centre", b)
	}
}

func TestGetLayer_NotFound(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/layers/missing", ""), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetLayer_MalformedID(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/layers/not-a-uuid", ""), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body map[string]any
	decode(t, resp.Body, &body)
	if body["code"] != "not_found" {
		t.Errorf("expected not_found code, got %v", body["code"])
	}
}

func TestGetLayer_BadSize(t *testing.T) {
	deps, f := makeDeps()
	id := uuid.NewString()
	f.layers.layers = []domain.MapLayer{{ID: id, View: domain.CanopyView()}}
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/layers/"+id+"?width=0", ""), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListLayers_EmptyIsArray(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/layers", ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := readBody(t, resp.Body)
	if !bytes.Contains(body, []byte(`"data":[]`)) {
		t.Errorf("expected empty data array, got %s", body)
	}
}

// ---- Thumbnails ----

func TestCreateThumbnail_DefaultsToMaskedCanopy(t *testing.T) {
	var gotDataset domain.DatasetRef
	var gotVis domain.VisParams
	deps, f := makeDeps(func(f *fixture) {
		f.ee.createThumbnailFn = func(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.ThumbnailHandle, error) {
			gotDataset, gotVis = d, vis
			return &ports.ThumbnailHandle{Name: "projects/p/thumbnails/t1", URL: "https://ee.test/v1/projects/p/thumbnails/t1:getPixels"}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/thumbnails", ""), -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	if !gotDataset.Masked || gotDataset.ID != domain.CanopyHeightDataset {
		t.Errorf("unexpected dataset %+v", gotDataset)
	}
	if gotVis.Dimensions != domain.CanopyThumbnailDimensions {
		t.Errorf("expected %d px, got %d", domain.CanopyThumbnailDimensions, gotVis.Dimensions)
	}
	var thumb domain.Thumbnail
	decode(t, resp.Body, &thumb)
	if !strings.HasSuffix(thumb.URL, ":getPixels") {
		t.Errorf("unexpected url %q", thumb.URL)
	}
	if len(f.thumbs.thumbs) != 1 {
		t.Errorf("expected 1 stored thumbnail, got %d", len(f.thumbs.thumbs))
	}
}

func TestCreateThumbnail_Unmasked(t *testing.T) {
	var gotDataset domain.DatasetRef
	deps, _ := makeDeps(func(f *fixture) {
		f.ee.createThumbnailFn = func(ctx context.Context, d domain.DatasetRef, vis domain.VisParams) (*ports.ThumbnailHandle, error) {
			gotDataset = d
			return &ports.ThumbnailHandle{Name: "t", URL: "https://ee.test/t:getPixels"}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/thumbnails", `{"masked":false,"vis":{"dimensions":256}}`), -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if gotDataset.Masked {
		t.Error("expected unmasked dataset")
	}
}

func TestCreateThumbnail_DefaultsDimensions(t *testing.T) {
	var gotVis domain.VisParams
	deps, _ := makeDeps(func(f *fixture) {
		f.ee.createThumbnailFn = func(_ context.Context, _ domain.DatasetRef, vis domain.VisParams) (*ports.ThumbnailHandle, error) {
			gotVis = vis
			return &ports.ThumbnailHandle{Name: "projects/p/thumbnails/t", URL: "https://ee.test/v1/projects/p/thumbnails/t:getPixels"}, nil
		}
	})
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/thumbnails", `{"vis":{"min":5}}`), -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	if gotVis.Dimensions != domain.CanopyThumbnailDimensions {
		t.Errorf("expected %d px, got %d", domain.CanopyThumbnailDimensions, gotVis.Dimensions)
	}
	if gotVis.Min != 5 || gotVis.Max != 30 {
		t.Errorf("expected min overlay on the canopy stretch, got %g..%g", gotVis.Min, gotVis.Max)
	}
}

func TestCreateThumbnail_NegativeDimensions(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/thumbnails", `{"vis":{"dimensions":-1}}`), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Preset ----

func TestCanopyPreset(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/palettes/canopy", ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := readBody(t, resp.Body)

	var preset handler.CanopyPreset
	if err := json.Unmarshal(body, &preset); err != nil {
		t.Fatal(err)
	}
	if len(preset.Legend) != 9 {
		t.Fatalf("expected 9 legend entries, got %d", len(preset.Legend))
	}
	if preset.Legend[0].Value != 3 || preset.Legend[8].Value != 30 {
		t.Errorf("legend should span 3..30, got %g..%g", preset.Legend[0].Value, preset.Legend[8].Value)
	}
	if preset.ThumbnailVis.Dimensions != 4096 {
		t.Errorf("expected thumbnail dimensions 4096, got %d", preset.ThumbnailVis.Dimensions)
	}

	// The response must match the published schema.
	data, err := os.ReadFile(findOpenAPISpec(t))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := (&openapi3.Loader{}).LoadFromData(data)
	if err != nil {
		t.Fatal(err)
	}
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		t.Fatal(err)
	}
	if err := doc.Components.Schemas["CanopyPreset"].Value.VisitJSON(generic); err != nil {
		t.Errorf("preset does not match schema: %v", err)
	}
}

// ---- Viewer ----

func TestViewer_ShowsLatestLayer(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("POST", "/v1/layers", ""), -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(jsonRequest("GET", "/", ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html, got %q", ct)
	}
	page := string(readBody(t, resp.Body))
	for _, want := range []string{"Forest Canopy Height", "maps/m1/tiles", "L.map('map')"} {
		if !strings.Contains(page, want) {
			t.Errorf("viewer page missing %q", want)
		}
	}
}

func TestViewer_NoLayers(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/", ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	page := string(readBody(t, resp.Body))
	if strings.Contains(page, "bindTooltip") {
		t.Error("no overlay expected without a registered layer")
	}
}

func TestViewer_UnknownLayer(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/?layer=nope", ""), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_CanopyPreset(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	body := `{"query":"{ canopyPreset { dataset vis { min max palette } legend { color } } }"}`
	resp, _ := app.Test(jsonRequest("POST", "/graphql", body), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Data struct {
			CanopyPreset struct {
				Dataset string `json:"dataset"`
				Vis     struct {
					Min     float64  `json:"min"`
					Palette []string `json:"palette"`
				} `json:"vis"`
				Legend []struct {
					Color string `json:"color"`
				} `json:"legend"`
			} `json:"canopyPreset"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, resp.Body, &result)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	p := result.Data.CanopyPreset
	if p.Dataset != domain.CanopyHeightDataset || p.Vis.Min != 3 || len(p.Vis.Palette) != 9 {
		t.Errorf("unexpected preset %+v", p)
	}
	if len(p.Legend) != 9 || p.Legend[0].Color != "ffffff" {
		t.Errorf("unexpected legend %+v", p.Legend)
	}
}

func TestGraphQL_RegisterLayerThenQuery(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	mutation := `{"query":"mutation { registerLayer(zoom: 3) { id name view { zoom } } }"}`
	resp, _ := app.Test(jsonRequest("POST", "/graphql", mutation), -1)
	var created struct {
		Data struct {
			RegisterLayer struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				View struct {
					Zoom int `json:"zoom"`
				} `json:"view"`
			} `json:"registerLayer"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, resp.Body, &created)
	if len(created.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", created.Errors)
	}
	l := created.Data.RegisterLayer
	if l.Name != domain.CanopyHeightLayerName || l.View.Zoom != 3 {
		t.Errorf("unexpected layer %+v", l)
	}

	query := fmt.Sprintf(`{"query":"{ layer(id: \"%s\") { id tile_url } }"}`, l.ID)
	resp, _ = app.Test(jsonRequest("POST", "/graphql", query), -1)
	body := string(readBody(t, resp.Body))
	if !strings.Contains(body, l.ID) || !strings.Contains(body, "tile_url") {
		t.Errorf("unexpected layer query result: %s", body)
	}
}

func TestGraphQL_CreateThumbnailInvalid(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	body := `{"query":"mutation { createThumbnail(min: 30, max: 3) { url } }"}`
	resp, _ := app.Test(jsonRequest("POST", "/graphql", body), -1)
	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	decode(t, resp.Body, &result)
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0].Message, "invalid") {
		t.Errorf("expected invalid parameters error, got %+v", result.Errors)
	}
}

// ---- Health ----

func TestHealth_Returns200(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/health", ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result map[string]interface{}
	decode(t, resp.Body, &result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NothingConfigured(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/ready", ""), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp.Body, &result)
	if result.Checks["database"] != "not configured" {
		t.Errorf("unexpected database check %q", result.Checks["database"])
	}
}

// ---- Middleware ----

func TestETag_NotModified(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/palettes/canopy", ""), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := jsonRequest("GET", "/v1/palettes/canopy", "")
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	deps, _ := makeDeps()
	app := setupApp(deps)

	resp, _ := app.Test(jsonRequest("GET", "/v1/health", ""), -1)
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing request id")
	}
}
