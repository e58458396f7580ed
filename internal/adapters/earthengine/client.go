// Package earthengine is a client for the Earth Engine REST API covering the
// three calls the visualizer needs: asset lookup, map registration and
// thumbnail generation. Calls are not retried.
package earthengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/core/ports"
	"github.com/samirrijal/canopyviz/internal/pkg/metrics"
	"github.com/samirrijal/canopyviz/internal/pkg/telemetry"
)

// Scope is the OAuth2 scope required by the Earth Engine API.
const Scope = "https://www.googleapis.com/auth/earthengine"

const apiVersion = "v1"

// Options configures a Client.
type Options struct {
	BaseURL string // e.g. https://earthengine.googleapis.com
	Project string // Cloud project billed for the calls
	Timeout time.Duration

	// TokenSource authorises requests. Nil sends no Authorization header.
	TokenSource oauth2.TokenSource

	// HTTPClient overrides the default fasthttp client.
	HTTPClient *fasthttp.Client
}

// Client implements ports.EarthEngine.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	project string
	timeout time.Duration
	tokens  oauth2.TokenSource
	tracer  trace.Tracer
}

var _ ports.EarthEngine = (*Client)(nil)

// New creates a new Earth Engine client.
func New(opts Options) (*Client, error) {
	if opts.Project == "" {
		return nil, fmt.Errorf("earthengine: project is required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("earthengine: base url is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &fasthttp.Client{
			Name:                "canopyviz",
			MaxConnsPerHost:     16,
			MaxIdleConnDuration: 30 * time.Second,
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:    hc,
		baseURL: base,
		project: opts.Project,
		timeout: timeout,
		tokens:  opts.TokenSource,
		tracer:  telemetry.Tracer(),
	}, nil
}

// NewTokenSource returns a static source when accessToken is set, otherwise
// Google application default credentials scoped for Earth Engine.
func NewTokenSource(ctx context.Context, accessToken string) (oauth2.TokenSource, error) {
	if accessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}), nil
	}
	ts, err := google.DefaultTokenSource(ctx, Scope)
	if err != nil {
		return nil, fmt.Errorf("earthengine credentials: %w", err)
	}
	return ts, nil
}

// GetAsset returns catalog metadata for an image id.
func (c *Client) GetAsset(ctx context.Context, id string) (*domain.DatasetInfo, error) {
	if err := domain.Dataset(id).Validate(); err != nil {
		return nil, err
	}
	var out assetResponse
	if err := c.do(ctx, "assets.get", fasthttp.MethodGet, c.url(AssetName(id)), nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(id), nil
}

// CreateMap registers dataset rendered with vis and returns its tile template.
func (c *Client) CreateMap(ctx context.Context, dataset domain.DatasetRef, vis domain.VisParams) (*ports.MapHandle, error) {
	body := renderRequest{
		Expression:           ImageExpression(dataset, 0),
		FileFormat:           "AUTO_JPEG_PNG",
		VisualizationOptions: visOptions(vis),
	}
	var out namedResource
	if err := c.do(ctx, "maps.create", fasthttp.MethodPost, c.projectURL("maps"), body, &out); err != nil {
		return nil, err
	}
	if out.Name == "" {
		return nil, fmt.Errorf("earthengine: maps.create returned no name")
	}
	return &ports.MapHandle{
		Name:    out.Name,
		TileURL: c.url(out.Name) + "/tiles/{z}/{x}/{y}",
	}, nil
}

// CreateThumbnail renders dataset with vis and returns the pixel URL.
// vis.Dimensions bounds the longer side of the image in pixels.
func (c *Client) CreateThumbnail(ctx context.Context, dataset domain.DatasetRef, vis domain.VisParams) (*ports.ThumbnailHandle, error) {
	body := renderRequest{
		Expression:           ImageExpression(dataset, vis.Dimensions),
		FileFormat:           "PNG",
		VisualizationOptions: visOptions(vis),
	}
	var out namedResource
	if err := c.do(ctx, "thumbnails.create", fasthttp.MethodPost, c.projectURL("thumbnails"), body, &out); err != nil {
		return nil, err
	}
	if out.Name == "" {
		return nil, fmt.Errorf("earthengine: thumbnails.create returned no name")
	}
	return &ports.ThumbnailHandle{
		Name: out.Name,
		URL:  c.url(out.Name) + ":getPixels",
	}, nil
}

func (c *Client) url(resource string) string {
	return c.baseURL + "/" + apiVersion + "/" + resource
}

func (c *Client) projectURL(collection string) string {
	return c.url("projects/"+c.project+"/"+collection) + "?fields=name"
}

func (c *Client) do(ctx context.Context, op, method, url string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "earthengine."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("earthengine.project", c.project)))
	start := time.Now()
	defer func() {
		metrics.ObserveEarthEngine(op, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(data)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("earthengine token: %w", err)
		}
		req.Header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s %s: %w", method, op, err)
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= 400 {
		return decodeAPIError(status, resp.Body())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
