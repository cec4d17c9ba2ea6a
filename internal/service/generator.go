package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/mapdata"
	"github.com/simongrossi/maptoposter-web/internal/render"
	"github.com/simongrossi/maptoposter-web/internal/storage"
	"github.com/simongrossi/maptoposter-web/internal/theme"
	"github.com/tdewolff/canvas"
)

// Geocoder resolves a place to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (domain.Coordinates, error)
}

// ThemeCatalog loads and lists themes.
type ThemeCatalog interface {
	Load(id string) (theme.Theme, error)
	List() ([]theme.Summary, error)
}

// MapFetcher downloads every layer a poster needs.
type MapFetcher interface {
	FetchAll(ctx context.Context, center domain.Coordinates, dist float64, layers []domain.CustomLayer) (*mapdata.Data, error)
}

// PosterRenderer composes a poster onto a canvas.
type PosterRenderer interface {
	Render(ctx context.Context, in render.Input) (*canvas.Canvas, error)
}

// WriteFunc encodes a canvas to a file.
type WriteFunc func(c *canvas.Canvas, path, format string, dpi float64) error

// GeneratorConfig holds the generator settings.
type GeneratorConfig struct {
	// PosterMaxAge is how long stored posters are kept. Zero disables cleanup.
	PosterMaxAge time.Duration
	// TempDir receives posters while they are encoded. Empty means os.TempDir.
	TempDir string
}

// Generator runs the poster pipeline synchronously.
type Generator struct {
	geocoder Geocoder
	themes   ThemeCatalog
	fetcher  MapFetcher
	renderer PosterRenderer
	store    storage.Store
	write    WriteFunc
	config   GeneratorConfig
	logger   *slog.Logger
}

// NewGenerator creates a Generator. It returns an error if any dependency is nil.
func NewGenerator(
	geocoder Geocoder,
	themes ThemeCatalog,
	fetcher MapFetcher,
	renderer PosterRenderer,
	store storage.Store,
	config GeneratorConfig,
	logger *slog.Logger,
) (*Generator, error) {
	deps := []struct {
		name string
		nil  bool
	}{
		{"geocoder", geocoder == nil},
		{"themes", themes == nil},
		{"fetcher", fetcher == nil},
		{"renderer", renderer == nil},
		{"store", store == nil},
	}
	for _, d := range deps {
		if d.nil {
			return nil, &PosterServiceError{
				Operation: "create_generator",
				Message:   d.name + " cannot be nil",
			}
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{
		geocoder: geocoder,
		themes:   themes,
		fetcher:  fetcher,
		renderer: renderer,
		store:    store,
		write:    render.Write,
		config:   config,
		logger:   logger.With("component", "poster_generator"),
	}, nil
}

// Generate renders the poster described by req and stores it. A poster that
// is already in the store is returned without rendering. req must already be
// defaulted and validated.
func (g *Generator) Generate(ctx context.Context, req domain.PosterRequest, report domain.ProgressFunc) (*domain.PosterResult, error) {
	if report == nil {
		report = domain.NopProgress
	}
	filename := req.Filename()
	logger := g.logger.With("city", req.City, "country", req.Country, "style", req.Style, "filename", filename)

	// 1. Drop expired posters
	g.cleanup(ctx, logger)

	// 2. Serve from the store when possible
	exists, err := g.store.Exists(ctx, filename)
	if err != nil {
		logger.WarnContext(ctx, "poster lookup failed, rendering anyway", "error", err)
	}
	if exists {
		report(100, domain.ProgressCached)
		logger.InfoContext(ctx, "poster restored from store")
		return g.result(filename, true), nil
	}

	// 3. Resolve the place and the theme
	report(10, domain.ProgressDecoding)
	center, err := g.geocoder.Geocode(ctx, req.City, req.Country)
	if err != nil {
		return nil, NewPosterServiceError("geocode", "failed to geocode place", err)
	}

	th, err := g.themes.Load(req.Style)
	if err != nil {
		return nil, NewPosterServiceError("load_theme", "failed to load theme", err)
	}
	th = th.Apply(req.CustomColors)

	// 4. Fetch map layers over the compensated radius
	report(20, domain.ProgressFetching)
	fetchDist := req.CompensatedDistance()
	logger.InfoContext(ctx, "fetching map data",
		"lat", center.Lat,
		"lon", center.Lon,
		"distance", req.Distance,
		"fetch_distance", fetchDist)

	data, err := g.fetcher.FetchAll(ctx, center, fetchDist, req.CustomLayers)
	if err != nil {
		return nil, NewPosterServiceError("fetch_map_data", "failed to fetch map data", err)
	}
	if !data.HasStreets() {
		return nil, domain.ErrNoMapData
	}

	// 5. Render
	report(60, domain.ProgressRendering)
	c, err := g.renderer.Render(ctx, render.Input{
		Data:     data,
		Theme:    th,
		Center:   center,
		Distance: float64(req.Distance),
		WidthIn:  req.Width,
		HeightIn: req.Height,
		Margins:  req.Margins,
		City:     req.DisplayName(),
		Country:  req.DisplayCountry(),
		Layers:   req.CustomLayers,
	})
	if err != nil {
		return nil, NewPosterServiceError("render", "failed to render poster", err)
	}

	// 6. Encode and store
	report(90, domain.ProgressSaving)
	if err := g.save(ctx, c, req, filename); err != nil {
		return nil, NewPosterServiceError("save", "failed to save poster", err)
	}

	logger.InfoContext(ctx, "poster generated")
	return g.result(filename, false), nil
}

func (g *Generator) cleanup(ctx context.Context, logger *slog.Logger) {
	if g.config.PosterMaxAge <= 0 {
		return
	}
	removed, err := g.store.Cleanup(ctx, g.config.PosterMaxAge)
	if err != nil {
		logger.WarnContext(ctx, "poster cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		logger.InfoContext(ctx, "removed expired posters", "count", removed)
	}
}

func (g *Generator) save(ctx context.Context, c *canvas.Canvas, req domain.PosterRequest, filename string) error {
	tmp, err := os.CreateTemp(g.config.TempDir, "poster-*."+req.Format)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(path) }()

	if err := g.write(c, path, req.Format, float64(req.DPI)); err != nil {
		return err
	}
	return g.store.Put(ctx, filename, path)
}

func (g *Generator) result(filename string, cached bool) *domain.PosterResult {
	return &domain.PosterResult{
		Success:  true,
		FileURL:  g.store.URL(filename),
		FilePath: filename,
		Filename: filename,
		Cached:   cached,
	}
}
