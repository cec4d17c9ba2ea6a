package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simongrossi/maptoposter-web/internal/cache"
	"github.com/simongrossi/maptoposter-web/internal/config"
	"github.com/simongrossi/maptoposter-web/internal/geocode"
	"github.com/simongrossi/maptoposter-web/internal/mapdata"
	"github.com/simongrossi/maptoposter-web/internal/platform/nominatim"
	"github.com/simongrossi/maptoposter-web/internal/platform/overpass"
	"github.com/simongrossi/maptoposter-web/internal/render"
	"github.com/simongrossi/maptoposter-web/internal/storage"
	"github.com/simongrossi/maptoposter-web/internal/theme"
)

// Pipeline is a Generator together with the pieces it was built from that
// callers also need on their own.
type Pipeline struct {
	Generator *Generator
	Themes    *theme.Catalog
	Cache     *cache.DiskCache
	Store     storage.Store
}

// NewPipeline builds the geocoder, map data fetcher, renderer and theme
// catalog described by cfg, and a Generator storing into store.
func NewPipeline(cfg *config.Config, store storage.Store, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	diskCache, err := cache.NewDiskCache(cfg.Paths.CacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	geocoder := geocode.NewCachedGeocoder(
		nominatim.NewClient(cfg.OSM.NominatimURL, cfg.OSM.UserAgent, logger),
		diskCache,
		logger,
	)
	fetcher := mapdata.NewFetcher(
		overpass.NewClient(cfg.OSM.OverpassURL, cfg.OSM.UserAgent, cfg.OSM.Timeout, logger),
		diskCache,
		cfg.OSM.Timeout,
		logger,
	)

	fonts, err := render.LoadFonts(cfg.Paths.FontsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}
	themes := theme.NewCatalog(cfg.Paths.ThemesDir, logger)

	generator, err := NewGenerator(
		geocoder,
		themes,
		fetcher,
		render.NewRenderer(fonts, logger),
		store,
		GeneratorConfig{PosterMaxAge: cfg.Storage.PosterMaxAge},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Generator: generator,
		Themes:    themes,
		Cache:     diskCache,
		Store:     store,
	}, nil
}

// NewPosterStore opens the poster store selected by cfg.Storage.Backend.
func NewPosterStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	urls, err := storage.NewURLBuilder(cfg.URLTemplate)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "s3":
		store, err := storage.NewObjectStore(ctx, storage.ObjectConfig{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		}, urls, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "local", "":
		store, err := storage.NewLocalStore(cfg.LocalDir, urls, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
