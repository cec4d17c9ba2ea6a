package mapdata

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/simongrossi/maptoposter-web/internal/cache"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/platform/overpass"
	"golang.org/x/sync/errgroup"
)

// Source runs Overpass QL queries.
type Source interface {
	Query(ctx context.Context, q string) (*osm.OSM, error)
}

// DefaultParallelism caps concurrent queries against the Overpass server.
const DefaultParallelism = 4

// Fetcher loads map data through a Source and a cache.
type Fetcher struct {
	source      Source
	cache       cache.Cache
	timeout     time.Duration
	parallelism int
	logger      *slog.Logger
}

// NewFetcher creates a Fetcher. timeout is embedded in each query.
func NewFetcher(source Source, c cache.Cache, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &Fetcher{
		source:      source,
		cache:       c,
		timeout:     timeout,
		parallelism: DefaultParallelism,
		logger:      logger.With("component", "mapdata"),
	}
}

// Bound returns the bounding box of radius dist metres around center.
func Bound(center domain.Coordinates, dist float64) orb.Bound {
	return geo.NewBoundAroundPoint(center.Point(), dist)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StreetsKey is the cache key of a street network.
func StreetsKey(center domain.Coordinates, dist float64) string {
	return fmt.Sprintf("graph_%s_%s_%s", formatFloat(center.Lat), formatFloat(center.Lon), formatFloat(dist))
}

// FeaturesKey is the cache key of a feature layer.
func FeaturesKey(name string, center domain.Coordinates, dist float64, tags domain.Tags) string {
	return fmt.Sprintf("feat_%s_%s_%s_%s_%s", name, formatFloat(center.Lat), formatFloat(center.Lon), formatFloat(dist), tags.CacheKey())
}

// Streets returns the street network within dist metres of center.
func (f *Fetcher) Streets(ctx context.Context, center domain.Coordinates, dist float64) ([]Street, error) {
	key := StreetsKey(center, dist)

	var streets []Street
	if found, _ := f.cache.Get(key, &streets); found {
		f.logger.DebugContext(ctx, "street network served from cache", "key", key)
		return streets, nil
	}

	o, err := f.source.Query(ctx, overpass.StreetsQuery(Bound(center, dist), f.timeout))
	if err != nil {
		return nil, fmt.Errorf("fetch streets: %w", err)
	}
	streets, err = StreetsFromOSM(o)
	if err != nil {
		return nil, fmt.Errorf("convert streets: %w", err)
	}

	if len(streets) > 0 {
		if err := f.cache.Set(key, streets); err != nil {
			f.logger.WarnContext(ctx, "failed to cache street network", "key", key, "error", err)
		}
	}
	return streets, nil
}

// Features returns the features matching tags within dist metres of center.
func (f *Fetcher) Features(ctx context.Context, name string, center domain.Coordinates, dist float64, tags domain.Tags) (*Layer, error) {
	key := FeaturesKey(name, center, dist, tags)

	layer := &Layer{}
	if found, _ := f.cache.Get(key, layer); found {
		f.logger.DebugContext(ctx, "features served from cache", "key", key)
		return layer, nil
	}

	q, err := overpass.FeaturesQuery(Bound(center, dist), tags, f.timeout)
	if err != nil {
		return nil, err
	}
	o, err := f.source.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	features, err := FeaturesFromOSM(o)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", name, err)
	}

	layer = &Layer{Name: name, Features: features}
	if !layer.IsEmpty() {
		if err := f.cache.Set(key, layer); err != nil {
			f.logger.WarnContext(ctx, "failed to cache features", "key", key, "error", err)
		}
	}
	return layer, nil
}

// FetchAll loads streets, water, parks and every fetchable custom layer in
// parallel. A layer that fails or comes back empty is logged and left nil;
// only cancellation of ctx fails the whole fetch.
func (f *Fetcher) FetchAll(ctx context.Context, center domain.Coordinates, dist float64, layers []domain.CustomLayer) (*Data, error) {
	data := &Data{Custom: make(map[int]*Layer)}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(f.parallelism)

	eg.Go(func() error {
		streets, err := f.Streets(egCtx, center, dist)
		if err != nil {
			f.logger.ErrorContext(egCtx, "street fetch failed", "error", err)
			return nil
		}
		data.Streets = streets
		return nil
	})

	fetchLayer := func(name string, tags domain.Tags, assign func(*Layer)) {
		eg.Go(func() error {
			layer, err := f.Features(egCtx, name, center, dist, tags)
			if err != nil {
				f.logger.ErrorContext(egCtx, "feature fetch failed", "layer", name, "error", err)
				return nil
			}
			if layer.IsEmpty() {
				f.logger.InfoContext(egCtx, "no features found", "layer", name)
				return nil
			}
			mu.Lock()
			assign(layer)
			mu.Unlock()
			return nil
		})
	}

	fetchLayer("water", WaterTags, func(l *Layer) { data.Water = l })
	fetchLayer("parks", ParkTags, func(l *Layer) { data.Parks = l })
	for i, cl := range layers {
		if !cl.Fetchable() {
			continue
		}
		idx := i
		fetchLayer(fmt.Sprintf("custom_%d", idx), cl.Tags, func(l *Layer) { data.Custom[idx] = l })
	}

	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "map data fetched",
		"streets", len(data.Streets),
		"water", data.Water != nil,
		"parks", data.Parks != nil,
		"custom_layers", len(data.Custom))
	return data, nil
}
