// Package geocode resolves place names to coordinates. It defines the
// Geocoder boundary implemented by the Nominatim adapter and a caching
// decorator backed by the disk cache.
package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simongrossi/maptoposter-web/internal/cache"
	"github.com/simongrossi/maptoposter-web/internal/domain"
)

// Geocoder turns a city and country into coordinates.
type Geocoder interface {
	// Geocode returns the position of "city, country". It returns an error
	// wrapping domain.ErrPlaceNotFound when the place is unknown.
	Geocode(ctx context.Context, city, country string) (domain.Coordinates, error)
}

// NotFound builds the error returned for an unknown place.
func NotFound(city, country string) error {
	return fmt.Errorf("%w for %s, %s", domain.ErrPlaceNotFound, city, country)
}

// CacheKey returns the cache key of a geocoding answer.
func CacheKey(city, country string) string {
	return fmt.Sprintf("coords_%s_%s", strings.ToLower(city), strings.ToLower(country))
}

// CachedGeocoder answers from the cache when possible and stores every
// successful lookup of the wrapped geocoder.
type CachedGeocoder struct {
	next   Geocoder
	cache  cache.Cache
	logger *slog.Logger
}

var _ Geocoder = (*CachedGeocoder)(nil)

// NewCachedGeocoder wraps next with c.
func NewCachedGeocoder(next Geocoder, c cache.Cache, logger *slog.Logger) *CachedGeocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGeocoder{next: next, cache: c, logger: logger.With("component", "geocoder")}
}

// Geocode implements Geocoder.
func (g *CachedGeocoder) Geocode(ctx context.Context, city, country string) (domain.Coordinates, error) {
	key := CacheKey(city, country)

	var coords domain.Coordinates
	if found, err := g.cache.Get(key, &coords); err == nil && found {
		return coords, nil
	}

	coords, err := g.next.Geocode(ctx, city, country)
	if err != nil {
		return domain.Coordinates{}, err
	}

	if err := g.cache.Set(key, coords); err != nil {
		g.logger.WarnContext(ctx, "failed to cache coordinates", "key", key, "error", err)
	}
	return coords, nil
}

// Static is a Geocoder that answers from a fixed table keyed by CacheKey.
type Static map[string]domain.Coordinates

// Geocode implements Geocoder.
func (s Static) Geocode(_ context.Context, city, country string) (domain.Coordinates, error) {
	if c, ok := s[CacheKey(city, country)]; ok {
		return c, nil
	}
	return domain.Coordinates{}, NotFound(city, country)
}
