package mapdata

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/osm"
	"github.com/simongrossi/maptoposter-web/internal/cache"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource answers queries by looking for a marker in the query text.
type fakeSource struct {
	mu      sync.Mutex
	answers map[string]*osm.OSM
	fail    map[string]error
	queries []string
}

func (f *fakeSource) Query(_ context.Context, q string) (*osm.OSM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	for marker, err := range f.fail {
		if strings.Contains(q, marker) {
			return nil, err
		}
	}
	for marker, o := range f.answers {
		if strings.Contains(q, marker) {
			return o, nil
		}
	}
	return &osm.OSM{}, nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

var paris = domain.Coordinates{Lat: 48.8566, Lon: 2.3522}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "graph_48.8566_2.3522_4000", StreetsKey(paris, 4000))
	assert.Equal(t,
		"feat_water_48.8566_2.3522_4000_natural:water-waterway:riverbank",
		FeaturesKey("water", paris, 4000, WaterTags))
}

func TestBound(t *testing.T) {
	b := Bound(paris, 1000)
	assert.True(t, b.Contains(paris.Point()))
	assert.Less(t, b.Min.Lat(), paris.Lat)
	assert.Greater(t, b.Max.Lon(), paris.Lon)
}

func TestFetchAll(t *testing.T) {
	o := sampleOSM()
	src := &fakeSource{answers: map[string]*osm.OSM{
		`["highway"]`:         o,
		`["natural"="water"]`: o,
	}}
	dc, err := cache.NewDiskCache(t.TempDir(), nil)
	require.NoError(t, err)
	f := NewFetcher(src, dc, time.Minute, nil)

	layers := []domain.CustomLayer{
		{Label: "Cafes", Tags: domain.Tags{"amenity": domain.Values("cafe")}, Color: "#ff0000"},
		{Label: "Empty", Tags: domain.Tags{}, Color: "#00ff00"},
	}

	data, err := f.FetchAll(context.Background(), paris, 3000, layers)
	require.NoError(t, err)

	assert.True(t, data.HasStreets())
	assert.Len(t, data.Streets, 2)
	require.NotNil(t, data.Water)
	assert.Len(t, data.Water.Polygons(), 1)
	assert.Nil(t, data.Parks, "an empty answer leaves the layer nil")
	assert.Empty(t, data.Custom, "the cafe query found nothing and the empty filter was skipped")
	assert.Equal(t, 4, src.calls(), "streets, water, parks and one custom layer")

	again, err := f.FetchAll(context.Background(), paris, 3000, layers)
	require.NoError(t, err)
	assert.Len(t, again.Streets, 2)
	assert.NotNil(t, again.Water)
	assert.Equal(t, 6, src.calls(), "only the empty layers are queried again")
}

func TestFetchAllToleratesLayerFailures(t *testing.T) {
	src := &fakeSource{
		answers: map[string]*osm.OSM{`["highway"]`: sampleOSM()},
		fail:    map[string]error{`["leisure"="park"]`: errors.New("overpass is down")},
	}
	f := NewFetcher(src, nil, time.Minute, nil)

	data, err := f.FetchAll(context.Background(), paris, 3000, nil)
	require.NoError(t, err)
	assert.True(t, data.HasStreets())
	assert.Nil(t, data.Parks)
}

func TestFetchAllStreetFailureYieldsNoStreets(t *testing.T) {
	src := &fakeSource{fail: map[string]error{`["highway"]`: errors.New("timeout")}}
	f := NewFetcher(src, nil, time.Minute, nil)

	data, err := f.FetchAll(context.Background(), paris, 3000, nil)
	require.NoError(t, err)
	assert.False(t, data.HasStreets())
}

func TestFetchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(&fakeSource{}, nil, time.Minute, nil)
	_, err := f.FetchAll(ctx, paris, 3000, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
