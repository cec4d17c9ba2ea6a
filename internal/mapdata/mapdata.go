// Package mapdata fetches the OpenStreetMap geometries a poster is drawn
// from: the street network, water, parks and user defined layers.
package mapdata

import (
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmgeojson"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/platform/overpass"
)

// Fixed tag filters of the base layers.
var (
	WaterTags = domain.Tags{
		"natural":  domain.Values("water"),
		"waterway": domain.Values("riverbank"),
	}
	ParkTags = domain.Tags{
		"leisure": domain.Values("park"),
		"landuse": domain.Values("grass"),
	}
)

// Street is one drivable, cyclable or walkable way.
type Street struct {
	// Highway is the primary highway class, e.g. "primary".
	Highway string
	Line    orb.LineString
}

// Feature is a tagged OSM object reduced to plain geometries.
type Feature struct {
	Tags     map[string]string
	Polygons []orb.Polygon
	Lines    []orb.LineString
	Points   []orb.Point
}

// Layer is the result of one feature query.
type Layer struct {
	Name     string
	Features []Feature
}

// IsEmpty reports whether the layer has no geometry to draw.
func (l *Layer) IsEmpty() bool {
	if l == nil {
		return true
	}
	for _, f := range l.Features {
		if len(f.Polygons)+len(f.Lines)+len(f.Points) > 0 {
			return false
		}
	}
	return true
}

// Polygons returns the polygons of every feature.
func (l *Layer) Polygons() []orb.Polygon {
	if l == nil {
		return nil
	}
	var out []orb.Polygon
	for _, f := range l.Features {
		out = append(out, f.Polygons...)
	}
	return out
}

// Lines returns the line strings of every feature.
func (l *Layer) Lines() []orb.LineString {
	if l == nil {
		return nil
	}
	var out []orb.LineString
	for _, f := range l.Features {
		out = append(out, f.Lines...)
	}
	return out
}

// Points returns the points of every feature.
func (l *Layer) Points() []orb.Point {
	if l == nil {
		return nil
	}
	var out []orb.Point
	for _, f := range l.Features {
		out = append(out, f.Points...)
	}
	return out
}

// Data holds everything fetched for one poster. Layers that could not be
// fetched are nil.
type Data struct {
	Streets []Street
	Water   *Layer
	Parks   *Layer
	// Custom is keyed by the index of the layer in the request.
	Custom map[int]*Layer
}

// HasStreets reports whether a street network was found.
func (d *Data) HasStreets() bool {
	return d != nil && len(d.Streets) > 0
}

// HighwayClass returns the first value of a ";" separated highway tag.
func HighwayClass(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func convert(o *osm.OSM) (*geojson.FeatureCollection, error) {
	return osmgeojson.Convert(o,
		osmgeojson.NoID(true),
		osmgeojson.NoMeta(true),
		osmgeojson.NoRelationMembership(true))
}

func featureTags(f *geojson.Feature) map[string]string {
	switch t := f.Properties["tags"].(type) {
	case map[string]string:
		return t
	case map[string]interface{}:
		out := make(map[string]string, len(t))
		for k, v := range t {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// IsStreet reports whether a way with tags belongs to the street network.
// Area highways and overpass.ExcludedHighways classes do not.
func IsStreet(tags map[string]string) bool {
	hw, ok := tags["highway"]
	if !ok || tags["area"] == "yes" {
		return false
	}
	return !slices.Contains(overpass.ExcludedHighways, HighwayClass(hw))
}

// StreetsFromOSM extracts the street network ways from o. Only line
// geometries are kept, so cached responses are filtered the same way as
// fresh queries.
func StreetsFromOSM(o *osm.OSM) ([]Street, error) {
	fc, err := convert(o)
	if err != nil {
		return nil, err
	}

	var streets []Street
	add := func(class string, ls orb.LineString) {
		if len(ls) > 1 {
			streets = append(streets, Street{Highway: class, Line: ls})
		}
	}

	for _, f := range fc.Features {
		tags := featureTags(f)
		if !IsStreet(tags) {
			continue
		}
		class := HighwayClass(tags["highway"])

		switch g := f.Geometry.(type) {
		case orb.LineString:
			add(class, g)
		case orb.MultiLineString:
			for _, ls := range g {
				add(class, ls)
			}
		}
	}
	return streets, nil
}

// FeaturesFromOSM converts every feature of o, flattening multi geometries.
func FeaturesFromOSM(o *osm.OSM) ([]Feature, error) {
	fc, err := convert(o)
	if err != nil {
		return nil, err
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		feat := Feature{Tags: featureTags(f)}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			feat.Polygons = append(feat.Polygons, g)
		case orb.MultiPolygon:
			feat.Polygons = append(feat.Polygons, g...)
		case orb.LineString:
			feat.Lines = append(feat.Lines, g)
		case orb.MultiLineString:
			feat.Lines = append(feat.Lines, g...)
		case orb.Point:
			feat.Points = append(feat.Points, g)
		case orb.MultiPoint:
			feat.Points = append(feat.Points, g...)
		default:
			continue
		}
		features = append(features, feat)
	}
	return features, nil
}
