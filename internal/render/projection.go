package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/simongrossi/maptoposter-web/internal/domain"
)

// Projector maps WGS84 points to metres east and north of a center.
// It uses web mercator scaled by the mercator scale factor at the center,
// which keeps distances true near the center at poster scales.
type Projector struct {
	origin orb.Point
	factor float64
}

// NewProjector returns a Projector centred on c.
func NewProjector(c domain.Coordinates) Projector {
	center := c.Point()
	return Projector{
		origin: project.WGS84.ToMercator(center),
		factor: project.MercatorScaleFactor(center),
	}
}

// Point projects p.
func (pr Projector) Point(p orb.Point) orb.Point {
	m := project.WGS84.ToMercator(p)
	return orb.Point{
		(m[0] - pr.origin[0]) / pr.factor,
		(m[1] - pr.origin[1]) / pr.factor,
	}
}

// LineString projects every point of ls into a new line string.
func (pr Projector) LineString(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = pr.Point(p)
	}
	return out
}

// Ring projects r.
func (pr Projector) Ring(r orb.Ring) orb.Ring {
	return orb.Ring(pr.LineString(orb.LineString(r)))
}

// Polygon projects every ring of p.
func (pr Projector) Polygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = pr.Ring(r)
	}
	return out
}
