package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the position as an orb point (lon, lat).
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// Label formats the coordinates the way they are printed under the city
// name, e.g. "48.8566° N / 2.3522° E". Southern latitudes are shown without
// their sign; western longitudes switch the hemisphere letter but keep it.
func (c Coordinates) Label() string {
	var s string
	if c.Lat >= 0 {
		s = fmt.Sprintf("%.4f° N / %.4f° E", c.Lat, c.Lon)
	} else {
		s = fmt.Sprintf("%.4f° S / %.4f° E", math.Abs(c.Lat), c.Lon)
	}
	if c.Lon < 0 {
		s = strings.ReplaceAll(s, "E", "W")
	}
	return s
}

// String implements fmt.Stringer.
func (c Coordinates) String() string {
	return fmt.Sprintf("(%g, %g)", c.Lat, c.Lon)
}
