package render

import (
	"image/color"

	"github.com/simongrossi/maptoposter-web/internal/theme"
)

// RoadStyle is how one highway class is stroked.
type RoadStyle struct {
	// Rank orders drawing; higher ranks are drawn later and end up on top.
	Rank     int
	Key      string
	Fallback color.RGBA
	// Width is the stroke width in points.
	Width float64
}

func gray(v uint8) color.RGBA {
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

var (
	styleDefault     = RoadStyle{Rank: 0, Key: theme.KeyRoadDefault, Fallback: gray(0x33), Width: 0.4}
	styleResidential = RoadStyle{Rank: 1, Key: theme.KeyRoadResidential, Fallback: gray(0x44), Width: 0.4}
	styleTertiary    = RoadStyle{Rank: 2, Key: theme.KeyRoadTertiary, Fallback: gray(0x33), Width: 0.6}
	styleSecondary   = RoadStyle{Rank: 3, Key: theme.KeyRoadSecondary, Fallback: gray(0x22), Width: 0.8}
	stylePrimary     = RoadStyle{Rank: 4, Key: theme.KeyRoadPrimary, Fallback: gray(0x11), Width: 1.0}
	styleMotorway    = RoadStyle{Rank: 5, Key: theme.KeyRoadMotorway, Fallback: gray(0x00), Width: 1.2}
)

// RoadStyles lists every style in drawing order.
var RoadStyles = []RoadStyle{
	styleDefault,
	styleResidential,
	styleTertiary,
	styleSecondary,
	stylePrimary,
	styleMotorway,
}

// StyleFor returns the style of a highway class.
func StyleFor(highway string) RoadStyle {
	switch highway {
	case "motorway", "motorway_link":
		return styleMotorway
	case "trunk", "trunk_link", "primary", "primary_link":
		return stylePrimary
	case "secondary", "secondary_link":
		return styleSecondary
	case "tertiary", "tertiary_link":
		return styleTertiary
	case "residential", "living_street":
		return styleResidential
	default:
		return styleDefault
	}
}

// Color resolves the style color against t.
func (s RoadStyle) Color(t theme.Theme) color.RGBA {
	return t.Color(s.Key, s.Fallback)
}
