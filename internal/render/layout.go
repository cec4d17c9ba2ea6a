package render

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	mmPerInch = 25.4
	mmPerPt   = mmPerInch / 72.0

	// maxMarginFraction caps each margin to 40% of the poster side.
	maxMarginFraction = 0.4
)

// Rect is an axis aligned rectangle in millimetres, origin bottom left.
type Rect struct {
	X, Y, W, H float64
}

// At returns the point at fractions (fx, fy) of the rectangle.
func (r Rect) At(fx, fy float64) (float64, float64) {
	return r.X + fx*r.W, r.Y + fy*r.H
}

// Layout places the crop box on the page.
type Layout struct {
	PageW, PageH float64
	// Area is the page minus margins.
	Area Rect
	// Frame is the crop box fitted into Area with equal axis scale.
	Frame Rect
	// HalfX and HalfY are the crop box half extents in metres.
	HalfX, HalfY float64
	// Scale is millimetres of paper per metre of ground.
	Scale float64
}

// NewLayout computes the layout of a widthIn x heightIn poster showing
// dist metres around the center, with margins inches on every side.
func NewLayout(widthIn, heightIn, margins, dist float64) Layout {
	l := Layout{
		PageW: widthIn * mmPerInch,
		PageH: heightIn * mmPerInch,
	}

	mx := math.Min(math.Max(margins/widthIn, 0), maxMarginFraction)
	my := math.Min(math.Max(margins/heightIn, 0), maxMarginFraction)
	l.Area = Rect{
		X: mx * l.PageW,
		Y: my * l.PageH,
		W: (1 - 2*mx) * l.PageW,
		H: (1 - 2*my) * l.PageH,
	}

	l.HalfX, l.HalfY = CropHalfExtents(widthIn/heightIn, dist)
	l.Scale = math.Min(l.Area.W/(2*l.HalfX), l.Area.H/(2*l.HalfY))

	fw, fh := 2*l.HalfX*l.Scale, 2*l.HalfY*l.Scale
	l.Frame = Rect{
		X: l.Area.X + (l.Area.W-fw)/2,
		Y: l.Area.Y + (l.Area.H-fh)/2,
		W: fw,
		H: fh,
	}
	return l
}

// CropHalfExtents returns the half width and height in metres of the area
// shown for a poster of the given aspect ratio.
func CropHalfExtents(aspect, dist float64) (float64, float64) {
	halfX, halfY := dist, dist
	if aspect > 1 {
		halfY = halfX / aspect
	} else {
		halfX = halfY * aspect
	}
	return halfX, halfY
}

// CropBound is the crop box in local metres.
func (l Layout) CropBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{-l.HalfX, -l.HalfY},
		Max: orb.Point{l.HalfX, l.HalfY},
	}
}

// ToPage converts local metres to page millimetres.
func (l Layout) ToPage(p orb.Point) (float64, float64) {
	return l.Frame.X + (p[0]+l.HalfX)*l.Scale, l.Frame.Y + (p[1]+l.HalfY)*l.Scale
}

// TextScale is the factor applied to font sizes and text strokes; a 12 inch
// wide poster has scale 1.
func TextScale(widthIn float64) float64 {
	return widthIn / 12.0
}

// PtToMM converts points to millimetres.
func PtToMM(pt float64) float64 {
	return pt * mmPerPt
}
