package render

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCropHalfExtents(t *testing.T) {
	tests := []struct {
		name         string
		aspect       float64
		dist         float64
		wantX, wantY float64
	}{
		{"portrait", 0.75, 1000, 750, 1000},
		{"landscape", 2, 1000, 1000, 500},
		{"square", 1, 800, 800, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := CropHalfExtents(tt.aspect, tt.dist)
			assert.InDelta(t, tt.wantX, x, 1e-9)
			assert.InDelta(t, tt.wantY, y, 1e-9)
		})
	}
}

func TestNewLayoutWithoutMargins(t *testing.T) {
	l := NewLayout(12, 16, 0, 1000)

	assert.InDelta(t, 304.8, l.PageW, 1e-9)
	assert.InDelta(t, 406.4, l.PageH, 1e-9)
	assert.Equal(t, Rect{X: 0, Y: 0, W: l.PageW, H: l.PageH}, l.Area)
	assert.InDelta(t, l.Area.W, l.Frame.W, 1e-9)
	assert.InDelta(t, l.Area.H, l.Frame.H, 1e-9)
	assert.InDelta(t, 0.2032, l.Scale, 1e-9)

	x, y := l.ToPage(orb.Point{0, 0})
	assert.InDelta(t, l.PageW/2, x, 1e-9)
	assert.InDelta(t, l.PageH/2, y, 1e-9)
}

func TestNewLayoutWithMargins(t *testing.T) {
	l := NewLayout(12, 16, 1, 1000)

	assert.InDelta(t, 25.4, l.Area.X, 1e-9)
	assert.InDelta(t, 25.4, l.Area.Y, 1e-9)
	assert.InDelta(t, 254, l.Area.W, 1e-9)
	assert.InDelta(t, 355.6, l.Area.H, 1e-9)

	// Width limits the scale, so the frame is centred vertically.
	assert.InDelta(t, 254.0/1500, l.Scale, 1e-9)
	assert.InDelta(t, l.Area.X, l.Frame.X, 1e-9)
	assert.InDelta(t, l.Area.W, l.Frame.W, 1e-9)
	assert.InDelta(t, 2000*l.Scale, l.Frame.H, 1e-9)
	assert.InDelta(t, l.Area.Y+(l.Area.H-l.Frame.H)/2, l.Frame.Y, 1e-9)
}

func TestNewLayoutClampsMargins(t *testing.T) {
	l := NewLayout(12, 16, 100, 1000)

	assert.InDelta(t, 0.4*l.PageW, l.Area.X, 1e-9)
	assert.InDelta(t, 0.2*l.PageW, l.Area.W, 1e-9)
	assert.InDelta(t, 0.2*l.PageH, l.Area.H, 1e-9)
}

func TestCropBound(t *testing.T) {
	b := NewLayout(16, 8, 0, 2000).CropBound()
	assert.Equal(t, orb.Point{-2000, -1000}, b.Min)
	assert.Equal(t, orb.Point{2000, 1000}, b.Max)
}

func TestRectAt(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 100, H: 200}
	x, y := r.At(0.5, 0.14)
	assert.InDelta(t, 60, x, 1e-9)
	assert.InDelta(t, 48, y, 1e-9)
}

func TestProjector(t *testing.T) {
	center := domain.Coordinates{Lat: 48.8566, Lon: 2.3522}
	p := NewProjector(center)

	origin := p.Point(center.Point())
	assert.InDelta(t, 0, origin[0], 1e-6)
	assert.InDelta(t, 0, origin[1], 1e-6)

	// One kilometre is about 0.008993 degrees of latitude.
	north := p.Point(orb.Point{center.Lon, center.Lat + 0.008993})
	assert.InDelta(t, 0, north[0], 1e-6)
	assert.InDelta(t, 1000, north[1], 10)

	east := p.Point(orb.Point{center.Lon + 0.01, center.Lat})
	assert.Greater(t, east[0], 0.0)
	assert.InDelta(t, 0, east[1], 1)
}

func TestPtToMM(t *testing.T) {
	assert.InDelta(t, 25.4, PtToMM(72), 1e-9)
	assert.InDelta(t, 1, TextScale(12), 1e-9)
}
