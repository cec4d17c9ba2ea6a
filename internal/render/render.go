package render

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/mapdata"
	"github.com/simongrossi/maptoposter-web/internal/theme"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers"
)

const (
	customLayerAlpha = 0.9
	coordsAlpha      = 0.7
	gradientShare    = 0.25
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// Input is everything needed to draw one poster.
type Input struct {
	Data   *mapdata.Data
	Theme  theme.Theme
	Center domain.Coordinates
	// Distance is the requested radius in metres, not the compensated
	// fetch distance.
	Distance float64
	WidthIn  float64
	HeightIn float64
	Margins  float64
	City     string
	Country  string
	Layers   []domain.CustomLayer
}

// Renderer draws posters.
type Renderer struct {
	fonts  *Fonts
	logger *slog.Logger
}

// NewRenderer creates a Renderer drawing text with fonts.
func NewRenderer(fonts *Fonts, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{fonts: fonts, logger: logger.With("component", "renderer")}
}

type drawing struct {
	ctx    *canvas.Context
	layout Layout
	proj   Projector
	theme  theme.Theme
}

// Render draws in onto a new canvas sized to the poster.
func (r *Renderer) Render(ctx context.Context, in Input) (*canvas.Canvas, error) {
	if !in.Data.HasStreets() {
		return nil, fmt.Errorf("%w: street network missing", domain.ErrNoMapData)
	}
	if in.WidthIn <= 0 || in.HeightIn <= 0 || in.Distance <= 0 {
		return nil, fmt.Errorf("%w: poster size and distance must be positive", domain.ErrValidation)
	}

	layout := NewLayout(in.WidthIn, in.HeightIn, in.Margins, in.Distance)
	c := canvas.New(layout.PageW, layout.PageH)
	d := &drawing{
		ctx:    canvas.NewContext(c),
		layout: layout,
		proj:   NewProjector(in.Center),
		theme:  in.Theme,
	}

	d.background()
	d.fillPolygons(in.Data.Water.Polygons(), in.Theme.Color(theme.KeyWater, gray(0xC0)))
	d.fillPolygons(in.Data.Parks.Polygons(), in.Theme.Color(theme.KeyParks, gray(0xF0)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.streets(in.Data.Streets)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, cl := range in.Layers {
		layer, ok := in.Data.Custom[i]
		if !ok || !cl.IsEnabled() {
			continue
		}
		col, err := theme.ParseHex(cl.Color)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping layer with invalid color", "layer", cl.Label, "color", cl.Color)
			continue
		}
		d.customLayer(layer, theme.WithAlpha(col, customLayerAlpha), cl.Width)
	}

	grad := in.Theme.GradientColor()
	d.gradient(grad, 0, gradientShare, 1, 0)
	d.gradient(grad, 1-gradientShare, 1, 0, 1)

	d.text(r.fonts, in)

	r.logger.DebugContext(ctx, "poster composed",
		"width_mm", layout.PageW,
		"height_mm", layout.PageH,
		"streets", len(in.Data.Streets))
	return c, nil
}

func (d *drawing) background() {
	bg := d.theme.Color(theme.KeyBackground, white)
	d.ctx.SetStrokeColor(canvas.Transparent)
	d.ctx.SetFillColor(bg)
	d.ctx.DrawPath(0, 0, canvas.Rectangle(d.layout.PageW, d.layout.PageH))
}

func (d *drawing) addLine(p *canvas.Path, ls orb.LineString) {
	if len(ls) < 2 {
		return
	}
	x, y := d.layout.ToPage(ls[0])
	p.MoveTo(x, y)
	for _, pt := range ls[1:] {
		x, y = d.layout.ToPage(pt)
		p.LineTo(x, y)
	}
}

func (d *drawing) addRing(p *canvas.Path, r orb.Ring) {
	if len(r) < 3 {
		return
	}
	d.addLine(p, orb.LineString(r))
	p.Close()
}

// visiblePolygons projects polys and returns the parts inside the crop box.
func (d *drawing) visiblePolygons(polys []orb.Polygon) []orb.Polygon {
	projected := make([]orb.Polygon, len(polys))
	bounds := make([]orb.Bound, len(polys))
	for i, p := range polys {
		projected[i] = d.proj.Polygon(p)
		bounds[i] = projected[i].Bound()
	}

	crop := d.layout.CropBound()
	var out []orb.Polygon
	for _, i := range newSpatialIndex(bounds).Search(crop) {
		switch g := clip.Geometry(crop, projected[i]).(type) {
		case orb.Polygon:
			if len(g) > 0 {
				out = append(out, g)
			}
		case orb.MultiPolygon:
			out = append(out, g...)
		}
	}
	return out
}

// visibleLines projects lines and returns the parts inside the crop box.
func (d *drawing) visibleLines(lines []orb.LineString) []orb.LineString {
	projected := make([]orb.LineString, len(lines))
	bounds := make([]orb.Bound, len(lines))
	for i, ls := range lines {
		projected[i] = d.proj.LineString(ls)
		bounds[i] = projected[i].Bound()
	}

	crop := d.layout.CropBound()
	var out []orb.LineString
	for _, i := range newSpatialIndex(bounds).Search(crop) {
		switch g := clip.Geometry(crop, projected[i]).(type) {
		case orb.LineString:
			out = append(out, g)
		case orb.MultiLineString:
			out = append(out, g...)
		}
	}
	return out
}

func (d *drawing) fillPolygons(polys []orb.Polygon, col color.RGBA) {
	visible := d.visiblePolygons(polys)
	if len(visible) == 0 {
		return
	}

	d.ctx.SetStrokeColor(canvas.Transparent)
	d.ctx.SetFillColor(col)
	d.ctx.Style.FillRule = canvas.EvenOdd
	// One path per polygon so inner rings cut holes without overlapping
	// polygons cancelling each other out.
	for _, poly := range visible {
		p := &canvas.Path{}
		for _, ring := range poly {
			d.addRing(p, ring)
		}
		if !p.Empty() {
			d.ctx.DrawPath(0, 0, p)
		}
	}
	d.ctx.Style.FillRule = canvas.NonZero
}

func (d *drawing) strokeLines(lines []orb.LineString, col color.RGBA, widthPt float64) {
	if len(lines) == 0 || widthPt <= 0 {
		return
	}
	p := &canvas.Path{}
	for _, ls := range lines {
		d.addLine(p, ls)
	}
	if p.Empty() {
		return
	}

	d.ctx.SetFillColor(canvas.Transparent)
	d.ctx.SetStrokeColor(col)
	d.ctx.SetStrokeWidth(PtToMM(widthPt))
	d.ctx.SetStrokeCapper(canvas.RoundCap)
	d.ctx.SetStrokeJoiner(canvas.RoundJoin)
	d.ctx.DrawPath(0, 0, p)
}

// streets draws the network one style at a time, least important first.
func (d *drawing) streets(streets []mapdata.Street) {
	byRank := make(map[int][]orb.LineString, len(RoadStyles))
	for _, s := range streets {
		rank := StyleFor(s.Highway).Rank
		byRank[rank] = append(byRank[rank], s.Line)
	}

	for _, style := range RoadStyles {
		lines := d.visibleLines(byRank[style.Rank])
		d.strokeLines(lines, style.Color(d.theme), style.Width)
	}
}

func (d *drawing) customLayer(layer *mapdata.Layer, col color.RGBA, widthPt float64) {
	d.fillPolygons(layer.Polygons(), col)
	d.strokeLines(d.visibleLines(layer.Lines()), col, widthPt)

	if widthPt <= 0 {
		return
	}
	crop := d.layout.CropBound()
	r := PtToMM(widthPt) / 2
	d.ctx.SetStrokeColor(canvas.Transparent)
	d.ctx.SetFillColor(col)
	for _, pt := range layer.Points() {
		local := d.proj.Point(pt)
		if !crop.Contains(local) {
			continue
		}
		x, y := d.layout.ToPage(local)
		d.ctx.DrawPath(x, y, canvas.Circle(r))
	}
}

// gradient fades col over the frame between heights from and to (fractions
// of the frame), going from alpha a0 at the bottom edge to a1 at the top.
func (d *drawing) gradient(col color.RGBA, from, to, a0, a1 float64) {
	f := d.layout.Frame
	x0, y0 := f.At(0, from)
	x1, y1 := f.At(1, to)

	g := canvas.NewLinearGradient(canvas.Point{X: x0, Y: y0}, canvas.Point{X: x0, Y: y1})
	g.Add(0, theme.WithAlpha(col, a0))
	g.Add(1, theme.WithAlpha(col, a1))

	p := &canvas.Path{}
	p.MoveTo(x0, y0)
	p.LineTo(x1, y0)
	p.LineTo(x1, y1)
	p.LineTo(x0, y1)
	p.Close()

	d.ctx.SetStrokeColor(canvas.Transparent)
	d.ctx.SetFill(g)
	d.ctx.DrawPath(0, 0, p)
	d.ctx.SetFillColor(canvas.Transparent)
}

func (d *drawing) text(fonts *Fonts, in Input) {
	if fonts == nil {
		return
	}
	scale := TextScale(in.WidthIn)
	textColor := d.theme.Color(theme.KeyText, black)
	f := d.layout.Frame

	city := fonts.Face(canvas.FontBold, CitySize(in.City, scale), textColor)
	x, y := f.At(0.5, 0.14)
	d.ctx.DrawText(x, y, canvas.NewTextLine(city, SpacedName(in.City), canvas.Center))

	country := fonts.Face(canvas.FontLight, countrySizePt*scale, textColor)
	x, y = f.At(0.5, 0.10)
	d.ctx.DrawText(x, y, canvas.NewTextLine(country, strings.ToUpper(in.Country), canvas.Center))

	coords := fonts.Face(canvas.FontRegular, coordsSizePt*scale, theme.WithAlpha(textColor, coordsAlpha))
	x, y = f.At(0.5, 0.07)
	d.ctx.DrawText(x, y, canvas.NewTextLine(coords, in.Center.Label(), canvas.Center))

	x0, y0 := f.At(0.4, 0.125)
	x1, _ := f.At(0.6, 0.125)
	divider := &canvas.Path{}
	divider.MoveTo(x0, y0)
	divider.LineTo(x1, y0)
	d.ctx.SetFillColor(canvas.Transparent)
	d.ctx.SetStrokeColor(textColor)
	d.ctx.SetStrokeWidth(PtToMM(scale))
	d.ctx.SetStrokeCapper(canvas.ButtCap)
	d.ctx.DrawPath(0, 0, divider)
}

// Write encodes c to path as format ("png", "svg" or "pdf"). dpi only
// affects raster output.
func Write(c *canvas.Canvas, path, format string, dpi float64) error {
	format = strings.ToLower(format)
	switch format {
	case domain.FormatPNG, domain.FormatSVG, domain.FormatPDF:
	default:
		return fmt.Errorf("%w: unsupported output format %q", domain.ErrValidation, format)
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != format {
		return fmt.Errorf("output path %q does not match format %q", path, format)
	}
	if dpi <= 0 {
		dpi = domain.DefaultDPI
	}

	if err := renderers.Write(path, c, canvas.DPMM(dpi/mmPerInch)); err != nil {
		return fmt.Errorf("write %s poster: %w", format, err)
	}
	return nil
}
