// Package theme loads the JSON color themes that style a poster.
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/simongrossi/maptoposter-web/internal/domain"
)

// Theme keys.
const (
	KeyName            = "name"
	KeyDescription     = "description"
	KeyBackground      = "bg"
	KeyText            = "text"
	KeyGradient        = "gradient_color"
	KeyWater           = "water"
	KeyParks           = "parks"
	KeyRoadMotorway    = "road_motorway"
	KeyRoadPrimary     = "road_primary"
	KeyRoadSecondary   = "road_secondary"
	KeyRoadTertiary    = "road_tertiary"
	KeyRoadResidential = "road_residential"
	KeyRoadDefault     = "road_default"

	roadPrefix = "road_"
)

// Theme is a flat map of theme keys to values, mostly hex colors.
type Theme map[string]string

// Default returns the built-in theme used when a theme file does not exist.
func Default() Theme {
	return Theme{
		KeyName:         "Feature-Based Shading",
		KeyBackground:   "#FFFFFF",
		KeyText:         "#000000",
		KeyGradient:     "#FFFFFF",
		KeyWater:        "#C0C0C0",
		KeyParks:        "#F0F0F0",
		KeyRoadMotorway: "#0A0A0A",
		KeyRoadPrimary:  "#1A1A1A",
		KeyRoadDefault:  "#3A3A3A",
	}
}

// Clone returns a copy that can be modified independently.
func (t Theme) Clone() Theme {
	c := make(Theme, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Name returns the display name of the theme.
func (t Theme) Name() string {
	return t[KeyName]
}

// Apply returns a copy of the theme with the user's color overrides.
// The roads override recolors every road class at once.
func (t Theme) Apply(cc *domain.CustomColors) Theme {
	out := t.Clone()
	if cc == nil {
		return out
	}
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set(KeyBackground, cc.Bg)
	set(KeyWater, cc.Water)
	set(KeyParks, cc.Parks)
	set(KeyText, cc.Text)
	if cc.Roads != "" {
		for k := range out {
			if strings.HasPrefix(k, roadPrefix) {
				out[k] = cc.Roads
			}
		}
	}
	return out
}

// Color returns the parsed color stored under key, or fallback when the key
// is missing or does not hold a valid hex color.
func (t Theme) Color(key string, fallback color.RGBA) color.RGBA {
	s, ok := t[key]
	if !ok {
		return fallback
	}
	c, err := ParseHex(s)
	if err != nil {
		return fallback
	}
	return c
}

// GradientColor returns the fade color, which defaults to the background.
func (t Theme) GradientColor() color.RGBA {
	bg := t.Color(KeyBackground, color.RGBA{255, 255, 255, 255})
	return t.Color(KeyGradient, bg)
}

// ParseHex parses #RGB, #RGBA, #RRGGBB and #RRGGBBAA colors.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range s {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		s = expanded.String()
	case 6, 8:
	default:
		return color.RGBA{}, fmt.Errorf("%w: color %q", domain.ErrInvalidFormat, s)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: color %q", domain.ErrInvalidFormat, s)
	}
	// color.RGBA is alpha-premultiplied.
	a := uint8(v)
	return color.RGBA{
		R: premultiply(uint8(v>>24), a),
		G: premultiply(uint8(v>>16), a),
		B: premultiply(uint8(v>>8), a),
		A: a,
	}, nil
}

func premultiply(c, a uint8) uint8 {
	return uint8(uint16(c) * uint16(a) / 255)
}

// WithAlpha scales a premultiplied color by alpha in [0,1].
func WithAlpha(c color.RGBA, alpha float64) color.RGBA {
	scale := func(v uint8) uint8 { return uint8(float64(v)*alpha + 0.5) }
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: scale(c.A)}
}

// Summary is the listing entry of a theme.
type Summary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Colors      SummaryColors `json:"colors"`
}

// SummaryColors are the preview colors of a theme.
type SummaryColors struct {
	Bg          string `json:"bg,omitempty"`
	RoadPrimary string `json:"road_primary,omitempty"`
	Water       string `json:"water,omitempty"`
}

// Catalog reads themes from a directory.
type Catalog struct {
	dir    string
	logger *slog.Logger
}

// NewCatalog creates a catalog rooted at dir.
func NewCatalog(dir string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{dir: dir, logger: logger.With("component", "theme_catalog")}
}

// Load reads the theme with the given id. A missing file yields the default
// theme; an unreadable or malformed file is an error.
func (c *Catalog) Load(id string) (Theme, error) {
	if id == "" {
		id = domain.DefaultStyle
	}
	if !domain.IsValidThemeID(id) {
		return nil, fmt.Errorf("%w: invalid theme id %q", domain.ErrInvalidID, id)
	}

	data, err := os.ReadFile(filepath.Join(c.dir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("theme file not found, using default theme", "theme", id)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read theme %s: %w", id, err)
	}

	t, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse theme %s: %w", id, err)
	}
	return t, nil
}

// Exists reports whether a theme file with the given id is present.
func (c *Catalog) Exists(id string) bool {
	if !domain.IsValidThemeID(id) {
		return false
	}
	_, err := os.Stat(filepath.Join(c.dir, id+".json"))
	return err == nil
}

// List returns a summary of every theme file, sorted by id.
// Files that cannot be parsed are skipped.
func (c *Catalog) List() ([]Summary, error) {
	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}

	summaries := make([]Summary, 0, len(paths))
	for _, p := range paths {
		id := strings.TrimSuffix(filepath.Base(p), ".json")
		data, err := os.ReadFile(p)
		if err != nil {
			c.logger.Warn("skipping unreadable theme", "theme", id, "error", err)
			continue
		}
		t, err := decode(data)
		if err != nil {
			c.logger.Warn("skipping invalid theme", "theme", id, "error", err)
			continue
		}

		name := t.Name()
		if name == "" {
			name = id
		}
		summaries = append(summaries, Summary{
			ID:          id,
			Name:        name,
			Description: t[KeyDescription],
			Colors: SummaryColors{
				Bg:          t[KeyBackground],
				RoadPrimary: t[KeyRoadPrimary],
				Water:       t[KeyWater],
			},
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// decode parses a theme document. Non-string values are ignored.
func decode(data []byte) (Theme, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	t := make(Theme, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			t[k] = s
		}
	}
	return t, nil
}
