package domain

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// Default values applied to a PosterRequest.
const (
	DefaultStyle      = "feature_based"
	DefaultDistance   = 10000
	DefaultWidth      = 12.0
	DefaultHeight     = 16.0
	DefaultFormat     = "png"
	DefaultDPI        = 300
	DefaultPaperSize  = "custom"
	DefaultLayerWidth = 1.0
)

// Output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

var themeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// CustomLayer is an extra OSM feature layer drawn on top of the streets.
type CustomLayer struct {
	Label   string  `json:"label" validate:"required,max=100"`
	Tags    Tags    `json:"tags"`
	Color   string  `json:"color" validate:"required,hexcolor"`
	Width   float64 `json:"width" validate:"gte=0,lte=20"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// IsEnabled reports whether the layer should be fetched and drawn.
// Layers are enabled unless explicitly switched off.
func (l CustomLayer) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// Fetchable reports whether the layer is enabled and has a usable tag filter.
func (l CustomLayer) Fetchable() bool {
	if !l.IsEnabled() {
		return false
	}
	for _, v := range l.Tags {
		if !v.IsZero() {
			return true
		}
	}
	return false
}

// CustomColors overrides individual theme colors.
type CustomColors struct {
	Bg    string `json:"bg,omitempty" validate:"omitempty,hexcolor"`
	Water string `json:"water,omitempty" validate:"omitempty,hexcolor"`
	Parks string `json:"parks,omitempty" validate:"omitempty,hexcolor"`
	Roads string `json:"roads,omitempty" validate:"omitempty,hexcolor"`
	Text  string `json:"text,omitempty" validate:"omitempty,hexcolor"`
}

// PosterRequest describes one poster: the place, the theme and the print settings.
type PosterRequest struct {
	City         string        `json:"city" validate:"required,max=100"`
	Country      string        `json:"country" validate:"required,max=100"`
	Style        string        `json:"style" validate:"required,themeid"`
	Distance     int           `json:"distance" validate:"gte=500,lte=50000"`
	Width        float64       `json:"width" validate:"gte=1,lte=60"`
	Height       float64       `json:"height" validate:"gte=1,lte=60"`
	CountryLabel string        `json:"country_label,omitempty" validate:"max=100"`
	NameLabel    string        `json:"name_label,omitempty" validate:"max=100"`
	CustomLayers []CustomLayer `json:"custom_layers,omitempty" validate:"max=20,dive"`
	CustomColors *CustomColors `json:"custom_colors,omitempty"`
	Format       string        `json:"format" validate:"oneof=png svg pdf"`
	DPI          int           `json:"dpi" validate:"gte=72,lte=600"`
	Margins      float64       `json:"margins" validate:"gte=0"`
	PaperSize    string        `json:"paper_size" validate:"max=32"`
}

// ApplyDefaults fills unset fields with their default values and normalizes
// the output format to lower case.
func (r *PosterRequest) ApplyDefaults() {
	r.City = strings.TrimSpace(r.City)
	r.Country = strings.TrimSpace(r.Country)
	if r.Style == "" {
		r.Style = DefaultStyle
	}
	if r.Distance == 0 {
		r.Distance = DefaultDistance
	}
	if r.Width == 0 {
		r.Width = DefaultWidth
	}
	if r.Height == 0 {
		r.Height = DefaultHeight
	}
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	if r.Format == "" {
		r.Format = DefaultFormat
	}
	if r.DPI == 0 {
		r.DPI = DefaultDPI
	}
	if r.PaperSize == "" {
		r.PaperSize = DefaultPaperSize
	}
	for i := range r.CustomLayers {
		if r.CustomLayers[i].Width == 0 {
			r.CustomLayers[i].Width = DefaultLayerWidth
		}
		if r.CustomLayers[i].Enabled == nil {
			enabled := true
			r.CustomLayers[i].Enabled = &enabled
		}
	}
}

// NewValidator returns a validator with the poster-specific rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("themeid", func(fl validator.FieldLevel) bool {
		return IsValidThemeID(fl.Field().String())
	})
	return v
}

var requestValidator = NewValidator()

// Validate checks the request against its struct tags.
func (r *PosterRequest) Validate() error {
	if err := requestValidator.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// IsValidThemeID reports whether id is safe to use as a theme file name.
func IsValidThemeID(id string) bool {
	return themeIDPattern.MatchString(id)
}

// Hash returns the md5 hex digest of the request's JSON encoding. Two
// requests with the same content always hash the same because struct fields
// encode in declaration order and map keys are sorted.
func (r *PosterRequest) Hash() string {
	data, err := json.Marshal(r)
	if err != nil {
		// Every field is a plain value; Marshal cannot fail.
		panic(fmt.Sprintf("encode poster request: %v", err))
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Filename returns the stable output file name of the poster.
func (r *PosterRequest) Filename() string {
	return fmt.Sprintf("%s_%s_%s.%s", Slugify(r.City), r.Style, r.Hash()[:8], r.Format)
}

// AspectRatio returns width divided by height.
func (r *PosterRequest) AspectRatio() float64 {
	return r.Width / r.Height
}

// CompensatedDistance widens the fetch radius so that the longer side of a
// non-square poster is still fully covered by map data.
func (r *PosterRequest) CompensatedDistance() float64 {
	maxDim := math.Max(r.Width, r.Height)
	minDim := math.Min(r.Width, r.Height)
	return float64(r.Distance) * (maxDim / minDim)
}

// DisplayName is the name printed on the poster.
func (r *PosterRequest) DisplayName() string {
	if r.NameLabel != "" {
		return r.NameLabel
	}
	return r.City
}

// DisplayCountry is the country line printed on the poster.
func (r *PosterRequest) DisplayCountry() string {
	if r.CountryLabel != "" {
		return r.CountryLabel
	}
	return r.Country
}

// Slugify reduces a place name to a file-name friendly ASCII string:
// accents are stripped, letters are lowercased and spaces become underscores.
func Slugify(value string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(value) {
		if r > unicode.MaxASCII {
			continue
		}
		r = unicode.ToLower(r)
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "poster"
	}
	return b.String()
}
