package render

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	citySizePt    = 60.0
	countrySizePt = 22.0
	coordsSizePt  = 14.0
	minCitySizePt = 10.0

	// cityMaxRunes is the name length above which the city font shrinks.
	cityMaxRunes = 10
)

// SpacedName upper-cases name and separates its letters with two spaces.
func SpacedName(name string) string {
	upper := []rune(strings.ToUpper(name))
	parts := make([]string, len(upper))
	for i, r := range upper {
		parts[i] = string(r)
	}
	return strings.Join(parts, "  ")
}

// CitySize returns the city font size in points. Long names shrink
// proportionally but never below 10pt.
func CitySize(name string, scale float64) float64 {
	size := citySizePt * scale
	if n := utf8.RuneCountInString(name); n > cityMaxRunes {
		size = math.Max(citySizePt*scale*cityMaxRunes/float64(n), minCitySizePt)
	}
	return size
}
