package render

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	"github.com/tdewolff/canvas"
)

// Font files looked up in the fonts directory.
var fontFiles = []struct {
	name  string
	style canvas.FontStyle
}{
	{"Roboto-Bold.ttf", canvas.FontBold},
	{"Roboto-Regular.ttf", canvas.FontRegular},
	{"Roboto-Light.ttf", canvas.FontLight},
}

// Fonts is the typeface used for poster text.
type Fonts struct {
	family *canvas.FontFamily
	// Embedded is true when the bundled Latin Modern faces are in use.
	Embedded bool
}

// LoadFonts loads the Roboto faces from dir. When any of them is missing
// or unreadable the embedded Latin Modern Sans faces are used instead.
func LoadFonts(dir string, logger *slog.Logger) (*Fonts, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fonts, err := loadDir(dir)
	if err == nil {
		return fonts, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("poster fonts not found, using embedded fonts", "dir", dir)
	} else {
		logger.Warn("failed to load poster fonts, using embedded fonts", "dir", dir, "error", err)
	}
	return EmbeddedFonts()
}

func loadDir(dir string) (*Fonts, error) {
	if dir == "" {
		return nil, fs.ErrNotExist
	}
	for _, f := range fontFiles {
		if _, err := os.Stat(filepath.Join(dir, f.name)); err != nil {
			return nil, err
		}
	}

	family := canvas.NewFontFamily("roboto")
	for _, f := range fontFiles {
		if err := family.LoadFontFile(filepath.Join(dir, f.name), f.style); err != nil {
			return nil, fmt.Errorf("load %s: %w", f.name, err)
		}
	}
	return &Fonts{family: family}, nil
}

// EmbeddedFonts returns the bundled Latin Modern Sans faces. The regular
// face doubles as the light one.
func EmbeddedFonts() (*Fonts, error) {
	family := canvas.NewFontFamily("latin-modern-sans")
	if err := family.LoadFont(lmsans10bold.TTF, 0, canvas.FontBold); err != nil {
		return nil, fmt.Errorf("load embedded bold font: %w", err)
	}
	if err := family.LoadFont(lmsans10regular.TTF, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("load embedded regular font: %w", err)
	}
	if err := family.LoadFont(lmsans10regular.TTF, 0, canvas.FontLight); err != nil {
		return nil, fmt.Errorf("load embedded light font: %w", err)
	}
	return &Fonts{family: family, Embedded: true}, nil
}

// Face returns a face of the given style, size in points and color.
func (f *Fonts) Face(style canvas.FontStyle, sizePt float64, col color.Color) *canvas.FontFace {
	return f.family.Face(sizePt, col, style, canvas.FontNormal)
}
