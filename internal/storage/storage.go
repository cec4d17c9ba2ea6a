// Package storage persists rendered posters and builds their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jtacoma/uritemplates"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a poster does not exist.
	ErrNotFound = errors.New("poster not found")

	// ErrInvalidName is returned for names that are empty after sanitizing.
	ErrInvalidName = errors.New("invalid poster name")
)

// DefaultURLTemplate serves posters through the API download route.
const DefaultURLTemplate = "/posters/{filename}"

// Info describes a stored poster.
type Info struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Store keeps posters by file name.
type Store interface {
	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)

	// Put moves or uploads the file at localPath under name.
	Put(ctx context.Context, name, localPath string) error

	// Open returns a reader for name. It returns ErrNotFound when missing.
	Open(ctx context.Context, name string) (io.ReadCloser, Info, error)

	// Cleanup deletes posters older than maxAge and returns how many were
	// removed.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)

	// URL returns the public URL of name.
	URL(name string) string
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeFilename strips every character outside [a-zA-Z0-9_.-]. Names
// made only of dots would escape the storage directory and are rejected.
func SanitizeFilename(name string) (string, error) {
	clean := unsafeChars.ReplaceAllString(filepath.Base(name), "")
	if strings.Trim(clean, ".") == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// ContentType maps a poster file name to its media type.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".svg":
		return "image/svg+xml"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// URLBuilder expands a URI template with a "filename" variable.
type URLBuilder struct {
	template *uritemplates.UriTemplate
}

// NewURLBuilder parses tmpl. An empty template uses DefaultURLTemplate.
func NewURLBuilder(tmpl string) (*URLBuilder, error) {
	if tmpl == "" {
		tmpl = DefaultURLTemplate
	}
	t, err := uritemplates.Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse poster URL template: %w", err)
	}
	return &URLBuilder{template: t}, nil
}

// Build returns the URL of name.
func (b *URLBuilder) Build(name string) string {
	u, err := b.template.Expand(map[string]interface{}{"filename": name})
	if err != nil {
		return "/posters/" + name
	}
	return u
}
