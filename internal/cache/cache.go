// Package cache provides a flat key to file cache for fetched map data and
// geocoding answers. Entries never expire; the directory can be cleared.
package cache

import (
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".gob"

// Cache stores arbitrary gob-encodable values under string keys.
type Cache interface {
	// Get decodes the value stored under key into dst and reports whether
	// an entry was found.
	Get(key string, dst interface{}) (bool, error)
	// Set stores v under key.
	Set(key string, v interface{}) error
}

// DiskCache keeps one file per key, named after the md5 of the key.
type DiskCache struct {
	dir    string
	logger *slog.Logger
}

var _ Cache = (*DiskCache)(nil)

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string, logger *slog.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskCache{dir: dir, logger: logger.With("component", "disk_cache")}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	return c.dir
}

// HashKey returns the file stem used for key.
func HashKey(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, HashKey(key)+fileExt)
}

// Get implements Cache. A corrupt entry is logged and reported as a miss.
func (c *DiskCache) Get(key string, dst interface{}) (bool, error) {
	f, err := os.Open(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		c.logger.Warn("cache read error", "key", key, "error", err)
		return false, nil
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(dst); err != nil {
		c.logger.Warn("cache decode error", "key", key, "error", err)
		return false, nil
	}
	c.logger.Debug("cache hit", "key", key)
	return true, nil
}

// Set implements Cache. The entry is written to a temporary file and renamed
// into place so readers never observe a partial write.
func (c *DiskCache) Set(key string, v interface{}) error {
	tmp, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	tmpName := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// Clear removes every cache entry and returns how many were deleted.
func (c *DiskCache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), fileExt) || strings.HasPrefix(e.Name(), "tmp-")) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove cache entry: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Nop is a cache that never stores anything.
type Nop struct{}

// Get implements Cache.
func (Nop) Get(string, interface{}) (bool, error) { return false, nil }

// Set implements Cache.
func (Nop) Set(string, interface{}) error { return nil }
