package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LocalStore keeps posters in a directory.
type LocalStore struct {
	dir    string
	urls   *URLBuilder
	logger *slog.Logger
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates dir if needed and returns a store rooted there.
func NewLocalStore(dir string, urls *URLBuilder, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if urls == nil {
		urls, _ = NewURLBuilder("")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create poster directory: %w", err)
	}
	return &LocalStore{dir: dir, urls: urls, logger: logger.With("component", "local_store")}, nil
}

// Dir returns the storage directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Path returns the on-disk location of name.
func (s *LocalStore) Path(name string) (string, error) {
	clean, err := SanitizeFilename(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, clean), nil
}

// Exists implements Store.
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Put implements Store. The source file is moved, or copied and removed
// when a rename is not possible.
func (s *LocalStore) Put(_ context.Context, name, localPath string) error {
	dst, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Rename(localPath, dst); err == nil {
		return nil
	}

	if err := copyFile(localPath, dst); err != nil {
		return fmt.Errorf("store poster %s: %w", name, err)
	}
	if err := os.Remove(localPath); err != nil {
		s.logger.Warn("failed to remove temporary poster", "path", localPath, "error", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Open implements Store.
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, Info, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, Info{}, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, Info{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Info{}, err
	}
	if !st.Mode().IsRegular() {
		f.Close()
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, Info{
		Name:        filepath.Base(path),
		Size:        st.Size(),
		ModTime:     st.ModTime(),
		ContentType: ContentType(path),
	}, nil
}

// Cleanup implements Store.
func (s *LocalStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list poster directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			s.logger.WarnContext(ctx, "failed to delete old poster", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "deleted old posters", "count", removed)
	}
	return removed, nil
}

// URL implements Store.
func (s *LocalStore) URL(name string) string {
	return s.urls.Build(name)
}
