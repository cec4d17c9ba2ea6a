package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "poster-*")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestLocalStorePutOpen(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "posters"), nil, nil)
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "paris.png")
	require.NoError(t, err)
	assert.False(t, ok)

	src := writeTemp(t, "png-bytes")
	require.NoError(t, s.Put(ctx, "paris.png", src))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "the source file is moved")

	ok, err = s.Exists(ctx, "paris.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, info, err := s.Open(ctx, "paris.png")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "paris.png", info.Name)
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, "/posters/paris.png", s.URL("paris.png"))
}

func TestLocalStoreOpenMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), nil, nil)
	require.NoError(t, err)

	_, _, err = s.Open(context.Background(), "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.Open(context.Background(), "..")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLocalStoreCleanup(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, nil, nil)
	require.NoError(t, err)

	old := filepath.Join(dir, "old.png")
	fresh := filepath.Join(dir, "fresh.png")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := s.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(dir, "nested"))
}
