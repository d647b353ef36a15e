package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "screenshots/11.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "file://"+filepath.Join(dir, "screenshots", "11.png"), url)

	data, err := os.ReadFile(filepath.Join(dir, "screenshots", "11.png"))
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), data)
}

func TestPutUsesBaseURL(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir(), BaseURL: "https://cdn.example.com/assets/"})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "favicons/11", "image/x-icon", []byte("ico"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/assets/favicons/11", url)
}

func TestPutRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.png", "image/png", []byte("x"))
	require.Error(t, err)
}

func TestNewCreatesBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "blobs")
	_, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}
