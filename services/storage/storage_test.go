package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	key := GenerateKey("file", ".PDF", now)
	assert.Regexp(t, `^file-1700000000123-\d+\.pdf$`, key)

	assert.Regexp(t, `^file-1700000000123-\d+$`, GenerateKey("", "", now))
	assert.NoError(t, validKey(key))
}

func TestValidKey(t *testing.T) {
	assert.NoError(t, validKey("file-1-2.pdf"))
	for _, bad := range []string{"", "../etc/passwd", "a/b.pdf", ".hidden"} {
		assert.ErrorIs(t, validKey(bad), ErrInvalidKey, bad)
	}
}

func TestLocalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)
	assert.Equal(t, "local", store.Driver())

	url, err := store.Put(ctx, "file-1-1.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/file-1-1.txt", url)

	data, err := os.ReadFile(filepath.Join(dir, "file-1-1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// Keys are never overwritten
	_, err = store.Put(ctx, "file-1-1.txt", strings.NewReader("again"), 5, "text/plain")
	assert.Error(t, err)

	_, err = store.Put(ctx, "../escape.txt", strings.NewReader("x"), 1, "text/plain")
	assert.ErrorIs(t, err, ErrInvalidKey)

	objects, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "file-1-1.txt", objects[0].Key)
	assert.Equal(t, int64(5), objects[0].Size)

	require.NoError(t, store.Delete(ctx, "file-1-1.txt"))
	// Deleting a missing file is not an error
	require.NoError(t, store.Delete(ctx, "file-1-1.txt"))

	objects, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestSpacesStoreURL(t *testing.T) {
	store, err := NewSpacesStore(SpacesConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "eduhub",
		Region:    "nyc3",
	})
	require.NoError(t, err)
	assert.Equal(t, "spaces", store.Driver())
	assert.Equal(t, "https://eduhub.nyc3.digitaloceanspaces.com/uploads/file-1-1.pdf", store.URL("file-1-1.pdf"))

	cdn, err := NewSpacesStore(SpacesConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "eduhub",
		Region:    "nyc3",
		CDNURL:    "https://cdn.example.com/",
		Prefix:    "/materials/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/materials/file-1-1.pdf", cdn.URL("file-1-1.pdf"))

	_, err = NewSpacesStore(SpacesConfig{Bucket: "eduhub", Region: "nyc3"})
	assert.Error(t, err)
}
