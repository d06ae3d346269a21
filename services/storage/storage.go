package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"
)

var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored file
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// FileStore persists uploaded files and maps them to public URLs
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Object, error)
	URL(key string) string
	Driver() string
}

// GenerateKey builds a collision-resistant flat file name:
// <field>-<unix millis>-<random 9 digits><ext>
func GenerateKey(field, ext string, now time.Time) string {
	if field == "" {
		field = "file"
	}
	return fmt.Sprintf("%s-%d-%d%s", field, now.UnixMilli(), rand.Int64N(1_000_000_000), strings.ToLower(ext))
}

func validKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
