// Package storage keeps photo bytes in an object store.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotExist is returned by Get when no object is stored under the key.
var ErrNotExist = errors.New("object does not exist")

// Storage stores photo objects by key.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	// URL returns the address clients use to fetch key.
	URL(key string) string
}

// PhotoPathPrefix is the API route that serves stored photos.
const PhotoPathPrefix = "/api/photos/"

// NewKey returns a fresh object key for a photo of itemID.
func NewKey(itemID, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return path.Join("items", itemID, uuid.NewString()+"."+ext)
}

// ValidKey reports whether key looks like a key produced by NewKey.
func ValidKey(key string) bool {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return false
	}
	return strings.HasPrefix(key, "items/")
}

func apiURL(key string) string {
	return PhotoPathPrefix + key
}
