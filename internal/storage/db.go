package storage

import (
	"context"
	"database/sql"

	"github.com/erazemk/estatedesk/internal/store"
)

// DB stores photos in the application's SQLite database and serves them
// through the API.
type DB struct {
	db *sql.DB
}

// NewDB returns a storage backed by the photo_blobs table.
func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

func (s *DB) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return store.PutBlob(ctx, s.db, key, data, contentType)
}

func (s *DB) Get(ctx context.Context, key string) ([]byte, string, error) {
	data, mime, err := store.GetBlob(ctx, s.db, key)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", ErrNotExist
	}
	return data, mime, nil
}

func (s *DB) Delete(ctx context.Context, key string) error {
	return store.DeleteBlob(ctx, s.db, key)
}

func (s *DB) URL(key string) string {
	return apiURL(key)
}
