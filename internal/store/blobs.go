package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PutBlob stores photo bytes under key, replacing any previous value.
func PutBlob(ctx context.Context, db *sql.DB, key string, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO photo_blobs (key, data, mime) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET data = excluded.data, mime = excluded.mime`,
		key, data, mime,
	)
	if err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}
	return nil
}

// GetBlob returns the bytes and MIME type stored under key, or nil data if
// there is none.
func GetBlob(ctx context.Context, db *sql.DB, key string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM photo_blobs WHERE key = ?`, key,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting blob: %w", err)
	}
	return data, mime, nil
}

// DeleteBlob removes the blob stored under key.
func DeleteBlob(ctx context.Context, db *sql.DB, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM photo_blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}
