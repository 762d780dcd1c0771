package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

const settingJWTSecret = "jwt_secret"

// GetSetting returns the value stored under key and whether it exists.
func GetSetting(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSettingIfAbsent stores value under key unless key already has a value,
// and returns the value that ends up stored.
func SetSettingIfAbsent(ctx context.Context, db *sql.DB, key, value string) (string, error) {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value,
	); err != nil {
		return "", fmt.Errorf("storing setting %s: %w", key, err)
	}
	stored, _, err := GetSetting(ctx, db, key)
	return stored, err
}

// GetJWTSecret returns the token signing secret, generating and persisting
// one on first use. Concurrent first calls agree on a single value.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	if secret, ok, err := GetSetting(ctx, db, settingJWTSecret); err != nil || ok {
		return secret, err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return SetSettingIfAbsent(ctx, db, settingJWTSecret, hex.EncodeToString(buf))
}
