// Package store persists jobs, items and their workflow state in SQLite.
//
// Reads return (nil, nil) when a row does not exist. Every item mutation runs
// in one transaction that loads the full item, applies the workflow rule to
// it and writes back only what changed, so a rejected change leaves no trace.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withItem runs fn inside a transaction on the current state of item id and
// commits if fn succeeds. The leading UPDATE takes SQLite's write lock before
// anything is read.
func withItem(ctx context.Context, db *sql.DB, id, op string, fn func(tx *sql.Tx, it *model.Item) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE items SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.Wrap(workflow.ErrNotFound, op, "item "+id+" does not exist", nil)
	}

	it, err := loadItem(ctx, tx, id)
	if err != nil {
		return err
	}
	if it == nil {
		return workflow.Wrap(workflow.ErrNotFound, op, "item "+id+" does not exist", nil)
	}

	if err := fn(tx, it); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", op, err)
	}
	return nil
}

func encodeInts(v []int) string {
	if v == nil {
		v = []int{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func encodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeInts(s string) ([]int, error) {
	out := []int{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decoding index list: %w", err)
	}
	return out, nil
}

func decodeStrings(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decoding tag list: %w", err)
	}
	return out, nil
}
