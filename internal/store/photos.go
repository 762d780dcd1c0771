package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// AppendPhotos appends an upload batch to an item as one new photo group.
// The photos must already be stored; only their references are recorded.
func AppendPhotos(ctx context.Context, db *sql.DB, itemID string, batch []model.Photo, actor string) (model.PhotoGroup, []model.Photo, error) {
	var group model.PhotoGroup
	var added []model.Photo

	err := withItem(ctx, db, itemID, "upload photos", func(tx *sql.Tx, it *model.Item) error {
		if err := workflow.CheckUpload(it); err != nil {
			return err
		}
		g, photos, err := workflow.ApplyUpload(it, batch)
		if err != nil {
			return err
		}
		if err := workflow.CheckPartition(it); err != nil {
			return fmt.Errorf("upload photos: %w", err)
		}

		for _, p := range photos {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO photos (item_id, idx, url, object_key) VALUES (?, ?, ?, ?)`,
				itemID, p.Index, p.URL, p.Key,
			)
			if err != nil {
				return fmt.Errorf("inserting photo %d: %w", p.Index, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO photo_groups (item_id, item_number, start_index, end_index, title)
			 VALUES (?, ?, ?, ?, ?)`,
			itemID, g.ItemNumber, g.StartIndex, g.EndIndex, g.Title,
		)
		if err != nil {
			return fmt.Errorf("inserting photo group: %w", err)
		}

		it.Status = workflow.DeriveStatus(it)
		if err := saveItemState(ctx, tx, it); err != nil {
			return err
		}
		detail := fmt.Sprintf("item #%d: %d photo(s) at %d..%d", g.ItemNumber, g.PhotoCount, g.StartIndex, g.EndIndex)
		if err := addEvent(ctx, tx, itemID, model.EventUpload, actor, detail); err != nil {
			return err
		}

		group, added = g, photos
		return nil
	})
	if err != nil {
		return model.PhotoGroup{}, nil, err
	}
	return group, added, nil
}

// saveItemState writes the scalar item columns.
func saveItemState(ctx context.Context, tx *sql.Tx, it *model.Item) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, reopen_reason = ?, next_item_number = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		it.Status, it.ReopenReason, max(it.NextItemNumber, 1), it.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}
