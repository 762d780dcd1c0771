package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// MarkDisposition records a sold, donated or hauled outcome for every photo of
// an approved item. policy decides whether photos already disposed under a
// different kind are rejected or moved.
func MarkDisposition(ctx context.Context, db *sql.DB, itemID string, itemNumber int, kind string, price *float64, policy workflow.ConflictPolicy, actor string) ([]int, error) {
	var changed []int

	err := withItem(ctx, db, itemID, "mark disposition", func(tx *sql.Tx, it *model.Item) error {
		indices, err := workflow.ApplyDisposition(it, itemNumber, kind, price, policy)
		if err != nil {
			return err
		}
		if err := workflow.CheckDispositions(it); err != nil {
			return fmt.Errorf("mark disposition: %w", err)
		}

		for _, idx := range indices {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO dispositions (item_id, photo_index, kind, item_number, marked_by)
				 VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT (item_id, photo_index) DO UPDATE SET
				     kind = excluded.kind,
				     item_number = excluded.item_number,
				     marked_by = excluded.marked_by,
				     marked_at = CURRENT_TIMESTAMP`,
				itemID, idx, kind, itemNumber, actor,
			)
			if err != nil {
				return fmt.Errorf("recording disposition of photo %d: %w", idx, err)
			}
		}

		// Sale prices can change on the target and, when photos move away
		// from sold, on other approved items.
		for _, a := range it.ApprovedItems {
			_, err := tx.ExecContext(ctx,
				`UPDATE approved_items SET estate_sale_price = ? WHERE item_id = ? AND item_number = ?`,
				a.EstateSalePrice, itemID, a.ItemNumber,
			)
			if err != nil {
				return fmt.Errorf("updating sale price of item #%d: %w", a.ItemNumber, err)
			}
		}

		detail := fmt.Sprintf("item #%d %s", itemNumber, kind)
		if price != nil {
			detail += fmt.Sprintf(" for %.2f", *price)
		}
		if err := addEvent(ctx, tx, itemID, model.EventDisposition, actor, detail); err != nil {
			return err
		}
		changed = indices
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}
