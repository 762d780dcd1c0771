package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// CommitApproval appends an approval batch and marks the item approved. Either
// every item in the batch is recorded or none is.
func CommitApproval(ctx context.Context, db *sql.DB, itemID string, items []model.ApprovedItem, actor string) ([]model.ApprovedItem, error) {
	var committed []model.ApprovedItem

	err := withItem(ctx, db, itemID, "approve items", func(tx *sql.Tx, it *model.Item) error {
		batch := make([]model.ApprovedItem, len(items))
		copy(batch, items)
		position := len(it.ApprovedItems)
		if err := workflow.TransitionOnApprove(it, batch); err != nil {
			return err
		}

		numbers := make([]int, len(batch))
		for i, a := range batch {
			numbers[i] = a.ItemNumber
			_, err := tx.ExecContext(ctx,
				`INSERT INTO approved_items (item_id, item_number, position, photo_indices, title, description,
				     category, price, length, width, height, dimension_unit, weight, weight_unit, material, tags,
				     approved_by)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				itemID, a.ItemNumber, position+i, encodeInts(a.PhotoIndices), a.Title, a.Description,
				a.Category, a.Price, a.Dimensions.Length, a.Dimensions.Width, a.Dimensions.Height,
				a.Dimensions.Unit, a.Weight.Value, a.Weight.Unit, a.Material, encodeStrings(a.Tags), actor,
			)
			if err != nil {
				return fmt.Errorf("inserting approved item #%d: %w", a.ItemNumber, err)
			}
		}

		if err := saveItemState(ctx, tx, it); err != nil {
			return err
		}
		if err := addEvent(ctx, tx, itemID, model.EventApproval, actor, formatNumbers(numbers)); err != nil {
			return err
		}
		committed = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// ReopenItem sends an item back to review. Approved items, proposals and
// dispositions are kept.
func ReopenItem(ctx context.Context, db *sql.DB, itemID, reason, actor string) error {
	return withItem(ctx, db, itemID, "reopen item", func(tx *sql.Tx, it *model.Item) error {
		if err := workflow.Reopen(it, reason); err != nil {
			return err
		}
		if err := saveItemState(ctx, tx, it); err != nil {
			return err
		}
		return addEvent(ctx, tx, itemID, model.EventReopen, actor, it.ReopenReason)
	})
}
