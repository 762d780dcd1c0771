package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// SaveAnalysis records the proposals for a batch of analyzed groups. The batch
// is rejected as a whole if any group has been analyzed since the request was
// made or the proposals do not match the groups one to one.
func SaveAnalysis(ctx context.Context, db *sql.DB, itemID string, groups []model.PhotoGroup, proposals []model.Proposal, actor string) ([]model.Proposal, error) {
	var merged []model.Proposal

	err := withItem(ctx, db, itemID, "run analysis", func(tx *sql.Tx, it *model.Item) error {
		position := len(it.AI)
		out, err := workflow.MergeAnalysis(it, groups, proposals)
		if err != nil {
			return err
		}

		for i, p := range out {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO proposals (item_id, item_number, position, photo_indices, title, description, category,
				     price, price_low, price_high, length, width, height, dimension_unit, weight, weight_unit,
				     material, tags, confidence)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				itemID, p.ItemNumber, position+i, encodeInts(p.PhotoIndices), p.Title, p.Description, p.Category,
				p.Price, p.PriceLow, p.PriceHigh,
				p.Dimensions.Length, p.Dimensions.Width, p.Dimensions.Height, p.Dimensions.Unit,
				p.Weight.Value, p.Weight.Unit, p.Material, encodeStrings(p.Tags), p.Confidence,
			)
			if err != nil {
				return fmt.Errorf("inserting proposal for item #%d: %w", p.ItemNumber, err)
			}
		}

		it.Status = workflow.DeriveStatus(it)
		if err := saveItemState(ctx, tx, it); err != nil {
			return err
		}
		numbers := make([]int, len(out))
		for i, p := range out {
			numbers[i] = p.ItemNumber
		}
		if err := addEvent(ctx, tx, itemID, model.EventAnalysis, actor, formatNumbers(numbers)); err != nil {
			return err
		}
		merged = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}
