package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// CreateItem creates an empty draft item under a job.
func CreateItem(ctx context.Context, db *sql.DB, jobID, actor string) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE id = ?`, jobID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking job: %w", err)
	}
	if exists == 0 {
		return nil, workflow.Wrap(workflow.ErrNotFound, "create item", "job "+jobID+" does not exist", nil)
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, job_id, status) VALUES (?, ?, ?)`,
		id, jobID, model.ItemStatusDraft,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	if err := addEvent(ctx, tx, id, model.EventCreated, actor, "job "+jobID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}
	return GetItem(ctx, db, id)
}

// GetItem returns the full item document by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	return loadItem(ctx, db, id)
}

// ListItems returns the items of a job without their photo and listing
// collections.
func ListItems(ctx context.Context, db *sql.DB, jobID string) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, job_id, status, reopen_reason, next_item_number, created_at, updated_at
		 FROM items WHERE job_id = ? ORDER BY created_at, id`, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.JobID, &it.Status, &it.ReopenReason, &it.NextItemNumber, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func loadItem(ctx context.Context, q querier, id string) (*model.Item, error) {
	it := &model.Item{}
	err := q.QueryRowContext(ctx,
		`SELECT id, job_id, status, reopen_reason, next_item_number, created_at, updated_at
		 FROM items WHERE id = ?`, id,
	).Scan(&it.ID, &it.JobID, &it.Status, &it.ReopenReason, &it.NextItemNumber, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	if it.Photos, err = loadPhotos(ctx, q, id); err != nil {
		return nil, err
	}
	if it.PhotoGroups, err = loadGroups(ctx, q, id); err != nil {
		return nil, err
	}
	if it.AI, err = loadProposals(ctx, q, id); err != nil {
		return nil, err
	}
	it.AnalyzedGroups = make([]int, 0, len(it.AI))
	for _, p := range it.AI {
		it.AnalyzedGroups = append(it.AnalyzedGroups, p.ItemNumber)
	}
	if it.ApprovedItems, err = loadApproved(ctx, q, id); err != nil {
		return nil, err
	}
	if err := loadDispositions(ctx, q, it); err != nil {
		return nil, err
	}
	return it, nil
}

func loadPhotos(ctx context.Context, q querier, itemID string) ([]model.Photo, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT idx, url, object_key FROM photos WHERE item_id = ? ORDER BY idx`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	defer rows.Close()

	photos := []model.Photo{}
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.Index, &p.URL, &p.Key); err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func loadGroups(ctx context.Context, q querier, itemID string) ([]model.PhotoGroup, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT item_number, start_index, end_index, title
		 FROM photo_groups WHERE item_id = ? ORDER BY start_index`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing photo groups: %w", err)
	}
	defer rows.Close()

	groups := []model.PhotoGroup{}
	for rows.Next() {
		var g model.PhotoGroup
		if err := rows.Scan(&g.ItemNumber, &g.StartIndex, &g.EndIndex, &g.Title); err != nil {
			return nil, fmt.Errorf("scanning photo group: %w", err)
		}
		g.PhotoCount = g.EndIndex - g.StartIndex + 1
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func loadProposals(ctx context.Context, q querier, itemID string) ([]model.Proposal, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT item_number, photo_indices, title, description, category, price, price_low, price_high,
		        length, width, height, dimension_unit, weight, weight_unit, material, tags, confidence
		 FROM proposals WHERE item_id = ? ORDER BY position`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	defer rows.Close()

	proposals := []model.Proposal{}
	for rows.Next() {
		var p model.Proposal
		var indices, tags string
		if err := rows.Scan(&p.ItemNumber, &indices, &p.Title, &p.Description, &p.Category,
			&p.Price, &p.PriceLow, &p.PriceHigh,
			&p.Dimensions.Length, &p.Dimensions.Width, &p.Dimensions.Height, &p.Dimensions.Unit,
			&p.Weight.Value, &p.Weight.Unit, &p.Material, &tags, &p.Confidence); err != nil {
			return nil, fmt.Errorf("scanning proposal: %w", err)
		}
		if p.PhotoIndices, err = decodeInts(indices); err != nil {
			return nil, err
		}
		if p.Tags, err = decodeStrings(tags); err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

func loadApproved(ctx context.Context, q querier, itemID string) ([]model.ApprovedItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT item_number, photo_indices, title, description, category, price,
		        length, width, height, dimension_unit, weight, weight_unit, material, tags, estate_sale_price
		 FROM approved_items WHERE item_id = ? ORDER BY position`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing approved items: %w", err)
	}
	defer rows.Close()

	approved := []model.ApprovedItem{}
	for rows.Next() {
		var a model.ApprovedItem
		var indices, tags string
		var salePrice sql.NullFloat64
		if err := rows.Scan(&a.ItemNumber, &indices, &a.Title, &a.Description, &a.Category, &a.Price,
			&a.Dimensions.Length, &a.Dimensions.Width, &a.Dimensions.Height, &a.Dimensions.Unit,
			&a.Weight.Value, &a.Weight.Unit, &a.Material, &tags, &salePrice); err != nil {
			return nil, fmt.Errorf("scanning approved item: %w", err)
		}
		if a.PhotoIndices, err = decodeInts(indices); err != nil {
			return nil, err
		}
		if a.Tags, err = decodeStrings(tags); err != nil {
			return nil, err
		}
		if salePrice.Valid {
			v := salePrice.Float64
			a.EstateSalePrice = &v
		}
		approved = append(approved, a)
	}
	return approved, rows.Err()
}

func loadDispositions(ctx context.Context, q querier, it *model.Item) error {
	rows, err := q.QueryContext(ctx,
		`SELECT photo_index, kind FROM dispositions WHERE item_id = ? ORDER BY photo_index`, it.ID,
	)
	if err != nil {
		return fmt.Errorf("listing dispositions: %w", err)
	}
	defer rows.Close()

	it.SoldPhotoIndices = []int{}
	it.DonatedPhotoIndices = []int{}
	it.HauledPhotoIndices = []int{}
	for rows.Next() {
		var idx int
		var kind string
		if err := rows.Scan(&idx, &kind); err != nil {
			return fmt.Errorf("scanning disposition: %w", err)
		}
		switch kind {
		case model.DispositionSold:
			it.SoldPhotoIndices = append(it.SoldPhotoIndices, idx)
		case model.DispositionDonated:
			it.DonatedPhotoIndices = append(it.DonatedPhotoIndices, idx)
		case model.DispositionHauled:
			it.HauledPhotoIndices = append(it.HauledPhotoIndices, idx)
		}
	}
	return rows.Err()
}
