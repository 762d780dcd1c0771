package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/estatedesk/internal/model"
)

func addEvent(ctx context.Context, tx *sql.Tx, itemID, kind, actor, detail string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO item_events (item_id, kind, actor, detail) VALUES (?, ?, ?, ?)`,
		itemID, kind, actor, detail,
	)
	if err != nil {
		return fmt.Errorf("recording %s event: %w", kind, err)
	}
	return nil
}

// ListEvents returns an item's audit trail, oldest first.
func ListEvents(ctx context.Context, db *sql.DB, itemID string) ([]model.Event, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_id, kind, actor, detail, created_at
		 FROM item_events WHERE item_id = ? ORDER BY id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Kind, &e.Actor, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func formatNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("#%d", n)
	}
	return strings.Join(parts, ", ")
}
