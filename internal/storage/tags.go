package db

import (
	"context"
	"fmt"
)

// SaveTags upserts every tag and links it to the item in one transaction.
func (db *DB) SaveTags(ctx context.Context, itemID int64, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save tags: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit returns error, this is best-effort cleanup
	}()

	for _, tag := range tags {
		var tagID int64

		err := tx.QueryRow(ctx, `
			INSERT INTO tags (canonical)
			VALUES ($1)
			ON CONFLICT (canonical) DO UPDATE SET canonical = EXCLUDED.canonical
			RETURNING id
		`, tag).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("upsert tag %q: %w", tag, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO message_tags (message_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, itemID, tagID); err != nil {
			return fmt.Errorf("link tag %q to item %d: %w", tag, itemID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save tags: %w", err)
	}

	return nil
}
