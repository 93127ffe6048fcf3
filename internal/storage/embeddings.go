package db

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// SaveEmbedding stores or replaces the vector of an item.
func (db *DB) SaveEmbedding(ctx context.Context, itemID int64, model string, vector []float32) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO embeddings (message_id, model, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id) DO UPDATE
		SET model = EXCLUDED.model,
		    embedding = EXCLUDED.embedding,
		    updated_at = now()
	`, itemID, model, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("save embedding for item %d: %w", itemID, err)
	}

	return nil
}
