package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
)

const (
	pendingTags       = "tags"
	pendingEmbeddings = "embeddings"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// pendingQuery selects the newest items awaiting one enrichment stage.
// With maxAttempts > 0 items that already failed that many times are left out.
func pendingQuery(stage string, limit, maxAttempts int) (string, []any, error) {
	q := psql.
		Select(
			"m.id", "m.message_id", "c.username", "m.content", "m.ts",
			"m.tag_attempts", "m.embedding_attempts",
		).
		From("messages m").
		Join("channels c ON c.id = m.channel_id").
		OrderBy("m.ts DESC").
		Limit(uint64(max(limit, 1)))

	attemptsColumn := "m.tag_attempts"

	switch stage {
	case pendingEmbeddings:
		q = q.Where(sq.Eq{"m.tags_processed": true, "m.embedding_processed": false})
		attemptsColumn = "m.embedding_attempts"
	default:
		q = q.Where(sq.Eq{"m.tags_processed": false})
	}

	if maxAttempts > 0 {
		q = q.Where(sq.Lt{attemptsColumn: maxAttempts})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build pending %s query: %w", stage, err)
	}

	return query, args, nil
}

// FetchPendingTags returns up to limit untagged items, newest first.
func (db *DB) FetchPendingTags(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	return db.fetchPending(ctx, pendingTags, limit)
}

// FetchPendingEmbeddings returns up to limit tagged items without an embedding, newest first.
func (db *DB) FetchPendingEmbeddings(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	return db.fetchPending(ctx, pendingEmbeddings, limit)
}

func (db *DB) fetchPending(ctx context.Context, stage string, limit int) ([]domain.ContentItem, error) {
	query, args, err := pendingQuery(stage, limit, db.maxAttempts)
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf(errFetchPending, stage, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ContentItem, error) {
		var (
			item    domain.ContentItem
			content *string
			ts      *time.Time
		)

		if err := row.Scan(
			&item.ID, &item.MessageID, &item.ChannelUsername, &content, &ts,
			&item.TagAttempts, &item.EmbeddingAttempts,
		); err != nil {
			return item, err
		}

		if content != nil {
			item.Content = *content
		}

		if ts != nil {
			item.TS = *ts
		}

		item.TagsProcessed = stage == pendingEmbeddings

		return item, nil
	})
	if err != nil {
		return nil, fmt.Errorf(errFetchPending, stage, err)
	}

	return items, nil
}

// UpdateEnrichment stores the emoji line, the emoji list and the code vector of an item.
// A nil code vector clears the stored one.
func (db *DB) UpdateEnrichment(ctx context.Context, itemID int64, emojiLine string, emoji []string, code domain.CodeVector) error {
	emojiJSON, err := encodeJSON(emoji)
	if err != nil {
		return fmt.Errorf("encode emoji: %w", err)
	}

	codeJSON, err := encodeCode(code)
	if err != nil {
		return fmt.Errorf("encode code: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE messages
		SET emoji_line = $2,
		    emoji_json = $3::jsonb,
		    code_json = $4::jsonb
		WHERE id = $1
	`, itemID, emojiLine, emojiJSON, codeJSON)
	if err != nil {
		return fmt.Errorf(errUpdateItem, "update enrichment of", itemID, err)
	}

	return nil
}

// MarkTagsProcessed finishes the tagging stage and clears the last tagging error.
func (db *DB) MarkTagsProcessed(ctx context.Context, itemID int64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE messages
		SET tags_processed = TRUE,
		    tag_attempts = tag_attempts + 1,
		    last_tag_error = NULL
		WHERE id = $1
	`, itemID)
	if err != nil {
		return fmt.Errorf(errUpdateItem, "mark tags processed for", itemID, err)
	}

	return nil
}

// MarkTagError counts a failed tagging attempt. The item stays pending.
func (db *DB) MarkTagError(ctx context.Context, itemID int64, message string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE messages
		SET tag_attempts = tag_attempts + 1,
		    last_tag_error = $2
		WHERE id = $1
	`, itemID, message)
	if err != nil {
		return fmt.Errorf(errUpdateItem, "mark tag error for", itemID, err)
	}

	return nil
}

func (db *DB) MarkEmbeddingProcessed(ctx context.Context, itemID int64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE messages
		SET embedding_processed = TRUE,
		    embedding_attempts = embedding_attempts + 1,
		    last_embedding_error = NULL
		WHERE id = $1
	`, itemID)
	if err != nil {
		return fmt.Errorf(errUpdateItem, "mark embedding processed for", itemID, err)
	}

	return nil
}

func (db *DB) MarkEmbeddingError(ctx context.Context, itemID int64, message string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE messages
		SET embedding_attempts = embedding_attempts + 1,
		    last_embedding_error = $2
		WHERE id = $1
	`, itemID, message)
	if err != nil {
		return fmt.Errorf(errUpdateItem, "mark embedding error for", itemID, err)
	}

	return nil
}

// FetchStats returns the aggregate counters shown in the status message.
func (db *DB) FetchStats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats

	err := db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*)::int,
			COUNT(*) FILTER (WHERE tags_processed)::int,
			COUNT(*) FILTER (WHERE NOT tags_processed)::int,
			COUNT(*) FILTER (WHERE embedding_processed)::int,
			COUNT(*) FILTER (WHERE tags_processed AND NOT embedding_processed)::int
		FROM messages
	`).Scan(&s.Total, &s.Tagged, &s.TagsPending, &s.Embedded, &s.EmbeddingsPending)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("fetch stats: %w", err)
	}

	return s, nil
}

// encodeJSON returns nil for a nil slice so the column is stored as NULL.
func encodeJSON(v []string) (*string, error) {
	if v == nil {
		return nil, nil //nolint:nilnil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	s := string(raw)

	return &s, nil
}

func encodeCode(code domain.CodeVector) (*string, error) {
	if code == nil {
		return nil, nil //nolint:nilnil
	}

	raw, err := json.Marshal(code.ToMap())
	if err != nil {
		return nil, err
	}

	s := string(raw)

	return &s, nil
}
