package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
)

func TestPendingQuery(t *testing.T) {
	tests := []struct {
		name        string
		stage       string
		limit       int
		maxAttempts int
		contains    []string
		notContains []string
		args        []any
	}{
		{
			name:     "tags without cutoff",
			stage:    pendingTags,
			limit:    50,
			contains: []string{"FROM messages m", "JOIN channels c ON c.id = m.channel_id", "m.tags_processed = $1", "ORDER BY m.ts DESC", "LIMIT 50"},
			notContains: []string{
				"embedding_processed =", "m.tag_attempts <",
			},
			args: []any{false},
		},
		{
			name:        "tags with cutoff",
			stage:       pendingTags,
			limit:       10,
			maxAttempts: 3,
			contains:    []string{"m.tags_processed = $1", "m.tag_attempts < $2"},
			args:        []any{false, 3},
		},
		{
			name:        "embeddings with cutoff",
			stage:       pendingEmbeddings,
			limit:       16,
			maxAttempts: 5,
			contains:    []string{"m.embedding_processed = $1", "m.tags_processed = $2", "m.embedding_attempts < $3", "LIMIT 16"},
			args:        []any{false, true, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := pendingQuery(tt.stage, tt.limit, tt.maxAttempts)
			require.NoError(t, err)

			for _, s := range tt.contains {
				assert.Contains(t, query, s)
			}

			for _, s := range tt.notContains {
				assert.NotContains(t, query, s)
			}

			assert.Equal(t, tt.args, args)
		})
	}
}

func TestEncodeHelpers(t *testing.T) {
	s, err := encodeJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = encodeJSON([]string{"📰"})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.JSONEq(t, `["📰"]`, *s)

	c, err := encodeCode(nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = encodeCode(domain.CodeVector{domain.CodeCrypto: 0.5})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.JSONEq(t, `{"crypto":0.5}`, *c)
}
