package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
)

func TestParseHandle(t *testing.T) {
	h, err := ParseHandle("mcp:42")
	require.NoError(t, err)
	assert.Equal(t, Handle{Transport: TransportBroker, ID: 42}, h)
	assert.Equal(t, "mcp:42", h.String())

	h, err = ParseHandle("tg:7")
	require.NoError(t, err)
	assert.Equal(t, TransportDirect, h.Transport)

	for _, bad := range []string{"", "42", "x:1", "tg:", "mcp:abc"} {
		_, err := ParseHandle(bad)
		assert.ErrorIs(t, err, coreerrors.ErrUnknownHandle, bad)
	}
}
