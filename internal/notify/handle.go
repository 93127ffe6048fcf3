// Package notify delivers the live status message over a brokered transport
// with a direct Telegram bot as secondary.
package notify

import (
	"fmt"
	"strconv"
	"strings"

	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
)

// TransportKind tags where a message was sent so edits route back to it.
type TransportKind string

const (
	TransportBroker TransportKind = "mcp"
	TransportDirect TransportKind = "tg"
)

// Handle references a sent message on the transport that created it.
type Handle struct {
	Transport TransportKind
	ID        int64
}

func (h Handle) String() string {
	return string(h.Transport) + ":" + strconv.FormatInt(h.ID, 10)
}

// ParseHandle reads the "mcp:<id>" or "tg:<id>" form.
func ParseHandle(value string) (Handle, error) {
	kind, id, ok := strings.Cut(value, ":")
	if !ok {
		return Handle{}, fmt.Errorf("%w: %q", coreerrors.ErrUnknownHandle, value)
	}

	switch TransportKind(kind) {
	case TransportBroker, TransportDirect:
	default:
		return Handle{}, fmt.Errorf("%w: %q", coreerrors.ErrUnknownHandle, value)
	}

	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %q", coreerrors.ErrUnknownHandle, value)
	}

	return Handle{Transport: TransportKind(kind), ID: n}, nil
}
