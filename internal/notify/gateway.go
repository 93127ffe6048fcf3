package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
	"github.com/lueurxax/channel-enricher/internal/platform/observability"
)

// Transport is one way of delivering a message.
type Transport interface {
	Kind() TransportKind
	Send(ctx context.Context, chatID int64, text string) (int64, error)
	Edit(ctx context.Context, chatID, messageID int64, text string) error
}

// Gateway sends via the primary transport and retries a failed send once via
// the secondary. Edits always go back to the transport that sent the message.
type Gateway struct {
	primary   Transport
	secondary Transport
	logger    *zerolog.Logger
}

// NewGateway accepts nil for either transport, but not both.
func NewGateway(primary, secondary Transport, logger *zerolog.Logger) (*Gateway, error) {
	if primary == nil {
		primary, secondary = secondary, nil
	}

	if primary == nil {
		return nil, coreerrors.ErrNoTransport
	}

	return &Gateway{primary: primary, secondary: secondary, logger: logger}, nil
}

func (g *Gateway) Send(ctx context.Context, chatID int64, text string) (Handle, error) {
	h, err := g.sendVia(ctx, g.primary, chatID, text)
	if err == nil {
		return h, nil
	}

	if g.secondary == nil {
		return Handle{}, err
	}

	g.logger.Warn().Err(err).Str("transport", string(g.primary.Kind())).Msg("notify send failed, retrying via secondary")

	h, secondaryErr := g.sendVia(ctx, g.secondary, chatID, text)
	if secondaryErr != nil {
		return Handle{}, fmt.Errorf("secondary send: %w", secondaryErr)
	}

	return h, nil
}

func (g *Gateway) sendVia(ctx context.Context, t Transport, chatID int64, text string) (Handle, error) {
	id, err := t.Send(ctx, chatID, text)
	observability.RecordNotify(string(t.Kind()), err == nil)

	if err != nil {
		return Handle{}, fmt.Errorf("%s send: %w", t.Kind(), err)
	}

	return Handle{Transport: t.Kind(), ID: id}, nil
}

// Edit never falls back to sending a new message.
func (g *Gateway) Edit(ctx context.Context, chatID int64, h Handle, text string) error {
	t := g.transportFor(h.Transport)
	if t == nil {
		return fmt.Errorf("%w: %s", coreerrors.ErrUnknownHandle, h)
	}

	err := t.Edit(ctx, chatID, h.ID, text)
	observability.RecordNotify(string(t.Kind()), err == nil)

	if err != nil {
		return fmt.Errorf("%s edit: %w", t.Kind(), err)
	}

	return nil
}

// Close releases transport connections.
func (g *Gateway) Close() {
	for _, t := range []Transport{g.primary, g.secondary} {
		if c, ok := t.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

func (g *Gateway) transportFor(kind TransportKind) Transport {
	for _, t := range []Transport{g.primary, g.secondary} {
		if t != nil && t.Kind() == kind {
			return t
		}
	}

	return nil
}
