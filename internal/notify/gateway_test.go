package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
)

var errTransportDown = errors.New("transport down")

type fakeTransport struct {
	kind    TransportKind
	nextID  int64
	sendErr error
	editErr error

	mu    sync.Mutex
	sends []string
	edits []string
}

func (f *fakeTransport) Kind() TransportKind { return f.kind }

func (f *fakeTransport) Send(_ context.Context, _ int64, text string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sends = append(f.sends, text)

	return f.nextID, f.sendErr
}

func (f *fakeTransport) Edit(_ context.Context, _, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.edits = append(f.edits, text)

	return f.editErr
}

func (f *fakeTransport) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sends), len(f.edits)
}

func newTestGateway(t *testing.T, primary, secondary Transport) *Gateway {
	t.Helper()

	logger := zerolog.Nop()

	g, err := NewGateway(primary, secondary, &logger)
	require.NoError(t, err)

	return g
}

func TestNewGateway_NoTransport(t *testing.T) {
	logger := zerolog.Nop()

	_, err := NewGateway(nil, nil, &logger)
	require.ErrorIs(t, err, coreerrors.ErrNoTransport)
}

func TestGateway_SendPrimary(t *testing.T) {
	broker := &fakeTransport{kind: TransportBroker, nextID: 5}
	direct := &fakeTransport{kind: TransportDirect, nextID: 6}
	g := newTestGateway(t, broker, direct)

	h, err := g.Send(context.Background(), 1, "hi")
	require.NoError(t, err)
	assert.Equal(t, Handle{Transport: TransportBroker, ID: 5}, h)

	sends, _ := direct.counts()
	assert.Zero(t, sends)
}

func TestGateway_SendFallsBackOnce(t *testing.T) {
	broker := &fakeTransport{kind: TransportBroker, sendErr: errTransportDown}
	direct := &fakeTransport{kind: TransportDirect, nextID: 6}
	g := newTestGateway(t, broker, direct)

	h, err := g.Send(context.Background(), 1, "hi")
	require.NoError(t, err)
	assert.Equal(t, Handle{Transport: TransportDirect, ID: 6}, h)

	brokerSends, _ := broker.counts()
	directSends, _ := direct.counts()
	assert.Equal(t, 1, brokerSends)
	assert.Equal(t, 1, directSends)
}

func TestGateway_SendBothFail(t *testing.T) {
	broker := &fakeTransport{kind: TransportBroker, sendErr: errTransportDown}
	direct := &fakeTransport{kind: TransportDirect, sendErr: errTransportDown}
	g := newTestGateway(t, broker, direct)

	_, err := g.Send(context.Background(), 1, "hi")
	require.ErrorIs(t, err, errTransportDown)
}

func TestGateway_SendWithoutSecondary(t *testing.T) {
	broker := &fakeTransport{kind: TransportBroker, sendErr: errTransportDown}
	g := newTestGateway(t, broker, nil)

	_, err := g.Send(context.Background(), 1, "hi")
	require.ErrorIs(t, err, errTransportDown)
}

func TestGateway_EditRoutesByHandle(t *testing.T) {
	broker := &fakeTransport{kind: TransportBroker}
	direct := &fakeTransport{kind: TransportDirect}
	g := newTestGateway(t, broker, direct)

	require.NoError(t, g.Edit(context.Background(), 1, Handle{Transport: TransportDirect, ID: 3}, "x"))

	_, brokerEdits := broker.counts()
	_, directEdits := direct.counts()
	assert.Zero(t, brokerEdits)
	assert.Equal(t, 1, directEdits)
}

func TestGateway_EditFailureNeverResends(t *testing.T) {
	broker := &fakeTransport{kind: TransportBroker, editErr: errTransportDown}
	direct := &fakeTransport{kind: TransportDirect}
	g := newTestGateway(t, broker, direct)

	err := g.Edit(context.Background(), 1, Handle{Transport: TransportBroker, ID: 3}, "x")
	require.ErrorIs(t, err, errTransportDown)

	brokerSends, _ := broker.counts()
	directSends, directEdits := direct.counts()
	assert.Zero(t, brokerSends)
	assert.Zero(t, directSends)
	assert.Zero(t, directEdits)
}

func TestGateway_EditUnknownTransport(t *testing.T) {
	g := newTestGateway(t, &fakeTransport{kind: TransportBroker}, nil)

	err := g.Edit(context.Background(), 1, Handle{Transport: TransportDirect, ID: 3}, "x")
	require.ErrorIs(t, err, coreerrors.ErrUnknownHandle)
}

func TestGateway_SecondaryPromotedWhenPrimaryMissing(t *testing.T) {
	direct := &fakeTransport{kind: TransportDirect, nextID: 8}
	g := newTestGateway(t, nil, direct)

	h, err := g.Send(context.Background(), 1, "hi")
	require.NoError(t, err)
	assert.Equal(t, TransportDirect, h.Transport)
}
