package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
)

const (
	brokerSendPath    = "/v1/messages/send"
	brokerEditPathFmt = "/v1/messages/%d/edit"
	maxErrorBody      = 512
)

type brokerSendRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
	BotID  *int64 `json:"bot_id,omitempty"`
}

type brokerEditRequest struct {
	Text  string `json:"text"`
	BotID *int64 `json:"bot_id,omitempty"`
}

type brokerMessage struct {
	ID *int64 `json:"id"`
}

// BrokerTransport talks to the Telegram broker service over HTTP.
type BrokerTransport struct {
	baseURL    string
	botID      int64
	httpClient *http.Client
}

// NewBrokerTransport creates a broker client. A zero botID lets the broker pick its default bot.
func NewBrokerTransport(baseURL string, botID int64, timeout time.Duration) *BrokerTransport {
	return &BrokerTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		botID:      botID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *BrokerTransport) Kind() TransportKind { return TransportBroker }

func (b *BrokerTransport) Send(ctx context.Context, chatID int64, text string) (int64, error) {
	var reply brokerMessage

	if err := b.post(ctx, brokerSendPath, brokerSendRequest{ChatID: chatID, Text: text, BotID: b.bot()}, &reply); err != nil {
		return 0, err
	}

	if reply.ID == nil {
		return 0, fmt.Errorf("broker send: %w: missing id", coreerrors.ErrMalformedReply)
	}

	return *reply.ID, nil
}

func (b *BrokerTransport) Edit(ctx context.Context, _ int64, messageID int64, text string) error {
	path := fmt.Sprintf(brokerEditPathFmt, messageID)

	return b.post(ctx, path, brokerEditRequest{Text: text, BotID: b.bot()}, nil)
}

// Close drops idle keep-alive connections to the broker.
func (b *BrokerTransport) Close() {
	b.httpClient.CloseIdleConnections()
}

func (b *BrokerTransport) bot() *int64 {
	if b.botID == 0 {
		return nil
	}

	id := b.botID

	return &id
}

func (b *BrokerTransport) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal broker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create broker request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("broker request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read broker response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("broker %s: %w: %d %s", path, coreerrors.ErrTransportStatus, resp.StatusCode, truncate(string(raw), maxErrorBody))
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("broker %s: %w: %v", path, coreerrors.ErrMalformedReply, err)
	}

	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit]
}
