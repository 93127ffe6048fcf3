package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
)

// BotAPI is the part of *tgbotapi.BotAPI used for status messages.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// DirectTransport sends through the Telegram Bot API.
type DirectTransport struct {
	api BotAPI
}

// NewDirectTransport authenticates the bot token against the Bot API.
func NewDirectTransport(token string, timeout time.Duration) (*DirectTransport, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	return &DirectTransport{api: api}, nil
}

// NewDirectTransportWithAPI wraps an already configured bot client.
func NewDirectTransportWithAPI(api BotAPI) *DirectTransport {
	return &DirectTransport{api: api}
}

func (d *DirectTransport) Kind() TransportKind { return TransportDirect }

func (d *DirectTransport) Send(_ context.Context, chatID int64, text string) (int64, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	sent, err := d.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message to chat %d: %w", chatID, err)
	}

	if sent.MessageID == 0 {
		return 0, fmt.Errorf("send message to chat %d: %w", chatID, coreerrors.ErrMalformedReply)
	}

	return int64(sent.MessageID), nil
}

func (d *DirectTransport) Edit(_ context.Context, chatID, messageID int64, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, int(messageID), text)
	edit.DisableWebPagePreview = true

	if _, err := d.api.Request(edit); err != nil {
		return fmt.Errorf("edit message %d in chat %d: %w", messageID, chatID, err)
	}

	return nil
}
