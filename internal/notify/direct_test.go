package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	messageID int
	err       error
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: f.messageID}, f.err
}

func (f *fakeBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: f.err == nil}, f.err
}

func TestDirectTransport(t *testing.T) {
	api := &fakeBotAPI{messageID: 9}
	d := NewDirectTransportWithAPI(api)

	id, err := d.Send(context.Background(), 100, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, int64(100), msg.ChatID)

	require.NoError(t, d.Edit(context.Background(), 100, 9, "updated"))

	edit, ok := api.requested[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, "updated", edit.Text)
	assert.Equal(t, 9, edit.MessageID)
}

func TestDirectTransport_Errors(t *testing.T) {
	api := &fakeBotAPI{err: errors.New("forbidden")}
	d := NewDirectTransportWithAPI(api)

	_, err := d.Send(context.Background(), 1, "x")
	require.Error(t, err)

	require.Error(t, d.Edit(context.Background(), 1, 2, "x"))
}
