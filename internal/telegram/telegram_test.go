package telegram

import (
	"context"
	"io"
	"log/slog"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/tweet-rewind/internal/navigator"
)

func TestToMarkup(t *testing.T) {
	markup := toMarkup(navigator.Keyboard{Rows: [][]navigator.Button{{
		{Label: "←", Data: "rw:p:1:2:1"},
		{Label: "2/3", Data: "rw:j:1:2:1"},
	}}})

	require.Len(t, markup.InlineKeyboard, 1)
	row := markup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "←", row[0].Text)
	require.NotNil(t, row[0].CallbackData)
	assert.Equal(t, "rw:p:1:2:1", *row[0].CallbackData)
	assert.Equal(t, "2/3", row[1].Text)
}

func TestClassify(t *testing.T) {
	chat := &tgbotapi.Chat{ID: 42}

	command := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     chat,
		Text:     "/rewind now",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}},
	}}
	assert.Equal(t, event{kind: eventCommand, chatID: 42, command: "rewind", args: "now"}, classify(command))

	text := tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat, Text: "alice"}}
	assert.Equal(t, event{kind: eventText, chatID: 42, text: "alice"}, classify(text))

	callback := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "rw:n:42:7:0",
		Message: &tgbotapi.Message{Chat: chat},
	}}
	assert.Equal(t, event{kind: eventCallback, chatID: 42, data: "rw:n:42:7:0", callbackID: "cb1"}, classify(callback))

	kicked := tgbotapi.Update{MyChatMember: &tgbotapi.ChatMemberUpdated{
		Chat:          *chat,
		NewChatMember: tgbotapi.ChatMember{Status: "kicked"},
	}}
	assert.Equal(t, event{kind: eventChatGone, chatID: 42}, classify(kicked))

	promoted := tgbotapi.Update{MyChatMember: &tgbotapi.ChatMemberUpdated{
		Chat:          *chat,
		NewChatMember: tgbotapi.ChatMember{Status: "member"},
	}}
	assert.Equal(t, eventNone, classify(promoted).kind)

	sticker := tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat}}
	assert.Equal(t, eventNone, classify(sticker).kind)
}

type recordingHandler struct {
	callbackChat int64
	callbackData string
}

func (h *recordingHandler) HandleCommand(context.Context, int64, string, string) error { return nil }
func (h *recordingHandler) HandleText(context.Context, int64, string) error            { return nil }
func (h *recordingHandler) HandleChatGone(context.Context, int64)                      {}

func (h *recordingHandler) HandleCallback(_ context.Context, chatID int64, data string) error {
	h.callbackChat, h.callbackData = chatID, data
	return nil
}

func TestDispatch_CallbackCarriesChat(t *testing.T) {
	c := &Client{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	h := &recordingHandler{}

	ev := classify(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "rw:n:42:7:0",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
	}})
	c.dispatch(context.Background(), h, ev)

	assert.Equal(t, int64(42), h.callbackChat)
	assert.Equal(t, "rw:n:42:7:0", h.callbackData)
}
