// Package telegram connects the bot to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/blackmichael/tweet-rewind/internal/navigator"
)

// Client implements navigator.Messenger on top of the Bot API.
type Client struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewClient authenticates with token and returns a Client.
func NewClient(token string, logger *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("authorized on telegram", "username", api.Self.UserName)
	return &Client{api: api, logger: logger}, nil
}

// SendText sends a new message, optionally with an inline keyboard.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, kb *navigator.Keyboard) (navigator.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return navigator.MessageRef{}, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = toMarkup(*kb)
	}

	sent, err := c.api.Send(msg)
	if err != nil {
		return navigator.MessageRef{}, fmt.Errorf("send message: %w", err)
	}

	ref := navigator.MessageRef{ChatID: chatID, MessageID: sent.MessageID}
	if sent.Chat != nil {
		ref.ChatID = sent.Chat.ID
	}
	return ref, nil
}

// EditText replaces the text and keyboard of a sent message.
func (c *Client) EditText(ctx context.Context, ref navigator.MessageRef, text string, kb *navigator.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var edit tgbotapi.Chattable
	if kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(ref.ChatID, ref.MessageID, text, toMarkup(*kb))
	} else {
		edit = tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	}

	if _, err := c.api.Request(edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// DeleteMessage deletes a sent message.
func (c *Client) DeleteMessage(ctx context.Context, ref navigator.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// answerCallback stops the loading indicator on a pressed button.
func (c *Client) answerCallback(id string) {
	if _, err := c.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		c.logger.Warn("failed to answer callback query", "error", err)
	}
}

func toMarkup(kb navigator.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
