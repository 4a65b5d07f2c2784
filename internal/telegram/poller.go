package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeoutSeconds = 60

// Handler receives the inbound events the bot reacts to.
type Handler interface {
	HandleCommand(ctx context.Context, chatID int64, command, args string) error
	HandleText(ctx context.Context, chatID int64, text string) error
	HandleCallback(ctx context.Context, chatID int64, data string) error
	HandleChatGone(ctx context.Context, chatID int64)
}

type eventKind int

const (
	eventNone eventKind = iota
	eventCommand
	eventText
	eventCallback
	eventChatGone
)

// event is the part of an update a Handler needs.
type event struct {
	kind       eventKind
	chatID     int64
	command    string
	args       string
	text       string
	data       string
	callbackID string
}

// Listen long-polls for updates and hands each one to h in its own goroutine
// until ctx is cancelled. It waits for in-flight handlers before returning.
func (c *Client) Listen(ctx context.Context, h Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	var wg sync.WaitGroup
	defer wg.Wait()

	var received, handled int64
	lastStatsLog := time.Now()

	c.logger.Info("listening for telegram updates")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram updates channel closed")
			}
			received++

			ev := classify(update)
			if ev.kind == eventNone {
				continue
			}
			handled++
			if ev.kind == eventCallback {
				c.answerCallback(ev.callbackID)
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				c.dispatch(ctx, h, ev)
			}()
		}

		if time.Since(lastStatsLog) >= 5*time.Minute {
			c.logger.Info("telegram stats", "updates_received", received, "updates_handled", handled)
			lastStatsLog = time.Now()
		}
	}
}

func (c *Client) dispatch(ctx context.Context, h Handler, ev event) {
	var err error
	switch ev.kind {
	case eventCommand:
		err = h.HandleCommand(ctx, ev.chatID, ev.command, ev.args)
	case eventText:
		err = h.HandleText(ctx, ev.chatID, ev.text)
	case eventCallback:
		err = h.HandleCallback(ctx, ev.chatID, ev.data)
	case eventChatGone:
		h.HandleChatGone(ctx, ev.chatID)
	}
	if err != nil {
		c.logger.Error("failed to handle update", "chat_id", ev.chatID, "command", ev.command, "error", err)
	}
}

// classify extracts the event carried by an update.
func classify(update tgbotapi.Update) event {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		ev := event{kind: eventCallback, data: q.Data, callbackID: q.ID}
		if q.Message != nil && q.Message.Chat != nil {
			ev.chatID = q.Message.Chat.ID
		}
		return ev

	case update.Message != nil && update.Message.Chat != nil:
		msg := update.Message
		if msg.IsCommand() {
			return event{kind: eventCommand, chatID: msg.Chat.ID, command: msg.Command(), args: msg.CommandArguments()}
		}
		if msg.Text != "" {
			return event{kind: eventText, chatID: msg.Chat.ID, text: msg.Text}
		}

	case update.MyChatMember != nil:
		switch update.MyChatMember.NewChatMember.Status {
		case "kicked", "left":
			return event{kind: eventChatGone, chatID: update.MyChatMember.Chat.ID}
		}
	}
	return event{kind: eventNone}
}
