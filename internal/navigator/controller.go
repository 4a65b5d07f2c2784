// Package navigator pages through a rewind one post at a time using inline
// buttons, and sends whole rewinds in batch mode.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blackmichael/tweet-rewind/internal/domain"
	"github.com/blackmichael/tweet-rewind/internal/metrics"
)

// ErrEmptySequence is returned by Start when there is nothing to show.
var ErrEmptySequence = errors.New("no posts to navigate")

const defaultMaxSessionsPerChat = 20

// SessionKey identifies a navigation session by the message displaying it.
type SessionKey struct {
	ChatID    int64
	MessageID int
}

// session is the pagination state of one rendered message. posts never
// changes after creation; index changes only after a successful render.
type session struct {
	key   SessionKey
	posts []domain.BucketedPost

	mu    sync.Mutex
	index int
}

// Options tunes a Controller.
type Options struct {
	// MaxSessionsPerChat caps how many sessions a conversation keeps. The
	// oldest is superseded when a new one would exceed it.
	MaxSessionsPerChat int

	// BatchDelay is the minimum spacing between messages in RenderAll.
	BatchDelay time.Duration
}

// Controller owns every live navigation session. Sessions are keyed by the
// message that displays them, so independent rewinds never share state.
type Controller struct {
	messenger  Messenger
	modals     *Modals
	metrics    *metrics.Metrics
	logger     *slog.Logger
	maxPerChat int
	batchDelay time.Duration

	mu       sync.Mutex
	sessions map[SessionKey]*session
	byChat   map[int64][]SessionKey // creation order
}

// NewController creates a Controller sending through messenger. modals is
// shared with the rest of the conversation handling.
func NewController(messenger Messenger, modals *Modals, m *metrics.Metrics, logger *slog.Logger, opts Options) *Controller {
	if opts.MaxSessionsPerChat <= 0 {
		opts.MaxSessionsPerChat = defaultMaxSessionsPerChat
	}
	return &Controller{
		messenger:  messenger,
		modals:     modals,
		metrics:    m,
		logger:     logger,
		maxPerChat: opts.MaxSessionsPerChat,
		batchDelay: opts.BatchDelay,
		sessions:   make(map[SessionKey]*session),
		byChat:     make(map[int64][]SessionKey),
	}
}

// Start renders posts[startIndex] as a new message in chatID and arms the
// navigation buttons for it. Only the destination chat is needed, so it
// works without an inbound event to reply to.
//
// When the buttons cannot be attached the session still exists at
// startIndex and the transport error is returned alongside its key.
func (c *Controller) Start(ctx context.Context, chatID int64, posts []domain.BucketedPost, startIndex int) (SessionKey, error) {
	if len(posts) == 0 {
		return SessionKey{}, ErrEmptySequence
	}
	if startIndex < 0 || startIndex >= len(posts) {
		return SessionKey{}, fmt.Errorf("start index %d out of range [0, %d)", startIndex, len(posts))
	}

	text := RenderText(posts[startIndex])
	ref, err := c.messenger.SendText(ctx, chatID, text, nil)
	if err != nil {
		return SessionKey{}, c.transportFailure("send rewind message", chatID, err)
	}

	s := &session{
		key:   SessionKey{ChatID: ref.ChatID, MessageID: ref.MessageID},
		posts: append([]domain.BucketedPost(nil), posts...),
		index: startIndex,
	}
	c.register(s)
	c.metrics.SessionsStarted.Inc()
	c.logger.Info("navigation session started",
		"chat_id", s.key.ChatID,
		"message_id", s.key.MessageID,
		"posts", len(posts),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.messenger.EditText(ctx, ref, text, controls(s.key, s.index, len(s.posts))); err != nil {
		return s.key, c.transportFailure("attach navigation buttons", chatID, err)
	}
	return s.key, nil
}

// Advance moves the session dir positions (+1 or -1) and re-renders it. Moves
// that would leave the sequence, and unknown sessions, are ignored.
func (c *Controller) Advance(ctx context.Context, key SessionKey, dir int) error {
	return c.step(ctx, key, dir, -1)
}

// HandleCallback dispatches button data pressed in chatID. Data for another
// chat, for unknown sessions or for an index the session has already moved
// away from is ignored.
func (c *Controller) HandleCallback(ctx context.Context, chatID int64, data string) error {
	cb, err := DecodeCallback(data)
	if err != nil {
		return err
	}
	if cb.Key.ChatID != chatID {
		c.logger.Warn("callback for another chat", "chat_id", chatID, "session_chat_id", cb.Key.ChatID)
		c.event(cb.Action, metrics.ResultIgnored)
		return nil
	}

	switch cb.Action {
	case ActionNext:
		return c.step(ctx, cb.Key, +1, cb.Index)
	case ActionPrevious:
		return c.step(ctx, cb.Key, -1, cb.Index)
	case ActionJump:
		return c.RequestJump(ctx, cb.Key)
	}
	return nil
}

// RequestJump prompts for a position and arms the jump modal of the
// session's conversation.
func (c *Controller) RequestJump(ctx context.Context, key SessionKey) error {
	if c.lookup(key) == nil {
		c.event(ActionJump, metrics.ResultIgnored)
		return nil
	}

	prompt, err := c.messenger.SendText(ctx, key.ChatID, JumpPrompt, nil)
	if err != nil {
		return c.transportFailure("send jump prompt", key.ChatID, err)
	}
	c.modals.Arm(key.ChatID, Modal{Kind: ModalJump, Session: key, Prompt: prompt})
	return nil
}

// ResolveJump answers a consumed jump modal with raw and deletes its prompt,
// whatever the outcome of the jump.
func (c *Controller) ResolveJump(ctx context.Context, modal Modal, raw string) error {
	err := c.JumpTo(ctx, modal.Session, raw)
	if modal.Prompt.MessageID != 0 {
		if delErr := c.messenger.DeleteMessage(ctx, modal.Prompt); delErr != nil {
			_ = c.transportFailure("delete jump prompt", modal.Prompt.ChatID, delErr)
		}
	}
	return err
}

// JumpTo moves the session to the 1-based position in raw. Input that is not
// a position inside the sequence, or a session that no longer exists, is
// reported to the user and returns domain.ErrInvalidIndexInput without
// touching any session.
func (c *Controller) JumpTo(ctx context.Context, key SessionKey, raw string) error {
	s := c.lookup(key)
	if s == nil {
		c.event(ActionJump, metrics.ResultIgnored)
		c.rejectJump(ctx, key.ChatID)
		return fmt.Errorf("%w: session %d/%d is gone", domain.ErrInvalidIndexInput, key.ChatID, key.MessageID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	position, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || position < 1 || position > len(s.posts) {
		c.event(ActionJump, metrics.ResultInvalid)
		c.rejectJump(ctx, key.ChatID)
		return fmt.Errorf("%w: %q", domain.ErrInvalidIndexInput, raw)
	}

	target := position - 1
	if target == s.index {
		c.event(ActionJump, metrics.ResultIgnored)
		return nil
	}
	return c.render(ctx, s, target, ActionJump)
}

// Index reports the current position of a session.
func (c *Controller) Index(key SessionKey) (int, bool) {
	s := c.lookup(key)
	if s == nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, true
}

// Retire drops every session and the pending modal of a conversation that
// no longer exists.
func (c *Controller) Retire(chatID int64) {
	c.mu.Lock()
	for _, key := range c.byChat[chatID] {
		delete(c.sessions, key)
	}
	delete(c.byChat, chatID)
	c.metrics.ActiveSessions.Set(float64(len(c.sessions)))
	c.mu.Unlock()

	c.modals.Clear(chatID)
	c.logger.Info("conversation retired", "chat_id", chatID)
}

// step moves a session by dir. seen is the index the triggering button was
// rendered for, or -1 to use the current index.
func (c *Controller) step(ctx context.Context, key SessionKey, dir int, seen int) error {
	action := ActionNext
	if dir < 0 {
		action = ActionPrevious
	}

	s := c.lookup(key)
	if s == nil {
		c.event(action, metrics.ResultIgnored)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seen >= 0 && seen != s.index {
		c.logger.Debug("stale navigation callback", "chat_id", key.ChatID, "message_id", key.MessageID, "seen", seen, "index", s.index)
		c.event(action, metrics.ResultIgnored)
		return nil
	}

	target := s.index + dir
	if target < 0 || target >= len(s.posts) {
		c.event(action, metrics.ResultIgnored)
		return nil
	}
	return c.render(ctx, s, target, action)
}

// render edits the session message to show target. The caller holds s.mu.
func (c *Controller) render(ctx context.Context, s *session, target int, action Action) error {
	ref := MessageRef{ChatID: s.key.ChatID, MessageID: s.key.MessageID}
	if err := c.messenger.EditText(ctx, ref, RenderText(s.posts[target]), controls(s.key, target, len(s.posts))); err != nil {
		c.event(action, metrics.ResultFailed)
		return c.transportFailure("render rewind message", s.key.ChatID, err)
	}

	s.index = target
	c.event(action, metrics.ResultRendered)
	return nil
}

// register stores s under its key, replacing any session already there, and
// supersedes the chat's oldest sessions beyond the per-chat cap.
func (c *Controller) register(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	chatID := s.key.ChatID
	if _, exists := c.sessions[s.key]; !exists {
		c.byChat[chatID] = append(c.byChat[chatID], s.key)
	}
	c.sessions[s.key] = s

	keys := c.byChat[chatID]
	for len(keys) > c.maxPerChat {
		delete(c.sessions, keys[0])
		keys = keys[1:]
	}
	c.byChat[chatID] = keys
	c.metrics.ActiveSessions.Set(float64(len(c.sessions)))
}

func (c *Controller) rejectJump(ctx context.Context, chatID int64) {
	if _, err := c.messenger.SendText(ctx, chatID, InvalidIndexMessage, nil); err != nil {
		_ = c.transportFailure("send invalid index message", chatID, err)
	}
}

func (c *Controller) lookup(key SessionKey) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[key]
}

func (c *Controller) event(action Action, result string) {
	c.metrics.NavigationEvents.WithLabelValues(action.String(), result).Inc()
}

func (c *Controller) transportFailure(op string, chatID int64, err error) error {
	c.metrics.TransportFailures.Inc()
	c.logger.Error("transport failure", "op", op, "chat_id", chatID, "error", err)
	return fmt.Errorf("%w: %s: %w", domain.ErrTransportFailure, op, err)
}
