// Package bot turns chat commands, free-text replies and button presses into
// rewind operations.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/blackmichael/tweet-rewind/internal/archive"
	"github.com/blackmichael/tweet-rewind/internal/domain"
	"github.com/blackmichael/tweet-rewind/internal/metrics"
	"github.com/blackmichael/tweet-rewind/internal/navigator"
)

// Replies sent to the user.
const (
	msgGreeting       = "Ready for some cringe?"
	msgRegisterPrompt = "Now send me your twitter username (without '@')."
	msgRegistered     = "User added."
	msgNotRegistered  = "Register first with /register."
	msgImportStarted  = "Initiated populating database with your tweets. This process may take a while."
	msgImportDone     = "Done."
	msgImportFailed   = "Import failed, your stored tweets may be incomplete. Try /parse again."
	msgRemoved        = "Removed all tweets by @%s."
	msgNoArchive      = "No archive found for @%s."
	msgBadArchive     = "Could not read your archive: %v"
	msgNoPosts        = "No tweets stored yet. Use /parse first."
	msgNothingToday   = "Nothing from this day in previous years."
	msgSubscribed     = "Successfully subscribed for daily rewinds."
	msgUnsubscribed   = "Successfully unsubscribed from daily rewinds."
	msgEmptyUsername  = "The username can't be empty."
)

// Scheduled delivery results.
const (
	scheduledEmpty     = "empty"
	scheduledDelivered = "delivered"
	scheduledFailed    = "failed"
)

// Options configures a Dispatcher.
type Options struct {
	// ArchiveDir holds one <owner>/tweet.js export per registered account.
	ArchiveDir string

	// Location is the calendar "today" is computed in.
	Location *time.Location

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Dispatcher routes inbound chat events to the rewind service and the
// navigation controller.
type Dispatcher struct {
	rewinds    *domain.RewindService
	navigator  *navigator.Controller
	messenger  navigator.Messenger
	modals     *navigator.Modals
	metrics    *metrics.Metrics
	logger     *slog.Logger
	archiveDir string
	location   *time.Location
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher. modals must be the registry the
// controller was created with.
func NewDispatcher(
	rewinds *domain.RewindService,
	nav *navigator.Controller,
	messenger navigator.Messenger,
	modals *navigator.Modals,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		rewinds:    rewinds,
		navigator:  nav,
		messenger:  messenger,
		modals:     modals,
		metrics:    m,
		logger:     logger,
		archiveDir: opts.ArchiveDir,
		location:   opts.Location,
		now:        opts.Now,
	}
}

// HandleCommand runs a slash command sent in chatID. Unknown commands are
// ignored.
func (d *Dispatcher) HandleCommand(ctx context.Context, chatID int64, command, args string) error {
	d.logger.Debug("command received", "chat_id", chatID, "command", command)

	switch command {
	case "start":
		return d.reply(ctx, chatID, msgGreeting)
	case "register":
		return d.startRegistration(ctx, chatID)
	case "parse":
		return d.withOwner(ctx, chatID, d.importArchive)
	case "remove_data":
		return d.withOwner(ctx, chatID, d.removeData)
	case "oldest":
		return d.withOwner(ctx, chatID, d.oldest)
	case "rewind":
		return d.withOwner(ctx, chatID, d.rewind)
	case "rewindall":
		return d.withOwner(ctx, chatID, d.rewindAll)
	case "subscribe":
		return d.setSubscribed(ctx, chatID, true)
	case "unsubscribe":
		return d.setSubscribed(ctx, chatID, false)
	default:
		return nil
	}
}

// HandleText delivers a free-text message to the conversation's pending
// modal. Text with no modal waiting is ignored.
func (d *Dispatcher) HandleText(ctx context.Context, chatID int64, text string) error {
	modal, ok := d.modals.Take(chatID)
	if !ok {
		return nil
	}

	switch modal.Kind {
	case navigator.ModalRegister:
		return d.completeRegistration(ctx, chatID, text)
	case navigator.ModalJump:
		err := d.navigator.ResolveJump(ctx, modal, text)
		if errors.Is(err, domain.ErrInvalidIndexInput) {
			// already reported to the user
			return nil
		}
		return err
	}
	return nil
}

// HandleCallback delivers a button press made in chatID to the navigation
// controller.
func (d *Dispatcher) HandleCallback(ctx context.Context, chatID int64, data string) error {
	return d.navigator.HandleCallback(ctx, chatID, data)
}

// HandleChatGone forgets everything held in memory for a conversation the
// bot can no longer reach.
func (d *Dispatcher) HandleChatGone(_ context.Context, chatID int64) {
	d.navigator.Retire(chatID)
}

// RewindSubscribers starts today's rewind for every subscribed chat. A chat
// that fails is logged and skipped.
func (d *Dispatcher) RewindSubscribers(ctx context.Context) error {
	subs, err := d.rewinds.Subscribers(ctx)
	if err != nil {
		return fmt.Errorf("rewind subscribers: %w", err)
	}

	today := d.today()
	for _, sub := range subs {
		posts, err := d.rewinds.Rewind(ctx, sub.Owner, today)
		if err != nil {
			d.logger.Error("scheduled rewind failed", "chat_id", sub.ChatID, "owner", sub.Owner, "error", err)
			d.metrics.ScheduledDeliveries.WithLabelValues(scheduledFailed).Inc()
			continue
		}
		if len(posts) == 0 {
			d.metrics.ScheduledDeliveries.WithLabelValues(scheduledEmpty).Inc()
			continue
		}

		if _, err := d.navigator.Start(ctx, sub.ChatID, posts, 0); err != nil {
			d.logger.Error("scheduled rewind delivery failed", "chat_id", sub.ChatID, "owner", sub.Owner, "error", err)
			d.metrics.ScheduledDeliveries.WithLabelValues(scheduledFailed).Inc()
			continue
		}
		d.metrics.ScheduledDeliveries.WithLabelValues(scheduledDelivered).Inc()
	}

	d.logger.Info("scheduled rewinds done", "subscribers", len(subs))
	return nil
}

func (d *Dispatcher) startRegistration(ctx context.Context, chatID int64) error {
	if err := d.reply(ctx, chatID, msgRegisterPrompt); err != nil {
		return err
	}
	d.modals.Arm(chatID, navigator.Modal{Kind: navigator.ModalRegister})
	return nil
}

func (d *Dispatcher) completeRegistration(ctx context.Context, chatID int64, text string) error {
	username := strings.TrimPrefix(strings.TrimSpace(text), "@")
	if username == "" {
		return d.reply(ctx, chatID, msgEmptyUsername)
	}

	if err := d.rewinds.Register(ctx, chatID, username); err != nil {
		d.logger.Error("registration failed", "chat_id", chatID, "error", err)
		return nil
	}
	return d.reply(ctx, chatID, msgRegistered)
}

// withOwner resolves the chat's linked account before running fn.
func (d *Dispatcher) withOwner(ctx context.Context, chatID int64, fn func(ctx context.Context, chatID int64, owner string) error) error {
	owner, err := d.rewinds.Owner(ctx, chatID)
	if errors.Is(err, domain.ErrNotRegistered) {
		return d.reply(ctx, chatID, msgNotRegistered)
	}
	if err != nil {
		d.logger.Error("owner lookup failed", "chat_id", chatID, "error", err)
		return nil
	}
	return fn(ctx, chatID, owner)
}

func (d *Dispatcher) importArchive(ctx context.Context, chatID int64, owner string) error {
	posts, err := archive.ParseFile(archive.PathFor(d.archiveDir, owner), owner)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return d.reply(ctx, chatID, fmt.Sprintf(msgNoArchive, owner))
	case err != nil:
		d.logger.Warn("archive rejected", "chat_id", chatID, "owner", owner, "error", err)
		return d.reply(ctx, chatID, fmt.Sprintf(msgBadArchive, err))
	}

	if err := d.reply(ctx, chatID, msgImportStarted); err != nil {
		return err
	}

	n, err := d.rewinds.ImportPosts(ctx, owner, posts)
	if err != nil {
		d.logger.Error("archive import failed", "chat_id", chatID, "owner", owner, "error", err)
		return d.reply(ctx, chatID, msgImportFailed)
	}
	d.metrics.PostsImported.Add(float64(n))
	return d.reply(ctx, chatID, msgImportDone)
}

func (d *Dispatcher) removeData(ctx context.Context, chatID int64, owner string) error {
	if _, err := d.rewinds.RemovePosts(ctx, owner); err != nil {
		d.logger.Error("remove data failed", "chat_id", chatID, "owner", owner, "error", err)
		return nil
	}
	return d.reply(ctx, chatID, fmt.Sprintf(msgRemoved, owner))
}

func (d *Dispatcher) oldest(ctx context.Context, chatID int64, owner string) error {
	post, err := d.rewinds.OldestPost(ctx, owner)
	if err != nil {
		d.logger.Error("oldest post failed", "chat_id", chatID, "owner", owner, "error", err)
		return nil
	}
	if post == nil {
		return d.reply(ctx, chatID, msgNoPosts)
	}
	return d.reply(ctx, chatID, post.Permalink())
}

func (d *Dispatcher) rewind(ctx context.Context, chatID int64, owner string) error {
	posts, err := d.rewinds.Rewind(ctx, owner, d.today())
	if err != nil {
		return err
	}

	_, err = d.navigator.Start(ctx, chatID, posts, 0)
	if errors.Is(err, navigator.ErrEmptySequence) {
		return d.reply(ctx, chatID, msgNothingToday)
	}
	return err
}

func (d *Dispatcher) rewindAll(ctx context.Context, chatID int64, owner string) error {
	posts, err := d.rewinds.Rewind(ctx, owner, d.today())
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return d.reply(ctx, chatID, msgNothingToday)
	}
	return d.navigator.RenderAll(ctx, chatID, posts)
}

func (d *Dispatcher) setSubscribed(ctx context.Context, chatID int64, subscribed bool) error {
	err := d.rewinds.SetSubscribed(ctx, chatID, subscribed)
	if errors.Is(err, domain.ErrNotRegistered) {
		return d.reply(ctx, chatID, msgNotRegistered)
	}
	if err != nil {
		d.logger.Error("subscription update failed", "chat_id", chatID, "error", err)
		return nil
	}

	if subscribed {
		return d.reply(ctx, chatID, msgSubscribed)
	}
	return d.reply(ctx, chatID, msgUnsubscribed)
}

func (d *Dispatcher) today() time.Time {
	return d.now().In(d.location)
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) error {
	if _, err := d.messenger.SendText(ctx, chatID, text, nil); err != nil {
		d.metrics.TransportFailures.Inc()
		return fmt.Errorf("%w: reply: %w", domain.ErrTransportFailure, err)
	}
	return nil
}
