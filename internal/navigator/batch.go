package navigator

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/blackmichael/tweet-rewind/internal/domain"
)

// RenderAll sends every post of a rewind as its own message, preceded by a
// "N years ago:" header whenever the year changes. Messages are spaced by the
// batch delay. The first transport failure aborts the rest.
func (c *Controller) RenderAll(ctx context.Context, chatID int64, posts []domain.BucketedPost) error {
	limiter := rate.NewLimiter(rate.Every(c.batchDelay), 1)

	yearsAgo := 0
	for i, p := range posts {
		if p.YearsAgo != yearsAgo {
			yearsAgo = p.YearsAgo
			if err := c.emit(ctx, limiter, chatID, YearsAgoHeader(yearsAgo)); err != nil {
				return fmt.Errorf("render all: header before post %d: %w", i, err)
			}
		}
		if err := c.emit(ctx, limiter, chatID, p.Permalink); err != nil {
			return fmt.Errorf("render all: post %d: %w", i, err)
		}
	}

	c.logger.Info("rewind sent in batch", "chat_id", chatID, "posts", len(posts))
	return nil
}

func (c *Controller) emit(ctx context.Context, limiter *rate.Limiter, chatID int64, text string) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.messenger.SendText(ctx, chatID, text, nil); err != nil {
		return c.transportFailure("send batch message", chatID, err)
	}
	return nil
}
