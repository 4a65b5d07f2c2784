package domain

import (
	"context"
	"log/slog"
	"time"
)

// Bucketer groups an owner's archive into "N years ago today" buckets.
type Bucketer struct {
	posts  PostRepository
	logger *slog.Logger
}

// NewBucketer creates a Bucketer reading from posts.
func NewBucketer(posts PostRepository, logger *slog.Logger) *Bucketer {
	return &Bucketer{posts: posts, logger: logger}
}

// Bucket returns every post made on today's calendar day in a previous year,
// ordered by YearsAgo ascending and, within one year, by creation time.
// Days are computed in today's location.
//
// Store reads fail open: a failed lookup of the oldest post yields an empty
// result and a failed range query skips that year. Both are logged.
func (b *Bucketer) Bucket(ctx context.Context, owner string, today time.Time) ([]BucketedPost, error) {
	oldest, err := b.posts.OldestPost(ctx, owner)
	if err != nil {
		b.logger.Error("oldest post lookup failed", "owner", owner, "error", err)
		return nil, nil
	}
	if oldest == nil {
		return nil, nil
	}

	loc := today.Location()
	yearsRange := today.Year() - oldest.CreatedAt.In(loc).Year()

	var result []BucketedPost
	for yearsAgo := 1; yearsAgo <= yearsRange; yearsAgo++ {
		from, to := DayWindow(today, yearsAgo)

		posts, err := b.posts.PostsInRange(ctx, owner, from, to)
		if err != nil {
			b.logger.Error("posts in range query failed",
				"owner", owner,
				"years_ago", yearsAgo,
				"from", from,
				"to", to,
				"error", err,
			)
			continue
		}

		for _, p := range posts {
			result = append(result, BucketedPost{
				Body:      p.Body,
				Permalink: Permalink(owner, p.SourceID),
				YearsAgo:  yearsAgo,
			})
		}
	}

	b.logger.Debug("bucketed posts", "owner", owner, "years_range", yearsRange, "count", len(result))
	return result, nil
}

// DayWindow returns the half-open window [from, to) covering today's calendar
// day yearsAgo years back, at local midnight. Feb 29 moved into a non-leap
// year normalises to Mar 1.
func DayWindow(today time.Time, yearsAgo int) (time.Time, time.Time) {
	loc := today.Location()
	year := today.Year() - yearsAgo
	from := time.Date(year, today.Month(), today.Day(), 0, 0, 0, 0, loc)
	to := time.Date(year, today.Month(), today.Day()+1, 0, 0, 0, 0, loc)
	return from, to
}
