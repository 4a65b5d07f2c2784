package domain

import (
	"fmt"
	"time"
)

// Post is a single archived tweet owned by a Twitter account.
type Post struct {
	// SourceID is the tweet identifier exactly as it appeared in the archive.
	SourceID string

	// Owner is the Twitter username the post belongs to.
	Owner string

	// CreatedAt is when the tweet was originally posted.
	CreatedAt time.Time

	// Body is the full tweet text.
	Body string
}

// Permalink returns the public twitter.com URL of the post.
func (p Post) Permalink() string {
	return Permalink(p.Owner, p.SourceID)
}

// Permalink builds the twitter.com status URL for an owner and tweet id.
func Permalink(owner, sourceID string) string {
	return fmt.Sprintf("https://twitter.com/%s/status/%s", owner, sourceID)
}

// BucketedPost is a post annotated with how many whole years before "today"
// it was made. It is derived on every rewind and never persisted.
type BucketedPost struct {
	Body      string
	Permalink string
	YearsAgo  int
}

// Subscription links a Telegram chat to the Twitter account whose archive it
// rewinds, and records whether the chat wants the daily delivery.
type Subscription struct {
	// ChatID is the Telegram chat the bot talks to.
	ChatID int64

	// Owner is the linked Twitter username.
	Owner string

	// Subscribed enables the scheduled daily rewind.
	Subscribed bool
}
