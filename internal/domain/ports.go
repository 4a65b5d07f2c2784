package domain

import (
	"context"
	"time"
)

// PostRepository defines persistence operations for archived posts.
type PostRepository interface {
	// ReplaceAllForOwner deletes every post of owner and then inserts posts.
	// The two steps are not atomic: a concurrent reader may observe an empty
	// set, and a failed insert leaves the owner with no posts at all.
	ReplaceAllForOwner(ctx context.Context, owner string, posts []Post) error

	// OldestPost returns the owner's post with the smallest CreatedAt, ties
	// broken by SourceID. Returns nil when the owner has no posts.
	OldestPost(ctx context.Context, owner string) (*Post, error)

	// PostsInRange returns the owner's posts created in [from, to), ordered by
	// CreatedAt then SourceID ascending.
	PostsInRange(ctx context.Context, owner string, from, to time.Time) ([]Post, error)

	// DeleteAllForOwner removes every post of owner and returns how many rows
	// were deleted.
	DeleteAllForOwner(ctx context.Context, owner string) (int64, error)
}

// SubscriptionRepository defines persistence operations for chat registrations.
type SubscriptionRepository interface {
	// Register links chatID to owner, replacing any earlier registration of
	// the same chat. New registrations start unsubscribed.
	Register(ctx context.Context, chatID int64, owner string) error

	// FindSubscription returns the registration for chatID, or nil if the
	// chat never registered.
	FindSubscription(ctx context.Context, chatID int64) (*Subscription, error)

	// SetSubscribed toggles the daily delivery. Returns ErrNotRegistered when
	// the chat has no registration.
	SetSubscribed(ctx context.Context, chatID int64, subscribed bool) error

	// ListSubscribed returns every subscribed registration ordered by chat.
	ListSubscribed(ctx context.Context) ([]Subscription, error)
}
