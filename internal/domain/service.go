package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RewindService is the core domain service. It owns chat registrations, the
// import of archived posts and the computation of anniversary rewinds.
type RewindService struct {
	posts         PostRepository
	subscriptions SubscriptionRepository
	bucketer      *Bucketer
	logger        *slog.Logger
}

// NewRewindService creates a RewindService over the given repositories.
func NewRewindService(posts PostRepository, subscriptions SubscriptionRepository, logger *slog.Logger) *RewindService {
	return &RewindService{
		posts:         posts,
		subscriptions: subscriptions,
		bucketer:      NewBucketer(posts, logger),
		logger:        logger,
	}
}

// Register links a chat to a Twitter username, replacing any earlier link.
func (s *RewindService) Register(ctx context.Context, chatID int64, owner string) error {
	if owner == "" {
		return fmt.Errorf("register chat %d: username is empty", chatID)
	}
	if err := s.subscriptions.Register(ctx, chatID, owner); err != nil {
		return fmt.Errorf("register chat %d: %w", chatID, err)
	}
	s.logger.Info("chat registered", "chat_id", chatID, "owner", owner)
	return nil
}

// Owner returns the Twitter username linked to chatID, or ErrNotRegistered.
func (s *RewindService) Owner(ctx context.Context, chatID int64) (string, error) {
	sub, err := s.subscriptions.FindSubscription(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("find subscription: %w", err)
	}
	if sub == nil {
		return "", ErrNotRegistered
	}
	return sub.Owner, nil
}

// SetSubscribed toggles the daily rewind for chatID.
func (s *RewindService) SetSubscribed(ctx context.Context, chatID int64, subscribed bool) error {
	if err := s.subscriptions.SetSubscribed(ctx, chatID, subscribed); err != nil {
		return fmt.Errorf("set subscribed: %w", err)
	}
	s.logger.Info("subscription changed", "chat_id", chatID, "subscribed", subscribed)
	return nil
}

// Subscribers returns every chat subscribed to the daily rewind.
func (s *RewindService) Subscribers(ctx context.Context) ([]Subscription, error) {
	subs, err := s.subscriptions.ListSubscribed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribed: %w", err)
	}
	return subs, nil
}

// ImportPosts replaces the owner's stored posts with posts. Duplicate source
// ids keep their first occurrence. Returns the number of posts stored.
//
// Callers must not rewind the same owner while an import is in flight.
func (s *RewindService) ImportPosts(ctx context.Context, owner string, posts []Post) (int, error) {
	seen := make(map[string]struct{}, len(posts))
	unique := make([]Post, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.SourceID]; ok {
			continue
		}
		seen[p.SourceID] = struct{}{}
		p.Owner = owner
		unique = append(unique, p)
	}

	if err := s.posts.ReplaceAllForOwner(ctx, owner, unique); err != nil {
		return 0, fmt.Errorf("replace posts for %s: %w", owner, err)
	}

	s.logger.Info("posts imported", "owner", owner, "count", len(unique), "duplicates", len(posts)-len(unique))
	return len(unique), nil
}

// RemovePosts deletes every stored post of owner.
func (s *RewindService) RemovePosts(ctx context.Context, owner string) (int64, error) {
	deleted, err := s.posts.DeleteAllForOwner(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("delete posts for %s: %w", owner, err)
	}
	s.logger.Info("posts removed", "owner", owner, "deleted", deleted)
	return deleted, nil
}

// OldestPost returns the owner's earliest post, or nil if none is stored.
func (s *RewindService) OldestPost(ctx context.Context, owner string) (*Post, error) {
	post, err := s.posts.OldestPost(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("oldest post for %s: %w", owner, err)
	}
	return post, nil
}

// Rewind returns the owner's posts from today's calendar day in previous years.
func (s *RewindService) Rewind(ctx context.Context, owner string, today time.Time) ([]BucketedPost, error) {
	return s.bucketer.Bucket(ctx, owner, today)
}
