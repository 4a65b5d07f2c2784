// Package mongo stores posts and registrations in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/blackmichael/tweet-rewind/internal/domain"
)

const (
	postsCollection         = "tweets"
	subscriptionsCollection = "users"
)

type postDoc struct {
	Owner     string    `bson:"owner"`
	SourceID  string    `bson:"source_id"`
	CreatedAt time.Time `bson:"created_at"`
	Body      string    `bson:"body"`
}

type subscriptionDoc struct {
	ChatID     int64  `bson:"chat_id"`
	Owner      string `bson:"owner"`
	Subscribed bool   `bson:"subscribed"`
}

// Repository implements domain.PostRepository and
// domain.SubscriptionRepository using MongoDB. Dates are stored as BSON
// datetimes, which carry millisecond precision.
type Repository struct {
	client        *mongodriver.Client
	posts         *mongodriver.Collection
	subscriptions *mongodriver.Collection
}

// NewRepository connects to uri, ensures indexes in database and returns a
// new Repository. The caller should call Close when done.
func NewRepository(ctx context.Context, uri, database string) (*Repository, error) {
	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	r := &Repository{
		client:        client,
		posts:         db.Collection(postsCollection),
		subscriptions: db.Collection(subscriptionsCollection),
	}
	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	indexes := map[*mongodriver.Collection][]mongodriver.IndexModel{
		r.posts: {
			{
				Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "source_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_owner_source"),
			},
			{
				Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: 1}, {Key: "source_id", Value: 1}},
				Options: options.Index().SetName("ix_owner_created"),
			},
		},
		r.subscriptions: {
			{
				Keys:    bson.D{{Key: "chat_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_chat"),
			},
			{
				Keys:    bson.D{{Key: "subscribed", Value: 1}, {Key: "chat_id", Value: 1}},
				Options: options.Index().SetName("ix_subscribed"),
			},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Close disconnects from MongoDB.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// ReplaceAllForOwner deletes the owner's posts and inserts posts. Posts
// repeating an already seen SourceID are skipped.
func (r *Repository) ReplaceAllForOwner(ctx context.Context, owner string, posts []domain.Post) error {
	if _, err := r.DeleteAllForOwner(ctx, owner); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(posts))
	docs := make([]any, 0, len(posts))
	for _, p := range posts {
		if _, dup := seen[p.SourceID]; dup {
			continue
		}
		seen[p.SourceID] = struct{}{}
		docs = append(docs, postDoc{
			Owner:     owner,
			SourceID:  p.SourceID,
			CreatedAt: p.CreatedAt.UTC().Truncate(time.Millisecond),
			Body:      p.Body,
		})
	}
	if len(docs) == 0 {
		return nil
	}

	if _, err := r.posts.InsertMany(ctx, docs); err != nil {
		return unavailable("insert posts", err)
	}
	return nil
}

// OldestPost returns the owner's earliest post or nil.
func (r *Repository) OldestPost(ctx context.Context, owner string) (*domain.Post, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "source_id", Value: 1}})

	var doc postDoc
	err := r.posts.FindOne(ctx, bson.M{"owner": owner}, opts).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find oldest post", err)
	}
	p := doc.toPost()
	return &p, nil
}

// PostsInRange returns the owner's posts created in [from, to).
func (r *Repository) PostsInRange(ctx context.Context, owner string, from, to time.Time) ([]domain.Post, error) {
	filter := bson.M{
		"owner":      owner,
		"created_at": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "source_id", Value: 1}})

	cur, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("find posts (owner=%s, from=%v, to=%v)", owner, from, to), err)
	}
	defer cur.Close(ctx)

	var posts []domain.Post
	for cur.Next(ctx) {
		var doc postDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, unavailable("decode post", err)
		}
		posts = append(posts, doc.toPost())
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("iterate posts", err)
	}
	return posts, nil
}

// DeleteAllForOwner removes every post of owner.
func (r *Repository) DeleteAllForOwner(ctx context.Context, owner string) (int64, error) {
	res, err := r.posts.DeleteMany(ctx, bson.M{"owner": owner})
	if err != nil {
		return 0, unavailable("delete posts", err)
	}
	return res.DeletedCount, nil
}

// Register replaces the chat's registration with a new, unsubscribed one.
func (r *Repository) Register(ctx context.Context, chatID int64, owner string) error {
	_, err := r.subscriptions.ReplaceOne(ctx,
		bson.M{"chat_id": chatID},
		subscriptionDoc{ChatID: chatID, Owner: owner},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return unavailable("upsert subscription", err)
	}
	return nil
}

// FindSubscription returns the chat's registration or nil.
func (r *Repository) FindSubscription(ctx context.Context, chatID int64) (*domain.Subscription, error) {
	var doc subscriptionDoc
	err := r.subscriptions.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find subscription", err)
	}
	s := doc.toSubscription()
	return &s, nil
}

// SetSubscribed toggles the daily delivery flag.
func (r *Repository) SetSubscribed(ctx context.Context, chatID int64, subscribed bool) error {
	res, err := r.subscriptions.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"subscribed": subscribed}},
	)
	if err != nil {
		return unavailable("update subscription", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotRegistered
	}
	return nil
}

// ListSubscribed returns every subscribed registration.
func (r *Repository) ListSubscribed(ctx context.Context) ([]domain.Subscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "chat_id", Value: 1}})
	cur, err := r.subscriptions.Find(ctx, bson.M{"subscribed": true}, opts)
	if err != nil {
		return nil, unavailable("find subscriptions", err)
	}
	defer cur.Close(ctx)

	var docs []subscriptionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable("decode subscriptions", err)
	}

	subs := make([]domain.Subscription, 0, len(docs))
	for _, d := range docs {
		subs = append(subs, d.toSubscription())
	}
	return subs, nil
}

func (d postDoc) toPost() domain.Post {
	return domain.Post{
		SourceID:  d.SourceID,
		Owner:     d.Owner,
		CreatedAt: d.CreatedAt.UTC(),
		Body:      d.Body,
	}
}

func (d subscriptionDoc) toSubscription() domain.Subscription {
	return domain.Subscription{ChatID: d.ChatID, Owner: d.Owner, Subscribed: d.Subscribed}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
