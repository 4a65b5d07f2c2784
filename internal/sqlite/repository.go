package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blackmichael/tweet-rewind/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS posts (
		owner      TEXT    NOT NULL,
		source_id  TEXT    NOT NULL,
		created_at INTEGER NOT NULL,
		body       TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (owner, source_id)
	);
	CREATE INDEX IF NOT EXISTS posts_owner_created_at ON posts (owner, created_at, source_id);

	CREATE TABLE IF NOT EXISTS subscriptions (
		chat_id    INTEGER PRIMARY KEY,
		owner      TEXT    NOT NULL,
		subscribed INTEGER NOT NULL DEFAULT 0
	);`

// Repository implements domain.PostRepository and
// domain.SubscriptionRepository using SQLite. Timestamps are stored as unix
// milliseconds.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the SQLite database at path, creates the schema if
// needed and returns a new Repository. The caller should call Close when the
// repository is no longer needed.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// ReplaceAllForOwner deletes the owner's posts and inserts posts. The insert
// runs in its own transaction after the delete has committed.
func (r *Repository) ReplaceAllForOwner(ctx context.Context, owner string, posts []domain.Post) error {
	if _, err := r.DeleteAllForOwner(ctx, owner); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (owner, source_id, created_at, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, source_id) DO NOTHING`)
	if err != nil {
		return unavailable("prepare insert", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		if _, err := stmt.ExecContext(ctx, owner, p.SourceID, p.CreatedAt.UnixMilli(), p.Body); err != nil {
			return unavailable(fmt.Sprintf("insert post %s", p.SourceID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

// OldestPost returns the owner's earliest post or nil.
func (r *Repository) OldestPost(ctx context.Context, owner string) (*domain.Post, error) {
	var (
		p      domain.Post
		millis int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT owner, source_id, created_at, body
		FROM posts
		WHERE owner = ?
		ORDER BY created_at ASC, source_id ASC
		LIMIT 1`, owner,
	).Scan(&p.Owner, &p.SourceID, &millis, &p.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("query oldest post", err)
	}
	p.CreatedAt = time.UnixMilli(millis).UTC()
	return &p, nil
}

// PostsInRange returns the owner's posts created in [from, to).
func (r *Repository) PostsInRange(ctx context.Context, owner string, from, to time.Time) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner, source_id, created_at, body
		FROM posts
		WHERE owner = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC, source_id ASC`,
		owner, from.UnixMilli(), to.UnixMilli(),
	)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("query posts (owner=%s, from=%v, to=%v)", owner, from, to), err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var (
			p      domain.Post
			millis int64
		)
		if err := rows.Scan(&p.Owner, &p.SourceID, &millis, &p.Body); err != nil {
			return nil, unavailable("scan post", err)
		}
		p.CreatedAt = time.UnixMilli(millis).UTC()
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate posts", err)
	}
	return posts, nil
}

// DeleteAllForOwner removes every post of owner.
func (r *Repository) DeleteAllForOwner(ctx context.Context, owner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE owner = ?`, owner)
	if err != nil {
		return 0, unavailable("delete posts", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// Register replaces the chat's registration with a new, unsubscribed one.
func (r *Repository) Register(ctx context.Context, chatID int64, owner string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (chat_id, owner, subscribed)
		VALUES (?, ?, 0)
		ON CONFLICT (chat_id) DO UPDATE SET owner = excluded.owner, subscribed = 0`,
		chatID, owner,
	)
	if err != nil {
		return unavailable("upsert subscription", err)
	}
	return nil
}

// FindSubscription returns the chat's registration or nil.
func (r *Repository) FindSubscription(ctx context.Context, chatID int64) (*domain.Subscription, error) {
	var s domain.Subscription
	err := r.db.QueryRowContext(ctx,
		`SELECT chat_id, owner, subscribed FROM subscriptions WHERE chat_id = ?`, chatID,
	).Scan(&s.ChatID, &s.Owner, &s.Subscribed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("query subscription", err)
	}
	return &s, nil
}

// SetSubscribed toggles the daily delivery flag.
func (r *Repository) SetSubscribed(ctx context.Context, chatID int64, subscribed bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET subscribed = ? WHERE chat_id = ?`, subscribed, chatID,
	)
	if err != nil {
		return unavailable("update subscription", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotRegistered
	}
	return nil
}

// ListSubscribed returns every subscribed registration.
func (r *Repository) ListSubscribed(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chat_id, owner, subscribed FROM subscriptions WHERE subscribed = 1 ORDER BY chat_id`,
	)
	if err != nil {
		return nil, unavailable("query subscriptions", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.ChatID, &s.Owner, &s.Subscribed); err != nil {
			return nil, unavailable("scan subscription", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate subscriptions", err)
	}
	return subs, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
