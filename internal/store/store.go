// Package store opens the configured post and subscription backend.
package store

import (
	"context"
	"fmt"

	"github.com/blackmichael/tweet-rewind/internal/config"
	"github.com/blackmichael/tweet-rewind/internal/domain"
	"github.com/blackmichael/tweet-rewind/internal/mongo"
	"github.com/blackmichael/tweet-rewind/internal/sqlite"
)

// Backend bundles the repositories of one storage backend.
type Backend interface {
	domain.PostRepository
	domain.SubscriptionRepository
}

// Params selects and locates a backend.
type Params struct {
	Backend       string
	DatabasePath  string
	MongoURL      string
	MongoDatabase string
}

// Open connects to the backend named by p.Backend. The returned close
// function releases it.
func Open(ctx context.Context, p Params) (Backend, func(context.Context) error, error) {
	switch p.Backend {
	case config.BackendSQLite, "":
		repo, err := sqlite.NewRepository(p.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, func(context.Context) error { return repo.Close() }, nil
	case config.BackendMongo:
		repo, err := mongo.NewRepository(ctx, p.MongoURL, p.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo store: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", p.Backend)
	}
}
