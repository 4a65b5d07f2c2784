package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/blackmichael/tweet-rewind/internal/archive"
	"github.com/blackmichael/tweet-rewind/internal/config"
	"github.com/blackmichael/tweet-rewind/internal/domain"
	"github.com/blackmichael/tweet-rewind/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load(".env")

	var (
		owner         string
		file          string
		archiveDir    string
		backend       string
		databasePath  string
		mongoURL      string
		mongoDatabase string
	)

	flag.StringVar(&owner, "owner", "", "Twitter username the archive belongs to")
	flag.StringVar(&file, "file", "", "Path to tweet.js (defaults to <archive-dir>/<owner>/tweet.js)")
	flag.StringVar(&archiveDir, "archive-dir", envOrDefault("ARCHIVE_DIR", "./data"), "Directory holding <owner>/tweet.js archives")
	flag.StringVar(&backend, "backend", envOrDefault("STORE_BACKEND", config.BackendSQLite), "Store backend (sqlite or mongo)")
	flag.StringVar(&databasePath, "db", envOrDefault("DATABASE_PATH", "rewind.db"), "SQLite database file")
	flag.StringVar(&mongoURL, "mongo-url", envOrDefault("MONGO_URL", "mongodb://localhost:27017"), "MongoDB connection string")
	flag.StringVar(&mongoDatabase, "mongo-db", envOrDefault("MONGO_DATABASE", "tweetrewind"), "MongoDB database name")
	flag.Parse()

	if owner == "" {
		return fmt.Errorf("--owner is required")
	}
	if file == "" {
		file = archive.PathFor(archiveDir, owner)
	}

	ctx := context.Background()
	repo, closeStore, err := store.Open(ctx, store.Params{
		Backend:       backend,
		DatabasePath:  databasePath,
		MongoURL:      mongoURL,
		MongoDatabase: mongoDatabase,
	})
	if err != nil {
		return err
	}
	defer closeStore(ctx)

	fmt.Printf("Parsing %s...\n", file)
	posts, err := archive.ParseFile(file, owner)
	if err != nil {
		return err
	}

	rewinds := domain.NewRewindService(repo, repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stored, err := rewinds.ImportPosts(ctx, owner, posts)
	if err != nil {
		return err
	}

	fmt.Printf("Stored %d tweets for @%s\n", stored, owner)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
