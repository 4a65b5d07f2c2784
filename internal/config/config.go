package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/adhocore/gronx"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds all configuration for the application.
type Config struct {
	// TelegramToken authenticates the bot against the Bot API.
	TelegramToken string

	// Port is the HTTP server port for health and metrics.
	Port int

	// StoreBackend is either "sqlite" or "mongo".
	StoreBackend string

	// DatabasePath is the SQLite database file.
	DatabasePath string

	// MongoURL and MongoDatabase locate the MongoDB store.
	MongoURL      string
	MongoDatabase string

	// ArchiveDir holds one <owner>/tweet.js archive per registered owner.
	ArchiveDir string

	// RewindCron is the schedule of the daily subscriber delivery.
	RewindCron string

	// Location is the timezone "today" and the schedule are evaluated in.
	Location *time.Location

	// BatchDelay spaces messages sent by /rewindall.
	BatchDelay time.Duration

	// MaxSessionsPerChat caps live navigation sessions per conversation.
	MaxSessionsPerChat int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	port, err := intFromEnv("PORT", 3000)
	if err != nil {
		return nil, err
	}

	backend := envOrDefault("STORE_BACKEND", BackendSQLite)
	if backend != BackendSQLite && backend != BackendMongo {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: want %q or %q", backend, BackendSQLite, BackendMongo)
	}

	cron := envOrDefault("REWIND_CRON", "0 8 * * *")
	if !gronx.IsValid(cron) {
		return nil, fmt.Errorf("invalid REWIND_CRON %q", cron)
	}

	loc, err := time.LoadLocation(envOrDefault("REWIND_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid REWIND_TIMEZONE: %w", err)
	}

	batchDelay := 300 * time.Millisecond
	if d := os.Getenv("BATCH_DELAY"); d != "" {
		batchDelay, err = time.ParseDuration(d)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_DELAY: %w", err)
		}
		if batchDelay < 0 {
			return nil, fmt.Errorf("invalid BATCH_DELAY: must not be negative")
		}
	}

	maxSessions, err := intFromEnv("MAX_SESSIONS_PER_CHAT", 20)
	if err != nil {
		return nil, err
	}
	if maxSessions < 1 {
		return nil, fmt.Errorf("invalid MAX_SESSIONS_PER_CHAT: must be at least 1")
	}

	return &Config{
		TelegramToken:      token,
		Port:               port,
		StoreBackend:       backend,
		DatabasePath:       envOrDefault("DATABASE_PATH", "rewind.db"),
		MongoURL:           envOrDefault("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase:      envOrDefault("MONGO_DATABASE", "tweetrewind"),
		ArchiveDir:         envOrDefault("ARCHIVE_DIR", "./data"),
		RewindCron:         cron,
		Location:           loc,
		BatchDelay:         batchDelay,
		MaxSessionsPerChat: maxSessions,
	}, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
