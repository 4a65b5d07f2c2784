// Package archive reads the tweet.js file of a Twitter data export.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blackmichael/tweet-rewind/internal/domain"
)

// twitterTimeLayout is the created_at layout used by Twitter exports,
// e.g. "Wed Oct 10 20:19:24 +0000 2018".
const twitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// archiveEntry is a single element of the exported array.
type archiveEntry struct {
	Tweet *tweetRecord `json:"tweet"`
}

// tweetRecord holds the fields we need from an exported tweet. The id is kept
// as raw JSON so numeric ids are never routed through float64.
type tweetRecord struct {
	ID        json.RawMessage `json:"id"`
	IDStr     *string         `json:"id_str"`
	FullText  *string         `json:"full_text"`
	CreatedAt *string         `json:"created_at"`
}

// PathFor returns where the archive of owner is expected under dir.
func PathFor(dir, owner string) string {
	return filepath.Join(dir, owner, "tweet.js")
}

// ParseFile reads the archive at path and parses it for owner.
func ParseFile(path, owner string) ([]domain.Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return Parse(raw, owner)
}

// Parse converts an export blob into posts owned by owner. Everything before
// the first '[' is treated as a non-JSON preamble and discarded.
func Parse(raw []byte, owner string) ([]domain.Post, error) {
	start := bytes.IndexByte(raw, '[')
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON array found", domain.ErrMalformedArchive)
	}

	var entries []archiveEntry
	if err := json.Unmarshal(raw[start:], &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedArchive, err)
	}

	posts := make([]domain.Post, 0, len(entries))
	for i, e := range entries {
		post, err := toPost(e.Tweet, owner)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", domain.ErrMalformedRecord, i, err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func toPost(t *tweetRecord, owner string) (domain.Post, error) {
	if t == nil {
		return domain.Post{}, fmt.Errorf("missing tweet object")
	}

	id, err := recordID(t)
	if err != nil {
		return domain.Post{}, err
	}
	if t.FullText == nil {
		return domain.Post{}, fmt.Errorf("tweet %s: missing full_text", id)
	}
	if t.CreatedAt == nil {
		return domain.Post{}, fmt.Errorf("tweet %s: missing created_at", id)
	}
	createdAt, err := parseTime(*t.CreatedAt)
	if err != nil {
		return domain.Post{}, fmt.Errorf("tweet %s: %w", id, err)
	}

	return domain.Post{
		SourceID:  id,
		Owner:     owner,
		CreatedAt: createdAt,
		Body:      *t.FullText,
	}, nil
}

// recordID returns the tweet id verbatim. A JSON string is unquoted, a JSON
// number is kept as its literal digits.
func recordID(t *tweetRecord) (string, error) {
	raw := bytes.TrimSpace(t.ID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if t.IDStr != nil && *t.IDStr != "" {
			return *t.IDStr, nil
		}
		return "", fmt.Errorf("missing id")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid id: %w", err)
		}
		if s == "" {
			return "", fmt.Errorf("missing id")
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid id %s: %w", raw, err)
	}
	return n.String(), nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{twitterTimeLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable created_at %q", s)
}
