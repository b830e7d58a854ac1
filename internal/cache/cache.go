package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores model completions so a re-run over the same images does not
// pay for the same prompt twice.
type Cache interface {
	// GetCompletion retrieves a cached completion by key
	// Returns nil if not found
	GetCompletion(ctx context.Context, key string) (*Entry, error)

	// SetCompletion stores a completion with TTL
	SetCompletion(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Entry is a cached completion with the telemetry of the original call.
type Entry struct {
	Text           string    `json:"text"`
	DurationNS     int64     `json:"duration_ns"`
	PromptTokens   int       `json:"prompt_tokens"`
	ResponseTokens int       `json:"response_tokens"`
	CreatedAt      time.Time `json:"created_at"`
}

// Key derives the cache key for a model and prompt.
func Key(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}
