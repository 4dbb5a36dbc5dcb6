// Package history keeps a log of produced report spreadsheets
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultMaxEntries bounds the stored history when no limit is configured
const DefaultMaxEntries = 1000

// ErrInvalidLimit is returned for negative list limits
var ErrInvalidLimit = errors.New("limit must not be negative")

// Entry describes one produced spreadsheet
type Entry struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	UserID        string    `json:"user_id"`
	Filename      string    `json:"filename"`
	TotalCount    int       `json:"total_count"`
	FilteredCount int       `json:"filtered_count"`
	Filters       string    `json:"filters"`
	Source        string    `json:"source"` // api, scheduler, cli
	CreatedAt     time.Time `json:"created_at"`
}

// Recorder stores and lists history entries
type Recorder interface {
	// Record stores entry, filling in ID and CreatedAt when unset
	Record(ctx context.Context, entry Entry) (Entry, error)
	// List returns up to limit entries, newest first. A zero limit lists everything kept.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// prepare assigns an ID and creation time to new entries
func prepare(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return entry
}

// RedisRecorder keeps the newest entries in a Redis list
type RedisRecorder struct {
	redisClient *redis.Client
	key         string
	maxEntries  int
}

// Ensure RedisRecorder implements Recorder
var _ Recorder = (*RedisRecorder)(nil)

// NewRedisRecorder creates a recorder storing entries under key
func NewRedisRecorder(redisClient *redis.Client, key string, maxEntries int) *RedisRecorder {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	return &RedisRecorder{
		redisClient: redisClient,
		key:         key,
		maxEntries:  maxEntries,
	}
}

// Record pushes entry to the head of the list and trims the tail
func (r *RedisRecorder) Record(ctx context.Context, entry Entry) (Entry, error) {
	entry = prepare(entry)

	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}

	pipe := r.redisClient.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, int64(r.maxEntries-1))

	if _, err := pipe.Exec(ctx); err != nil {
		return Entry{}, fmt.Errorf("failed to record export: %w", err)
	}

	return entry, nil
}

// List returns up to limit entries, newest first
func (r *RedisRecorder) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	values, err := r.redisClient.LRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	entries := make([]Entry, 0, len(values))

	for _, v := range values {
		var entry Entry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode export entry: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// NopRecorder assigns IDs but stores nothing
type NopRecorder struct{}

// Ensure NopRecorder implements Recorder
var _ Recorder = NopRecorder{}

// Record returns entry with ID and CreatedAt filled in
func (NopRecorder) Record(_ context.Context, entry Entry) (Entry, error) {
	return prepare(entry), nil
}

// List always returns an empty history
func (NopRecorder) List(_ context.Context, limit int) ([]Entry, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}

	return []Entry{}, nil
}
