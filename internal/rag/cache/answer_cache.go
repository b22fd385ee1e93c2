// Package cache provides a Redis-backed cache for generated answers, keyed
// by the normalized question and its retrieval filters.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jlkeet/pacific-hansard-rag/internal/config"
)

// Entry is a cached answer along with the chunk IDs and filters it was
// generated from; a hit skips generation, while retrieval still runs to
// rebuild the response's sources.
type Entry struct {
	Answer     string            `json:"answer"`
	ModelUsed  string            `json:"model_used"`
	ChunkIDs   []string          `json:"chunk_ids"`
	Filters    map[string]string `json:"filters"`
	CachedAt   time.Time         `json:"cached_at"`
}

// AnswerCache caches answer Entries by question+filter fingerprint.
type AnswerCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New builds a Redis-backed answer cache when cfg.Enabled, pinging the
// server to fail fast on a bad address. Returns (nil, nil) when disabled.
func New(cfg config.CacheConfig) (*AnswerCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("answer cache ping: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "hansard:answer:"
	}
	return &AnswerCache{client: client, prefix: prefix, ttl: ttl}, nil
}

// Key fingerprints a question and its filters into a cache key stable under
// filter-map key reordering.
func Key(question string, filters map[string]string) string {
	parts := make([]string, 0, len(filters))
	for k, v := range filters {
		parts = append(parts, k+"="+v)
	}
	sortStrings(parts)
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question)) + "|" + strings.Join(parts, "&")))
	return hex.EncodeToString(h[:])
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Get retrieves a cached entry. Returns false on miss or when the cache is
// disabled (nil receiver).
func (c *AnswerCache) Get(ctx context.Context, key string) (Entry, bool) {
	if c == nil || c.client == nil {
		return Entry{}, false
	}
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("answer_cache_get_error")
		}
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("answer_cache_unmarshal_error")
		return Entry{}, false
	}
	return e, true
}

// Set caches an entry under key, overwriting any prior value.
func (c *AnswerCache) Set(ctx context.Context, key string, e Entry) error {
	if c == nil || c.client == nil {
		return nil
	}
	e.CachedAt = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("answer_cache_set_error")
		return err
	}
	return nil
}

// Close closes the underlying Redis client. Safe to call on a nil receiver.
func (c *AnswerCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
