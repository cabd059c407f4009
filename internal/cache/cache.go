// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package cache implements the gateway's read-response cache on Redis.

Each cache bucket (pages, content reads, images, fonts) carries its own
expiry policy and entry cap, mirroring the retention rules of the original
browser runtime caches.

Architecture:

  - Policy: Prefix + TTL + MaxEntries per bucket.
  - Eviction: An insertion-time ZSET index per bucket; when the cap is
    exceeded the oldest entries are deleted first.
  - Non-authoritative: Entries are staleness-tolerant fallbacks only; the
    remote Content API is always the source of truth for reads once online.
*/
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sagipkalikasan/bantay/internal/platform/constants"
)

// # Policies

// Policy describes the retention rules of one cache bucket.
type Policy struct {
	// Name identifies the bucket in logs.
	Name string

	// Prefix namespaces the bucket's Redis keys.
	Prefix string

	// TTL is the per-entry expiry window.
	TTL time.Duration

	// MaxEntries caps the bucket; the oldest entries are evicted first.
	MaxEntries int
}

// The four bucket policies of the gateway. TTLs and caps follow the
// platform-wide constants.
var (
	Pages = Policy{
		Name:       "pages",
		Prefix:     constants.RedisPrefixPageCache,
		TTL:        constants.PageCacheTTL,
		MaxEntries: constants.PageCacheMaxEntries,
	}

	ContentReads = Policy{
		Name:       "content_reads",
		Prefix:     constants.RedisPrefixContentCache,
		TTL:        constants.ContentCacheTTL,
		MaxEntries: constants.ContentCacheMaxEntries,
	}

	Images = Policy{
		Name:       "images",
		Prefix:     constants.RedisPrefixImageCache,
		TTL:        constants.ImageCacheTTL,
		MaxEntries: constants.ImageCacheMaxEntries,
	}

	Fonts = Policy{
		Name:       "fonts",
		Prefix:     constants.RedisPrefixFontCache,
		TTL:        constants.FontCacheTTL,
		MaxEntries: constants.FontCacheMaxEntries,
	}
)

// # Entries

// Entry is a cached upstream response.
type Entry struct {
	Status      int       `json:"status"`
	ContentType string    `json:"contentType"`
	Body        []byte    `json:"body"`
	StoredAt    time.Time `json:"storedAt"`
}

// # Store

// Store provides Get/Put over the policy buckets.
//
// All operations are best-effort: a Redis failure degrades the gateway to
// cache-less behavior, it never fails a request on its own.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore creates a cache store over an established Redis client.
func NewStore(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Get returns the cached entry for key, or (nil, false) on a miss.
func (store *Store) Get(ctx context.Context, policy Policy, key string) (*Entry, bool) {
	hashed := hashKey(key)

	raw, err := store.client.Get(ctx, policy.Prefix+"entry:"+hashed).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			store.logger.Warn("cache_get_failed",
				slog.String("bucket", policy.Name),
				slog.Any("error", err),
			)
		}
		// Lazily drop the index member for entries that expired via TTL.
		_ = store.client.ZRem(ctx, policy.Prefix+"index", hashed).Err()
		return nil, false
	}

	entry := &Entry{}
	if err := json.Unmarshal([]byte(raw), entry); err != nil {
		store.logger.Warn("cache_entry_corrupt",
			slog.String("bucket", policy.Name),
			slog.Any("error", err),
		)
		return nil, false
	}

	return entry, true
}

// Put stores an entry under the bucket's policy and evicts the oldest
// entries beyond the cap. Failures are logged, never returned: caching is an
// optimization, not a dependency.
func (store *Store) Put(ctx context.Context, policy Policy, key string, entry *Entry) {
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		store.logger.Warn("cache_entry_encode_failed",
			slog.String("bucket", policy.Name),
			slog.Any("error", err),
		)
		return
	}

	hashed := hashKey(key)

	if err := store.client.Set(ctx, policy.Prefix+"entry:"+hashed, raw, policy.TTL).Err(); err != nil {
		store.logger.Warn("cache_put_failed",
			slog.String("bucket", policy.Name),
			slog.Any("error", err),
		)
		return
	}

	// Track insertion time so eviction can find the oldest entries.
	score := float64(entry.StoredAt.UnixNano())
	if err := store.client.ZAdd(ctx, policy.Prefix+"index", redis.Z{Score: score, Member: hashed}).Err(); err != nil {
		store.logger.Warn("cache_index_failed",
			slog.String("bucket", policy.Name),
			slog.Any("error", err),
		)
		return
	}

	store.evictOldest(ctx, policy)
}

// Len returns the number of indexed entries in the bucket.
func (store *Store) Len(ctx context.Context, policy Policy) int {
	count, err := store.client.ZCard(ctx, policy.Prefix+"index").Result()
	if err != nil {
		return 0
	}
	return int(count)
}

// evictOldest trims the bucket down to its entry cap, oldest first.
func (store *Store) evictOldest(ctx context.Context, policy Policy) {
	indexKey := policy.Prefix + "index"

	count, err := store.client.ZCard(ctx, indexKey).Result()
	if err != nil || int(count) <= policy.MaxEntries {
		return
	}

	// Members are scored by insertion time, so rank 0 is the oldest.
	excess := int(count) - policy.MaxEntries
	oldest, err := store.client.ZRange(ctx, indexKey, 0, int64(excess-1)).Result()
	if err != nil || len(oldest) == 0 {
		return
	}

	entryKeys := make([]string, 0, len(oldest))
	for _, member := range oldest {
		entryKeys = append(entryKeys, policy.Prefix+"entry:"+member)
	}

	_ = store.client.Del(ctx, entryKeys...).Err()
	_ = store.client.ZRemRangeByRank(ctx, indexKey, 0, int64(excess-1)).Err()

	store.logger.Debug("cache_evicted",
		slog.String("bucket", policy.Name),
		slog.Int("evicted", len(oldest)),
	)
}

// hashKey collapses arbitrarily long cache keys (method + full URL) into a
// fixed-size Redis key component.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
