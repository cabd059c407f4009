// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package cache_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagipkalikasan/bantay/internal/cache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewStore(client, testLogger()), mr
}

func htmlEntry(body string) *cache.Entry {
	return &cache.Entry{
		Status:      http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}
}

/*
TestStore_RoundTrip verifies put/get over a policy bucket, including the
miss path.
*/
func TestStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, ok := store.Get(ctx, cache.Pages, "GET https://site.test/")
	assert.False(t, ok)

	store.Put(ctx, cache.Pages, "GET https://site.test/", htmlEntry("<html>shell</html>"))

	entry, ok := store.Get(ctx, cache.Pages, "GET https://site.test/")
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, entry.Status)
	assert.Equal(t, "text/html; charset=utf-8", entry.ContentType)
	assert.Equal(t, []byte("<html>shell</html>"), entry.Body)
	assert.False(t, entry.StoredAt.IsZero())
}

/*
TestStore_TTLExpiry verifies an entry disappears after its policy TTL.
*/
func TestStore_TTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	policy := cache.Policy{Name: "short", Prefix: "cache:short:", TTL: time.Minute, MaxEntries: 4}
	store.Put(ctx, policy, "GET https://site.test/a", htmlEntry("a"))

	_, ok := store.Get(ctx, policy, "GET https://site.test/a")
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok = store.Get(ctx, policy, "GET https://site.test/a")
	assert.False(t, ok)
}

/*
TestStore_EvictsOldestBeyondCap verifies the bucket cap: inserting past
MaxEntries evicts the oldest entries first, never the newest.
*/
func TestStore_EvictsOldestBeyondCap(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	policy := cache.Policy{Name: "tiny", Prefix: "cache:tiny:", TTL: time.Hour, MaxEntries: 2}

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("GET https://site.test/%d", i)
		// Distinct StoredAt values keep the insertion index strictly ordered.
		store.Put(ctx, policy, key, &cache.Entry{
			Status:      http.StatusOK,
			ContentType: "text/html",
			Body:        []byte{byte('0' + i)},
			StoredAt:    time.Now().Add(time.Duration(i) * time.Millisecond),
		})
	}

	assert.Equal(t, 2, store.Len(ctx, policy))

	// The two oldest are gone; the two newest survive.
	_, ok := store.Get(ctx, policy, "GET https://site.test/0")
	assert.False(t, ok)
	_, ok = store.Get(ctx, policy, "GET https://site.test/1")
	assert.False(t, ok)
	_, ok = store.Get(ctx, policy, "GET https://site.test/2")
	assert.True(t, ok)
	_, ok = store.Get(ctx, policy, "GET https://site.test/3")
	assert.True(t, ok)
}

/*
TestStore_DegradesWithoutRedis verifies caching is best-effort: with Redis
down, puts and gets are silent no-ops rather than failures.
*/
func TestStore_DegradesWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewStore(client, testLogger())
	mr.Close()

	ctx := context.Background()
	store.Put(ctx, cache.Pages, "GET https://site.test/", htmlEntry("shell"))

	_, ok := store.Get(ctx, cache.Pages, "GET https://site.test/")
	assert.False(t, ok)
}
