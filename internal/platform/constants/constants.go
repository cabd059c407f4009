// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package constants provides centralized, immutable values for the entire gateway.

It defines default timeouts, cache policies, queue retention windows, and
cross-cutting keys that are shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the local HTTP server.
  - Upstream Timing: Bounded timeouts for calls against the remote Content API.
  - Cache Policy: Per-bucket TTLs and entry caps for the read cache.
  - Sync Queue: Retention window and replay pacing for queued writes.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "bantay-gateway"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// GlobalRequestTimeout hard-caps any proxied request. It must exceed
	// ContentWriteTimeout so slow Content API mutations are not cut short.
	GlobalRequestTimeout = 30 * time.Second
)

// # Upstream Timing

const (
	// NavigationTimeout bounds a network-first page fetch before the cached
	// application shell is served instead.
	NavigationTimeout = 3 * time.Second

	// ContentReadTimeout bounds a network-first Content API read before the
	// cached (stale) response is served instead.
	ContentReadTimeout = 5 * time.Second

	// ContentWriteTimeout bounds a mutating call against the Content API.
	// Apps Script endpoints are slow; writes get a generous window.
	ContentWriteTimeout = 25 * time.Second

	// AssetTimeout bounds image and font fetches from the site origin.
	AssetTimeout = 10 * time.Second

	// ProbeTimeout bounds the connectivity probe against the Content API origin.
	ProbeTimeout = 4 * time.Second
)

// # Cache Policy

const (
	// PageCacheTTL is the retention window for cached navigation pages.
	PageCacheTTL = 7 * 24 * time.Hour

	// PageCacheMaxEntries caps the number of cached pages (oldest evicted first).
	PageCacheMaxEntries = 16

	// ContentCacheTTL keeps Content API reads usable (stale) for one day offline.
	ContentCacheTTL = 24 * time.Hour

	// ContentCacheMaxEntries caps the number of cached Content API reads.
	ContentCacheMaxEntries = 64

	// ImageCacheTTL is month-scale: published images rarely change.
	ImageCacheTTL = 30 * 24 * time.Hour

	// ImageCacheMaxEntries caps the number of cached images (they are large).
	ImageCacheMaxEntries = 60

	// FontCacheTTL is year-scale: fonts are immutable by URL.
	FontCacheTTL = 365 * 24 * time.Hour

	// FontCacheMaxEntries caps the number of cached font files.
	FontCacheMaxEntries = 30
)

// # Sync Queue

const (
	// QueueRetention is the maximum age of a queued write before it is
	// dropped. A write that cannot be replayed within this window is lost,
	// never silently retried forever.
	QueueRetention = 24 * time.Hour

	// QueueMaxBodyBytes caps the body size of a queueable write. Larger
	// payloads are treated as uploads and excluded from the queue.
	QueueMaxBodyBytes = 1 << 20

	// ConnectivityInterval is how often the replayer probes the Content API
	// origin while the queue is non-empty.
	ConnectivityInterval = 30 * time.Second

	// ReplayMaxElapsed bounds a single replay round's backoff schedule.
	ReplayMaxElapsed = 2 * time.Minute
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderOrigin        = "Origin"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderContentType   = "Content-Type"

	// HeaderCacheStatus reports how the gateway satisfied a proxied request:
	// "network", "hit", or "stale".
	HeaderCacheStatus = "X-Bantay-Cache"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixPageCache    = "cache:page:"
	RedisPrefixContentCache = "cache:content:"
	RedisPrefixImageCache   = "cache:image:"
	RedisPrefixFontCache    = "cache:font:"
)

// # Notification Event Types

const (
	// EventWriteQueued tells foreground instances a write was captured for
	// later replay instead of reaching the Content API.
	EventWriteQueued = "OFFLINE_WRITE_QUEUED"

	// EventQueueSynced tells foreground instances the whole queue drained.
	EventQueueSynced = "OFFLINE_QUEUE_SYNCED"
)
