// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package gateway

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sagipkalikasan/bantay/internal/cache"
	"github.com/sagipkalikasan/bantay/internal/platform/apperr"
	"github.com/sagipkalikasan/bantay/internal/platform/constants"
	"github.com/sagipkalikasan/bantay/internal/platform/ctxutil"
	"github.com/sagipkalikasan/bantay/internal/platform/respond"
	"github.com/sagipkalikasan/bantay/internal/syncq"
)

// maxCachedBodyBytes caps the response size the proxy will buffer for
// caching. Larger responses stream through uncached.
const maxCachedBodyBytes = 8 << 20

// forwardedHeaders are the request headers the proxy relays upstream.
// Hop-by-hop headers and the local session cookie never leave the gateway.
var forwardedHeaders = []string{
	constants.HeaderContentType,
	"Accept",
	"Accept-Language",
	"If-None-Match",
	"If-Modified-Since",
}

// Proxy fronts the Content API and the site origin with per-class caching
// and offline write capture.
//
// # Flow
//
// Reads are network-first within a class-specific timeout and fall back to
// the Redis cache. Mutations forward directly; a transport failure on a sync
// candidate enqueues the request durably, notifies subscribers, and answers
// 503 with the WRITE_QUEUED code so the frontend can tell "queued" apart
// from "lost".
type Proxy struct {
	contentURL *url.URL
	siteURL    *url.URL
	httpClient *http.Client
	cache      *cache.Store
	queue      *syncq.Queue
	notifier   syncq.Notifier
	kick       func()
	logger     *slog.Logger
}

/*
NewProxy creates the request interceptor.

Parameters:
  - contentURL: Base URL of the remote Content API endpoint.
  - siteURL: Base URL of the static site origin.
  - store: Redis-backed response cache.
  - queue: Durable offline write queue.
  - notifier: Receiver for queue lifecycle events (the websocket hub).
  - kick: Wakes the replayer after an enqueue; may be nil.
*/
func NewProxy(
	contentURL *url.URL,
	siteURL *url.URL,
	store *cache.Store,
	queue *syncq.Queue,
	notifier syncq.Notifier,
	kick func(),
	logger *slog.Logger,
) *Proxy {
	return &Proxy{
		contentURL: contentURL,
		siteURL:    siteURL,
		httpClient: &http.Client{},
		cache:      store,
		queue:      queue,
		notifier:   notifier,
		kick:       kick,
		logger:     logger,
	}
}

// # Content API Handler

// Content proxies requests to the remote Content API.
func (proxy *Proxy) Content(writer http.ResponseWriter, request *http.Request) {
	if request.Method == "GET" || request.Method == "HEAD" {
		proxy.contentRead(writer, request)
		return
	}
	proxy.contentWrite(writer, request)
}

// contentRead serves a Content API read network-first, falling back to a
// stale cached response on transport failure.
func (proxy *Proxy) contentRead(writer http.ResponseWriter, request *http.Request) {
	logger := ctxutil.GetLogger(request.Context())
	upstream := proxy.contentUpstream(request)
	key := request.Method + " " + upstream

	response, err := proxy.forward(request.Context(), request, upstream, nil, constants.ContentReadTimeout)
	if err == nil {
		defer response.Body.Close()
		proxy.relayAndCache(writer, request, response, cache.ContentReads, key)
		return
	}

	logger.Warn("content_read_network_failed", slog.String("url", upstream), slog.String("error", err.Error()))

	if entry, ok := proxy.cache.Get(request.Context(), cache.ContentReads, key); ok {
		proxy.serveEntry(writer, entry, "stale")
		return
	}
	respond.Error(writer, request, apperr.UpstreamUnreachable(err))
}

// contentWrite forwards a mutating Content API call, capturing sync
// candidates into the durable queue when the network is down.
func (proxy *Proxy) contentWrite(writer http.ResponseWriter, request *http.Request) {
	logger := ctxutil.GetLogger(request.Context())
	upstream := proxy.contentUpstream(request)
	contentType := request.Header.Get(constants.HeaderContentType)

	// ── 1. Buffer small bodies; oversized ones classify as uploads. ──

	body, err := io.ReadAll(io.LimitReader(request.Body, constants.QueueMaxBodyBytes+1))
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Request body could not be read."))
		return
	}

	strategy := ClassifyContent(request.Method, contentType, body)

	// ── 2. Forward to the Content API. ──

	upstreamBody := io.Reader(bytes.NewReader(body))
	if strategy == StrategyUploadPassThrough {
		// Stream the remainder too; uploads exceed the buffered prefix.
		upstreamBody = io.MultiReader(bytes.NewReader(body), request.Body)
	}

	response, err := proxy.forward(request.Context(), request, upstream, upstreamBody, constants.ContentWriteTimeout)
	if err == nil {
		defer response.Body.Close()
		proxy.relay(writer, response)
		return
	}

	// ── 3. Network down: queue sync candidates, reject the rest. ──

	if strategy != StrategySyncCandidate {
		logger.Warn("content_upload_failed",
			slog.String("url", upstream),
			slog.String("strategy", strategy.String()),
			slog.String("error", err.Error()),
		)
		respond.Error(writer, request, apperr.UpstreamUnreachable(err))
		return
	}

	// The replay must look like the original request, so the stored entry
	// carries the same header set forward() relays.
	header := make(map[string]string, len(forwardedHeaders))
	for _, name := range forwardedHeaders {
		if value := request.Header.Get(name); value != "" {
			header[name] = value
		}
	}

	stored := &syncq.StoredRequest{
		Method: request.Method,
		URL:    upstream,
		Header: header,
		Body:   body,
	}
	if queueErr := proxy.queue.Enqueue(stored); queueErr != nil {
		logger.Error("write_queue_enqueue_failed", slog.String("error", queueErr.Error()))
		respond.Error(writer, request, apperr.UpstreamUnreachable(err))
		return
	}

	proxy.notifier.WriteQueued(upstream, request.Method)
	if proxy.kick != nil {
		proxy.kick()
	}
	respond.Error(writer, request, apperr.WriteQueued())
}

// # Site Origin Handler

// Site proxies requests to the static site origin with per-class caching.
func (proxy *Proxy) Site(writer http.ResponseWriter, request *http.Request) {
	strategy := ClassifySite(request.Method, request.URL.Path, request.Header.Get("Accept"))
	upstream := proxy.upstreamURL(proxy.siteURL, request)
	key := "GET " + upstream

	switch strategy {
	case StrategyNetworkFirstPage:
		proxy.sitePage(writer, request, upstream, key)
	case StrategyCacheFirstImage:
		proxy.siteCacheFirst(writer, request, upstream, key, cache.Images)
	case StrategyStaleWhileRevalidateFont:
		proxy.siteStaleWhileRevalidate(writer, request, upstream, key)
	default:
		proxy.sitePassThrough(writer, request, upstream)
	}
}

// sitePage serves navigations network-first within a short timeout. On
// failure it falls back to the cached page, then to the cached application
// shell, so the site keeps rendering offline.
func (proxy *Proxy) sitePage(writer http.ResponseWriter, request *http.Request, upstream, key string) {
	logger := ctxutil.GetLogger(request.Context())

	response, err := proxy.forward(request.Context(), request, upstream, nil, constants.NavigationTimeout)
	if err == nil {
		defer response.Body.Close()
		proxy.relayAndCache(writer, request, response, cache.Pages, key)
		return
	}

	logger.Warn("navigation_network_failed", slog.String("url", upstream), slog.String("error", err.Error()))

	if entry, ok := proxy.cache.Get(request.Context(), cache.Pages, key); ok {
		proxy.serveEntry(writer, entry, "stale")
		return
	}

	// Last resort: the cached shell renders client-side for any route.
	shellKey := "GET " + proxy.siteURL.String() + "/"
	if entry, ok := proxy.cache.Get(request.Context(), cache.Pages, shellKey); ok {
		proxy.serveEntry(writer, entry, "stale")
		return
	}
	respond.Error(writer, request, apperr.UpstreamUnreachable(err))
}

// siteCacheFirst serves from cache when present and only touches the
// network on a miss.
func (proxy *Proxy) siteCacheFirst(writer http.ResponseWriter, request *http.Request, upstream, key string, policy cache.Policy) {
	if entry, ok := proxy.cache.Get(request.Context(), policy, key); ok {
		proxy.serveEntry(writer, entry, "hit")
		return
	}

	response, err := proxy.forward(request.Context(), request, upstream, nil, constants.AssetTimeout)
	if err != nil {
		respond.Error(writer, request, apperr.UpstreamUnreachable(err))
		return
	}
	defer response.Body.Close()
	proxy.relayAndCache(writer, request, response, policy, key)
}

// siteStaleWhileRevalidate serves the cached copy immediately and refreshes
// it in the background; a miss degrades to cache-first.
func (proxy *Proxy) siteStaleWhileRevalidate(writer http.ResponseWriter, request *http.Request, upstream, key string) {
	entry, ok := proxy.cache.Get(request.Context(), cache.Fonts, key)
	if !ok {
		proxy.siteCacheFirst(writer, request, upstream, key, cache.Fonts)
		return
	}

	proxy.serveEntry(writer, entry, "hit")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.AssetTimeout)
		defer cancel()
		proxy.refresh(ctx, upstream, cache.Fonts, key)
	}()
}

// sitePassThrough forwards without caching.
func (proxy *Proxy) sitePassThrough(writer http.ResponseWriter, request *http.Request, upstream string) {
	response, err := proxy.forward(request.Context(), request, upstream, request.Body, constants.AssetTimeout)
	if err != nil {
		respond.Error(writer, request, apperr.UpstreamUnreachable(err))
		return
	}
	defer response.Body.Close()
	proxy.relay(writer, response)
}

// # Upstream Plumbing

// contentUpstream maps a proxied request to the Content API's single fixed
// endpoint. Only the query string carries over; the gateway's local route
// path never reaches the remote.
func (proxy *Proxy) contentUpstream(request *http.Request) string {
	rebased := *proxy.contentURL
	rebased.RawQuery = request.URL.RawQuery
	return rebased.String()
}

// upstreamURL rebases an incoming request path and query onto a base URL.
func (proxy *Proxy) upstreamURL(base *url.URL, request *http.Request) string {
	rebased := *base
	rebased.Path = singleJoin(base.Path, request.URL.Path)
	rebased.RawQuery = request.URL.RawQuery
	return rebased.String()
}

// forward issues the upstream request within the given timeout, relaying the
// forwardable request headers.
func (proxy *Proxy) forward(
	ctx context.Context,
	original *http.Request,
	upstream string,
	body io.Reader,
	timeout time.Duration,
) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	request, err := http.NewRequestWithContext(ctx, original.Method, upstream, body)
	if err != nil {
		cancel()
		return nil, err
	}
	for _, name := range forwardedHeaders {
		if value := original.Header.Get(name); value != "" {
			request.Header.Set(name, value)
		}
	}

	response, err := proxy.httpClient.Do(request)
	if err != nil {
		cancel()
		return nil, err
	}
	response.Body = &cancelingBody{ReadCloser: response.Body, cancel: cancel}
	return response, nil
}

// relay streams an upstream response to the client unmodified.
func (proxy *Proxy) relay(writer http.ResponseWriter, response *http.Response) {
	if contentType := response.Header.Get(constants.HeaderContentType); contentType != "" {
		writer.Header().Set(constants.HeaderContentType, contentType)
	}
	writer.Header().Set(constants.HeaderCacheStatus, "network")
	writer.WriteHeader(response.StatusCode)
	_, _ = io.Copy(writer, response.Body)
}

// relayAndCache relays an upstream response and, for a cacheable 200 within
// the size cap, stores it under the given policy.
func (proxy *Proxy) relayAndCache(
	writer http.ResponseWriter,
	request *http.Request,
	response *http.Response,
	policy cache.Policy,
	key string,
) {
	body, err := io.ReadAll(io.LimitReader(response.Body, maxCachedBodyBytes+1))
	if err != nil {
		respond.Error(writer, request, apperr.UpstreamUnreachable(err))
		return
	}

	contentType := response.Header.Get(constants.HeaderContentType)
	if response.StatusCode == http.StatusOK && len(body) <= maxCachedBodyBytes {
		proxy.cache.Put(request.Context(), policy, key, &cache.Entry{
			Status:      response.StatusCode,
			ContentType: contentType,
			Body:        body,
		})
	}

	if contentType != "" {
		writer.Header().Set(constants.HeaderContentType, contentType)
	}
	writer.Header().Set(constants.HeaderCacheStatus, "network")
	writer.WriteHeader(response.StatusCode)
	_, _ = writer.Write(body)

	// Anything past the cap streams through uncached.
	if len(body) > maxCachedBodyBytes {
		_, _ = io.Copy(writer, response.Body)
	}
}

// serveEntry writes a cached entry to the client.
func (proxy *Proxy) serveEntry(writer http.ResponseWriter, entry *cache.Entry, cacheState string) {
	if entry.ContentType != "" {
		writer.Header().Set(constants.HeaderContentType, entry.ContentType)
	}
	writer.Header().Set(constants.HeaderCacheStatus, cacheState)
	writer.Header().Set("Content-Length", strconv.Itoa(len(entry.Body)))
	writer.WriteHeader(entry.Status)
	_, _ = writer.Write(entry.Body)
}

// refresh re-fetches an asset and replaces its cache entry. Failures are
// silent; the stale copy remains valid.
func (proxy *Proxy) refresh(ctx context.Context, upstream string, policy cache.Policy, key string) {
	request, err := http.NewRequestWithContext(ctx, "GET", upstream, nil)
	if err != nil {
		return
	}
	response, err := proxy.httpClient.Do(request)
	if err != nil {
		return
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxCachedBodyBytes))
	if err != nil {
		return
	}
	proxy.cache.Put(ctx, policy, key, &cache.Entry{
		Status:      response.StatusCode,
		ContentType: response.Header.Get(constants.HeaderContentType),
		Body:        body,
	})
}

// singleJoin joins two URL path segments with exactly one slash.
func singleJoin(left, right string) string {
	switch {
	case left == "":
		return right
	case right == "":
		return left
	}
	leftSlash := left[len(left)-1] == '/'
	rightSlash := right[0] == '/'
	switch {
	case leftSlash && rightSlash:
		return left + right[1:]
	case !leftSlash && !rightSlash:
		return left + "/" + right
	}
	return left + right
}

// cancelingBody releases the request's timeout context when the response
// body is closed.
type cancelingBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (body *cancelingBody) Close() error {
	body.cancel()
	return body.ReadCloser.Close()
}
