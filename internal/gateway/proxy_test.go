// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagipkalikasan/bantay/internal/cache"
	"github.com/sagipkalikasan/bantay/internal/gateway"
	"github.com/sagipkalikasan/bantay/internal/platform/bolt"
	"github.com/sagipkalikasan/bantay/internal/platform/constants"
	"github.com/sagipkalikasan/bantay/internal/syncq"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingNotifier records queue lifecycle notifications.
type countingNotifier struct {
	mu     sync.Mutex
	queued []string
	synced int
}

func (n *countingNotifier) WriteQueued(url, method string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queued = append(n.queued, method+" "+url)
}

func (n *countingNotifier) QueueSynced() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.synced++
}

func (n *countingNotifier) queuedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queued)
}

// proxyFixture bundles the proxy with its observable collaborators.
type proxyFixture struct {
	proxy    *gateway.Proxy
	queue    *syncq.Queue
	notifier *countingNotifier
	kicked   int
}

func newProxyFixture(t *testing.T, contentURL, siteURL string) *proxyFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db, err := bolt.Open(filepath.Join(t.TempDir(), "state.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fixture := &proxyFixture{
		queue:    syncq.NewQueue(db, testLogger()),
		notifier: &countingNotifier{},
	}

	content, err := url.Parse(contentURL)
	require.NoError(t, err)
	site, err := url.Parse(siteURL)
	require.NoError(t, err)

	fixture.proxy = gateway.NewProxy(
		content,
		site,
		cache.NewStore(client, testLogger()),
		fixture.queue,
		fixture.notifier,
		func() { fixture.kicked++ },
		testLogger(),
	)
	return fixture
}

// deadServer returns a URL that refuses connections.
func deadServer(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	return server.URL
}

/*
TestProxy_ContentRead_CachesAndFallsBack verifies the network-first read:
online responses are relayed and cached; once the upstream dies, the stale
copy is served instead of an error.
*/
func TestProxy_ContentRead_CachesAndFallsBack(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"success":true,"chapters":["cebu"]}`))
	}))

	fixture := newProxyFixture(t, upstream.URL, deadServer(t))

	// 1. Online: relayed from the network and cached.
	recorder := httptest.NewRecorder()
	fixture.proxy.Content(recorder, httptest.NewRequest("GET", "/api/v1/content?action=listChapters", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "network", recorder.Header().Get(constants.HeaderCacheStatus))
	assert.Contains(t, recorder.Body.String(), "cebu")

	// 2. Offline: the stale cached body answers the same read.
	upstream.Close()

	recorder = httptest.NewRecorder()
	fixture.proxy.Content(recorder, httptest.NewRequest("GET", "/api/v1/content?action=listChapters", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "stale", recorder.Header().Get(constants.HeaderCacheStatus))
	assert.Contains(t, recorder.Body.String(), "cebu")
}

/*
TestProxy_ContentRead_UncachedMissFails verifies an offline read with no
cached copy answers 503 rather than hanging or fabricating data.
*/
func TestProxy_ContentRead_UncachedMissFails(t *testing.T) {
	fixture := newProxyFixture(t, deadServer(t), deadServer(t))

	recorder := httptest.NewRecorder()
	fixture.proxy.Content(recorder, httptest.NewRequest("GET", "/api/v1/content?action=listChapters", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

/*
TestProxy_ContentWrite_QueuesWhenOffline is the core offline guarantee: a
failed mutation is captured durably, the notifier fires, the replayer is
kicked, and the client gets the distinctive WRITE_QUEUED envelope.
*/
func TestProxy_ContentWrite_QueuesWhenOffline(t *testing.T) {
	fixture := newProxyFixture(t, deadServer(t), deadServer(t))

	body := `{"action":"updateChapter","chapterId":"cebu","sessionToken":"tok-123"}`
	request := httptest.NewRequest("POST", "/api/v1/content", bytes.NewBufferString(body))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept-Language", "fil-PH")

	recorder := httptest.NewRecorder()
	fixture.proxy.Content(recorder, request)

	// 1. The client can tell "queued" apart from "lost".
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	var envelope struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "WRITE_QUEUED", envelope.Code)

	// 2. The write is durably queued with its body and headers intact.
	entries, err := fixture.queue.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "POST", entries[0].Request.Method)
	assert.JSONEq(t, body, string(entries[0].Request.Body))
	assert.Equal(t, "application/json", entries[0].Request.Header["Content-Type"])
	assert.Equal(t, "fil-PH", entries[0].Request.Header["Accept-Language"])

	// 3. Subscribers were told, and the replayer was poked.
	assert.Equal(t, 1, fixture.notifier.queuedCount())
	assert.Equal(t, 1, fixture.kicked)
}

// replayDoer answers every replayed request with a success envelope and
// records what it was asked to send.
type replayDoer struct {
	requests []*http.Request
	bodies   []string
}

func (d *replayDoer) Do(request *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(request.Body)
	d.requests = append(d.requests, request)
	d.bodies = append(d.bodies, string(body))
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(`{"success":true}`)),
	}, nil
}

/*
TestProxy_OfflineWriteReplayCycle walks the whole offline lifecycle across
the proxy, the queue, and the replayer: two writes captured while the
upstream is down, both notifications fired, then a single replay round that
drains them in enqueue order — preserving their forwarded headers — and
emits exactly one queue-synced event.
*/
func TestProxy_OfflineWriteReplayCycle(t *testing.T) {
	fixture := newProxyFixture(t, deadServer(t), deadServer(t))

	bodies := []string{
		`{"action":"updateChapter","chapterId":"cebu","sessionToken":"tok-123"}`,
		`{"action":"deleteNews","newsId":"n42","sessionToken":"tok-123"}`,
	}
	for _, body := range bodies {
		request := httptest.NewRequest("POST", "/api/v1/content", bytes.NewBufferString(body))
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set("Accept", "application/json")

		recorder := httptest.NewRecorder()
		fixture.proxy.Content(recorder, request)
		require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	}

	length, err := fixture.queue.Len()
	require.NoError(t, err)
	require.Equal(t, 2, length)
	require.Equal(t, 2, fixture.notifier.queuedCount())

	// Connectivity returns: one replay round drains the queue in order.
	doer := &replayDoer{}
	replayer := syncq.NewReplayer(fixture.queue,
		func(ctx context.Context) bool { return true },
		doer, fixture.notifier, testLogger())

	drained, err := replayer.ReplayOnce(context.Background())
	require.NoError(t, err)
	require.True(t, drained)

	require.Len(t, doer.bodies, 2)
	assert.JSONEq(t, bodies[0], doer.bodies[0])
	assert.JSONEq(t, bodies[1], doer.bodies[1])

	// Replayed requests look like the originals.
	for _, replayed := range doer.requests {
		assert.Equal(t, "POST", replayed.Method)
		assert.Equal(t, "application/json", replayed.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", replayed.Header.Get("Accept"))
	}

	length, err = fixture.queue.Len()
	require.NoError(t, err)
	assert.Zero(t, length)
	assert.Equal(t, 1, fixture.notifier.synced)
}

/*
TestProxy_ContentWrite_UploadsNeverQueue verifies the upload exclusion: an
offline upload fails outright and leaves the queue empty.
*/
func TestProxy_ContentWrite_UploadsNeverQueue(t *testing.T) {
	fixture := newProxyFixture(t, deadServer(t), deadServer(t))

	body := `{"action":"uploadImage","data":"base64..."}`
	request := httptest.NewRequest("POST", "/api/v1/content", bytes.NewBufferString(body))
	request.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	fixture.proxy.Content(recorder, request)

	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	var envelope struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "UPSTREAM_UNREACHABLE", envelope.Code)

	length, err := fixture.queue.Len()
	require.NoError(t, err)
	assert.Zero(t, length)
	assert.Zero(t, fixture.notifier.queuedCount())
}

/*
TestProxy_ContentWrite_RelaysOnline verifies a mutation passes through
untouched when the upstream answers — including application refusals, which
are the remote's business, not the gateway's.
*/
func TestProxy_ContentWrite_RelaysOnline(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		received, _ := io.ReadAll(request.Body)
		assert.Contains(t, string(received), "updateChapter")
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"success":false,"error":"Session expired"}`))
	}))
	t.Cleanup(upstream.Close)

	fixture := newProxyFixture(t, upstream.URL, deadServer(t))

	request := httptest.NewRequest("POST", "/api/v1/content",
		bytes.NewBufferString(`{"action":"updateChapter","sessionToken":"tok-old"}`))
	request.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	fixture.proxy.Content(recorder, request)

	// The refusal envelope reaches the client verbatim; nothing queues.
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Session expired")

	length, err := fixture.queue.Len()
	require.NoError(t, err)
	assert.Zero(t, length)
}

/*
TestProxy_Site_ShellFallback verifies offline navigation: an uncached SPA
route falls back to the cached application shell.
*/
func TestProxy_Site_ShellFallback(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = writer.Write([]byte("<html>shell</html>"))
	}))

	fixture := newProxyFixture(t, deadServer(t), site.URL)

	// 1. Warm the shell cache with an online navigation to the root.
	recorder := httptest.NewRecorder()
	rootRequest := httptest.NewRequest("GET", "/", nil)
	rootRequest.Header.Set("Accept", "text/html")
	fixture.proxy.Site(recorder, rootRequest)
	require.Equal(t, http.StatusOK, recorder.Code)

	// 2. Offline, a never-visited route still renders via the shell.
	site.Close()

	recorder = httptest.NewRecorder()
	spaRequest := httptest.NewRequest("GET", "/chapters/davao", nil)
	spaRequest.Header.Set("Accept", "text/html")
	fixture.proxy.Site(recorder, spaRequest)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "stale", recorder.Header().Get(constants.HeaderCacheStatus))
	assert.Contains(t, recorder.Body.String(), "shell")
}

/*
TestProxy_Site_ImageCacheFirst verifies images are fetched once and then
served from cache without touching the origin.
*/
func TestProxy_Site_ImageCacheFirst(t *testing.T) {
	var hits int
	site := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits++
		writer.Header().Set("Content-Type", "image/png")
		_, _ = writer.Write([]byte("png-bytes"))
	}))
	t.Cleanup(site.Close)

	fixture := newProxyFixture(t, deadServer(t), site.URL)

	for i := 0; i < 3; i++ {
		recorder := httptest.NewRecorder()
		fixture.proxy.Site(recorder, httptest.NewRequest("GET", "/media/banner.png", nil))
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "png-bytes", recorder.Body.String())
	}

	assert.Equal(t, 1, hits)
}
