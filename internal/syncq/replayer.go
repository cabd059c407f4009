// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package syncq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/sagipkalikasan/bantay/internal/platform/constants"
)

// Notifier receives queue lifecycle events for the foreground channel.
//
// Delivery is best-effort and advisory: these signals drive transient UI
// indicators, never correctness.
type Notifier interface {
	// WriteQueued fires at the moment a sync candidate is captured, so the
	// UI can tell the user the change is pending rather than lost.
	WriteQueued(url, method string)

	// QueueSynced fires after a full successful drain of the queue.
	QueueSynced()
}

// Doer abstracts the HTTP transport used for replay, so tests can script
// failures without a network.
type Doer interface {
	Do(request *http.Request) (*http.Response, error)
}

// errReplayInterrupted marks a replay round that stopped before draining.
var errReplayInterrupted = errors.New("syncq: replay interrupted, queue not drained")

// Replayer drains the queue when connectivity to the Content API returns.
//
// # Scheduling
//
// The original runtime relied on the platform's background-sync scheduler.
// Here the trigger is explicit: a periodic connectivity probe plus a Kick
// channel the interceptor pokes whenever it queues a write. Replay attempts
// within a round are paced by exponential backoff.
//
// # Ordering
//
// Replay is strictly sequential in enqueue order. A round stops at the first
// still-failing entry instead of skipping it, because a later write may
// depend on an earlier one.
type Replayer struct {
	queue    *Queue
	probe    func(ctx context.Context) bool
	client   Doer
	notifier Notifier
	logger   *slog.Logger

	interval  time.Duration
	retention time.Duration
	kick      chan struct{}
}

// NewReplayer wires a replayer over the queue.
//
// probe reports whether the Content API origin is currently reachable;
// client performs the actual replay requests.
func NewReplayer(queue *Queue, probe func(ctx context.Context) bool, client Doer, notifier Notifier, logger *slog.Logger) *Replayer {
	return &Replayer{
		queue:     queue,
		probe:     probe,
		client:    client,
		notifier:  notifier,
		logger:    logger,
		interval:  constants.ConnectivityInterval,
		retention: constants.QueueRetention,
		kick:      make(chan struct{}, 1),
	}
}

// Kick asks the replayer to try a drain soon. Non-blocking; a pending kick
// coalesces with later ones.
func (replayer *Replayer) Kick() {
	select {
	case replayer.kick <- struct{}{}:
	default:
	}
}

// Run drives the replay loop until the context is cancelled. It is intended
// to run on its own goroutine, started once from main.
func (replayer *Replayer) Run(ctx context.Context) {
	ticker := time.NewTicker(replayer.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-replayer.kick:
		}

		count, err := replayer.queue.Len()
		if err != nil {
			replayer.logger.Error("syncq_len_failed", slog.Any("error", err))
			continue
		}
		if count == 0 {
			continue
		}

		// Don't burn a backoff schedule while clearly offline.
		if !replayer.probe(ctx) {
			continue
		}

		replayer.drainWithBackoff(ctx)
	}
}

// drainWithBackoff retries ReplayOnce under exponential backoff until the
// queue drains, the schedule elapses, or the context is cancelled.
func (replayer *Replayer) drainWithBackoff(ctx context.Context) {
	schedule := backoff.NewExponentialBackOff()
	schedule.MaxElapsedTime = constants.ReplayMaxElapsed

	operation := func() error {
		drained, err := replayer.ReplayOnce(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !drained {
			return errReplayInterrupted
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		replayer.logger.Info("syncq_replay_retry",
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(schedule, ctx), notify); err != nil {
		replayer.logger.Warn("syncq_replay_round_abandoned", slog.Any("error", err))
	}
}

// ReplayOnce walks the queue once in FIFO order.
//
// # Per Entry
//
//   - Past the retention window → dropped and logged (accepted loss).
//   - Replayed successfully → removed.
//   - Still failing at the network layer → the round stops; the entry and
//     everything after it stay queued for a later attempt.
//
// Returns drained=true when the queue is empty afterwards; a full drain that
// removed at least one entry emits the queue-synced notification.
func (replayer *Replayer) ReplayOnce(ctx context.Context) (drained bool, err error) {
	entries, err := replayer.queue.Entries()
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return true, nil
	}

	replayed := 0
	for _, entry := range entries {
		// ── 1. Retention Check ────────────────────────────────────────────
		if time.Since(entry.Request.EnqueuedAt) > replayer.retention {
			replayer.logger.Warn("syncq_entry_expired",
				slog.String("id", entry.Request.ID),
				slog.String("url", entry.Request.URL),
				slog.Time("enqueued_at", entry.Request.EnqueuedAt),
			)
			if err := replayer.queue.Remove(entry.Seq); err != nil {
				return false, err
			}
			continue
		}

		// ── 2. Replay ─────────────────────────────────────────────────────
		if err := replayer.send(ctx, &entry.Request); err != nil {
			replayer.logger.Info("syncq_replay_still_failing",
				slog.String("id", entry.Request.ID),
				slog.Any("error", err),
			)
			return false, nil
		}

		// ── 3. Remove On Success ──────────────────────────────────────────
		if err := replayer.queue.Remove(entry.Seq); err != nil {
			return false, err
		}

		replayed++
		replayer.logger.Info("syncq_replayed",
			slog.String("id", entry.Request.ID),
			slog.String("method", entry.Request.Method),
			slog.String("url", entry.Request.URL),
		)
	}

	if replayed > 0 {
		replayer.notifier.QueueSynced()
	}
	return true, nil
}

// send re-issues a stored request against its original URL.
func (replayer *Replayer) send(ctx context.Context, stored *StoredRequest) error {
	sendCtx, cancel := context.WithTimeout(ctx, constants.ContentWriteTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(sendCtx, stored.Method, stored.URL, bytes.NewReader(stored.Body))
	if err != nil {
		return fmt.Errorf("syncq_build_request_failed: %w", err)
	}
	for name, value := range stored.Header {
		request.Header.Set(name, value)
	}

	response, err := replayer.client.Do(request)
	if err != nil {
		return err
	}
	defer func() { _ = response.Body.Close() }()
	_, _ = io.Copy(io.Discard, response.Body)

	// Any HTTP response means the write reached the Content API. Apps
	// Script reports application-level refusals inside a 200 envelope, so
	// only a broken hosting layer produces a 5xx worth retrying.
	if response.StatusCode >= 500 {
		return fmt.Errorf("syncq_upstream_status: %d", response.StatusCode)
	}

	return nil
}
