// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package syncq implements the durable background sync queue for failed writes.

When a mutating Content API request fails at the network layer, the gateway
captures it here and replays it once connectivity returns — without requiring
the page (or even the process) that issued it to still be alive.

Guarantees:

  - Durability: The queue lives in the gateway's bbolt file and survives restarts.
  - FIFO: Entries replay strictly in enqueue order, because later edits may
    depend on earlier ones (create-chapter before update-chapter).
  - Bounded retention: An entry older than the retention window is dropped
    and logged; loss past that window is an accepted trade-off, not a bug.
*/
package syncq

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bboltdb "go.etcd.io/bbolt"

	"github.com/sagipkalikasan/bantay/internal/platform/bolt"
	"github.com/sagipkalikasan/bantay/pkg/uuidv7"
)

// StoredRequest is a serialized mutating HTTP request awaiting replay.
//
// Only sync candidates are ever stored: non-GET requests targeting the
// Content API that are not uploads. Upload payloads are excluded upstream so
// the queue never retains large binaries.
type StoredRequest struct {
	ID         string            `json:"id"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Header     map[string]string `json:"header,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`
}

// Entry pairs a stored request with its queue position.
type Entry struct {
	Seq     uint64
	Request StoredRequest
}

// Queue is the durable FIFO of failed writes.
//
// # Concurrency
//
// bbolt serializes write transactions, and replay runs on a single
// goroutine, so the queue needs no locking of its own: one writer (the
// interceptor) and one remover (the replayer) never interleave within an
// entry.
type Queue struct {
	db     *bboltdb.DB
	logger *slog.Logger
}

// NewQueue creates a queue over an opened bbolt database. The queue bucket
// is pre-created by [bolt.Open].
func NewQueue(db *bboltdb.DB, logger *slog.Logger) *Queue {
	return &Queue{db: db, logger: logger}
}

// Enqueue appends a request to the queue.
//
// The entry is assigned a monotonically increasing sequence key, which is
// what makes replay strictly FIFO. Enqueue assigns ID and EnqueuedAt when
// the caller left them zero.
func (queue *Queue) Enqueue(request *StoredRequest) error {
	if request.ID == "" {
		request.ID = uuidv7.New()
	}
	if request.EnqueuedAt.IsZero() {
		request.EnqueuedAt = time.Now()
	}

	raw, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("syncq_encode_failed: %w", err)
	}

	err = queue.db.Update(func(tx *bboltdb.Tx) error {
		bucket := tx.Bucket(bolt.BucketSyncQueue)

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		return bucket.Put(seqKey(seq), raw)
	})
	if err != nil {
		return fmt.Errorf("syncq_enqueue_failed: %w", err)
	}

	queue.logger.Info("write_queued",
		slog.String("id", request.ID),
		slog.String("method", request.Method),
		slog.String("url", request.URL),
	)
	return nil
}

// Entries returns every queued request in FIFO order.
func (queue *Queue) Entries() ([]Entry, error) {
	var entries []Entry

	err := queue.db.View(func(tx *bboltdb.Tx) error {
		// bbolt cursors iterate keys in byte order; big-endian sequence
		// keys therefore come out in enqueue order.
		cursor := tx.Bucket(bolt.BucketSyncQueue).Cursor()

		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			var request StoredRequest
			if err := json.Unmarshal(value, &request); err != nil {
				return fmt.Errorf("syncq_decode_failed: %w", err)
			}

			entries = append(entries, Entry{
				Seq:     binary.BigEndian.Uint64(key),
				Request: request,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Remove deletes a single entry by its queue position. Called once per entry
// after a successful replay (or a retention drop).
func (queue *Queue) Remove(seq uint64) error {
	err := queue.db.Update(func(tx *bboltdb.Tx) error {
		return tx.Bucket(bolt.BucketSyncQueue).Delete(seqKey(seq))
	})
	if err != nil {
		return fmt.Errorf("syncq_remove_failed: %w", err)
	}
	return nil
}

// Len returns the number of queued entries.
func (queue *Queue) Len() (int, error) {
	var count int
	err := queue.db.View(func(tx *bboltdb.Tx) error {
		count = tx.Bucket(bolt.BucketSyncQueue).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// seqKey renders a sequence number as a big-endian key so byte order equals
// numeric order.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
