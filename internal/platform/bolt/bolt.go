// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package bolt provides a managed bbolt database for durable client state.

It is the gateway's equivalent of the browser's durable storage: the session
record and the background sync queue live here and must survive process
restarts, unlike the volatile Redis caches.

Core Responsibilities:

  - Durability: Single-file, transactional storage with no external service.
  - Ownership: Buckets are created up front so components can assume they exist.
  - Safety: Opens with a bounded file-lock timeout so a stale lock fails fast.
*/
package bolt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bboltdb "go.etcd.io/bbolt"
)

// Opinionated settings for the gateway's small, low-contention workload.
const (
	fileMode    = os.FileMode(0o600)
	openTimeout = 2 * time.Second
)

// Bucket names owned by the gateway. Declared centrally so the open path can
// pre-create all of them in a single write transaction.
var (
	// BucketSession holds the session token and cached user profile.
	BucketSession = []byte("session")

	// BucketSyncQueue holds serialized write requests awaiting replay,
	// keyed by a monotonically increasing sequence number (FIFO).
	BucketSyncQueue = []byte("sync_queue")
)

// Open opens (or creates) the bbolt database at path and ensures all gateway
// buckets exist.
//
// # Parameters
//   - path: Filesystem location of the database file. Parent directories are
//     created if missing.
//   - logger: Structured logger for storage lifecycle events.
func Open(path string, logger *slog.Logger) (*bboltdb.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("bolt: failed to create state directory: %w", err)
	}

	db, err := bboltdb.Open(path, fileMode, &bboltdb.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: failed to open %s: %w", path, err)
	}

	// Pre-create buckets so readers never need a write transaction.
	err = db.Update(func(tx *bboltdb.Tx) error {
		for _, bucket := range [][]byte{BucketSession, BucketSyncQueue} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("bolt: failed to create bucket %q: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("bolt state opened", slog.String("path", path))

	return db, nil
}

// Ping verifies the database file is still usable by running an empty
// read transaction.
func Ping(db *bboltdb.DB) error {
	if err := db.View(func(tx *bboltdb.Tx) error { return nil }); err != nil {
		return fmt.Errorf("bolt: ping failed: %w", err)
	}
	return nil
}
