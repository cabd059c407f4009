// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package auth

import (
	"encoding/json"
	"fmt"

	bboltdb "go.etcd.io/bbolt"

	"github.com/sagipkalikasan/bantay/internal/platform/bolt"
)

// recordKey is the single key under which the session record is stored.
// The bucket holds at most this one entry.
var recordKey = []byte("current")

// BoltSessionStore implements [SessionStore] on the gateway's bbolt file.
//
// # Durability
//
// The record survives process restarts, mirroring the browser's durable
// storage in the original deployment model.
type BoltSessionStore struct {
	db *bboltdb.DB
}

// NewBoltSessionStore creates a session store over an opened bbolt database.
// The session bucket is pre-created by [bolt.Open].
func NewBoltSessionStore(db *bboltdb.DB) *BoltSessionStore {
	return &BoltSessionStore{db: db}
}

// Load returns the persisted session record, or nil when none is stored.
func (store *BoltSessionStore) Load() (*SessionRecord, error) {
	var record *SessionRecord

	err := store.db.View(func(tx *bboltdb.Tx) error {
		raw := tx.Bucket(bolt.BucketSession).Get(recordKey)
		if raw == nil {
			return nil
		}

		decoded := &SessionRecord{}
		if err := json.Unmarshal(raw, decoded); err != nil {
			return fmt.Errorf("session_store_decode_failed: %w", err)
		}

		record = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Save persists the record, replacing any existing one.
func (store *BoltSessionStore) Save(record *SessionRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("session_store_encode_failed: %w", err)
	}

	err = store.db.Update(func(tx *bboltdb.Tx) error {
		return tx.Bucket(bolt.BucketSession).Put(recordKey, raw)
	})
	if err != nil {
		return fmt.Errorf("session_store_save_failed: %w", err)
	}

	return nil
}

// Clear removes the persisted record. Clearing an empty store is a no-op.
func (store *BoltSessionStore) Clear() error {
	err := store.db.Update(func(tx *bboltdb.Tx) error {
		return tx.Bucket(bolt.BucketSession).Delete(recordKey)
	})
	if err != nil {
		return fmt.Errorf("session_store_clear_failed: %w", err)
	}

	return nil
}
