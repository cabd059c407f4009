// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package auth_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bboltdb "go.etcd.io/bbolt"

	"github.com/sagipkalikasan/bantay/internal/auth"
	"github.com/sagipkalikasan/bantay/internal/platform/bolt"
)

func openTestDB(t *testing.T) *bboltdb.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "state.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

/*
TestBoltSessionStore_RoundTrip verifies the single-record contract: a save
replaces the previous record, and load returns it intact across readers.
*/
func TestBoltSessionStore_RoundTrip(t *testing.T) {
	store := auth.NewBoltSessionStore(openTestDB(t))

	// 1. Empty store loads nil without error.
	record, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, record)

	// 2. Save then load round-trips the record.
	saved := &auth.SessionRecord{
		Token: "tok-abc",
		User:  auth.User{ID: "u1", Username: "root", Role: auth.RoleAdmin},
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok-abc", loaded.Token)
	assert.Equal(t, auth.RoleAdmin, loaded.User.Role)

	// 3. A second save replaces, never appends.
	replacement := &auth.SessionRecord{
		Token: "tok-def",
		User:  auth.User{ID: "u2", Username: "writer", Role: auth.RoleEditor},
	}
	require.NoError(t, store.Save(replacement))

	loaded, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok-def", loaded.Token)
	assert.Equal(t, "writer", loaded.User.Username)
}

/*
TestBoltSessionStore_Clear verifies clear removes the record and is
idempotent on an already-empty store.
*/
func TestBoltSessionStore_Clear(t *testing.T) {
	store := auth.NewBoltSessionStore(openTestDB(t))

	require.NoError(t, store.Save(&auth.SessionRecord{
		Token: "tok-abc",
		User:  auth.User{ID: "u1", Username: "root", Role: auth.RoleAdmin},
	}))

	require.NoError(t, store.Clear())
	record, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, record)

	// Clearing an empty store is not an error.
	require.NoError(t, store.Clear())
}
