// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package auth

// SessionRecord is the durable session state: the opaque token issued by the
// Content API and the profile cached alongside it.
//
// # Trust Model
//
// The presence of a record does not mean the session is valid — tokens expire
// server-side. The record is only trusted after [Service.Bootstrap] has
// re-validated it against the Content API in the current process lifetime.
type SessionRecord struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SessionStore defines the data access contract for the single durable
// session record.
//
// # Invariants
//
//   - At most one record is held at a time; Save replaces any previous one.
//   - Clear is idempotent: clearing an empty store succeeds.
//
// # Ownership
//
// Only the auth [Service] may call these methods. Other components read the
// session exclusively through the service interface, preventing divergent
// copies of the token or profile.
type SessionStore interface {
	// Load returns the persisted record, or nil when no session is stored.
	Load() (*SessionRecord, error)

	// Save persists the record, replacing any existing one.
	Save(record *SessionRecord) error

	// Clear removes the persisted record, if any.
	Clear() error
}
