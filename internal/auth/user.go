// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

// Package auth implements session handling and role-based authorization for
// the Bantay gateway.
//
// # Architecture
//
// Entities in this file represent the "Truth" of the client-side identity
// model. They have no dependencies on outer layers (HTTP, storage, or the
// remote Content API), which keeps the permission rules trivially testable.
package auth

// UserRole represents the authorization level granted to an account.
//
// The set is closed: the Content API only ever issues these three roles.
// An absent role means the requester is unauthenticated.
type UserRole string

const (
	// RoleAdmin has unrestricted access to every editing surface.
	RoleAdmin UserRole = "admin"

	// RoleChapterHead may mutate exactly one chapter, identified by the
	// ChapterID on the user profile.
	RoleChapterHead UserRole = "chapter_head"

	// RoleEditor may edit shared site content (pillars, partners, stories).
	RoleEditor UserRole = "editor"
)

// Valid reports whether the role is one of the closed enumeration values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleChapterHead, RoleEditor:
		return true
	}
	return false
}

// User is the cached profile of the signed-in account.
//
// # Trust Model
//
// A cached profile is only a UI hint. It must be re-validated against the
// Content API (see [Service.Bootstrap]) before the gateway reports an
// authenticated state, and the remote API remains the authoritative enforcer
// for every mutation.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`

	// ChapterID is set only for chapter_head accounts and names the single
	// chapter the account may mutate.
	ChapterID string `json:"chapterId,omitempty"`
}

// Can reports whether the user satisfies the required role, optionally
// scoped to a chapter.
//
// # Rules (evaluated in order)
//
//  1. A nil user is never permitted.
//  2. Admins are permitted unconditionally.
//  3. Editors are permitted when an editor is required.
//  4. Chapter heads are permitted when a chapter head is required AND the
//     requested chapter matches their own chapter.
//  5. Everything else is denied.
//
// This is NOT a role hierarchy: a chapter head cannot act as an editor and
// vice versa. The predicate is advisory UI gating only — the Content API
// re-validates every mutating action server-side.
func (u *User) Can(required UserRole, chapterID string) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	if u.Role == RoleEditor && required == RoleEditor {
		return true
	}
	if u.Role == RoleChapterHead && required == RoleChapterHead && chapterID != "" && u.ChapterID == chapterID {
		return true
	}
	return false
}
