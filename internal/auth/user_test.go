// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagipkalikasan/bantay/internal/auth"
)

/*
TestUser_Can exercises the full permission matrix: three roles against
role and chapter requirements. The rules are flat, not hierarchical —
an admin passes everything, but a chapter head is NOT an editor.
*/
func TestUser_Can(t *testing.T) {
	admin := &auth.User{ID: "u1", Username: "root", Role: auth.RoleAdmin}
	editor := &auth.User{ID: "u2", Username: "writer", Role: auth.RoleEditor}
	cebuHead := &auth.User{ID: "u3", Username: "cebu", Role: auth.RoleChapterHead, ChapterID: "cebu"}

	tests := []struct {
		name      string
		user      *auth.User
		required  auth.UserRole
		chapterID string
		allowed   bool
	}{
		// Admin passes every check.
		{"admin_as_admin", admin, auth.RoleAdmin, "", true},
		{"admin_as_editor", admin, auth.RoleEditor, "", true},
		{"admin_as_any_chapter", admin, auth.RoleChapterHead, "davao", true},

		// Editor matches only the editor requirement.
		{"editor_as_editor", editor, auth.RoleEditor, "", true},
		{"editor_as_admin", editor, auth.RoleAdmin, "", false},
		{"editor_as_chapter_head", editor, auth.RoleChapterHead, "cebu", false},

		// Chapter head is scoped to exactly their own chapter.
		{"head_own_chapter", cebuHead, auth.RoleChapterHead, "cebu", true},
		{"head_other_chapter", cebuHead, auth.RoleChapterHead, "davao", false},
		{"head_empty_chapter", cebuHead, auth.RoleChapterHead, "", false},
		{"head_as_editor", cebuHead, auth.RoleEditor, "", false},
		{"head_as_admin", cebuHead, auth.RoleAdmin, "", false},

		// No user, no access.
		{"nil_user", nil, auth.RoleEditor, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.user.Can(tt.required, tt.chapterID))
		})
	}
}

/*
TestUserRole_Valid confirms the role enum is closed.
*/
func TestUserRole_Valid(t *testing.T) {
	assert.True(t, auth.RoleAdmin.Valid())
	assert.True(t, auth.RoleChapterHead.Valid())
	assert.True(t, auth.RoleEditor.Valid())
	assert.False(t, auth.UserRole("superuser").Valid())
	assert.False(t, auth.UserRole("").Valid())
}
