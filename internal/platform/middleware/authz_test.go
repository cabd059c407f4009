// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagipkalikasan/bantay/internal/auth"
	"github.com/sagipkalikasan/bantay/internal/platform/middleware"
)

// fakeSession implements middleware.SessionState with a fixed user.
type fakeSession struct {
	user *auth.User
}

func (f *fakeSession) CurrentUser() *auth.User { return f.user }

// echoUser answers 200 with the username seen in the request context, or
// "anonymous" when none was injected.
func echoUser(writer http.ResponseWriter, request *http.Request) {
	user := middleware.GetUser(request.Context())
	if user == nil {
		_, _ = writer.Write([]byte("anonymous"))
		return
	}
	_, _ = writer.Write([]byte(user.Username))
}

func serve(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

/*
TestAuthenticate verifies the session profile is injected into the request
context, and that anonymous requests still pass through.
*/
func TestAuthenticate(t *testing.T) {
	operator := &auth.User{ID: "u1", Username: "root", Role: auth.RoleAdmin}

	t.Run("active_session", func(t *testing.T) {
		handler := middleware.Authenticate(&fakeSession{user: operator})(http.HandlerFunc(echoUser))
		recorder := serve(t, handler, "GET", "/")

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "root", recorder.Body.String())
	})

	t.Run("no_session", func(t *testing.T) {
		handler := middleware.Authenticate(&fakeSession{})(http.HandlerFunc(echoUser))
		recorder := serve(t, handler, "GET", "/")

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "anonymous", recorder.Body.String())
	})
}

/*
TestRequireAuth verifies anonymous requests are rejected with 401 while
authenticated ones pass.
*/
func TestRequireAuth(t *testing.T) {
	operator := &auth.User{ID: "u1", Username: "root", Role: auth.RoleAdmin}

	t.Run("authenticated", func(t *testing.T) {
		handler := middleware.Authenticate(&fakeSession{user: operator})(
			middleware.RequireAuth(http.HandlerFunc(echoUser)))
		recorder := serve(t, handler, "POST", "/")

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		handler := middleware.Authenticate(&fakeSession{})(
			middleware.RequireAuth(http.HandlerFunc(echoUser)))
		recorder := serve(t, handler, "POST", "/")

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "UNAUTHORIZED")
	})
}

/*
TestRequireRole verifies the role gate: flat matching, no hierarchy.
*/
func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		user     *auth.User
		required auth.UserRole
		expected int
	}{
		{"admin_passes_admin", &auth.User{Role: auth.RoleAdmin}, auth.RoleAdmin, http.StatusOK},
		{"admin_passes_editor", &auth.User{Role: auth.RoleAdmin}, auth.RoleEditor, http.StatusOK},
		{"editor_passes_editor", &auth.User{Role: auth.RoleEditor}, auth.RoleEditor, http.StatusOK},
		{"editor_blocked_from_admin", &auth.User{Role: auth.RoleEditor}, auth.RoleAdmin, http.StatusForbidden},
		{"head_is_not_editor", &auth.User{Role: auth.RoleChapterHead, ChapterID: "cebu"}, auth.RoleEditor, http.StatusForbidden},
		{"anonymous_blocked", nil, auth.RoleEditor, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Authenticate(&fakeSession{user: tt.user})(
				middleware.RequireRole(tt.required)(http.HandlerFunc(echoUser)))
			recorder := serve(t, handler, "GET", "/")

			assert.Equal(t, tt.expected, recorder.Code)
		})
	}
}

/*
TestRequireChapter verifies chapter-scoped access through a chi route
parameter: admins pass everywhere, heads only on their own chapter.
*/
func TestRequireChapter(t *testing.T) {
	tests := []struct {
		name     string
		user     *auth.User
		chapter  string
		expected int
	}{
		{"admin_any_chapter", &auth.User{Role: auth.RoleAdmin}, "davao", http.StatusOK},
		{"head_own_chapter", &auth.User{Role: auth.RoleChapterHead, ChapterID: "cebu"}, "cebu", http.StatusOK},
		{"head_foreign_chapter", &auth.User{Role: auth.RoleChapterHead, ChapterID: "cebu"}, "davao", http.StatusForbidden},
		{"editor_blocked", &auth.User{Role: auth.RoleEditor}, "cebu", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			router.Use(middleware.Authenticate(&fakeSession{user: tt.user}))
			router.With(middleware.RequireChapter("chapterID")).
				Get("/chapters/{chapterID}", echoUser)

			recorder := serve(t, router, "GET", "/chapters/"+tt.chapter)
			assert.Equal(t, tt.expected, recorder.Code)
		})
	}
}
