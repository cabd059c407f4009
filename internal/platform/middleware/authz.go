// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sagipkalikasan/bantay/internal/auth"
	"github.com/sagipkalikasan/bantay/internal/platform/apperr"
	"github.com/sagipkalikasan/bantay/internal/platform/ctxkey"
	"github.com/sagipkalikasan/bantay/internal/platform/respond"
)

// SessionState defines the interface needed to resolve the active session in
// middleware.
//
// # Why an interface?
//
// Defining SessionState here decouples the middleware from the `auth` service
// implementation, allowing us to easily inject fakes during unit testing.
//
// # One Session
//
// The gateway mediates for a single signed-in operator, the way a browser
// holds a single session. There is no per-request token to verify locally:
// requests are either made by the current session or by nobody.
type SessionState interface {
	// CurrentUser returns the validated profile of the active session,
	// or nil when the gateway is unauthenticated.
	CurrentUser() *auth.User
}

// Authenticate injects the active session's user profile into the request
// context.
//
// # Flow
//  1. Ask [SessionState] for the current user.
//  2. If nil, the request proceeds as anonymous.
//  3. Otherwise inject [*auth.User] into the request context for downstream use.
func Authenticate(state SessionState) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			user := state.CurrentUser()

			// Anonymous access: downstream guards decide what is reachable.
			if user == nil {
				next.ServeHTTP(writer, request)
				return
			}

			ctx := context.WithValue(request.Context(), ctxkey.KeyUser, user)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests when no session is active.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		user := GetUser(request.Context())
		if user == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests if the active session doesn't satisfy the
// required role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically
// implies [RequireAuth] so you don't need to mount both.
//
// # Advisory Only
//
// This guard gates the local editing surface. The Content API independently
// re-validates role and chapter ownership on every mutating action; a
// client-side check can never be the security boundary.
func RequireRole(role auth.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			user := GetUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if user == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !user.Can(role, "") {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireChapter blocks requests unless the active session may mutate the
// chapter named by the given URL parameter.
//
// Admins always pass; chapter heads pass only for their own chapter.
func RequireChapter(urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			user := GetUser(request.Context())

			if user == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			chapterID := chi.URLParam(request, urlParam)
			if !user.Can(auth.RoleChapterHead, chapterID) {
				respond.Error(writer, request, apperr.Forbidden("You may only edit your own chapter"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser retrieves the [*auth.User] from the [context.Context].
//
// It lives here rather than in ctxutil because ctxutil sits below respond in
// the platform layering and must not import domain types.
//
// # Returns
//   - A pointer to [*auth.User] if a session is active.
//   - nil if the request is anonymous.
func GetUser(ctx context.Context) *auth.User {
	user, ok := ctx.Value(ctxkey.KeyUser).(*auth.User)
	if !ok {
		return nil
	}
	return user
}
