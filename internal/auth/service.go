// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
This file implements the authentication state machine for the gateway.

# Architecture

The [Service] is the single owner of the session token and cached user
profile. Every other component reads them through its methods; none touches
durable storage directly. It orchestrates the [SessionStore] and the Content
API client and is injected explicitly wherever session state is needed, so
tests can substitute fakes — there are no package-level singletons.

# State Machine

	unauthenticated ──login──▶ authenticated(user)
	validating ──validate ok──▶ authenticated(user)
	validating ──validate fail─▶ unauthenticated (store cleared)
	authenticated ──logout─────▶ unauthenticated (store cleared)

The initial state on process start is validating when a token exists in the
session store, otherwise unauthenticated.
*/
package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sagipkalikasan/bantay/internal/contentapi"
	"github.com/sagipkalikasan/bantay/internal/platform/apperr"
)

// State names the phases of the authentication lifecycle.
type State string

const (
	// StateUnauthenticated means no trusted session is held.
	StateUnauthenticated State = "unauthenticated"

	// StateValidating means a stored token exists but has not yet been
	// confirmed by the Content API in this process lifetime.
	StateValidating State = "validating"

	// StateAuthenticated means the token was validated and the cached
	// profile is current.
	StateAuthenticated State = "authenticated"
)

// ContentAPI is the slice of the Content API client the auth service needs.
//
// # Why an interface?
//
// It lets tests drive the state machine with scripted responses instead of a
// live HTTP endpoint.
type ContentAPI interface {
	Login(ctx context.Context, username, password string) *contentapi.LoginResult
	ValidateSession(ctx context.Context, sessionToken string) *contentapi.ValidateSessionResult
	ListUsers(ctx context.Context, sessionToken string) *contentapi.ListUsersResult
	CreateUser(ctx context.Context, sessionToken, username, email, password, role, chapterID string) *contentapi.CreateUserResult
	DeleteUser(ctx context.Context, sessionToken, userID string) *contentapi.MutationResult
	UpdatePassword(ctx context.Context, sessionToken, userID, newPassword string) *contentapi.MutationResult
}

// Service implements the gateway's authentication use cases.
//
// # Concurrency
//
// All state transitions are guarded by an internal mutex; methods are safe
// for concurrent use from HTTP handlers.
type Service struct {
	api    ContentAPI
	store  SessionStore
	logger *slog.Logger

	mu    sync.RWMutex
	state State
	token string
	user  *User
}

// NewService constructs the auth service in the unauthenticated state.
// Call [Service.Bootstrap] once at startup to restore a stored session.
func NewService(api ContentAPI, store SessionStore, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		store:  store,
		logger: logger,
		state:  StateUnauthenticated,
	}
}

// # Lifecycle

// Bootstrap restores and re-validates a previously stored session.
//
// # Flow
//
//  1. Load the stored record. No record → unauthenticated, done.
//  2. Enter the validating state and round-trip the token through the
//     Content API's validateSession action.
//  3. Success → authenticated; the cached profile is replaced with the fresh
//     one from the response and persisted.
//  4. Any failure — expired token, unknown token, or network error — clears
//     the store and lands in unauthenticated.
//
// This round-trip is the sole gate for trusting a cached profile: tokens
// expire server-side, so the stored record is never trusted on read alone.
// Bootstrap never returns an error; the resulting state is its answer.
func (service *Service) Bootstrap(ctx context.Context) State {
	record, err := service.store.Load()
	if err != nil {
		// A corrupt record is indistinguishable from no record.
		service.logger.Warn("auth_bootstrap_load_failed", slog.Any("error", err))
		service.signOut()
		return StateUnauthenticated
	}

	if record == nil || record.Token == "" {
		service.setState(StateUnauthenticated, "", nil)
		return StateUnauthenticated
	}

	service.setState(StateValidating, record.Token, nil)

	result := service.api.ValidateSession(ctx, record.Token)
	if !result.Success || result.User == nil {
		service.logger.Info("auth_session_rejected",
			slog.String("reason", result.Error),
			slog.Bool("transient", result.Transient()),
		)
		service.signOut()
		return StateUnauthenticated
	}

	user := userFromPayload(result.User)
	service.setState(StateAuthenticated, record.Token, user)

	// Refresh the cached profile: the server's copy wins.
	if err := service.store.Save(&SessionRecord{Token: record.Token, User: *user}); err != nil {
		service.logger.Warn("auth_profile_refresh_persist_failed", slog.Any("error", err))
	}

	service.logger.Info("auth_session_restored",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return StateAuthenticated
}

// Login authenticates with the Content API and establishes a session.
//
// # Validation
//
// Only presence is checked locally; credential format and verification are
// the Content API's responsibility.
//
// # Failure Semantics
//
// On any failure the state machine is left untouched and a typed error is
// returned: [apperr.Credential] when the API refused the credentials,
// [apperr.UpstreamUnreachable]-class when the network failed. Both are
// recoverable by retry; neither panics.
func (service *Service) Login(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, apperr.ValidationError("Username and password are required")
	}

	result := service.api.Login(ctx, username, password)
	if !result.Success {
		if result.Transient() {
			return nil, apperr.UpstreamUnavailable(result.Error)
		}
		return nil, apperr.Credential(result.Error)
	}

	if result.SessionToken == "" || result.User == nil {
		// A success envelope without a token is a contract violation.
		return nil, apperr.Internal(nil)
	}

	user := userFromPayload(result.User)

	if err := service.store.Save(&SessionRecord{Token: result.SessionToken, User: *user}); err != nil {
		// The session still works for this process; it just won't survive
		// a restart. Log and continue.
		service.logger.Warn("auth_session_persist_failed", slog.Any("error", err))
	}

	service.setState(StateAuthenticated, result.SessionToken, user)

	service.logger.Info("auth_login_succeeded",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Logout clears the session synchronously. No network call is made: the
// remote session may stay valid until natural expiry, which is an accepted
// limitation rather than a security boundary.
//
// Logout is idempotent — calling it while unauthenticated changes nothing.
func (service *Service) Logout() {
	service.signOut()
	service.logger.Info("auth_logged_out")
}

// # Read Access

// CurrentState returns the state machine's current phase.
func (service *Service) CurrentState() State {
	service.mu.RLock()
	defer service.mu.RUnlock()
	return service.state
}

// CurrentUser returns a copy of the authenticated profile, or nil.
//
// A copy is returned so callers cannot mutate the service's cached profile.
func (service *Service) CurrentUser() *User {
	service.mu.RLock()
	defer service.mu.RUnlock()

	if service.state != StateAuthenticated || service.user == nil {
		return nil
	}

	copied := *service.user
	return &copied
}

// CheckPermission is the pure authorization predicate over the current user.
// See [User.Can] for the rules. It performs no I/O.
func (service *Service) CheckPermission(required UserRole, chapterID string) bool {
	return service.CurrentUser().Can(required, chapterID)
}

// # User Administration (admin passthroughs)

// ListUsers returns every account from the Content API.
//
// The local admin gate is advisory; the API re-checks the token's role.
func (service *Service) ListUsers(ctx context.Context) ([]User, error) {
	token, err := service.requireAdmin()
	if err != nil {
		return nil, err
	}

	result := service.api.ListUsers(ctx, token)
	if !result.Success {
		return nil, remoteError(result.Error, result.Transient())
	}

	users := make([]User, 0, len(result.Users))
	for i := range result.Users {
		users = append(users, *userFromPayload(&result.Users[i]))
	}
	return users, nil
}

// CreateUserInput holds the data required to enroll a new account.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	Role      UserRole
	ChapterID string
}

// CreateUser enrolls a new account through the Content API.
func (service *Service) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	token, err := service.requireAdmin()
	if err != nil {
		return nil, err
	}

	result := service.api.CreateUser(ctx, token,
		input.Username, input.Email, input.Password,
		string(input.Role), input.ChapterID,
	)
	if !result.Success {
		return nil, remoteError(result.Error, result.Transient())
	}
	if result.User == nil {
		return nil, apperr.Internal(nil)
	}

	return userFromPayload(result.User), nil
}

// DeleteUser removes an account through the Content API.
func (service *Service) DeleteUser(ctx context.Context, userID string) error {
	token, err := service.requireAdmin()
	if err != nil {
		return err
	}

	result := service.api.DeleteUser(ctx, token, userID)
	if !result.Success {
		return remoteError(result.Error, result.Transient())
	}
	return nil
}

// UpdatePassword replaces an account's password through the Content API.
func (service *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	token, err := service.requireAdmin()
	if err != nil {
		return err
	}

	result := service.api.UpdatePassword(ctx, token, userID, newPassword)
	if !result.Success {
		return remoteError(result.Error, result.Transient())
	}
	return nil
}

// # Internals

// requireAdmin returns the session token when the current user is an admin.
func (service *Service) requireAdmin() (string, error) {
	service.mu.RLock()
	defer service.mu.RUnlock()

	if service.state != StateAuthenticated || service.user == nil {
		return "", apperr.Unauthorized("Authentication required")
	}
	if service.user.Role != RoleAdmin {
		return "", apperr.Forbidden("Administrator access required")
	}
	return service.token, nil
}

// signOut clears durable and in-memory session state.
func (service *Service) signOut() {
	if err := service.store.Clear(); err != nil {
		service.logger.Warn("auth_store_clear_failed", slog.Any("error", err))
	}
	service.setState(StateUnauthenticated, "", nil)
}

// setState applies a transition atomically.
func (service *Service) setState(state State, token string, user *User) {
	service.mu.Lock()
	defer service.mu.Unlock()
	service.state = state
	service.token = token
	service.user = user
}

// userFromPayload maps the wire profile onto the domain type.
func userFromPayload(payload *contentapi.UserPayload) *User {
	return &User{
		ID:        payload.ID,
		Username:  payload.Username,
		Email:     payload.Email,
		Role:      UserRole(payload.Role),
		ChapterID: payload.ChapterID,
	}
}

// remoteError converts a failed Content API envelope into a typed error.
func remoteError(message string, transient bool) error {
	if transient {
		return apperr.UpstreamUnavailable(message)
	}
	return apperr.UpstreamRejected(message)
}
