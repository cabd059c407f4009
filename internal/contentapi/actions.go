// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package contentapi

import (
	"context"

	"github.com/sagipkalikasan/bantay/internal/platform/constants"
)

// # Wire Types

// UserPayload is the user profile as the Content API serializes it.
//
// The role string is one of "admin", "chapter_head", "editor"; chapterId is
// present only for chapter heads. Keeping this as a closed wire type (rather
// than a free-form map) means the envelope's data shape is statically known
// on both sides.
type UserPayload struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ChapterID string `json:"chapterId,omitempty"`
}

// # Action Payloads
//
// Each request struct carries its own `action` discriminator so a payload can
// never be sent to the wrong action by accident.

type loginPayload struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type validateSessionPayload struct {
	Action       string `json:"action"`
	SessionToken string `json:"sessionToken"`
}

type listUsersPayload struct {
	Action       string `json:"action"`
	SessionToken string `json:"sessionToken"`
}

type createUserPayload struct {
	Action       string `json:"action"`
	SessionToken string `json:"sessionToken"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	ChapterID    string `json:"chapterId,omitempty"`
}

type deleteUserPayload struct {
	Action       string `json:"action"`
	SessionToken string `json:"sessionToken"`
	UserID       string `json:"userId"`
}

type updatePasswordPayload struct {
	Action       string `json:"action"`
	SessionToken string `json:"sessionToken"`
	UserID       string `json:"userId"`
	NewPassword  string `json:"newPassword"`
}

// # Typed Results

// LoginResult is the response envelope of the `login` action.
type LoginResult struct {
	Result
	SessionToken string       `json:"sessionToken,omitempty"`
	User         *UserPayload `json:"user,omitempty"`
}

// ValidateSessionResult is the response envelope of the `validateSession` action.
type ValidateSessionResult struct {
	Result
	User *UserPayload `json:"user,omitempty"`
}

// ListUsersResult is the response envelope of the `listUsers` action.
type ListUsersResult struct {
	Result
	Users []UserPayload `json:"users,omitempty"`
}

// CreateUserResult is the response envelope of the `createUser` action.
type CreateUserResult struct {
	Result
	User *UserPayload `json:"user,omitempty"`
}

// MutationResult is the response envelope of actions that return no data
// (`deleteUser`, `updatePassword`).
type MutationResult struct {
	Result
}

// # Account Actions

// Login exchanges credentials for a session token and profile.
func (c *Client) Login(ctx context.Context, username, password string) *LoginResult {
	result := &LoginResult{}
	c.call(ctx, constants.ContentWriteTimeout, "login", loginPayload{
		Action:   "login",
		Username: username,
		Password: password,
	}, result)
	return result
}

// ValidateSession asks the Content API whether the stored token is still
// valid and, if so, returns the fresh profile bound to it.
func (c *Client) ValidateSession(ctx context.Context, sessionToken string) *ValidateSessionResult {
	result := &ValidateSessionResult{}
	c.call(ctx, constants.ContentReadTimeout, "validateSession", validateSessionPayload{
		Action:       "validateSession",
		SessionToken: sessionToken,
	}, result)
	return result
}

// ListUsers returns every account. Admin-only server-side.
func (c *Client) ListUsers(ctx context.Context, sessionToken string) *ListUsersResult {
	result := &ListUsersResult{}
	c.call(ctx, constants.ContentReadTimeout, "listUsers", listUsersPayload{
		Action:       "listUsers",
		SessionToken: sessionToken,
	}, result)
	return result
}

// CreateUser enrolls a new account. Admin-only server-side.
func (c *Client) CreateUser(ctx context.Context, sessionToken, username, email, password, role, chapterID string) *CreateUserResult {
	result := &CreateUserResult{}
	c.call(ctx, constants.ContentWriteTimeout, "createUser", createUserPayload{
		Action:       "createUser",
		SessionToken: sessionToken,
		Username:     username,
		Email:        email,
		Password:     password,
		Role:         role,
		ChapterID:    chapterID,
	}, result)
	return result
}

// DeleteUser removes an account. Admin-only server-side.
func (c *Client) DeleteUser(ctx context.Context, sessionToken, userID string) *MutationResult {
	result := &MutationResult{}
	c.call(ctx, constants.ContentWriteTimeout, "deleteUser", deleteUserPayload{
		Action:       "deleteUser",
		SessionToken: sessionToken,
		UserID:       userID,
	}, result)
	return result
}

// UpdatePassword replaces an account's password. Admin-only server-side.
func (c *Client) UpdatePassword(ctx context.Context, sessionToken, userID, newPassword string) *MutationResult {
	result := &MutationResult{}
	c.call(ctx, constants.ContentWriteTimeout, "updatePassword", updatePasswordPayload{
		Action:       "updatePassword",
		SessionToken: sessionToken,
		UserID:       userID,
		NewPassword:  newPassword,
	}, result)
	return result
}
