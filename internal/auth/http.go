// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
This file provides the HTTP delivery layer for session management.

# Architecture

The handler acts as a thin mediation layer between the frontend SPA and the
auth [Service]:
  - Protocol: Standard RESTful JSON interface.
  - Security: All permission checks here are advisory UI gating; the remote
    Content API re-validates every mutating action.
  - Verification: Presence validation only — format rules live server-side.

This layer is strictly responsible for transport concerns (status codes,
headers, JSON).
*/
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sagipkalikasan/bantay/internal/platform/apperr"
	requestutil "github.com/sagipkalikasan/bantay/internal/platform/request"
	"github.com/sagipkalikasan/bantay/internal/platform/respond"
	"github.com/sagipkalikasan/bantay/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements session-related HTTP endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with session-specific routes.
//
// # Endpoints
//   - POST /login            : Authenticates against the Content API.
//   - POST /logout           : Clears the local session.
//   - GET  /session          : Reports the current authentication state.
//   - GET  /users            : Lists accounts (admin).
//   - POST /users            : Creates an account (admin).
//   - DELETE /users/{userID} : Deletes an account (admin).
//   - PUT  /users/{userID}/password : Replaces a password (admin).
//
// requireAdmin guards the admin endpoints. The composition root passes
// middleware.RequireRole(RoleAdmin); this package takes it as a plain
// middleware func because the middleware package sits above this one.
func (handler *Handler) Routes(requireAdmin func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Get("/session", handler.session)

	// Admin endpoints. The service re-checks the admin role internally,
	// so these stay correct even if mounted without guards.
	router.Group(func(admin chi.Router) {
		if requireAdmin != nil {
			admin.Use(requireAdmin)
		}
		admin.Get("/users", handler.listUsers)
		admin.Post("/users", handler.createUser)
		admin.Delete("/users/{userID}", handler.deleteUser)
		admin.Put("/users/{userID}/password", handler.updatePassword)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	ChapterID string `json:"chapterId"`
}

type updatePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// sessionResponse reports the authentication state to the frontend.
type sessionResponse struct {
	State         State `json:"state"`
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

// # Handlers

/*
login authenticates the operator and establishes the gateway session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Username, Password)

Response:
  - 200: User: the validated profile
  - 400: VALIDATION_ERROR: missing credentials
  - 401: CREDENTIAL_ERROR: the Content API refused the credentials
  - 503: UPSTREAM_UNREACHABLE: the Content API could not be reached
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("username", input.Username).
		Required("password", input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Login(request.Context(), input.Username, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
logout clears the local session.

POST /api/v1/auth/logout

Description: Synchronous and idempotent; no Content API call is made. The
remote session expires naturally server-side.

Response:
  - 204: session cleared (or none existed)
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.authService.Logout()
	respond.NoContent(writer)
}

/*
session reports the current authentication state.

GET /api/v1/auth/session

Response:
  - 200: sessionResponse
*/
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) {
	user := handler.authService.CurrentUser()
	respond.OK(writer, sessionResponse{
		State:         handler.authService.CurrentState(),
		Authenticated: user != nil,
		User:          user,
	})
}

/*
listUsers returns every account.

GET /api/v1/auth/users

Response:
  - 200: []User
  - 401/403: no session, or not an admin
  - 503: UPSTREAM_UNREACHABLE
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	users, err := handler.authService.ListUsers(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, users)
}

/*
createUser enrolls a new account through the Content API.

POST /api/v1/auth/users

Request:
  - Body: createUserRequest. Role must be one of the closed role set;
    chapterId is required if and only if the role is chapter_head.

Response:
  - 201: User: the created profile
  - 400: VALIDATION_ERROR
  - 401/403: no session, or not an admin
*/
func (handler *Handler) createUser(writer http.ResponseWriter, request *http.Request) {
	var input createUserRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("username", input.Username).
		Required("email", input.Email).
		Required("password", input.Password).
		OneOf("role", input.Role, string(RoleAdmin), string(RoleChapterHead), string(RoleEditor)).
		Custom(input.Role == string(RoleChapterHead) && input.ChapterID == "",
			"chapterId", "is required for chapter heads").
		Custom(input.Role != string(RoleChapterHead) && input.ChapterID != "",
			"chapterId", "is only valid for chapter heads")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.CreateUser(request.Context(), CreateUserInput{
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		Role:      UserRole(input.Role),
		ChapterID: input.ChapterID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
deleteUser removes an account through the Content API.

DELETE /api/v1/auth/users/{userID}

Response:
  - 204: deleted
  - 401/403: no session, or not an admin
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userID")
	if userID == "" {
		respond.Error(writer, request, apperr.ValidationError("userID is required"))
		return
	}

	if err := handler.authService.DeleteUser(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
updatePassword replaces an account's password through the Content API.

PUT /api/v1/auth/users/{userID}/password

Response:
  - 204: updated
  - 400: VALIDATION_ERROR
  - 401/403: no session, or not an admin
*/
func (handler *Handler) updatePassword(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userID")

	var input updatePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("userID", userID).
		Required("newPassword", input.NewPassword).
		MinLen("newPassword", input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.UpdatePassword(request.Context(), userID, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
