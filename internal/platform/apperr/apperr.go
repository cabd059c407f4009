// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package apperr defines the centralized error handling framework for the
Bantay gateway.

It provides a rich error type that bridges the gap between low-level
transport/storage errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Taxonomy: Credential errors, session-invalid errors, transient upstream
    failures, and queued-write signals each get a distinct code.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError]
to ensure consistent API responses.
*/
package apperr

import (
	"errors"
	"net/http"
)

// AppError is the canonical error type for the Bantay gateway.
//
// It carries an HTTP status code, a machine-readable code, and a client-safe
// message.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., upstream URLs).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "SESSION_INVALID").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Authentication Errors

// Credential creates a 401 [AppError] for an explicit invalid-credentials
// response from the Content API. It is surfaced verbatim and never retried.
func Credential(msg string) *AppError {
	return &AppError{
		Code:       "CREDENTIAL_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// SessionInvalid creates a 401 [AppError] for an expired or unknown session
// token. Callers treat it as equivalent to logout and prompt re-login.
func SessionInvalid(msg string) *AppError {
	return &AppError{
		Code:       "SESSION_INVALID",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Unauthorized creates a generic 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError] for a role or chapter-ownership failure.
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// ValidationError creates a 400 [AppError] for malformed or missing input.
func ValidationError(msg string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(msg string) *AppError {
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    msg,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Upstream Errors

// UpstreamUnreachable creates a 503 [AppError] for a transport-level failure
// against the remote Content API or site origin (DNS, offline, timeout).
// This is the transient class: reads fall back to cache, writes are queued.
func UpstreamUnreachable(cause error) *AppError {
	return &AppError{
		Code:       "UPSTREAM_UNREACHABLE",
		Message:    "The content service is unreachable",
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// UpstreamUnavailable creates a 503 [AppError] with a caller-supplied,
// user-presentable message for a transient upstream failure.
func UpstreamUnavailable(msg string) *AppError {
	return &AppError{
		Code:       "UPSTREAM_UNREACHABLE",
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// UpstreamRejected creates a 400 [AppError] carrying an application-level
// refusal from the Content API verbatim. These are never retried.
func UpstreamRejected(msg string) *AppError {
	return &AppError{
		Code:       "UPSTREAM_REJECTED",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// WriteQueued creates a 503 [AppError] signalling that a mutating request
// failed at the network layer but was captured in the background sync queue.
// The original failure is still a failure to the caller; the code lets the
// frontend render a "pending" state instead of a hard error.
func WriteQueued() *AppError {
	return &AppError{
		Code:       "WRITE_QUEUED",
		Message:    "You appear to be offline. The change was queued and will sync automatically.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsTransient reports whether err is a transport-level upstream failure that
// a retry (or a queued replay) may recover from.
func IsTransient(err error) bool {
	ae := As(err)
	return ae != nil && ae.Code == "UPSTREAM_UNREACHABLE"
}
