// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package contentapi implements the RPC client for the remote Content API.

The Content API is a spreadsheet-backed Google Apps Script web app exposing a
single HTTP endpoint. Every operation is a POST of a JSON envelope carrying an
`action` discriminator; every response is a JSON envelope of the shape
`{ "success": bool, ...data | "error": string }`.

# Non-Throwing Contract

Typed action methods in this package never panic and never surface transport
errors as Go errors: internal network/parse failures are caught and converted
into a result whose Success field is false and whose Error field is a
non-empty, user-presentable string. This uniform contract is what lets the
auth service treat credential failures and connectivity failures identically
at the control-flow level while still telling them apart for messaging.
*/
package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sagipkalikasan/bantay/internal/platform/constants"
)

// maxResponseBytes caps how much of an upstream response body is read.
// Apps Script responses are small JSON documents; anything larger is broken.
const maxResponseBytes = 4 << 20

// # Result Envelope

// Result carries the common fields of every Content API response envelope.
// Typed results embed it.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// transient marks a transport-level failure (DNS, offline, timeout,
	// malformed response) as opposed to an application-level refusal.
	transient bool
}

// Transient reports whether the failure was a transport-level one that a
// retry may recover from. Application refusals (bad credentials, expired
// session) are never transient.
func (r *Result) Transient() bool { return r.transient }

// markFailed records a failure on the embedded envelope and guarantees the
// Error field is non-empty.
func (r *Result) markFailed(message string, transient bool) {
	r.Success = false
	r.Error = message
	r.transient = transient
	if r.Error == "" {
		r.Error = "The content service reported an unspecified error"
	}
}

// Failed builds a failure envelope. Fakes standing in for the client use it
// to script transport failures, which set the transient flag.
func Failed(message string, transient bool) Result {
	result := Result{}
	result.markFailed(message, transient)
	return result
}

// failable is satisfied by every typed result via the embedded [Result].
type failable interface {
	markFailed(message string, transient bool)
	ensureError()
}

// ensureError guarantees a failure envelope always carries a message, even
// when the upstream sent `{"success": false}` with no error field.
func (r *Result) ensureError() {
	if !r.Success && r.Error == "" {
		r.Error = "The content service reported an unspecified error"
	}
}

// # Client

// Client is a stateless RPC client for the Content API endpoint.
//
// # Concurrency
//
// Client is safe for concurrent use; it holds no mutable state beyond the
// shared [http.Client] transport.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a Content API client for the given endpoint URL.
//
// The zero-timeout http.Client is intentional: every call site passes a
// context with its own bounded deadline, so a second global timeout would
// only obscure which bound fired.
func NewClient(endpoint string, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// NewClientWithHTTP constructs a client using an explicit [http.Client].
// Used by tests to inject failing or recording transports.
func NewClientWithHTTP(endpoint string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Endpoint returns the configured Content API URL.
func (c *Client) Endpoint() string { return c.endpoint }

// # Transport

// transportErrMessage is the user-presentable message for network-level
// failures. It is deliberately distinct from application errors so the UI
// can suggest checking connectivity rather than re-typing credentials.
const transportErrMessage = "Cannot reach the content service. Check your connection and try again."

// call POSTs the JSON payload to the fixed endpoint and decodes the response
// envelope into out. All failures are recorded on out; call never returns an
// error and never panics.
func (c *Client) call(ctx context.Context, timeout time.Duration, action string, payload any, out failable) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		// A payload we built ourselves should always marshal; treat a
		// failure as an internal bug, not a transient condition.
		c.logger.Error("contentapi_marshal_failed",
			slog.String("action", action),
			slog.Any("error", err),
		)
		out.markFailed("Internal error building the request", false)
		return
	}

	request, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		out.markFailed("Internal error building the request", false)
		return
	}
	request.Header.Set(constants.HeaderContentType, "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("contentapi_unreachable",
			slog.String("action", action),
			slog.Any("error", err),
		)
		out.markFailed(transportErrMessage, true)
		return
	}
	defer func() { _ = response.Body.Close() }()

	// Apps Script answers 200 even for application failures; any other
	// status class means the hosting layer itself is misbehaving.
	if response.StatusCode < 200 || response.StatusCode > 299 {
		c.logger.Warn("contentapi_bad_status",
			slog.String("action", action),
			slog.Int("status", response.StatusCode),
		)
		out.markFailed(fmt.Sprintf("The content service answered with status %d", response.StatusCode), true)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		out.markFailed(transportErrMessage, true)
		return
	}

	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("contentapi_malformed_response",
			slog.String("action", action),
			slog.Any("error", err),
		)
		out.markFailed("The content service returned a malformed response", true)
		return
	}

	// Normalize: a failure envelope must always carry a message.
	out.ensureError()
}

// # Connectivity

// Probe reports whether the Content API origin is reachable.
//
// Any HTTP response — including an error status — counts as connectivity:
// the probe answers "is the network path up", not "is the service healthy".
func (c *Client) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, constants.ProbeTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return false
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return false
	}
	defer func() { _ = response.Body.Close() }()

	// Drain a little so the connection can be reused.
	_, _ = io.CopyN(io.Discard, response.Body, 4096)

	return true
}
