// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package contentapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagipkalikasan/bantay/internal/contentapi"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAPI runs a scripted Content API endpoint and returns a client
// pointed at it plus the envelopes it receives.
func newTestAPI(t *testing.T, handler http.HandlerFunc) (*contentapi.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return contentapi.NewClient(server.URL, testLogger()), server
}

/*
TestClient_Login_Success verifies a success envelope is decoded into the
typed result: token, profile, and the success flag.
*/
func TestClient_Login_Success(t *testing.T) {
	client, _ := newTestAPI(t, func(writer http.ResponseWriter, request *http.Request) {
		// The request is a single JSON envelope with an action discriminator.
		var envelope map[string]any
		require.NoError(t, json.NewDecoder(request.Body).Decode(&envelope))
		assert.Equal(t, "login", envelope["action"])
		assert.Equal(t, "root", envelope["username"])

		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{
			"success": true,
			"sessionToken": "tok-123",
			"user": {"id": "u1", "username": "root", "email": "root@example.org", "role": "admin"}
		}`))
	})

	result := client.Login(context.Background(), "root", "secret")

	require.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, "tok-123", result.SessionToken)
	require.NotNil(t, result.User)
	assert.Equal(t, "admin", result.User.Role)
}

/*
TestClient_Refusal verifies an application-level refusal: success=false
with the remote's message, and NOT transient.
*/
func TestClient_Refusal(t *testing.T) {
	client, _ := newTestAPI(t, func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"success": false, "error": "Invalid username or password"}`))
	})

	result := client.Login(context.Background(), "root", "wrong")

	assert.False(t, result.Success)
	assert.Equal(t, "Invalid username or password", result.Error)
	assert.False(t, result.Transient())
}

/*
TestClient_RefusalWithoutMessage verifies the envelope is normalized: a
failure always carries a message even when the remote omitted one.
*/
func TestClient_RefusalWithoutMessage(t *testing.T) {
	client, _ := newTestAPI(t, func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"success": false}`))
	})

	result := client.ValidateSession(context.Background(), "tok-123")

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

/*
TestClient_TransportFailure verifies the non-throwing contract: a dead
endpoint yields a failed, transient result — never an error or a panic.
*/
func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close() // connection refused from here on

	client := contentapi.NewClient(endpoint, testLogger())
	result := client.Login(context.Background(), "root", "secret")

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.True(t, result.Transient())
}

/*
TestClient_BadStatus verifies a non-2xx from the hosting layer is treated
as a transient transport failure, not an application refusal.
*/
func TestClient_BadStatus(t *testing.T) {
	client, _ := newTestAPI(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
	})

	result := client.DeleteUser(context.Background(), "tok-123", "u9")

	assert.False(t, result.Success)
	assert.True(t, result.Transient())
}

/*
TestClient_MalformedResponse verifies a non-JSON body fails transiently.
*/
func TestClient_MalformedResponse(t *testing.T) {
	client, _ := newTestAPI(t, func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`<html>maintenance</html>`))
	})

	result := client.ListUsers(context.Background(), "tok-123")

	assert.False(t, result.Success)
	assert.True(t, result.Transient())
}

/*
TestClient_Probe verifies any HTTP response counts as connectivity, while
a refused connection does not.
*/
func TestClient_Probe(t *testing.T) {
	client, server := newTestAPI(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusForbidden) // unhealthy but reachable
	})

	assert.True(t, client.Probe(context.Background()))

	server.Close()
	assert.False(t, client.Probe(context.Background()))
}
