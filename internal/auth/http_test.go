// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagipkalikasan/bantay/internal/auth"
)

// guardSpy is a stand-in for middleware.RequireRole that records which
// requests it intercepted.
type guardSpy struct {
	paths []string
}

func (g *guardSpy) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		g.paths = append(g.paths, request.Method+" "+request.URL.Path)
		writer.WriteHeader(http.StatusForbidden)
	})
}

/*
TestHandler_Routes_AdminGuard verifies that the admin guard handed to Routes
actually fronts every user-administration endpoint, and only those — the
session lifecycle endpoints must stay reachable without it.
*/
func TestHandler_Routes_AdminGuard(t *testing.T) {
	api := &fakeContentAPI{}
	service := auth.NewService(api, &memorySessionStore{}, testLogger())
	guard := &guardSpy{}
	router := auth.NewHandler(service).Routes(guard.middleware)

	adminEndpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/users"},
		{"POST", "/users"},
		{"DELETE", "/users/u1"},
		{"PUT", "/users/u1/password"},
	}

	for _, endpoint := range adminEndpoints {
		request := httptest.NewRequest(endpoint.method, endpoint.path, strings.NewReader("{}"))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusForbidden, recorder.Code, "%s %s must pass through the guard", endpoint.method, endpoint.path)
	}
	require.Len(t, guard.paths, len(adminEndpoints))

	// Session endpoints bypass the guard entirely.
	request := httptest.NewRequest("GET", "/session", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, guard.paths, len(adminEndpoints), "session endpoints must not hit the admin guard")
}
