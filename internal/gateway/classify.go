// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package gateway implements the request interceptor that sits between the
website frontend and its upstreams: the remote Content API and the static
site origin.

Every proxied request is classified into exactly one strategy, which decides
whether it passes straight to the network, is served from cache on failure,
or — for mutating Content API calls — becomes a sync candidate that the
background queue captures when the network is down.
*/
package gateway

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/sagipkalikasan/bantay/internal/platform/constants"
)

// Strategy names the handling policy assigned to a classified request.
type Strategy int

const (
	// StrategyPassThrough forwards the request unchanged with no caching.
	StrategyPassThrough Strategy = iota

	// StrategyNetworkFirstPage serves navigations and shell assets from the
	// network within a short timeout, falling back to the cached page or
	// the cached application shell.
	StrategyNetworkFirstPage

	// StrategyNetworkFirstRead serves Content API reads from the network
	// within a short timeout, falling back to the (stale) cached response.
	StrategyNetworkFirstRead

	// StrategySyncCandidate marks a mutating Content API call that is
	// eligible for the background sync queue if the network fails.
	StrategySyncCandidate

	// StrategyUploadPassThrough marks a mutating Content API call that is
	// deliberately NOT queueable: retrying large binary payloads would
	// bloat durable storage and risk duplicate uploads.
	StrategyUploadPassThrough

	// StrategyCacheFirstImage serves images from cache when present;
	// images are large and rarely change once published.
	StrategyCacheFirstImage

	// StrategyStaleWhileRevalidateFont serves fonts from cache immediately
	// and refreshes them in the background; fonts are immutable by URL.
	StrategyStaleWhileRevalidateFont
)

// String names the strategy for logs.
func (s Strategy) String() string {
	switch s {
	case StrategyNetworkFirstPage:
		return "network_first_page"
	case StrategyNetworkFirstRead:
		return "network_first_read"
	case StrategySyncCandidate:
		return "sync_candidate"
	case StrategyUploadPassThrough:
		return "upload_pass_through"
	case StrategyCacheFirstImage:
		return "cache_first_image"
	case StrategyStaleWhileRevalidateFont:
		return "stale_while_revalidate_font"
	default:
		return "pass_through"
	}
}

// # Content API Classification

// ClassifyContent classifies a request already known to target the Content
// API endpoint.
//
// # Rules
//
//   - GET → network-first read (cacheable).
//   - Multipart bodies, upload actions, and oversized bodies → upload
//     pass-through (never queued).
//   - Every other mutation → sync candidate.
func ClassifyContent(method, contentType string, body []byte) Strategy {
	if method == "GET" || method == "HEAD" {
		return StrategyNetworkFirstRead
	}

	if strings.HasPrefix(strings.ToLower(contentType), "multipart/") {
		return StrategyUploadPassThrough
	}
	if len(body) > constants.QueueMaxBodyBytes {
		return StrategyUploadPassThrough
	}
	if isUploadAction(actionOf(body)) {
		return StrategyUploadPassThrough
	}

	return StrategySyncCandidate
}

// actionOf extracts the `action` discriminator from a JSON envelope body.
// Returns the empty string for non-JSON or action-less bodies.
func actionOf(body []byte) string {
	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Action
}

// isUploadAction reports whether an action denotes a file upload
// (e.g. uploadImage, uploadLogo).
func isUploadAction(action string) bool {
	return strings.HasPrefix(strings.ToLower(action), "upload")
}

// # Site Origin Classification

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".ico": true, ".avif": true,
}

var fontExtensions = map[string]bool{
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
}

// shellExtensions are the bundle assets that load alongside a navigation and
// share its caching policy.
var shellExtensions = map[string]bool{
	".html": true, ".js": true, ".css": true, ".map": true, ".webmanifest": true,
}

// ClassifySite classifies a request targeting the static site origin.
func ClassifySite(method, urlPath, accept string) Strategy {
	// Only idempotent reads of the site are ever cached.
	if method != "GET" && method != "HEAD" {
		return StrategyPassThrough
	}

	extension := strings.ToLower(path.Ext(urlPath))

	switch {
	case imageExtensions[extension]:
		return StrategyCacheFirstImage
	case fontExtensions[extension]:
		return StrategyStaleWhileRevalidateFont
	case shellExtensions[extension]:
		return StrategyNetworkFirstPage
	case extension == "":
		// Extensionless paths are SPA navigations.
		return StrategyNetworkFirstPage
	case strings.Contains(accept, "text/html"):
		return StrategyNetworkFirstPage
	default:
		return StrategyPassThrough
	}
}
