// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package config handles gateway-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (cache, queue, proxy) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the gateway is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Bantay gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8787"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// ContentAPIURL is the single fixed endpoint of the remote Content API
	// (a Google Apps Script web app). Every action is POSTed here as a
	// JSON envelope; reads are GETs with an action query parameter.
	ContentAPIURL string `env:"CONTENT_API_URL,required"`

	// SiteOriginURL is the origin serving the public website bundle. The
	// gateway proxies navigations and static assets from it so pages stay
	// reachable (stale) while offline.
	SiteOriginURL string `env:"SITE_ORIGIN_URL,required"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// StatePath is the filesystem location of the bbolt file holding the
	// session record and the background sync queue. It must survive
	// restarts: queued writes outlive the process that captured them.
	StatePath string `env:"STATE_PATH" envDefault:"./data/bantay.db"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// AllowedOrigins lists the origins permitted by the CORS middleware: the
// site origin plus any comma-separated extras.
func (c *Config) AllowedOrigins() []string {
	origins := []string{c.SiteOriginURL}
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// IsDevelopment reports whether the gateway is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the gateway is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
