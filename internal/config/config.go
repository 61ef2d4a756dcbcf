// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package config provides layered configuration loading via Koanf v2.
// Precedence: environment variables > config file > built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Recommend RecommendConfig `koanf:"recommend"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// StoreConfig holds settings for the embedded document store.
type StoreConfig struct {
	// Path is the BadgerDB data directory.
	Path string `koanf:"path"`

	// InMemory runs the store without persistence (tests, demos).
	InMemory bool `koanf:"in_memory"`

	// BreakerEnabled wraps stores with circuit breakers.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	// DefaultN is the result count when a request does not specify one.
	DefaultN int `koanf:"default_n"`

	// MaxN caps the result count per request.
	MaxN int `koanf:"max_n"`

	// RichHistoryThreshold is the rating count above which the
	// collaborative strategy is selected. Users with 1..threshold
	// ratings get the content strategy.
	RichHistoryThreshold int `koanf:"rich_history_threshold"`

	// ClusterCount is the number of cold-start user clusters.
	ClusterCount int `koanf:"cluster_count"`

	// NeighborK is the per-item neighbor list size kept by the
	// similarity models.
	NeighborK int `koanf:"neighbor_k"`

	// TrainOnStartup builds the first model snapshot before serving.
	TrainOnStartup bool `koanf:"train_on_startup"`

	// TrainInterval is how often model snapshots are rebuilt.
	TrainInterval time.Duration `koanf:"train_interval"`

	// TrainTimeout bounds a single snapshot build.
	TrainTimeout time.Duration `koanf:"train_timeout"`

	// RequestTimeout bounds a single recommendation request.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// Seed makes clustering deterministic across rebuilds.
	Seed int64 `koanf:"seed"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Store.Path == "" && !c.Store.InMemory {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Recommend.DefaultN < 1 {
		return fmt.Errorf("recommend.default_n must be positive, got %d", c.Recommend.DefaultN)
	}
	if c.Recommend.MaxN < c.Recommend.DefaultN {
		return fmt.Errorf("recommend.max_n (%d) must be >= recommend.default_n (%d)",
			c.Recommend.MaxN, c.Recommend.DefaultN)
	}
	if c.Recommend.RichHistoryThreshold < 1 {
		return fmt.Errorf("recommend.rich_history_threshold must be positive, got %d",
			c.Recommend.RichHistoryThreshold)
	}
	if c.Recommend.ClusterCount < 1 {
		return fmt.Errorf("recommend.cluster_count must be positive, got %d",
			c.Recommend.ClusterCount)
	}
	if c.Security.RateLimitReqs < 1 && !c.Security.RateLimitDisabled {
		return fmt.Errorf("security.rate_limit_reqs must be positive, got %d",
			c.Security.RateLimitReqs)
	}
	return nil
}
