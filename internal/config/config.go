// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package config loads Whisperbox configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Events    EventsConfig    `koanf:"events"`
	Polls     PollsConfig     `koanf:"polls"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // ":memory:" is accepted for ephemeral runs
	MaxMemory string `koanf:"max_memory"` // DuckDB memory limit, e.g. "512MB"
	Threads   int    `koanf:"threads"`    // 0 = runtime.NumCPU()
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// SecurityConfig configures caller identity resolution and request limits.
//
// Credentials are owned by an external identity provider. Whisperbox only
// verifies the resulting token (jwt), trusts a header set by a gateway
// (header), or runs without identity (none, development only).
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	IdentityHeader    string        `koanf:"identity_header"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// EventsConfig configures the message-created event bus.
type EventsConfig struct {
	// Backend is "memory" (in-process watermill gochannel) or "nats".
	Backend        string        `koanf:"backend"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	ServerPort     int           `koanf:"server_port"`
	StoreDir       string        `koanf:"store_dir"`
	JetStream      bool          `koanf:"jetstream"`
	StreamName     string        `koanf:"stream_name"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxAge         time.Duration `koanf:"max_age"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`

	// Publish circuit breaker.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// Respondent policies for votes cast without a respondent id.
const (
	RespondentPolicyAllowAnonymous    = "allow_anonymous"
	RespondentPolicyRequireRespondent = "require_respondent"
)

// PollsConfig configures poll voting rules.
type PollsConfig struct {
	// RespondentPolicy decides what happens to a vote with no respondent id.
	// allow_anonymous accepts it without any uniqueness check.
	// require_respondent rejects it as a validation error.
	RespondentPolicy string `koanf:"respondent_policy"`
	MaxOptions       int    `koanf:"max_options"`
}

// AnalyticsConfig configures the week boundaries used by inbox analytics.
type AnalyticsConfig struct {
	Timezone       string `koanf:"timezone"`
	FirstDayOfWeek string `koanf:"first_day_of_week"`
}

// WebSocketConfig configures live inbox sessions.
type WebSocketConfig struct {
	SendBuffer       int      `koanf:"send_buffer"`
	ClientFrameRate  float64  `koanf:"client_frame_rate"`
	ClientFrameBurst int      `koanf:"client_frame_burst"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Location resolves the configured analytics time zone.
// Validate guarantees the name loads.
func (a AnalyticsConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStart resolves the configured first day of the week.
func (a AnalyticsConfig) WeekStart() time.Weekday {
	if d, ok := parseWeekday(a.FirstDayOfWeek); ok {
		return d
	}
	return time.Sunday
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
