// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateDatabase,
		c.validateServer,
		c.validateSecurity,
		c.validateEvents,
		c.validatePolls,
		c.validateAnalytics,
		c.validateWebSocket,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

var validAuthModes = map[string]bool{"none": true, "jwt": true, "header": true}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	minJWTSecretLength   = 32
)

func (c *Config) validateSecurity() error {
	s := c.Security
	if !validAuthModes[s.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt, header")
	}
	if s.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}
	switch s.AuthMode {
	case "jwt":
		if len(s.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
	case "header":
		if strings.TrimSpace(s.IdentityHeader) == "" {
			return fmt.Errorf("IDENTITY_HEADER is required when AUTH_MODE=header")
		}
	}
	if s.AuthMode != "none" && c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed in production with authentication enabled")
	}
	if s.RateLimitDisabled {
		return nil
	}
	if s.RateLimitReqs < minRateLimitRequests || s.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if s.RateLimitWindow < minRateLimitWindow || s.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard CORS policy on an authenticated deployment.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

func (c *Config) validateEvents() error {
	e := c.Events
	switch e.Backend {
	case "memory":
		return nil
	case "nats":
	default:
		return fmt.Errorf("EVENTS_BACKEND must be one of: memory, nats")
	}
	if err := validateNATSURL(e.URL); err != nil {
		return fmt.Errorf("NATS_URL invalid: %w", err)
	}
	if strings.TrimSpace(e.SubjectPrefix) == "" {
		return fmt.Errorf("EVENTS_SUBJECT_PREFIX is required")
	}
	if e.JetStream && strings.TrimSpace(e.StreamName) == "" {
		return fmt.Errorf("NATS_STREAM_NAME is required when NATS_JETSTREAM=true")
	}
	if e.EmbeddedServer && (e.ServerPort < 1 || e.ServerPort > 65535) {
		return fmt.Errorf("NATS_PORT must be between 1 and 65535")
	}
	if e.PublishTimeout <= 0 {
		return fmt.Errorf("EVENTS_PUBLISH_TIMEOUT must be positive")
	}
	return nil
}

func validateNATSURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func (c *Config) validatePolls() error {
	switch c.Polls.RespondentPolicy {
	case RespondentPolicyAllowAnonymous, RespondentPolicyRequireRespondent:
	default:
		return fmt.Errorf("POLL_RESPONDENT_POLICY must be one of: %s, %s",
			RespondentPolicyAllowAnonymous, RespondentPolicyRequireRespondent)
	}
	if c.Polls.MaxOptions < 2 {
		return fmt.Errorf("POLL_MAX_OPTIONS must be at least 2")
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("ANALYTICS_TIMEZONE %q is not a known time zone: %w", c.Analytics.Timezone, err)
	}
	if c.Analytics.FirstDayOfWeek != "" {
		if _, ok := parseWeekday(c.Analytics.FirstDayOfWeek); !ok {
			return fmt.Errorf("ANALYTICS_FIRST_DAY_OF_WEEK must be a weekday name, got %q", c.Analytics.FirstDayOfWeek)
		}
	}
	return nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return time.Sunday, false
}

func (c *Config) validateWebSocket() error {
	if c.WebSocket.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be at least 1")
	}
	if c.WebSocket.ClientFrameRate <= 0 {
		return fmt.Errorf("WS_CLIENT_FRAME_RATE must be positive")
	}
	return nil
}

var (
	validLogLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
)

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
