package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Path pattern; "*" matches one segment, a trailing "/" matches deeper paths
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTimeout is how long an unused bucket is kept.
	IdleTimeout     time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns an enabled configuration with the default endpoint tiers.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     time.Hour,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: LLM-backed (strictest limits)
		{Path: "/users/*/skills/analyze", Method: "POST", Limit: 30, Window: time.Hour, Burst: 3},
		{Path: "/users/*/matches", Method: "GET", Limit: 120, Window: time.Hour, Burst: 10},

		// Tier 2: corpus scans and writes
		{Path: "/matches", Method: "POST", Limit: 600, Window: time.Hour, Burst: 20},
		{Path: "/users/*/gaps", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/users/*/gaps/", Method: "POST", Limit: 300, Window: time.Minute, Burst: 30},

		// Tier 3: reads use the default limit
		// Tier 4: health check is unlimited, see MatchEndpoint
	}
}

// ParseIPList turns a list of addresses into a lookup set. Entries may
// themselves be comma-separated.
func ParseIPList(list []string) map[string]bool {
	result := make(map[string]bool)
	for _, item := range list {
		for _, ip := range strings.Split(item, ",") {
			ip = strings.TrimSpace(ip)
			if ip != "" {
				result[ip] = true
			}
		}
	}
	return result
}
