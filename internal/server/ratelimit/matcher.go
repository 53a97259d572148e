package ratelimit

import (
	"strings"
)

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Exact patterns are tried before prefix patterns.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Special case: health check endpoint is unlimited
	if path == "/health" && method == "GET" {
		return &EndpointConfig{Path: path, Method: method}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && !strings.HasSuffix(config.Path, "/") && matchPath(config.Path, path) {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") && matchPath(config.Path, path) {
			return config
		}
	}

	return nil
}

func matchPath(pattern, path string) bool {
	prefix := strings.HasSuffix(pattern, "/")
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")

	if prefix {
		if len(got) <= len(want) {
			return false
		}
		got = got[:len(want)]
	} else if len(got) != len(want) {
		return false
	}

	for i, seg := range want {
		if seg != "*" && seg != got[i] {
			return false
		}
	}
	return true
}
