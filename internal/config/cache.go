package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware, which
// fronts the admin analytics route. It is off by default so analytics always
// reflect the current registry; enabling it trades freshness (up to TTL) for
// fewer snapshot reads.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables, falling back to defaults.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", false),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       strings.TrimSuffix(envStr("CACHE_PREFIX", "cache"), ":"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
