package challenges

import "time"

// RulesCache provides an abstraction for caching the active rules list
// This allows swapping between in-memory, Redis, or other caching implementations
type RulesCache interface {
	// Get retrieves cached rules, returns nil if cache miss or expired
	Get() []*ChallengeRule

	// Set stores rules in cache
	Set(rules []*ChallengeRule)

	// Invalidate clears the cache, forcing a refresh on next Get
	Invalidate()

	// IsValid returns true if cache has valid data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// 0 means no expiration (manual invalidation only). Set it when several
	// processes share one PostgreSQL catalog.
	TTL time.Duration
}

// DefaultCacheConfig returns the defaults for rule caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 0, // only invalidate on mutations
	}
}
