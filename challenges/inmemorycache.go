package challenges

import (
	"sync"
	"time"
)

// InMemoryRulesCache is a simple in-memory implementation of RulesCache
// Thread-safe for concurrent access
type InMemoryRulesCache struct {
	rules    []*ChallengeRule
	cachedAt time.Time
	config   CacheConfig
	mu       sync.RWMutex
	isValid  bool
}

// NewInMemoryRulesCache creates a new in-memory rules cache
func NewInMemoryRulesCache(config CacheConfig) *InMemoryRulesCache {
	return &InMemoryRulesCache{
		config: config,
	}
}

// Get retrieves cached rules
// Returns nil if cache is invalid or expired
func (c *InMemoryRulesCache) Get() []*ChallengeRule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil
	}

	// Callers may reorder or edit what they get back
	rulesCopy := make([]*ChallengeRule, len(c.rules))
	for i, r := range c.rules {
		rulesCopy[i] = r.Clone()
	}
	return rulesCopy
}

// Set stores rules in cache
func (c *InMemoryRulesCache) Set(rules []*ChallengeRule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rules = make([]*ChallengeRule, len(rules))
	for i, r := range rules {
		c.rules[i] = r.Clone()
	}
	c.cachedAt = time.Now()
	c.isValid = true
}

// Invalidate clears the cache
func (c *InMemoryRulesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isValid = false
	c.rules = nil
}

// IsValid returns true if cache contains valid data
func (c *InMemoryRulesCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.fresh()
}

// fresh must be called with c.mu held
func (c *InMemoryRulesCache) fresh() bool {
	if !c.isValid {
		return false
	}
	if c.config.TTL > 0 {
		return time.Since(c.cachedAt) <= c.config.TTL
	}
	return true
}
