package challenges

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"
)

// RuleStore manages rule persistence and retrieval
type RuleStore interface {
	// Add a new rule
	Add(rule *ChallengeRule) error

	// Get a rule by ID
	Get(id string) (*ChallengeRule, error)

	// List all rules in evaluation order, active or not
	List() ([]*ChallengeRule, error)

	// ListActive lists active rules in evaluation order
	ListActive() ([]*ChallengeRule, error)

	// Update an existing rule
	Update(rule *ChallengeRule) error

	// Delete a rule
	Delete(id string) error
}

// InMemoryRuleStore implements RuleStore using an in-memory map. Rules are
// copied on the way in and out, so callers never share the stored values.
type InMemoryRuleStore struct {
	rules map[string]*ChallengeRule
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates a new in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*ChallengeRule),
	}
}

// Add adds a new rule to the store and stamps its timestamps
func (s *InMemoryRuleStore) Add(rule *ChallengeRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = rule.Clone()
	return nil
}

// Get retrieves a rule by ID
func (s *InMemoryRuleStore) Get(id string) (*ChallengeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return rule.Clone(), nil
}

// List returns every rule ordered by position
func (s *InMemoryRuleStore) List() ([]*ChallengeRule, error) {
	return s.list(false), nil
}

// ListActive returns the active rules ordered by position
func (s *InMemoryRuleStore) ListActive() ([]*ChallengeRule, error) {
	return s.list(true), nil
}

func (s *InMemoryRuleStore) list(activeOnly bool) []*ChallengeRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]*ChallengeRule, 0, len(s.rules))
	for _, rule := range s.rules {
		if activeOnly && !rule.Active {
			continue
		}
		rules = append(rules, rule.Clone())
	}
	SortRules(rules)
	return rules
}

// Update replaces an existing rule, preserving its CreatedAt timestamp
func (s *InMemoryRuleStore) Update(rule *ChallengeRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, rule.ID)
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	s.rules[rule.ID] = rule.Clone()
	return nil
}

// Delete removes a rule from the store
func (s *InMemoryRuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	delete(s.rules, id)
	return nil
}

// SortRules orders rules by position, breaking ties by ID
func SortRules(rules []*ChallengeRule) {
	slices.SortStableFunc(rules, func(a, b *ChallengeRule) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Seed adds every rule of a catalog to store. Rules already present are
// left untouched, so seeding an existing catalog is a no-op.
func Seed(store RuleStore, rules []*ChallengeRule) (int, error) {
	added := 0
	for _, r := range rules {
		if _, err := store.Get(r.ID); err == nil {
			continue
		}
		if err := ValidateRule(r); err != nil {
			return added, err
		}
		if err := store.Add(r); err != nil {
			return added, fmt.Errorf("failed to seed rule %s: %w", r.ID, err)
		}
		added++
	}
	return added, nil
}
