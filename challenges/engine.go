package challenges

import (
	"fmt"
	"sync"
	"text/template"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/challenges/internal/logger"
)

// gateCostLimit bounds the work a single gate evaluation may do
const gateCostLimit = 1000000

// Engine compiles rule gates and descriptions and turns a profile into
// suggestions. Safe for concurrent use.
type Engine struct {
	env          *cel.Env
	store        RuleStore
	cache        RulesCache                    // active rules in position order
	programs     map[string]cel.Program        // ruleID -> compiled gate
	descriptions map[string]*template.Template // ruleID -> compiled description
	mu           sync.RWMutex
}

// NewEnv creates the CEL environment gates are compiled in. Profile is
// declared dynamic so facts can be passed as plain maps.
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("Profile", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewEngine creates an engine over store with the default CEL environment
func NewEngine(store RuleStore) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}

	return NewEngineWithEnv(env, store)
}

// NewEngineWithEnv creates an engine with a custom CEL environment and
// compiles every active rule in store
func NewEngineWithEnv(env *cel.Env, store RuleStore) (*Engine, error) {
	en := &Engine{
		env:          env,
		store:        store,
		cache:        NewInMemoryRulesCache(DefaultCacheConfig()),
		programs:     make(map[string]cel.Program),
		descriptions: make(map[string]*template.Template),
	}

	if err := en.CompileAllRules(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// CompileRule compiles the gate and description of a rule and caches both
func (en *Engine) CompileRule(r *ChallengeRule) error {
	prog, tmpl, err := en.compile(r)
	if err != nil {
		return err
	}

	en.install(r.ID, prog, tmpl)
	return nil
}

// compile builds the gate program and description template without touching
// the engine state. prog is nil for unconditional rules.
func (en *Engine) compile(r *ChallengeRule) (cel.Program, *template.Template, error) {
	tmpl, err := parseDescription(r.ID, r.Description)
	if err != nil {
		return nil, nil, err
	}

	if r.Unconditional() {
		return nil, tmpl, nil
	}

	ast, issues := en.env.Compile(r.Gate)
	if issues != nil && issues.Err() != nil {
		return nil, nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(gateCostLimit),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, tmpl, nil
}

func (en *Engine) install(ruleID string, prog cel.Program, tmpl *template.Template) {
	en.mu.Lock()
	if prog != nil {
		en.programs[ruleID] = prog
	} else {
		delete(en.programs, ruleID)
	}
	en.descriptions[ruleID] = tmpl
	en.mu.Unlock()

	logger.Trace("compiled challenge rule", "rule", ruleID, "gated", prog != nil)
}

// CompileAllRules compiles all active rules from the store and primes the
// cache with them
func (en *Engine) CompileAllRules() error {
	rules, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, r := range rules {
		if err := en.CompileRule(r); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", r.ID, err)
		}
	}

	en.cache.Set(rules)
	return nil
}

// AddRule validates, compiles and stores a new rule
func (en *Engine) AddRule(r *ChallengeRule) error {
	if _, err := en.store.Get(r.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrRuleExists, r.ID)
	}

	if err := ValidateRule(r); err != nil {
		return err
	}
	prog, tmpl, err := en.compile(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if err := en.store.Add(r); err != nil {
		return err
	}

	en.install(r.ID, prog, tmpl)
	en.cache.Invalidate()
	return nil
}

// UpdateRule validates and recompiles an existing rule and stores it. The
// compiled gate is swapped only once the store accepted the new version.
func (en *Engine) UpdateRule(r *ChallengeRule) error {
	if _, err := en.store.Get(r.ID); err != nil {
		return err
	}

	if err := ValidateRule(r); err != nil {
		return err
	}
	prog, tmpl, err := en.compile(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if err := en.store.Update(r); err != nil {
		return err
	}

	en.install(r.ID, prog, tmpl)
	en.cache.Invalidate()
	return nil
}

// DeleteRule removes a rule from the store and drops its compiled state
func (en *Engine) DeleteRule(ruleID string) error {
	if err := en.store.Delete(ruleID); err != nil {
		return err
	}

	en.forget(ruleID)
	en.cache.Invalidate()
	return nil
}

// Rule returns a rule by ID, active or not
func (en *Engine) Rule(ruleID string) (*ChallengeRule, error) {
	return en.store.Get(ruleID)
}

// Rules returns the active rules in evaluation order
func (en *Engine) Rules() ([]*ChallengeRule, error) {
	return en.activeRules()
}

// AllRules returns every stored rule, including inactive ones
func (en *Engine) AllRules() ([]*ChallengeRule, error) {
	return en.store.List()
}

func (en *Engine) forget(ruleID string) {
	en.mu.Lock()
	delete(en.programs, ruleID)
	delete(en.descriptions, ruleID)
	en.mu.Unlock()
}

func (en *Engine) activeRules() ([]*ChallengeRule, error) {
	if rules := en.cache.Get(); rules != nil {
		return rules, nil
	}

	rules, err := en.store.ListActive()
	if err != nil {
		return nil, err
	}
	en.cache.Set(rules)
	return rules, nil
}

// Evaluate evaluates the gate of a single rule against a profile
func (en *Engine) Evaluate(ruleID string, p FinancialProfile) (*EvaluationResult, error) {
	r, err := en.store.Get(ruleID)
	if err != nil {
		return nil, err
	}

	result := en.evaluate(r, p.Facts())
	return result, result.Error
}

// EvaluateAll evaluates the gate of every active rule. A failing gate is
// reported in its result and does not stop the others.
func (en *Engine) EvaluateAll(p FinancialProfile) ([]*EvaluationResult, error) {
	rules, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	facts := p.Facts()
	results := make([]*EvaluationResult, 0, len(rules))
	for _, r := range rules {
		results = append(results, en.evaluate(r, facts))
	}
	return results, nil
}

// Suggest returns at most MaxSuggestions challenges for a profile, in rule
// order. The only errors come from the rule store.
func (en *Engine) Suggest(p FinancialProfile) ([]ChallengeSuggestion, error) {
	rules, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	facts := p.Facts()
	suggestions := make([]ChallengeSuggestion, 0, len(rules))
	for _, r := range rules {
		result := en.evaluate(r, facts)
		if result.Error != nil {
			logger.Warn("challenge gate evaluation failed", "rule", r.ID, "error", result.Error)
			continue
		}
		if !result.Matched {
			continue
		}

		en.mu.RLock()
		tmpl := en.descriptions[r.ID]
		en.mu.RUnlock()

		s, err := buildSuggestion(r, tmpl, p)
		if err != nil {
			logger.Warn("challenge description failed", "rule", r.ID, "error", err)
			continue
		}
		suggestions = append(suggestions, s)
	}

	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions, nil
}

func (en *Engine) evaluate(r *ChallengeRule, facts map[string]any) *EvaluationResult {
	result := &EvaluationResult{
		RuleID:   r.ID,
		RuleName: r.Title,
	}

	en.mu.RLock()
	prog, gated := en.programs[r.ID]
	_, compiled := en.descriptions[r.ID]
	en.mu.RUnlock()

	if !compiled {
		result.Error = fmt.Errorf("rule %s is not compiled", r.ID)
		return result
	}
	if !gated {
		result.Matched = true
		return result
	}

	out, details, err := prog.Eval(facts)
	if err != nil {
		result.Error = err
		return result
	}

	// Non-boolean gate results count as no match
	if b, ok := out.Value().(bool); ok {
		result.Matched = b
	}
	if details != nil {
		result.Trace = details.State()
	}
	return result
}
