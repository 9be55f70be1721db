package challenges

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// testRule builds a minimal valid daily rule
func testRule(id string, position int, gate string) *ChallengeRule {
	return &ChallengeRule{
		ID:           id,
		Position:     position,
		Title:        "Rule " + id,
		Description:  "Save ₹{{inr .PerPeriod}} a day",
		Gate:         gate,
		Frequency:    FrequencyDaily,
		DurationDays: 10,
		Contribution: &Amount{Basis: BasisIncome, Fraction: 0.01, Granularity: 10, Floor: 50},
		Active:       true,
	}
}

func newTestEngine(t *testing.T, rules ...*ChallengeRule) *Engine {
	t.Helper()

	store := NewInMemoryRuleStore()
	for _, r := range rules {
		if err := store.Add(r); err != nil {
			t.Fatalf("Failed to add rule: %v", err)
		}
	}

	engine, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	return engine
}

// TestNewEngine verifies the constructor works on an empty store
func TestNewEngine(t *testing.T) {
	engine := newTestEngine(t)

	suggestions, err := engine.Suggest(FinancialProfile{MonthlyIncome: 1000})
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("Expected no suggestions from an empty store, got %d", len(suggestions))
	}
}

// TestNewEngineCompilesExistingRules verifies active rules are compiled on init
func TestNewEngineCompilesExistingRules(t *testing.T) {
	inactive := testRule("inactive", 30, "")
	inactive.Active = false

	engine := newTestEngine(t,
		testRule("always", 10, ""),
		testRule("rich", 20, `Profile.MonthlyIncome > 1000.0`),
		inactive,
	)

	suggestions, err := engine.Suggest(FinancialProfile{MonthlyIncome: 5000})
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}

	got := make([]string, len(suggestions))
	for i, s := range suggestions {
		got[i] = s.RuleID
	}
	if strings.Join(got, ",") != "always,rich" {
		t.Errorf("Suggest() rule ids = %v, want [always rich]", got)
	}
}

// TestNewEngineRejectsBadGate verifies init fails when a stored gate does not compile
func TestNewEngineRejectsBadGate(t *testing.T) {
	store := NewInMemoryRuleStore()
	if err := store.Add(testRule("broken", 10, `Profile.MonthlyIncome >`)); err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}

	if _, err := NewEngine(store); err == nil {
		t.Error("NewEngine() should fail on an uncompilable gate")
	}
}

// TestEngineCompileRule covers gate and description compilation
func TestEngineCompileRule(t *testing.T) {
	engine := newTestEngine(t)

	testCases := []struct {
		name        string
		gate        string
		description string
		wantErr     bool
	}{
		{"Unconditional", "", "plain text", false},
		{"Comparison gate", `Profile.MonthlyIncome >= 50000.0`, "plain", false},
		{"String gate", `Profile.Profession == "student"`, "plain", false},
		{"Compound gate", `Profile.TotalExpenses > Profile.MonthlyIncome * 0.6 && Profile.IncomeType == "variable"`, "plain", false},
		{"Syntax error", `Profile.MonthlyIncome >`, "plain", true},
		{"Unknown variable", `User.Age > 18`, "plain", true},
		{"Bad template", "", "Save {{inr .PerPeriod", true},
		{"Unknown template field", "", "Save {{.Amount}}", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := testRule("compile-test", 10, tc.gate)
			r.Description = tc.description

			err := engine.CompileRule(r)
			if (err != nil) != tc.wantErr {
				t.Errorf("CompileRule() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// TestEngineEvaluate verifies single rule gate evaluation
func TestEngineEvaluate(t *testing.T) {
	engine := newTestEngine(t,
		testRule("student", 10, GateStudent),
		testRule("always", 20, ""),
	)

	testCases := []struct {
		name    string
		ruleID  string
		profile FinancialProfile
		want    bool
	}{
		{"Student matches", "student", FinancialProfile{Profession: ProfessionStudent}, true},
		{"Employee does not match", "student", FinancialProfile{Profession: ProfessionEmployee}, false},
		{"Unconditional always matches", "always", FinancialProfile{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := engine.Evaluate(tc.ruleID, tc.profile)
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if result.Matched != tc.want {
				t.Errorf("Matched = %v, want %v", result.Matched, tc.want)
			}
			if result.RuleID != tc.ruleID {
				t.Errorf("RuleID = %q, want %q", result.RuleID, tc.ruleID)
			}
		})
	}
}

// TestEngineEvaluateNotFound verifies unknown ids return ErrRuleNotFound
func TestEngineEvaluateNotFound(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Evaluate("missing", FinancialProfile{})
	if !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Evaluate() error = %v, want ErrRuleNotFound", err)
	}
}

// TestEngineEvaluateTrace verifies gated results carry the CEL evaluation state
func TestEngineEvaluateTrace(t *testing.T) {
	engine := newTestEngine(t, testRule("rich", 10, GateHighIncome), testRule("always", 20, ""))

	rich, err := engine.Evaluate("rich", FinancialProfile{MonthlyIncome: 60000})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if rich.Trace == nil {
		t.Error("Gated rule result should carry a trace")
	}

	always, err := engine.Evaluate("always", FinancialProfile{})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if always.Trace != nil {
		t.Error("Unconditional rule result should not carry a trace")
	}
}

// TestEngineGateErrors verifies a failing or non-boolean gate never emits
func TestEngineGateErrors(t *testing.T) {
	engine := newTestEngine(t,
		testRule("missing-field", 10, `Profile.NetWorth > 0.0`),
		testRule("not-bool", 20, `Profile.MonthlyIncome`),
		testRule("always", 30, ""),
	)

	results, err := engine.EvaluateAll(FinancialProfile{MonthlyIncome: 1000})
	if err != nil {
		t.Fatalf("EvaluateAll() failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	if results[0].Error == nil {
		t.Error("Gate on a missing field should report an error")
	}
	if results[0].Matched {
		t.Error("Failed gate should not match")
	}
	if results[1].Error != nil || results[1].Matched {
		t.Errorf("Non-boolean gate: matched=%v error=%v, want no match and no error", results[1].Matched, results[1].Error)
	}
	if !results[2].Matched {
		t.Error("Unconditional rule should match")
	}

	suggestions, err := engine.Suggest(FinancialProfile{MonthlyIncome: 1000})
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].RuleID != "always" {
		t.Errorf("Suggest() = %v, want only the unconditional rule", suggestions)
	}
}

// TestEngineEvaluateAllDefaults verifies per-rule outcomes over the built-in table
func TestEngineEvaluateAllDefaults(t *testing.T) {
	store := NewInMemoryRuleStore()
	if _, err := Seed(store, DefaultRules()); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	engine, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	results, err := engine.EvaluateAll(FinancialProfile{
		MonthlyIncome: 30000,
		TotalExpenses: 10000,
		Profession:    ProfessionStudent,
		IncomeType:    IncomeFixed,
	})
	if err != nil {
		t.Fatalf("EvaluateAll() failed: %v", err)
	}

	matched := map[string]bool{}
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("rule %s failed: %v", r.RuleID, r.Error)
		}
		matched[r.RuleID] = r.Matched
	}

	want := map[string]bool{
		"savings-sprint":           true,
		"wants-free-week":          false,
		"micro-saver":              true,
		"textbook-fund":            true,
		"freelance-buffer-fund":    false,
		"business-emergency-fund":  false,
		"income-boost-saver":       false,
		"power-saver-challenge":    false,
		"penny-pincher":            false,
		"emergency-fund-kickstart": true,
		"subscription-audit":       true,
	}
	for id, w := range want {
		if matched[id] != w {
			t.Errorf("rule %s matched = %v, want %v", id, matched[id], w)
		}
	}
	if len(results) != len(DefaultRules()) {
		t.Errorf("Expected %d results, got %d", len(DefaultRules()), len(results))
	}
}

// TestEngineSuggestTruncates verifies the result is capped in rule order
func TestEngineSuggestTruncates(t *testing.T) {
	var rules []*ChallengeRule
	for i := 12; i >= 1; i-- {
		rules = append(rules, testRule(fmt.Sprintf("rule-%02d", i), i*10, ""))
	}
	engine := newTestEngine(t, rules...)

	suggestions, err := engine.Suggest(FinancialProfile{MonthlyIncome: 10000})
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}
	if len(suggestions) != MaxSuggestions {
		t.Fatalf("Expected %d suggestions, got %d", MaxSuggestions, len(suggestions))
	}
	for i, s := range suggestions {
		if want := fmt.Sprintf("rule-%02d", i+1); s.RuleID != want {
			t.Errorf("suggestion %d = %s, want %s", i, s.RuleID, want)
		}
	}
}

// TestEngineAddRule verifies a new rule is validated, compiled and evaluated
func TestEngineAddRule(t *testing.T) {
	engine := newTestEngine(t, testRule("first", 10, ""))

	if err := engine.AddRule(testRule("second", 20, GateStudent)); err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}

	suggestions, err := engine.Suggest(FinancialProfile{Profession: ProfessionStudent})
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}
	if len(suggestions) != 2 {
		t.Errorf("Expected 2 suggestions after AddRule, got %d", len(suggestions))
	}
}

// TestEngineAddRuleErrors verifies the error kinds returned by AddRule
func TestEngineAddRuleErrors(t *testing.T) {
	engine := newTestEngine(t, testRule("taken", 10, ""))

	badTitle := testRule("no-title", 20, "")
	badTitle.Title = " "

	testCases := []struct {
		name string
		rule *ChallengeRule
		want error
	}{
		{"Duplicate id", testRule("taken", 20, ""), ErrRuleExists},
		{"Invalid structure", badTitle, ErrInvalidRule},
		{"Invalid gate", testRule("bad-gate", 20, `Profile.MonthlyIncome >`), ErrInvalidRule},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := engine.AddRule(tc.rule)
			if !errors.Is(err, tc.want) {
				t.Errorf("AddRule() error = %v, want %v", err, tc.want)
			}
		})
	}

	rules, err := engine.AllRules()
	if err != nil {
		t.Fatalf("AllRules() failed: %v", err)
	}
	if len(rules) != 1 {
		t.Errorf("Failed adds should not be stored, got %d rules", len(rules))
	}
}

// TestEngineUpdateRule verifies that updating a rule recompiles its gate
func TestEngineUpdateRule(t *testing.T) {
	engine := newTestEngine(t, testRule("gated", 10, GateStudent))

	profile := FinancialProfile{Profession: ProfessionFreelancer}
	result, err := engine.Evaluate("gated", profile)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if result.Matched {
		t.Fatal("Freelancer should not match the student gate")
	}

	if err := engine.UpdateRule(testRule("gated", 10, GateFreelancer)); err != nil {
		t.Fatalf("UpdateRule() failed: %v", err)
	}

	result, err = engine.Evaluate("gated", profile)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !result.Matched {
		t.Error("Freelancer should match after the gate update")
	}
}

// TestEngineUpdateRuleErrors verifies failed updates leave the old rule in place
func TestEngineUpdateRuleErrors(t *testing.T) {
	engine := newTestEngine(t, testRule("gated", 10, GateStudent))

	if err := engine.UpdateRule(testRule("missing", 10, "")); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("UpdateRule() on unknown id error = %v, want ErrRuleNotFound", err)
	}
	if err := engine.UpdateRule(testRule("gated", 10, `Profile.Profession ==`)); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("UpdateRule() with bad gate error = %v, want ErrInvalidRule", err)
	}

	result, err := engine.Evaluate("gated", FinancialProfile{Profession: ProfessionStudent})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !result.Matched {
		t.Error("Original gate should still be in effect")
	}

	if _, err := engine.Evaluate("missing", FinancialProfile{}); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Failed update should not create a rule, got %v", err)
	}
}

// TestEngineUpdateRuleDeactivate verifies inactive rules drop out of suggestions
func TestEngineUpdateRuleDeactivate(t *testing.T) {
	engine := newTestEngine(t, testRule("a", 10, ""), testRule("b", 20, ""))

	b := testRule("b", 20, "")
	b.Active = false
	if err := engine.UpdateRule(b); err != nil {
		t.Fatalf("UpdateRule() failed: %v", err)
	}

	suggestions, err := engine.Suggest(FinancialProfile{})
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].RuleID != "a" {
		t.Errorf("Suggest() = %v, want only rule a", suggestions)
	}

	all, err := engine.AllRules()
	if err != nil {
		t.Fatalf("AllRules() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("AllRules() should still list inactive rules, got %d", len(all))
	}
}

// TestEngineDeleteRule verifies deleted rules are no longer evaluated
func TestEngineDeleteRule(t *testing.T) {
	engine := newTestEngine(t, testRule("a", 10, ""), testRule("b", 20, ""))

	if err := engine.DeleteRule("a"); err != nil {
		t.Fatalf("DeleteRule() failed: %v", err)
	}

	suggestions, err := engine.Suggest(FinancialProfile{})
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].RuleID != "b" {
		t.Errorf("Suggest() = %v, want only rule b", suggestions)
	}

	if err := engine.DeleteRule("a"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Second DeleteRule() error = %v, want ErrRuleNotFound", err)
	}
}

// TestEngineUncompiledRule verifies a rule added behind the engine's back is not evaluated
func TestEngineUncompiledRule(t *testing.T) {
	store := NewInMemoryRuleStore()
	engine, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	if err := store.Add(testRule("sneaky", 10, "")); err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}

	if _, err := engine.Evaluate("sneaky", FinancialProfile{}); err == nil {
		t.Error("Evaluate() should fail for a rule that was never compiled")
	}
}

// TestEngineConcurrentSuggest runs suggestions while rules change
func TestEngineConcurrentSuggest(t *testing.T) {
	engine := newTestEngine(t, testRule("base", 10, ""))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := engine.Suggest(FinancialProfile{MonthlyIncome: 25000}); err != nil {
				t.Errorf("Suggest() failed: %v", err)
			}
		}()
		go func(n int) {
			defer wg.Done()
			if err := engine.AddRule(testRule(fmt.Sprintf("extra-%d", n), 20+n, GateLowIncome)); err != nil {
				t.Errorf("AddRule() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	rules, err := engine.Rules()
	if err != nil {
		t.Fatalf("Rules() failed: %v", err)
	}
	if len(rules) != 21 {
		t.Errorf("Expected 21 active rules, got %d", len(rules))
	}
}

// failingStore rejects every write after construction
type failingStore struct {
	*InMemoryRuleStore
}

func (s failingStore) Add(*ChallengeRule) error    { return errors.New("store unavailable") }
func (s failingStore) Update(*ChallengeRule) error { return errors.New("store unavailable") }

// TestEngineFailedWriteKeepsCompiledRule verifies a rejected write leaves the stored gate in effect
func TestEngineFailedWriteKeepsCompiledRule(t *testing.T) {
	mem := NewInMemoryRuleStore()
	if err := mem.Add(testRule("gated", 10, GateStudent)); err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}
	engine, err := NewEngine(failingStore{mem})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	if err := engine.UpdateRule(testRule("gated", 10, GateFreelancer)); err == nil {
		t.Fatal("UpdateRule() should fail when the store rejects the write")
	}

	student, err := engine.Evaluate("gated", FinancialProfile{Profession: ProfessionStudent})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	freelancer, err := engine.Evaluate("gated", FinancialProfile{Profession: ProfessionFreelancer})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !student.Matched || freelancer.Matched {
		t.Errorf("Stored student gate should still apply: student=%v freelancer=%v", student.Matched, freelancer.Matched)
	}

	if err := engine.AddRule(testRule("extra", 20, "")); err == nil {
		t.Fatal("AddRule() should fail when the store rejects the write")
	}
	engine.mu.RLock()
	_, compiled := engine.descriptions["extra"]
	engine.mu.RUnlock()
	if compiled {
		t.Error("A rejected add should not leave a compiled rule behind")
	}
}

// TestEngineReturnedRulesAreCopies verifies editing returned rules does not change suggestions
func TestEngineReturnedRulesAreCopies(t *testing.T) {
	engine := newTestEngine(t, testRule("sprint", 10, ""))
	profile := FinancialProfile{MonthlyIncome: 30000}

	before, err := engine.Suggest(profile)
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}

	active, err := engine.Rules()
	if err != nil {
		t.Fatalf("Rules() failed: %v", err)
	}
	active[0].Contribution.Floor = 99999
	active[0].Title = "Changed"

	all, err := engine.AllRules()
	if err != nil {
		t.Fatalf("AllRules() failed: %v", err)
	}
	all[0].Contribution.Fraction = 0.5

	one, err := engine.Rule("sprint")
	if err != nil {
		t.Fatalf("Rule() failed: %v", err)
	}
	one.DurationDays = 1

	after, err := engine.Suggest(profile)
	if err != nil {
		t.Fatalf("Suggest() failed: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("Suggestions changed after editing returned rules:\n%v\n%v", before, after)
	}
}
