// Package challenges recommends short-term savings challenges for a user's
// financial profile.
//
// Recommendations come from an ordered table of ChallengeRules. Each rule has
// an optional CEL gate over the profile and amount formulas that scale income,
// expenses or disposable income, round to a step and clamp to a floor. Rules
// are evaluated in position order and the first MaxSuggestions that match are
// returned.
package challenges

import (
	"sync"

	"github.com/liamcoop/challenges/internal/logger"
)

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// sharedEngine returns the engine behind GenerateSuggestions. It is never
// handed out, so the built-in rule table cannot be changed at runtime.
func sharedEngine() *Engine {
	defaultOnce.Do(func() {
		store := NewInMemoryRuleStore()
		if _, err := Seed(store, DefaultRules()); err != nil {
			panic("challenges: invalid default rules: " + err.Error())
		}
		en, err := NewEngine(store)
		if err != nil {
			panic("challenges: " + err.Error())
		}
		defaultEngine = en
	})
	return defaultEngine
}

// GenerateSuggestions returns up to MaxSuggestions savings challenges for the
// given figures using the built-in rule table. It performs no validation:
// degenerate input such as zero income yields the floor amounts.
func GenerateSuggestions(monthlyIncome, totalExpenses float64, profession Profession, incomeType IncomeType) []ChallengeSuggestion {
	suggestions, err := sharedEngine().Suggest(FinancialProfile{
		MonthlyIncome: monthlyIncome,
		TotalExpenses: totalExpenses,
		Profession:    profession,
		IncomeType:    incomeType,
	})
	if err != nil {
		// the in-memory store never fails
		logger.Error("default engine failed", "error", err)
		return nil
	}
	return suggestions
}
