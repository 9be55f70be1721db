package challenges

import "time"

// Profession is the occupation category of a user
type Profession string

const (
	ProfessionEmployee      Profession = "employee"
	ProfessionIndividual    Profession = "individual"
	ProfessionStudent       Profession = "student"
	ProfessionFreelancer    Profession = "freelancer"
	ProfessionBusinessOwner Profession = "business_owner"
)

// Professions lists every profession the engine knows about
var Professions = []Profession{
	ProfessionEmployee,
	ProfessionIndividual,
	ProfessionStudent,
	ProfessionFreelancer,
	ProfessionBusinessOwner,
}

// IsValid reports whether p is a known profession
func (p Profession) IsValid() bool {
	for _, known := range Professions {
		if p == known {
			return true
		}
	}
	return false
}

// IncomeType describes how stable a user's income is
type IncomeType string

const (
	IncomeFixed    IncomeType = "fixed"
	IncomeVariable IncomeType = "variable"
)

// IsValid reports whether t is a known income type
func (t IncomeType) IsValid() bool {
	return t == IncomeFixed || t == IncomeVariable
}

// Frequency is the contribution cadence of a challenge
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// IsValid reports whether f is a known frequency
func (f Frequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// Periods returns how many contributions fit in durationDays
func (f Frequency) Periods(durationDays int) int {
	if f == FrequencyWeekly {
		return durationDays / 7
	}
	return durationDays
}

// FinancialProfile is the input to the engine
type FinancialProfile struct {
	MonthlyIncome float64    `json:"monthlyIncome"`
	TotalExpenses float64    `json:"totalExpenses"`
	Profession    Profession `json:"profession"`
	IncomeType    IncomeType `json:"incomeType"`
}

// DisposableIncome is income minus expenses. It can be negative.
func (p FinancialProfile) DisposableIncome() float64 {
	return p.MonthlyIncome - p.TotalExpenses
}

// Facts returns the activation used to evaluate rule gates
func (p FinancialProfile) Facts() map[string]any {
	return map[string]any{
		"Profile": map[string]any{
			"MonthlyIncome":    p.MonthlyIncome,
			"TotalExpenses":    p.TotalExpenses,
			"DisposableIncome": p.DisposableIncome(),
			"Profession":       string(p.Profession),
			"IncomeType":       string(p.IncomeType),
		},
	}
}

// ChallengeSuggestion is a single recommended savings challenge
type ChallengeSuggestion struct {
	RuleID          string    `json:"ruleId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	TargetAmount    float64   `json:"targetAmount"`
	Frequency       Frequency `json:"frequency"`
	PerPeriodTarget float64   `json:"perPeriodTarget"`
	DurationDays    int       `json:"durationDays"`
}

// ChallengeRule is one row of the rule table. A rule with an empty Gate always
// emits; otherwise it emits only when the CEL expression evaluates to true.
type ChallengeRule struct {
	ID           string    `json:"id" toml:"id"`
	Position     int       `json:"position" toml:"position"`
	Title        string    `json:"title" toml:"title"`
	Description  string    `json:"description" toml:"description"`
	Gate         string    `json:"gate,omitempty" toml:"gate,omitempty"`
	Frequency    Frequency `json:"frequency" toml:"frequency"`
	DurationDays int       `json:"durationDays" toml:"duration_days"`

	// Contribution is the per-period amount. When nil the per-period amount
	// is Target split into Split equal parts.
	Contribution *Amount `json:"contribution,omitempty" toml:"contribution,omitempty"`
	// Target is the challenge total. When nil it is Contribution times the
	// number of periods.
	Target *Amount `json:"target,omitempty" toml:"target,omitempty"`
	Split  int     `json:"split,omitempty" toml:"split,omitempty"`

	Active    bool      `json:"active" toml:"active"`
	CreatedAt time.Time `json:"createdAt" toml:"-"`
	UpdatedAt time.Time `json:"updatedAt" toml:"-"`
}

// Clone returns a deep copy of the rule
func (r *ChallengeRule) Clone() *ChallengeRule {
	c := *r
	if r.Contribution != nil {
		a := *r.Contribution
		c.Contribution = &a
	}
	if r.Target != nil {
		a := *r.Target
		c.Target = &a
	}
	return &c
}

// Unconditional reports whether the rule emits for every profile
func (r *ChallengeRule) Unconditional() bool {
	return r.Gate == ""
}

// EvaluationResult contains the outcome of evaluating a rule gate
type EvaluationResult struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Matched  bool   `json:"matched"`
	Error    error  `json:"-"`
	Trace    any    `json:"-"` // CEL evaluation state, nil for unconditional rules
}
