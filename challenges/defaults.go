package challenges

// MaxSuggestions caps the number of suggestions returned for a profile
const MaxSuggestions = 8

// Gate expressions shared by the default rule table
const (
	GateOverspending  = `Profile.TotalExpenses > Profile.MonthlyIncome * 0.6`
	GateStudent       = `Profile.Profession == "student"`
	GateFreelancer    = `Profile.Profession == "freelancer"`
	GateBusinessOwner = `Profile.Profession == "business_owner"`
	GateVariable      = `Profile.IncomeType == "variable"`
	GateHighIncome    = `Profile.MonthlyIncome >= 50000.0`
	GateLowIncome     = `Profile.MonthlyIncome < 20000.0`
	GateSurplus       = `Profile.DisposableIncome > 0.0`
)

// DefaultRules returns a fresh copy of the built-in rule table in evaluation
// order. Subscription Audit is unconditional but evaluated after every gated
// rule, so it is the first to be cut when the list overflows.
func DefaultRules() []*ChallengeRule {
	rules := []*ChallengeRule{
		{
			ID:           "savings-sprint",
			Title:        "30-Day Savings Sprint",
			Description:  "Save ₹{{inr .PerPeriod}} every day for 30 days. Small steps lead to big savings!",
			Frequency:    FrequencyDaily,
			DurationDays: 30,
			Contribution: &Amount{Basis: BasisIncome, Fraction: 0.01, Granularity: 10, Floor: 50},
		},
		{
			ID:           "weekly-wealth-builder",
			Title:        "Weekly Wealth Builder",
			Description:  "Set aside ₹{{inr .PerPeriod}} each week. In 4 weeks you'll have ₹{{inr .Target}}!",
			Frequency:    FrequencyWeekly,
			DurationDays: 28,
			Contribution: &Amount{Basis: BasisIncome, Fraction: 0.05, Granularity: 100, Floor: 200},
		},
		{
			ID:           "round-up-saver",
			Title:        "Round-Up Saver",
			Description:  "Round up every expense and save ₹{{inr .PerPeriod}} daily. Painless saving!",
			Frequency:    FrequencyDaily,
			DurationDays: 14,
			Contribution: &Amount{Basis: BasisIncome, Fraction: 0.02, Granularity: 10, Floor: 100},
		},
		{
			ID:           "no-takeout-fortnight",
			Title:        "No-Takeout Fortnight",
			Description:  "Cook at home for 14 days. Save what you'd spend on food delivery!",
			Frequency:    FrequencyDaily,
			DurationDays: 14,
			Contribution: &Amount{Basis: BasisIncome, Fraction: 0.002, Granularity: 10, Floor: 50},
			Target:       &Amount{Basis: BasisIncome, Fraction: 0.03, Granularity: 100, Floor: 500},
		},
		{
			ID:           "skip-the-coffee",
			Title:        "Skip the Coffee",
			Description:  "Save ₹{{inr .PerPeriod}}/day by skipping that daily coffee or snack for 21 days.",
			Frequency:    FrequencyDaily,
			DurationDays: 21,
			Contribution: &Amount{Basis: BasisIncome, Fraction: 0.005, Granularity: 10, Floor: 30},
		},
		{
			ID:           "52-week-mini",
			Title:        "52-Week Mini",
			Description:  "Save ₹{{inr .PerPeriod}} every week for 4 weeks. A quick win to build momentum!",
			Frequency:    FrequencyWeekly,
			DurationDays: 28,
			Contribution: &Amount{Basis: BasisIncome, Fraction: 0.02, Granularity: 50, Floor: 100},
		},
		{
			ID:           "wants-free-week",
			Title:        "Wants-Free Week",
			Description:  "Avoid all 'wants' spending for 7 days. Only spend on needs and EMIs.",
			Gate:         GateOverspending,
			Frequency:    FrequencyDaily,
			DurationDays: 7,
			Target:       &Amount{Basis: BasisExpenses, Fraction: 0.1, Granularity: 1},
			Split:        7,
		},
		{
			ID:           "expense-detox",
			Title:        "Expense Detox",
			Description:  "Cut back ₹{{inr .PerPeriod}} per week from non-essential spending for 3 weeks.",
			Gate:         GateOverspending,
			Frequency:    FrequencyWeekly,
			DurationDays: 21,
			Contribution: &Amount{Basis: BasisExpenses, Fraction: 0.05, Granularity: 100, Floor: 200},
		},
		{
			ID:           "micro-saver",
			Title:        "Micro Saver",
			Description:  "Save just ₹{{inr .PerPeriod}} per day. It adds up to ₹{{inr .Target}} in a month!",
			Gate:         GateStudent,
			Frequency:    FrequencyDaily,
			DurationDays: 30,
			Contribution: Fixed(20),
		},
		{
			ID:           "textbook-fund",
			Title:        "Textbook Fund",
			Description:  "Save ₹{{inr .PerPeriod}} daily for 2 weeks to build a ₹{{inr .Target}} fund for books or supplies.",
			Gate:         GateStudent,
			Frequency:    FrequencyDaily,
			DurationDays: 14,
			Contribution: Fixed(50),
		},
		{
			ID:           "freelance-buffer-fund",
			Title:        "Freelance Buffer Fund",
			Description:  "Save ₹{{inr .PerPeriod}} weekly to build a buffer for slow months.",
			Gate:         GateFreelancer,
			Frequency:    FrequencyWeekly,
			DurationDays: 28,
			Contribution: &Amount{Basis: BasisDisposable, Fraction: 0.1, Granularity: 100, Floor: 500},
		},
		{
			ID:           "business-emergency-fund",
			Title:        "Business Emergency Fund",
			Description:  "Set aside ₹{{inr .PerPeriod}} weekly to build a business safety net.",
			Gate:         GateBusinessOwner,
			Frequency:    FrequencyWeekly,
			DurationDays: 28,
			Contribution: &Amount{Basis: BasisIncome, Fraction: 0.08, Granularity: 500, Floor: 1000},
		},
		{
			ID:           "income-boost-saver",
			Title:        "Income Boost Saver",
			Description:  "Save ₹{{inr .PerPeriod}} from each payment you receive this month.",
			Gate:         GateVariable,
			Frequency:    FrequencyWeekly,
			DurationDays: 28,
			Contribution: &Amount{Basis: BasisDisposable, Fraction: 0.15, Granularity: 100, Floor: 500},
		},
		{
			ID:           "power-saver-challenge",
			Title:        "Power Saver Challenge",
			Description:  "Save ₹{{inr .Target}} this month by cutting discretionary spending.",
			Gate:         GateHighIncome,
			Frequency:    FrequencyWeekly,
			DurationDays: 30,
			Target:       &Amount{Basis: BasisIncome, Fraction: 0.1, Granularity: 1000},
			Split:        4,
		},
		{
			ID:           "penny-pincher",
			Title:        "Penny Pincher",
			Description:  "Save ₹{{inr .PerPeriod}} every day for 30 days. Even ₹{{inr .Target}} is a win!",
			Gate:         GateLowIncome,
			Frequency:    FrequencyDaily,
			DurationDays: 30,
			Contribution: Fixed(10),
		},
		{
			ID:           "emergency-fund-kickstart",
			Title:        "Emergency Fund Kickstart",
			Description:  "Save ₹{{inr .PerPeriod}}/week for a month to start your emergency fund.",
			Gate:         GateSurplus,
			Frequency:    FrequencyWeekly,
			DurationDays: 28,
			Contribution: &Amount{Basis: BasisDisposable, Fraction: 0.2, Granularity: 100, Floor: 250},
		},
		{
			ID:           "subscription-audit",
			Title:        "Subscription Audit",
			Description:  "Cancel unused subscriptions and save ₹{{inr .PerPeriod}} weekly for 2 weeks.",
			Frequency:    FrequencyWeekly,
			DurationDays: 14,
			Contribution: &Amount{Basis: BasisIncome, Fraction: 0.015, Granularity: 50, Floor: 100},
		},
	}

	for i, r := range rules {
		r.Position = (i + 1) * 10
		r.Active = true
	}
	return rules
}
