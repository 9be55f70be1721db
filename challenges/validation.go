package challenges

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxIDLength    = 100
	maxTitleLength = 120
)

var ruleIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidateRule checks the structure of a rule. Gates and description
// templates are checked again when the engine compiles the rule.
func ValidateRule(r *ChallengeRule) error {
	if err := validateRule(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

func validateRule(r *ChallengeRule) error {
	if r == nil {
		return fmt.Errorf("rule is nil")
	}
	if err := validateID(r.ID); err != nil {
		return fmt.Errorf("invalid rule id %q: %w", r.ID, err)
	}

	title := strings.TrimSpace(r.Title)
	if title == "" {
		return fmt.Errorf("rule %q must have a title", r.ID)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("rule %q title length %d exceeds maximum of %d characters", r.ID, len(title), maxTitleLength)
	}

	if !r.Frequency.IsValid() {
		return fmt.Errorf("rule %q has invalid frequency %q (must be one of: daily, weekly)", r.ID, r.Frequency)
	}
	if r.DurationDays <= 0 {
		return fmt.Errorf("rule %q must last at least one day, got %d", r.ID, r.DurationDays)
	}
	// A weekly challenge has to hold at least one whole week
	if r.Frequency == FrequencyWeekly && r.DurationDays < 7 {
		return fmt.Errorf("weekly rule %q must last at least 7 days, got %d", r.ID, r.DurationDays)
	}

	switch {
	case r.Contribution == nil && r.Target == nil:
		return fmt.Errorf("rule %q needs a contribution or a target", r.ID)
	case r.Contribution == nil && r.Split <= 0:
		return fmt.Errorf("rule %q has a target without a contribution and needs a positive split", r.ID)
	case r.Split < 0:
		return fmt.Errorf("rule %q has negative split %d", r.ID, r.Split)
	}

	if r.Contribution != nil {
		if err := validateAmount(r.Contribution); err != nil {
			return fmt.Errorf("rule %q contribution: %w", r.ID, err)
		}
	}
	if r.Target != nil {
		if err := validateAmount(r.Target); err != nil {
			return fmt.Errorf("rule %q target: %w", r.ID, err)
		}
	}

	if _, err := parseDescription(r.ID, r.Description); err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}

	return nil
}

// validateID enforces lowercase slugs of 1-100 characters
func validateID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(id), maxIDLength)
	}
	if !ruleIDPattern.MatchString(id) {
		return fmt.Errorf("must match pattern %s (lowercase letters, digits and dashes)", ruleIDPattern)
	}
	return nil
}

func validateAmount(a *Amount) error {
	if !a.Basis.IsValid() {
		return fmt.Errorf("invalid basis %q (must be one of: none, income, expenses, disposable)", a.Basis)
	}
	if a.Fraction < 0 {
		return fmt.Errorf("fraction cannot be negative, got %v", a.Fraction)
	}
	if a.Granularity < 0 {
		return fmt.Errorf("granularity cannot be negative, got %v", a.Granularity)
	}
	if a.Floor < 0 {
		return fmt.Errorf("floor cannot be negative, got %v", a.Floor)
	}
	if a.Basis == BasisNone && a.Floor == 0 {
		return fmt.Errorf("fixed amount needs a positive floor")
	}
	return nil
}
