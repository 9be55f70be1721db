package challenges

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
)

// descriptionData is the value a rule's description template is executed with
type descriptionData struct {
	PerPeriod float64
	Target    float64
	Days      int
}

var descriptionFuncs = template.FuncMap{
	"inr": formatINR,
}

// formatINR renders a whole-rupee amount without a fractional part
func formatINR(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseDescription parses a description template and executes it once with
// sample values so that references to unknown fields fail at compile time
func parseDescription(ruleID, text string) (*template.Template, error) {
	tmpl, err := template.New(ruleID).Funcs(descriptionFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("description template: %w", err)
	}
	if err := tmpl.Execute(io.Discard, descriptionData{PerPeriod: 1, Target: 1, Days: 1}); err != nil {
		return nil, fmt.Errorf("description template: %w", err)
	}
	return tmpl, nil
}

// Amounts returns the per-period contribution and total target of the rule
// for a profile
func (r *ChallengeRule) Amounts(p FinancialProfile) (perPeriod, target float64) {
	switch {
	case r.Contribution != nil && r.Target != nil:
		return r.Contribution.Resolve(p), r.Target.Resolve(p)
	case r.Contribution != nil:
		perPeriod = r.Contribution.Resolve(p)
		return perPeriod, perPeriod * float64(r.Frequency.Periods(r.DurationDays))
	case r.Target != nil && r.Split > 0:
		target = r.Target.Resolve(p)
		return roundHalfUp(target / float64(r.Split)), target
	}
	return 0, 0
}

func buildSuggestion(r *ChallengeRule, tmpl *template.Template, p FinancialProfile) (ChallengeSuggestion, error) {
	perPeriod, target := r.Amounts(p)

	var desc strings.Builder
	if err := tmpl.Execute(&desc, descriptionData{PerPeriod: perPeriod, Target: target, Days: r.DurationDays}); err != nil {
		return ChallengeSuggestion{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}

	return ChallengeSuggestion{
		RuleID:          r.ID,
		Title:           r.Title,
		Description:     desc.String(),
		TargetAmount:    target,
		Frequency:       r.Frequency,
		PerPeriodTarget: perPeriod,
		DurationDays:    r.DurationDays,
	}, nil
}
