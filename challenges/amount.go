package challenges

import "math"

// Basis selects which figure of a profile an Amount is proportional to
type Basis string

const (
	BasisNone       Basis = "none"
	BasisIncome     Basis = "income"
	BasisExpenses   Basis = "expenses"
	BasisDisposable Basis = "disposable"
)

// IsValid reports whether b is a known basis
func (b Basis) IsValid() bool {
	switch b {
	case BasisNone, BasisIncome, BasisExpenses, BasisDisposable:
		return true
	}
	return false
}

// Amount is a proportional currency amount: the basis is scaled by Fraction,
// rounded to the nearest multiple of Granularity and then raised to Floor.
// A zero Granularity skips stepping. BasisNone always resolves to Floor.
type Amount struct {
	Basis       Basis   `json:"basis" toml:"basis"`
	Fraction    float64 `json:"fraction,omitempty" toml:"fraction,omitempty"`
	Granularity float64 `json:"granularity,omitempty" toml:"granularity,omitempty"`
	Floor       float64 `json:"floor,omitempty" toml:"floor,omitempty"`
}

// Fixed returns an Amount that always resolves to v
func Fixed(v float64) *Amount {
	return &Amount{Basis: BasisNone, Floor: v}
}

// Resolve computes the amount for a profile
func (a Amount) Resolve(p FinancialProfile) float64 {
	var base float64
	switch a.Basis {
	case BasisIncome:
		base = p.MonthlyIncome
	case BasisExpenses:
		base = p.TotalExpenses
	case BasisDisposable:
		base = p.DisposableIncome()
	}
	return RoundFloor(base*a.Fraction, a.Granularity, a.Floor)
}

// RoundFloor rounds v to the nearest multiple of step and clamps the result
// to at least floor. Rounding happens first; swapping the two changes results
// at small incomes.
func RoundFloor(v, step, floor float64) float64 {
	return math.Max(floor, RoundTo(v, step))
}

// RoundTo rounds v to the nearest multiple of step, halves rounding up
func RoundTo(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return roundHalfUp(v/step) * step
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
