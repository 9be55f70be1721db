package challenges

import "errors"

var (
	// ErrRuleNotFound is returned when a rule ID is not in the store
	ErrRuleNotFound = errors.New("rule not found")
	// ErrRuleExists is returned when adding a rule whose ID is taken
	ErrRuleExists = errors.New("rule already exists")
	// ErrInvalidRule wraps every validation and compilation failure
	ErrInvalidRule = errors.New("invalid rule")
)
