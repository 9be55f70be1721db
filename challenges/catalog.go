package challenges

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// catalogFile is the on-disk shape of a rule catalog:
//
//	[[rule]]
//	id = "savings-sprint"
//	position = 10
//	...
//	[rule.contribution]
//	basis = "income"
type catalogFile struct {
	Rules []*ChallengeRule `toml:"rule"`
}

// LoadCatalog reads and validates a TOML rule catalog
func LoadCatalog(path string) ([]*ChallengeRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	rules, err := DecodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return rules, nil
}

// DecodeCatalog parses a TOML rule catalog. Every rule is validated and
// duplicate IDs are rejected. Rules are returned in evaluation order.
func DecodeCatalog(r io.Reader) ([]*ChallengeRule, error) {
	var file catalogFile
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse catalog: unknown key %s", undecoded[0])
	}

	seen := make(map[string]bool, len(file.Rules))
	for _, rule := range file.Rules {
		if err := ValidateRule(rule); err != nil {
			return nil, err
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
		}
		seen[rule.ID] = true
	}

	SortRules(file.Rules)
	return file.Rules, nil
}

// EncodeCatalog writes rules as a TOML catalog that DecodeCatalog accepts
func EncodeCatalog(w io.Writer, rules []*ChallengeRule) error {
	if err := toml.NewEncoder(w).Encode(catalogFile{Rules: rules}); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return nil
}
