// Command challenges prints savings-challenge suggestions for a profile and
// manages TOML rule catalogs.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/challenges/challenges"
)

var flagRulesFile string

var rootCmd = &cobra.Command{
	Use:           "challenges",
	Short:         "Savings challenge recommendations",
	Long:          "Suggest short-term savings challenges for a financial profile and inspect the rule catalog.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagRulesFile, "rules", "r", "", "TOML rule catalog (default: built-in rules)")
}

// loadEngine builds an engine over the built-in rules or the --rules catalog
func loadEngine() (*challenges.Engine, error) {
	rules := challenges.DefaultRules()
	if flagRulesFile != "" {
		var err error
		if rules, err = challenges.LoadCatalog(flagRulesFile); err != nil {
			return nil, err
		}
	}

	store := challenges.NewInMemoryRuleStore()
	if _, err := challenges.Seed(store, rules); err != nil {
		return nil, err
	}
	return challenges.NewEngine(store)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
