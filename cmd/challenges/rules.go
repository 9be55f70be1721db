package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liamcoop/challenges/challenges"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and check rule catalogs",
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the active rule catalog as TOML",
	Args:  cobra.NoArgs,
	RunE:  runRulesExport,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a TOML rule catalog and compile its gates",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesValidate,
}

func init() {
	rulesCmd.AddCommand(rulesExportCmd, rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesExport(cmd *cobra.Command, _ []string) error {
	engine, err := loadEngine()
	if err != nil {
		return err
	}
	rules, err := engine.Rules()
	if err != nil {
		return err
	}
	return challenges.EncodeCatalog(cmd.OutOrStdout(), rules)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	rules, err := challenges.LoadCatalog(args[0])
	if err != nil {
		return err
	}

	// Compiling catches gate errors that structural validation cannot see
	store := challenges.NewInMemoryRuleStore()
	if _, err := challenges.Seed(store, rules); err != nil {
		return err
	}
	if _, err := challenges.NewEngine(store); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules OK\n", args[0], len(rules))
	return nil
}
