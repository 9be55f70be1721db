package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liamcoop/challenges/challenges"
)

var (
	flagIncome     float64
	flagExpenses   float64
	flagProfession string
	flagIncomeType string
	flagJSON       bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest savings challenges for a profile",
	Example: `  challenges suggest --income 30000 --expenses 10000
  challenges suggest --income 15000 --profession student --json`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().Float64VarP(&flagIncome, "income", "i", 0, "Monthly income")
	suggestCmd.Flags().Float64VarP(&flagExpenses, "expenses", "e", 0, "Total expenses this period")
	suggestCmd.Flags().StringVarP(&flagProfession, "profession", "p", string(challenges.ProfessionEmployee), "employee, individual, student, freelancer or business_owner")
	suggestCmd.Flags().StringVarP(&flagIncomeType, "income-type", "t", string(challenges.IncomeFixed), "fixed or variable")
	suggestCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, _ []string) error {
	profile := challenges.FinancialProfile{
		MonthlyIncome: flagIncome,
		TotalExpenses: flagExpenses,
		Profession:    challenges.Profession(flagProfession),
		IncomeType:    challenges.IncomeType(flagIncomeType),
	}
	if profile.MonthlyIncome < 0 || profile.TotalExpenses < 0 {
		return fmt.Errorf("income and expenses must not be negative")
	}
	if !profile.Profession.IsValid() {
		return fmt.Errorf("unknown profession %q", flagProfession)
	}
	if !profile.IncomeType.IsValid() {
		return fmt.Errorf("unknown income type %q", flagIncomeType)
	}

	engine, err := loadEngine()
	if err != nil {
		return err
	}
	suggestions, err := engine.Suggest(profile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(suggestions)
	}

	if len(suggestions) == 0 {
		fmt.Fprintln(out, "No challenges for this profile.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tChallenge\tCadence\tPer period\tTarget\tDays")
	for i, s := range suggestions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t₹%s\t₹%s\t%d\n",
			i+1, s.Title, s.Frequency,
			strconv.FormatFloat(s.PerPeriodTarget, 'f', -1, 64),
			strconv.FormatFloat(s.TargetAmount, 'f', -1, 64),
			s.DurationDays)
	}
	return tw.Flush()
}
