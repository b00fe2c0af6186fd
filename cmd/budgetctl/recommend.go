package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"budgetwise/internal/budget"
	"budgetwise/internal/core"
)

func recommendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <username>",
		Short: "Suggest a budget and saving for the month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := a.referenceDate()
			if err != nil {
				return err
			}
			rec := a.recommendations.CalculateRecommendation(cmd.Context(), args[0], date)
			printRecommendation(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func printRecommendation(w io.Writer, rec budget.Recommendation) {
	mode := "-"
	if rec.Mode != nil {
		mode = rec.Mode.DisplayName()
	}
	fmt.Fprintf(w, "Mode:             %s\n", mode)
	fmt.Fprintf(w, "Suggested budget: %s\n", core.FormatYen(rec.SuggestedBudget))
	fmt.Fprintf(w, "Suggested saving: %s\n", core.FormatYen(rec.SuggestedSaving))
	if rec.Reason != "" {
		fmt.Fprintf(w, "Reason:           %s\n", rec.Reason)
	}
}
