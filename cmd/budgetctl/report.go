package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetwise/internal/core"
)

func reportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report <username>",
		Short: "Show the month's recommendation, spending and anomalies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := a.referenceDate()
			if err != nil {
				return err
			}
			r := a.recommendations.Report(cmd.Context(), args[0], date)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Report for %s, %s %d\n\n", r.Username, r.Date.Month(), r.Date.Year())
			printRecommendation(w, r.Recommendation)
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Income this month:  %s\n", core.FormatYen(r.MonthIncome))
			fmt.Fprintf(w, "Expense this month: %s\n", core.FormatYen(r.MonthExpense))
			fmt.Fprintf(w, "Top category:       %s\n", r.TopCategory)
			fmt.Fprintf(w, "Status:             %s\n", r.Status)
			if len(r.LargeConsumptions) > 0 {
				fmt.Fprintln(w, "Large consumptions:")
				for _, line := range r.LargeConsumptions {
					fmt.Fprintf(w, "  %s\n", line)
				}
			}
			if r.Abnormal {
				fmt.Fprintln(w, "Warning: abnormal transfers found")
			}
			return nil
		},
	}
}
