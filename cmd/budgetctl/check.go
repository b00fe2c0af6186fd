package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetwise/internal/core"
	"budgetwise/internal/worker"
)

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [username]",
		Short: "Look for abnormal transfers",
		Long: `Look for transfers above the anomaly threshold.

With a username only that user's ledger is checked; without one every
user known to the ledger is scanned.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				if a.recommendations.HasAbnormalTransactions(ctx, args[0]) {
					fmt.Fprintf(w, "%s: abnormal transfers found\n", args[0])
				} else {
					fmt.Fprintf(w, "%s: no abnormal transfers\n", args[0])
				}
				return nil
			}

			scanner := worker.NewAnomalyWorker(a.rt.Cache, a.rt.Backend.Users, a.rt.Config.ScanConcurrency, a.rt.Logger)
			alerts, err := scanner.ScanAll(ctx)
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Fprintln(w, "No abnormal transfers")
				return nil
			}
			for _, alert := range alerts {
				tx := alert.Transaction
				fmt.Fprintf(w, "%s: %s %s at %s\n", alert.Username, tx.Operation, core.FormatYen(tx.Amount), tx.Timestamp)
			}
			return nil
		},
	}
}
