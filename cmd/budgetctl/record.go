package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetwise/internal/core"
)

func recordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <username>",
		Short: "Append a transaction to the ledger",
		Long: `Append a transaction to the ledger.

Transfers are announced on AMQP when a broker is configured so a running
budget-worker re-checks the user.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opText, _ := flags.GetString("op")
			amountText, _ := flags.GetString("amount")
			timestamp, _ := flags.GetString("time")
			category, _ := flags.GetString("category")
			txType, _ := flags.GetString("type")
			merchant, _ := flags.GetString("merchant")
			remark, _ := flags.GetString("remark")

			op, err := core.ParseOperation(opText)
			if err != nil {
				return fmt.Errorf("invalid --op %q: %w", opText, err)
			}
			amount, err := core.ParseAmount(amountText)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amountText, err)
			}
			if timestamp == "" {
				timestamp = a.clock.Now().Format(core.DateTimeLayout)
			}

			ref, err := a.transactions.Record(cmd.Context(), core.TransactionRecord{
				AccountUsername: args[0],
				Operation:       op,
				Amount:          amount,
				Timestamp:       timestamp,
				Category:        category,
				Type:            txType,
				Merchant:        merchant,
				Remark:          remark,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s for %s (%s)\n", op, core.FormatYen(amount), args[0], ref)
			return nil
		},
	}

	cmd.Flags().String("op", "", "operation: Income, Expense, Transfer In, Transfer Out, Withdrawal, Deposit")
	cmd.Flags().String("amount", "", "amount, e.g. 1200 or ¥1,200.50")
	cmd.Flags().String("time", "", "timestamp as yyyy/MM/dd HH:mm (default: now)")
	cmd.Flags().String("category", "", "category")
	cmd.Flags().String("type", "", "type")
	cmd.Flags().String("merchant", "", "merchant")
	cmd.Flags().String("remark", "", "remark")
	_ = cmd.MarkFlagRequired("op")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
