package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetwise/internal/core"
)

func budgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage custom budget overrides",
	}
	cmd.AddCommand(budgetSetCmd(a))
	cmd.AddCommand(budgetClearCmd(a))
	return cmd
}

func budgetSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <username> <amount>",
		Short: "Set a custom monthly budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseBudget(args[1])
			if err != nil {
				return err
			}
			if err := a.rt.Cache.SetCustomBudget(cmd.Context(), args[0], value); err != nil {
				return fmt.Errorf("failed to set custom budget: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Custom budget for %s set to %s\n", args[0], core.FormatYen(value))
			return nil
		},
	}
}

func budgetClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <username>",
		Short: "Remove the custom budget and return to automatic mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.rt.Cache.ClearCustomBudget(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to clear custom budget: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Custom budget for %s cleared\n", args[0])
			return nil
		},
	}
}

// parseBudget rejects a leading minus sign, which ParseAmount would fold
// into a magnitude.
func parseBudget(s string) (float64, error) {
	if len(s) > 0 && s[0] == '-' {
		return 0, core.ErrNegativeBudget
	}
	v, err := core.ParseAmount(s)
	if err != nil {
		return 0, fmt.Errorf("invalid budget %q: %w", s, err)
	}
	return v, nil
}
