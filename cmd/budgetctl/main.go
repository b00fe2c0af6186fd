package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"budgetwise/internal/cli"
	"budgetwise/internal/clock"
	"budgetwise/internal/config"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
	"budgetwise/internal/services"
)

// app holds what every subcommand shares once PersistentPreRunE has run.
type app struct {
	backend string
	date    string
	clock   clock.Clock

	rt              *cli.Runtime
	recommendations *services.RecommendationService
	transactions    *services.TransactionService
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{clock: clock.Real{}}

	rootCmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "Budget recommendations and transfer anomaly checks",
		Long: `budgetctl reads a user's transaction ledger and suggests a monthly
budget and saving split, lists the month's large consumptions and flags
abnormal transfers.

The ledger backend is chosen with DATA_BACKEND (memory, csv, sqlite, sheets)
or --backend.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.backend, "backend", "", "ledger backend, overrides DATA_BACKEND")
	rootCmd.PersistentFlags().StringVar(&a.date, "date", "", "reference date as yyyy/MM/dd (default: today)")

	rootCmd.AddCommand(recommendCmd(a))
	rootCmd.AddCommand(reportCmd(a))
	rootCmd.AddCommand(checkCmd(a))
	rootCmd.AddCommand(budgetCmd(a))
	rootCmd.AddCommand(recordCmd(a))

	return rootCmd, a
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs one command line. The runtime opened by setup is released
// even when the command fails.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd, a := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := a.teardown(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg := config.Load()
	if a.backend != "" {
		cfg.DataBackend = a.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logs go to stderr so command output stays parseable
	lc := cfg.LogConfig(applog.ComponentCLI)
	lc.Writer = cmd.ErrOrStderr()
	logger := applog.New(lc)
	applog.SetDefault(logger)
	cmd.SetContext(applog.WithContext(cmd.Context(), logger))

	rt, err := cli.InitRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	a.rt = rt

	// A nil *amqp.Client must not become a non-nil interface
	var publisher services.TransferPublisher
	if rt.Backend.AMQP != nil {
		publisher = rt.Backend.AMQP
	}

	a.recommendations = services.NewRecommendationService(rt.Cache, logger)
	a.transactions = services.NewTransactionService(rt.Backend.Writer, rt.Cache, publisher, logger)
	return nil
}

func (a *app) teardown() error {
	if a.rt == nil {
		return nil
	}
	err := a.rt.Close()
	a.rt = nil
	return err
}

// referenceDate returns --date or today.
func (a *app) referenceDate() (time.Time, error) {
	if a.date == "" {
		return a.clock.Now(), nil
	}
	t, err := core.ParseTimestamp(a.date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected yyyy/MM/dd", a.date)
	}
	return t, nil
}
