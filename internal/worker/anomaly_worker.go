package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"budgetwise/internal/amqp"
	"budgetwise/internal/anomaly"
	"budgetwise/internal/core"
	"budgetwise/internal/ledger"
	applog "budgetwise/internal/log"
)

// DefaultScanConcurrency bounds parallel ledger reads during a full scan.
const DefaultScanConcurrency = 4

// Snapshot is the part of the transaction cache the worker needs.
type Snapshot interface {
	Transactions(ctx context.Context, username string) []core.TransactionRecord
	InvalidateTransactions(username string)
}

// Alert names a user and the first abnormal transfer in their ledger.
type Alert struct {
	Username    string
	Transaction core.TransactionRecord
}

// AnomalyWorker re-checks users for abnormal transfers, either when a
// transfer event arrives or in a full scan at startup.
type AnomalyWorker struct {
	snapshot    Snapshot
	users       ledger.UserLister
	concurrency int
	logger      *applog.Logger
}

func NewAnomalyWorker(snapshot Snapshot, users ledger.UserLister, concurrency int, logger *applog.Logger) *AnomalyWorker {
	if concurrency <= 0 {
		concurrency = DefaultScanConcurrency
	}
	if logger == nil {
		logger = applog.Default()
	}
	return &AnomalyWorker{
		snapshot:    snapshot,
		users:       users,
		concurrency: concurrency,
		logger:      logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleTransferCompleted processes a single transfer event from AMQP. The
// user's cached ledger is dropped first so the new transfer is seen.
func (w *AnomalyWorker) HandleTransferCompleted(ctx context.Context, msg *amqp.TransferCompletedMessage) error {
	w.logger.InfoContext(ctx, "Processing transfer message",
		applog.NewFields().
			WithUser(msg.Username).
			WithOperation(applog.OpConsume).
			WithTransaction(msg.Operation, msg.Amount, msg.Timestamp).
			ToSlice()...)

	w.snapshot.InvalidateTransactions(msg.Username)
	w.Check(ctx, msg.Username)
	return nil
}

// Check runs the anomaly detector over the user's ledger and logs an alert
// for the first abnormal transfer.
func (w *AnomalyWorker) Check(ctx context.Context, username string) (Alert, bool) {
	tx, found := anomaly.FirstAbnormal(w.snapshot.Transactions(ctx, username))
	if !found {
		return Alert{}, false
	}

	w.logger.WarnContext(ctx, "Abnormal transfer detected",
		applog.NewFields().
			WithUser(username).
			WithOperation(applog.OpDetect).
			WithTransaction(string(tx.Operation), tx.Amount, tx.Timestamp).
			ToSlice()...)

	return Alert{Username: username, Transaction: tx}, true
}

// ScanAll checks every user known to the ledger and returns the alerts in
// user order.
func (w *AnomalyWorker) ScanAll(ctx context.Context) ([]Alert, error) {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	found := make([]*Alert, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, u := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if a, ok := w.Check(gctx, u); ok {
				found[i] = &a
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}

	alerts := make([]Alert, 0, len(found))
	for _, a := range found {
		if a != nil {
			alerts = append(alerts, *a)
		}
	}
	return alerts, nil
}

// StartupScan runs ScanAll and logs a summary. It is used to catch
// transfers recorded while the worker was down.
func (w *AnomalyWorker) StartupScan(ctx context.Context) error {
	alerts, err := w.ScanAll(ctx)
	if err != nil {
		return fmt.Errorf("startup scan: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup anomaly scan completed",
		applog.NewFields().WithOperation(applog.OpStartup).With(applog.FieldCount, len(alerts)).ToSlice()...)
	return nil
}
