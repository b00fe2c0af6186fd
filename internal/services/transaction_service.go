package services

import (
	"context"
	"fmt"

	"budgetwise/internal/core"
	"budgetwise/internal/ledger"
	applog "budgetwise/internal/log"
)

// Invalidator drops a user's cached ledger snapshot.
type Invalidator interface {
	InvalidateTransactions(username string)
}

// TransferPublisher announces completed transfers to the anomaly worker.
type TransferPublisher interface {
	PublishTransferCompleted(ctx context.Context, tx core.TransactionRecord) error
}

// TransactionService records ledger entries and keeps the cache and the
// anomaly worker informed.
type TransactionService struct {
	writer    ledger.TransactionWriter
	cache     Invalidator
	publisher TransferPublisher
	logger    *applog.Logger
}

// NewTransactionService wires the service. cache and publisher may be nil.
func NewTransactionService(writer ledger.TransactionWriter, cache Invalidator, publisher TransferPublisher, logger *applog.Logger) *TransactionService {
	if logger == nil {
		logger = applog.Default()
	}
	return &TransactionService{
		writer:    writer,
		cache:     cache,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentLedger),
	}
}

// Record stores tx, invalidates the user's snapshot and, for transfers,
// publishes a transfer-completed event. A failed publish is logged and does
// not fail the call; the entry is already stored.
func (s *TransactionService) Record(ctx context.Context, tx core.TransactionRecord) (string, error) {
	op, err := core.ParseOperation(string(tx.Operation))
	if err != nil {
		return "", fmt.Errorf("record transaction: %w", err)
	}
	tx.Operation = op
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("record transaction: %w", err)
	}

	ref, err := s.writer.Record(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateTransactions(tx.AccountUsername)
	}

	s.logger.InfoContext(ctx, "Transaction recorded",
		applog.NewFields().
			WithUser(tx.AccountUsername).
			WithOperation(applog.OpRecord).
			WithTransaction(string(tx.Operation), tx.Amount, tx.Timestamp).
			With(applog.FieldRef, ref).
			ToSlice()...)

	if tx.Operation.IsTransfer() {
		s.publishTransfer(ctx, tx)
	}
	return ref, nil
}

func (s *TransactionService) publishTransfer(ctx context.Context, tx core.TransactionRecord) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping transfer event",
			applog.FieldUser, tx.AccountUsername)
		return
	}
	if err := s.publisher.PublishTransferCompleted(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transfer event",
			applog.NewFields().WithUser(tx.AccountUsername).WithOperation(applog.OpPublish).WithError(err).ToSlice()...)
	}
}
