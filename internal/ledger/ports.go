// Package ledger declares the ports the engine uses to reach the
// transaction ledger and the custom-budget override store. Backends live in
// the sub-packages and in internal/storage.
package ledger

import (
	"context"

	"budgetwise/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionReader returns every ledger row of a user in insertion order.
	TransactionReader interface {
		ReadTransactions(ctx context.Context, username string) ([]core.TransactionRecord, error)
	}

	// BudgetStore persists one custom budget override per user.
	// Last writer wins.
	BudgetStore interface {
		// Load returns ok=false when the user has no override.
		Load(ctx context.Context, username string) (value float64, ok bool, err error)
		Save(ctx context.Context, username string, value float64) error
		Clear(ctx context.Context, username string) error
	}

	// UserLister enumerates the users known to a ledger.
	UserLister interface {
		ListUsers(ctx context.Context) ([]string, error)
	}

	// TransactionWriter appends a row to the ledger and returns a reference
	// to it. Not every backend supports writing.
	TransactionWriter interface {
		Record(ctx context.Context, tx core.TransactionRecord) (ref string, err error)
	}
)
