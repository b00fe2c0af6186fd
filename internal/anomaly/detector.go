// Package anomaly flags transfers large enough to warrant a warning.
package anomaly

import "budgetwise/internal/core"

// TransferThreshold is the amount a transfer must exceed to be abnormal.
const TransferThreshold = 500.0

// IsAbnormal reports whether tx is a transfer in either direction above
// TransferThreshold.
func IsAbnormal(tx core.TransactionRecord) bool {
	return tx.Operation.IsTransfer() && tx.Magnitude() > TransferThreshold
}

// HasAbnormalTransactions reports whether any record is abnormal.
func HasAbnormalTransactions(txs []core.TransactionRecord) bool {
	_, ok := FirstAbnormal(txs)
	return ok
}

// FirstAbnormal returns the first abnormal record in ledger order.
func FirstAbnormal(txs []core.TransactionRecord) (core.TransactionRecord, bool) {
	for _, tx := range txs {
		if IsAbnormal(tx) {
			return tx, true
		}
	}
	return core.TransactionRecord{}, false
}
