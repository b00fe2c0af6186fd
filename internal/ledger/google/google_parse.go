package google

import (
	"fmt"
	"strings"

	"budgetwise/internal/core"
)

type ledgerColumns struct {
	username, operation, amount, timestamp int
	merchant, typ, remark, category        int
}

// parseLedger converts a values matrix (as returned by the Sheets API) into
// records. The first row must be a header with at least the username,
// operation and amount columns. Rows that cannot be converted are returned
// as errors and skipped.
func parseLedger(values [][]interface{}) ([]core.TransactionRecord, []error, error) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	headers := toStrings(values[0])
	cols := ledgerColumns{
		username:  indexOf(headers, "Username", "User Name", "Account", "Account Username"),
		operation: indexOf(headers, "Operation", "Operation Performed"),
		amount:    indexOf(headers, "Amount"),
		timestamp: indexOf(headers, "Time", "Payment Time", "Timestamp", "Date"),
		merchant:  indexOf(headers, "Merchant", "Merchant Name"),
		typ:       indexOf(headers, "Type"),
		remark:    indexOf(headers, "Remark", "Note"),
		category:  indexOf(headers, "Category"),
	}
	if cols.username == -1 || cols.operation == -1 || cols.amount == -1 {
		missing := make([]string, 0, 3)
		if cols.username == -1 {
			missing = append(missing, "Username")
		}
		if cols.operation == -1 {
			missing = append(missing, "Operation")
		}
		if cols.amount == -1 {
			missing = append(missing, "Amount")
		}
		return nil, nil, fmt.Errorf("unexpected ledger header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var (
		out     []core.TransactionRecord
		skipped []error
	)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if strings.Join(row, "") == "" {
			continue
		}
		rec, err := cols.record(row)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		out = append(out, rec)
	}
	return out, skipped, nil
}

func (c ledgerColumns) record(row []string) (core.TransactionRecord, error) {
	username := safeGet(row, c.username)
	if username == "" {
		return core.TransactionRecord{}, core.ErrEmptyUsername
	}
	op, err := core.ParseOperation(safeGet(row, c.operation))
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("%w: %q", err, safeGet(row, c.operation))
	}
	amount, err := core.ParseAmount(safeGet(row, c.amount))
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("%w: %q", err, safeGet(row, c.amount))
	}
	return core.TransactionRecord{
		AccountUsername: username,
		Operation:       op,
		Amount:          amount,
		Timestamp:       safeGet(row, c.timestamp),
		Merchant:        safeGet(row, c.merchant),
		Type:            safeGet(row, c.typ),
		Remark:          safeGet(row, c.remark),
		Category:        safeGet(row, c.category),
	}, nil
}
