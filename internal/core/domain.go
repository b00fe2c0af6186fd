package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income      Operation = "Income"
	Expense     Operation = "Expense"
	TransferIn  Operation = "Transfer In"
	TransferOut Operation = "Transfer Out"
	Withdrawal  Operation = "Withdrawal"
	Deposit     Operation = "Deposit"
)

// Timestamp layouts accepted in the ledger. Single-digit month and day are
// tolerated because hand-edited ledgers contain both forms.
const (
	DateLayout     = "2006/1/2"
	DateTimeLayout = "2006/1/2 15:04"
)

// UnclassifiedCategory labels records without a meaningful category.
const UnclassifiedCategory = "Unclassified"

type (
	// Operation is the kind of a ledger row. The amount of a record is always
	// a magnitude; the operation gives it a direction.
	Operation string

	// TransactionRecord is a single ledger row as delivered by a reader.
	// Records are never mutated after being read.
	TransactionRecord struct {
		AccountUsername string
		Operation       Operation
		Amount          float64
		Timestamp       string
		Category        string
		Type            string
		Merchant        string
		Remark          string
	}
)

var (
	ErrInvalidTimestamp       = errors.New("invalid timestamp")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrUnknownOperation       = errors.New("unknown operation")
	ErrEmptyUsername          = errors.New("empty username")
	ErrNegativeBudget         = errors.New("custom budget must not be negative")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

var knownOperations = []Operation{Income, Expense, TransferIn, TransferOut, Withdrawal, Deposit}

// Is reports whether o names the same operation as other, ignoring case and
// surrounding spaces.
func (o Operation) Is(other Operation) bool {
	return strings.EqualFold(strings.TrimSpace(string(o)), string(other))
}

// IsTransfer reports whether o is an incoming or outgoing transfer.
func (o Operation) IsTransfer() bool {
	return o.Is(TransferIn) || o.Is(TransferOut)
}

// ParseOperation maps free text onto one of the known operations.
func ParseOperation(s string) (Operation, error) {
	for _, op := range knownOperations {
		if Operation(s).Is(op) {
			return op, nil
		}
	}
	return "", ErrUnknownOperation
}

// ParseTimestamp parses a ledger timestamp ("yyyy/MM/dd" or
// "yyyy/MM/dd HH:mm").
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	layout := DateLayout
	if strings.Contains(s, " ") {
		layout = DateTimeLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp
	}
	return t, nil
}

// Time parses the record's timestamp.
func (r TransactionRecord) Time() (time.Time, error) {
	return ParseTimestamp(r.Timestamp)
}

// Magnitude returns the absolute amount of the record.
func (r TransactionRecord) Magnitude() float64 {
	if r.Amount < 0 {
		return -r.Amount
	}
	return r.Amount
}

// CategoryLabel returns the category, or UnclassifiedCategory when the
// category is empty or a placeholder.
func (r TransactionRecord) CategoryLabel() string {
	if IsPlaceholder(r.Category) {
		return UnclassifiedCategory
	}
	return strings.TrimSpace(r.Category)
}

// TypeLabel prefers the record type, then the category.
func (r TransactionRecord) TypeLabel() string {
	if !IsPlaceholder(r.Type) {
		return strings.TrimSpace(r.Type)
	}
	return r.CategoryLabel()
}

// IsPlaceholder reports whether s carries no information ("", "null", "-"...).
func IsPlaceholder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "n/a", "na", "-", "/":
		return true
	}
	return false
}

func (r TransactionRecord) Validate() error {
	if strings.TrimSpace(r.AccountUsername) == "" {
		return ErrEmptyUsername
	}
	if _, err := ParseOperation(string(r.Operation)); err != nil {
		return err
	}
	if r.Amount < 0 {
		return ErrInvalidAmount
	}
	if _, err := r.Time(); err != nil {
		return err
	}
	return nil
}
