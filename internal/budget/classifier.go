package budget

import (
	"time"

	"budgetwise/internal/core"
)

const (
	// LargeExpenseThreshold is the amount an expense must exceed to count
	// as large.
	LargeExpenseThreshold = 1000.0

	// MinLargeExpenses is how many large expenses in the previous month make
	// spending unstable.
	MinLargeExpenses = 3
)

// FestivalMonths are treated as high-spending periods; the month before one
// of them switches to economical mode.
var FestivalMonths = map[time.Month]bool{
	time.March:    true,
	time.June:     true,
	time.November: true,
	time.December: true,
}

// Input is everything the classifier looks at.
type Input struct {
	Transactions []core.TransactionRecord
	Override     float64
	HasOverride  bool
	Reference    time.Time
}

// Rule decides a mode or passes.
type Rule interface {
	Match(in Input) (Mode, bool)
}

// CustomRule matches when the user stored a non-negative override.
type CustomRule struct{}

func (CustomRule) Match(in Input) (Mode, bool) {
	if !in.HasOverride || in.Override < 0 {
		return nil, false
	}
	return Custom{Budget: in.Override}, true
}

// UnstableRule matches when the previous calendar month had at least
// MinLargeExpenses expenses above LargeExpenseThreshold.
type UnstableRule struct{}

func (UnstableRule) Match(in Input) (Mode, bool) {
	prev := core.MonthOf(in.Reference).AddMonths(-1)

	expenses, large := 0, 0
	for _, tx := range in.Transactions {
		if !tx.Operation.Is(core.Expense) {
			continue
		}
		t, err := tx.Time()
		if err != nil || !prev.Contains(t) {
			continue
		}
		expenses++
		if tx.Magnitude() > LargeExpenseThreshold {
			large++
		}
	}
	if expenses < MinLargeExpenses || large < MinLargeExpenses {
		return nil, false
	}
	return EconomicalUnstable{LargeExpenses: large}, true
}

// FestivalRule matches when the month after the reference month is a
// festival month.
type FestivalRule struct{}

func (FestivalRule) Match(in Input) (Mode, bool) {
	next := core.MonthOf(in.Reference).AddMonths(1)
	if !FestivalMonths[next.Month] {
		return nil, false
	}
	return EconomicalFestival{UpcomingMonth: next.Month}, true
}

// rules are evaluated in priority order; the first match wins.
var rules = []Rule{
	CustomRule{},
	UnstableRule{},
	FestivalRule{},
}

// Classify returns the mode for the input, Normal when no rule matches.
func Classify(in Input) Mode {
	for _, r := range rules {
		if m, ok := r.Match(in); ok {
			return m
		}
	}
	return Normal{}
}
