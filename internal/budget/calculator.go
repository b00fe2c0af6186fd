package budget

import (
	"fmt"
	"math"
	"time"

	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
)

const (
	DefaultSavingRatio   = 0.2
	EconomicalIncrease   = 0.1
	LearningWindowMonths = 3

	DefaultConsumptionRatio    = 1 - DefaultSavingRatio
	EconomicalConsumptionRatio = 1 - DefaultSavingRatio - EconomicalIncrease
)

// Recommendation is a suggested budget/saving split for one month. It is
// recomputed on every call and never stored.
type Recommendation struct {
	Mode            Mode
	SuggestedBudget float64
	SuggestedSaving float64
	Reason          string
	HasPastData     bool

	// ConsumptionRatio is zero for Custom.
	ConsumptionRatio   float64
	CurrentMonthIncome float64
}

// Summarize buckets Income and Expense magnitudes by calendar month.
// Records with unparseable timestamps and other operations are ignored.
func Summarize(txs []core.TransactionRecord) map[core.MonthKey]core.MonthTotals {
	out := make(map[core.MonthKey]core.MonthTotals)
	for _, tx := range txs {
		isIncome := tx.Operation.Is(core.Income)
		isExpense := tx.Operation.Is(core.Expense)
		if !isIncome && !isExpense {
			continue
		}
		t, err := tx.Time()
		if err != nil {
			continue
		}
		key := core.MonthOf(t)
		m := out[key]
		if isIncome {
			m.Income += tx.Magnitude()
		} else {
			m.Expense += tx.Magnitude()
			m.ExpenseCount++
		}
		out[key] = m
	}
	return out
}

// MonthTotals returns the totals of the calendar month containing ref.
func MonthTotals(txs []core.TransactionRecord, ref time.Time) core.MonthTotals {
	return Summarize(txs)[core.MonthOf(ref)]
}

// LearnedRatio averages expense/income over the LearningWindowMonths
// calendar months before ref. It reports false unless every month of the
// window had positive income.
func LearnedRatio(monthly map[core.MonthKey]core.MonthTotals, ref time.Time) (float64, bool) {
	current := core.MonthOf(ref)
	sum := 0.0
	for i := 1; i <= LearningWindowMonths; i++ {
		r, ok := monthly[current.AddMonths(-i)].Ratio()
		if !ok {
			return 0, false
		}
		sum += r
	}
	return sum / LearningWindowMonths, true
}

// Calculate turns a mode into a recommendation for the month of ref.
func Calculate(txs []core.TransactionRecord, mode Mode, ref time.Time) Recommendation {
	monthly := Summarize(txs)
	income := monthly[core.MonthOf(ref)].Income
	learned, hasPast := LearnedRatio(monthly, ref)

	rec := Recommendation{
		Mode:               mode,
		HasPastData:        hasPast,
		CurrentMonthIncome: income,
	}

	switch m := mode.(type) {
	case Custom:
		rec.SuggestedBudget = math.Max(0, m.Budget)
	case Normal:
		rec.ConsumptionRatio = DefaultConsumptionRatio
		if hasPast {
			rec.ConsumptionRatio = learned
		}
	case EconomicalUnstable, EconomicalFestival:
		rec.ConsumptionRatio = EconomicalConsumptionRatio
	default:
		applog.Default().WithComponent(applog.ComponentBudget).Error("Unknown budget mode, using default ratio",
			applog.FieldMode, fmt.Sprintf("%v", mode))
		rec.ConsumptionRatio = DefaultConsumptionRatio
	}
	if mode != nil {
		rec.Reason = mode.Reason()
	}

	if _, custom := mode.(Custom); !custom {
		rec.SuggestedBudget = math.Max(0, income*rec.ConsumptionRatio)
	}
	rec.SuggestedSaving = math.Max(0, income-rec.SuggestedBudget)
	return rec
}
