package budget

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/core"
)

func tx(op core.Operation, amount float64, ts string) core.TransactionRecord {
	return core.TransactionRecord{AccountUsername: "alice", Operation: op, Amount: amount, Timestamp: ts}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// stableHistory has three months of income/expense before April 2025 with
// ratios .70, .50 and .60, and 1000 income in April.
func stableHistory() []core.TransactionRecord {
	return []core.TransactionRecord{
		tx(core.Income, 1000, "2025/01/05"),
		tx(core.Expense, 700, "2025/01/20"),
		tx(core.Income, 1200, "2025/02/05"),
		tx(core.Expense, 600, "2025/02/20 18:30"),
		tx(core.Income, 1100, "2025/03/05"),
		tx(core.Expense, 660, "2025/3/20"),
		tx(core.Income, 1000, "2025/04/01"),
	}
}

func TestClassify(t *testing.T) {
	largeMarch := []core.TransactionRecord{
		tx(core.Expense, 1200, "2025/03/02"),
		tx(core.Expense, 1500, "2025/03/10"),
		tx(core.Expense, 2000, "2025/03/28 09:15"),
	}

	tests := []struct {
		name string
		in   Input
		want Mode
	}{
		{
			name: "stable history is normal",
			in:   Input{Transactions: stableHistory(), Reference: day(2025, 4, 15)},
			want: Normal{},
		},
		{
			name: "three large expenses last month",
			in:   Input{Transactions: largeMarch, Reference: day(2025, 4, 15)},
			want: EconomicalUnstable{LargeExpenses: 3},
		},
		{
			name: "large expenses two months ago do not count",
			in:   Input{Transactions: largeMarch, Reference: day(2025, 5, 15)},
			want: EconomicalFestival{UpcomingMonth: time.June},
		},
		{
			name: "expense of exactly the threshold is not large",
			in: Input{Transactions: []core.TransactionRecord{
				tx(core.Expense, 1000, "2025/03/02"),
				tx(core.Expense, 1500, "2025/03/10"),
				tx(core.Expense, 2000, "2025/03/28"),
			}, Reference: day(2025, 4, 15)},
			want: Normal{},
		},
		{
			name: "large income is not an expense",
			in: Input{Transactions: []core.TransactionRecord{
				tx(core.Income, 5000, "2025/03/02"),
				tx(core.Expense, 1500, "2025/03/10"),
				tx(core.Expense, 2000, "2025/03/28"),
			}, Reference: day(2025, 4, 15)},
			want: Normal{},
		},
		{
			name: "operation match ignores case",
			in: Input{Transactions: []core.TransactionRecord{
				tx("expense", 1200, "2025/03/02"),
				tx("EXPENSE", 1500, "2025/03/10"),
				tx(" Expense ", 2000, "2025/03/28"),
			}, Reference: day(2025, 4, 15)},
			want: EconomicalUnstable{LargeExpenses: 3},
		},
		{
			name: "february precedes a festival month",
			in:   Input{Transactions: stableHistory(), Reference: day(2025, 2, 10)},
			want: EconomicalFestival{UpcomingMonth: time.March},
		},
		{
			name: "unstable wins over festival",
			in: Input{Transactions: []core.TransactionRecord{
				tx(core.Expense, 1200, "2025/01/02"),
				tx(core.Expense, 1500, "2025/01/10"),
				tx(core.Expense, 2000, "2025/01/28"),
			}, Reference: day(2025, 2, 10)},
			want: EconomicalUnstable{LargeExpenses: 3},
		},
		{
			name: "custom wins over everything",
			in: Input{Transactions: largeMarch, Override: 800, HasOverride: true,
				Reference: day(2025, 4, 15)},
			want: Custom{Budget: 800},
		},
		{
			name: "zero override is still custom",
			in:   Input{Override: 0, HasOverride: true, Reference: day(2025, 4, 15)},
			want: Custom{Budget: 0},
		},
		{
			name: "negative override is ignored",
			in:   Input{Override: -1, HasOverride: true, Reference: day(2025, 4, 15)},
			want: Normal{},
		},
		{
			name: "december rolls over to january",
			in:   Input{Reference: day(2025, 12, 1)},
			want: Normal{},
		},
		{
			name: "empty history",
			in:   Input{Reference: day(2025, 4, 15)},
			want: Normal{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestClassify_FestivalMonths(t *testing.T) {
	for ref := time.January; ref <= time.December; ref++ {
		next := ref%12 + 1
		got := Classify(Input{Reference: day(2025, ref, 1)})
		if FestivalMonths[next] {
			assert.Equal(t, KindEconomicalFestival, got.Kind(), "reference %s", ref)
		} else {
			assert.Equal(t, KindNormal, got.Kind(), "reference %s", ref)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	in := Input{Transactions: stableHistory(), Reference: day(2025, 4, 15)}
	first := Classify(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(in))
	}
}

func TestCalculate_NormalLearnsRatio(t *testing.T) {
	rec := Calculate(stableHistory(), Normal{}, day(2025, 4, 15))

	assert.Equal(t, KindNormal, rec.Mode.Kind())
	assert.True(t, rec.HasPastData)
	assert.InDelta(t, 0.6, rec.ConsumptionRatio, 1e-9)
	assert.InDelta(t, 600, rec.SuggestedBudget, 1e-6)
	assert.InDelta(t, 400, rec.SuggestedSaving, 1e-6)
	assert.Equal(t, 1000.0, rec.CurrentMonthIncome)
	assert.Equal(t, "Consumption is stable and predictable now.", rec.Reason)
}

func TestCalculate_NormalFallsBackWithoutFullWindow(t *testing.T) {
	txs := []core.TransactionRecord{
		tx(core.Income, 1000, "2025/01/05"),
		tx(core.Expense, 100, "2025/01/20"),
		// February has expenses but no income
		tx(core.Expense, 300, "2025/02/20"),
		tx(core.Income, 1100, "2025/03/05"),
		tx(core.Expense, 110, "2025/03/20"),
		tx(core.Income, 2000, "2025/04/01"),
	}

	rec := Calculate(txs, Normal{}, day(2025, 4, 15))

	assert.False(t, rec.HasPastData)
	assert.Equal(t, DefaultConsumptionRatio, rec.ConsumptionRatio)
	assert.InDelta(t, 1600, rec.SuggestedBudget, 1e-6)
	assert.InDelta(t, 400, rec.SuggestedSaving, 1e-6)
}

func TestCalculate_Economical(t *testing.T) {
	for _, mode := range []Mode{EconomicalUnstable{LargeExpenses: 3}, EconomicalFestival{UpcomingMonth: time.March}} {
		t.Run(string(mode.Kind()), func(t *testing.T) {
			rec := Calculate(stableHistory(), mode, day(2025, 4, 15))

			assert.InDelta(t, 0.7, rec.ConsumptionRatio, 1e-9)
			assert.InDelta(t, 700, rec.SuggestedBudget, 1e-6)
			assert.InDelta(t, 300, rec.SuggestedSaving, 1e-6)
			assert.True(t, rec.HasPastData, "window is reported even when unused")
			assert.Equal(t, mode.Reason(), rec.Reason)
		})
	}
}

func TestCalculate_Custom(t *testing.T) {
	tests := []struct {
		name       string
		budget     float64
		wantSaving float64
	}{
		{name: "below income", budget: 250, wantSaving: 750},
		{name: "above income", budget: 5000, wantSaving: 0},
		{name: "zero", budget: 0, wantSaving: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Calculate(stableHistory(), Custom{Budget: tt.budget}, day(2025, 4, 15))

			assert.Equal(t, tt.budget, rec.SuggestedBudget)
			assert.Equal(t, tt.wantSaving, rec.SuggestedSaving)
			assert.Zero(t, rec.ConsumptionRatio)
			assert.Equal(t, "Using the budget you set yourself.", rec.Reason)
		})
	}
}

func TestCalculate_NoIncomeThisMonth(t *testing.T) {
	rec := Calculate(stableHistory(), Normal{}, day(2025, 5, 2))

	assert.Zero(t, rec.CurrentMonthIncome)
	assert.Zero(t, rec.SuggestedBudget)
	assert.Zero(t, rec.SuggestedSaving)
}

func TestCalculate_SkipsMalformedTimestamps(t *testing.T) {
	txs := append(stableHistory(),
		tx(core.Income, 99999, "yesterday"),
		tx(core.Expense, 99999, "2025-04-02"),
		tx(core.Income, 500, ""),
	)

	rec := Calculate(txs, Normal{}, day(2025, 4, 15))

	assert.Equal(t, 1000.0, rec.CurrentMonthIncome)
	assert.InDelta(t, 600, rec.SuggestedBudget, 1e-6)
}

func TestCalculate_NilModeUsesDefaultRatio(t *testing.T) {
	rec := Calculate(stableHistory(), nil, day(2025, 4, 15))

	assert.Equal(t, DefaultConsumptionRatio, rec.ConsumptionRatio)
	assert.InDelta(t, 800, rec.SuggestedBudget, 1e-6)
	assert.Empty(t, rec.Reason)
}

func TestCalculate_SavingInvariant(t *testing.T) {
	modes := []Mode{Normal{}, EconomicalUnstable{}, EconomicalFestival{}, Custom{Budget: 0}, Custom{Budget: 1234.5}}
	refs := []time.Time{day(2025, 1, 1), day(2025, 4, 15), day(2025, 4, 30), day(2025, 7, 1)}

	for _, mode := range modes {
		for _, ref := range refs {
			t.Run(fmt.Sprintf("%v/%s", mode, ref.Format("2006-01")), func(t *testing.T) {
				rec := Calculate(stableHistory(), mode, ref)
				require.GreaterOrEqual(t, rec.SuggestedBudget, 0.0)
				require.GreaterOrEqual(t, rec.SuggestedSaving, 0.0)
				want := rec.CurrentMonthIncome - rec.SuggestedBudget
				if want < 0 {
					want = 0
				}
				assert.Equal(t, want, rec.SuggestedSaving)
			})
		}
	}
}

func TestSummarize(t *testing.T) {
	txs := []core.TransactionRecord{
		tx(core.Income, 1000, "2025/01/05"),
		tx(core.Expense, 10, "2025/01/31 23:59"),
		tx(core.Expense, -20, "2025/01/01"),
		tx(core.TransferOut, 600, "2025/01/02"),
		tx(core.Withdrawal, 50, "2025/01/02"),
		tx(core.Income, 1, "2024/01/05"),
	}

	got := Summarize(txs)

	assert.Equal(t, core.MonthTotals{Income: 1000, Expense: 30, ExpenseCount: 2},
		got[core.MonthKey{Year: 2025, Month: time.January}])
	assert.Equal(t, core.MonthTotals{Income: 1},
		got[core.MonthKey{Year: 2024, Month: time.January}])
	assert.Len(t, got, 2)
}

func TestModeText(t *testing.T) {
	tests := []struct {
		mode   Mode
		kind   Kind
		reason string
	}{
		{Normal{}, KindNormal, "Consumption is stable and predictable now."},
		{EconomicalUnstable{}, KindEconomicalUnstable, "Several large expenses last month, spending looks unstable."},
		{EconomicalFestival{}, KindEconomicalFestival, "A festival month is coming, save more in advance."},
		{Custom{}, KindCustom, "Using the budget you set yourself."},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.mode.Kind())
			assert.Equal(t, tt.reason, tt.mode.Reason())
			assert.NotEmpty(t, tt.mode.DisplayName())
		})
	}
}
