// Package services combines the cached ledger snapshot with the budget and
// anomaly rules into the projections shown to users.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budgetwise/internal/anomaly"
	"budgetwise/internal/budget"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
)

// LargeConsumptionShare is the fraction of the month's income an expense
// must exceed to be listed as a large consumption.
const LargeConsumptionShare = 0.07

// NoCategory is returned by TopSpendingCategory when the month has no expense.
const NoCategory = "None"

// Snapshot is the read side of the transaction cache.
type Snapshot interface {
	Transactions(ctx context.Context, username string) []core.TransactionRecord
	CustomBudget(ctx context.Context, username string) (float64, bool)
}

// Report bundles every projection for one user and month.
type Report struct {
	Username          string
	Date              time.Time
	Recommendation    budget.Recommendation
	MonthIncome       float64
	MonthExpense      float64
	TopCategory       string
	LargeConsumptions []string
	Status            string
	Abnormal          bool
}

// RecommendationService derives budget advice from the cached snapshot.
// None of its methods fail: missing data degrades to empty projections.
type RecommendationService struct {
	snapshot Snapshot
	logger   *applog.Logger
}

func NewRecommendationService(snapshot Snapshot, logger *applog.Logger) *RecommendationService {
	if logger == nil {
		logger = applog.Default()
	}
	return &RecommendationService{
		snapshot: snapshot,
		logger:   logger.WithComponent(applog.ComponentRecommendation),
	}
}

// CalculateRecommendation classifies the user's mode for date and computes
// the suggested budget and saving.
func (s *RecommendationService) CalculateRecommendation(ctx context.Context, username string, date time.Time) budget.Recommendation {
	txs := s.snapshot.Transactions(ctx, username)
	return s.recommend(ctx, username, txs, date)
}

func (s *RecommendationService) recommend(ctx context.Context, username string, txs []core.TransactionRecord, date time.Time) budget.Recommendation {
	override, hasOverride := s.snapshot.CustomBudget(ctx, username)
	mode := budget.Classify(budget.Input{
		Transactions: txs,
		Override:     override,
		HasOverride:  hasOverride,
		Reference:    date,
	})
	rec := budget.Calculate(txs, mode, date)

	s.logger.DebugContext(ctx, "Budget recommendation computed",
		applog.NewFields().
			WithUser(username).
			WithOperation(applog.OpCalculate).
			WithMode(string(mode.Kind())).
			WithMonth(date.Year(), int(date.Month())).
			With(applog.FieldAmount, rec.SuggestedBudget).
			ToSlice()...)

	return rec
}

// TopSpendingCategory returns the category with the largest expense total in
// the month of date. Ties keep the category seen first.
func (s *RecommendationService) TopSpendingCategory(ctx context.Context, username string, date time.Time) string {
	return topCategory(s.snapshot.Transactions(ctx, username), date)
}

// LargeConsumptions lists the month's expenses above LargeConsumptionShare
// of the month's income, in ledger order.
func (s *RecommendationService) LargeConsumptions(ctx context.Context, username string, date time.Time) []string {
	return largeConsumptions(s.snapshot.Transactions(ctx, username), date)
}

// BudgetStatus compares the month's expense with the suggested budget.
func (s *RecommendationService) BudgetStatus(ctx context.Context, username string, date time.Time) string {
	txs := s.snapshot.Transactions(ctx, username)
	rec := s.recommend(ctx, username, txs, date)
	return budgetStatus(rec.SuggestedBudget, budget.MonthTotals(txs, date).Expense)
}

// HasAbnormalTransactions runs the anomaly detector over the user's ledger.
func (s *RecommendationService) HasAbnormalTransactions(ctx context.Context, username string) bool {
	tx, found := anomaly.FirstAbnormal(s.snapshot.Transactions(ctx, username))
	if found {
		s.logger.InfoContext(ctx, "Abnormal transfer found",
			applog.NewFields().
				WithUser(username).
				WithOperation(applog.OpDetect).
				WithTransaction(string(tx.Operation), tx.Amount, tx.Timestamp).
				ToSlice()...)
	}
	return found
}

// Report computes every projection from a single snapshot read.
func (s *RecommendationService) Report(ctx context.Context, username string, date time.Time) Report {
	txs := s.snapshot.Transactions(ctx, username)
	rec := s.recommend(ctx, username, txs, date)
	month := budget.MonthTotals(txs, date)

	return Report{
		Username:          username,
		Date:              date,
		Recommendation:    rec,
		MonthIncome:       month.Income,
		MonthExpense:      month.Expense,
		TopCategory:       topCategory(txs, date),
		LargeConsumptions: largeConsumptions(txs, date),
		Status:            budgetStatus(rec.SuggestedBudget, month.Expense),
		Abnormal:          anomaly.HasAbnormalTransactions(txs),
	}
}

func topCategory(txs []core.TransactionRecord, date time.Time) string {
	month := core.MonthOf(date)
	totals := map[string]float64{}
	var order []string

	for _, tx := range monthExpenses(txs, month) {
		label := tx.CategoryLabel()
		if _, seen := totals[label]; !seen {
			order = append(order, label)
		}
		totals[label] += tx.Magnitude()
	}

	top, best := NoCategory, 0.0
	for i, label := range order {
		if i == 0 || totals[label] > best {
			top, best = label, totals[label]
		}
	}
	return top
}

func largeConsumptions(txs []core.TransactionRecord, date time.Time) []string {
	month := core.MonthOf(date)
	limit := budget.MonthTotals(txs, date).Income * LargeConsumptionShare

	out := []string{}
	for _, tx := range monthExpenses(txs, month) {
		if tx.Magnitude() <= limit {
			continue
		}
		out = append(out, formatConsumption(tx))
	}
	return out
}

func formatConsumption(tx core.TransactionRecord) string {
	return fmt.Sprintf("%s | %s | %s", strings.TrimSpace(tx.Timestamp), core.FormatYen(tx.Magnitude()), tx.TypeLabel())
}

func budgetStatus(suggested, spent float64) string {
	if suggested >= spent {
		return "Distance to budget: " + core.FormatYen(suggested-spent)
	}
	return "Overspent by: " + core.FormatYen(spent-suggested)
}

func monthExpenses(txs []core.TransactionRecord, month core.MonthKey) []core.TransactionRecord {
	var out []core.TransactionRecord
	for _, tx := range txs {
		if !tx.Operation.Is(core.Expense) {
			continue
		}
		t, err := tx.Time()
		if err != nil || !month.Contains(t) {
			continue
		}
		out = append(out, tx)
	}
	return out
}
