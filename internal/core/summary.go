package core

import "time"

// MonthKey identifies a calendar month; the day of a timestamp is ignored.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// AddMonths shifts the key by n calendar months (n may be negative).
func (k MonthKey) AddMonths(n int) MonthKey {
	t := time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Contains reports whether t falls inside the month.
func (k MonthKey) Contains(t time.Time) bool {
	return t.Year() == k.Year && t.Month() == k.Month
}

// MonthTotals aggregates income and expense magnitudes for one month.
type MonthTotals struct {
	Income       float64
	Expense      float64
	ExpenseCount int
}

// Ratio returns Expense/Income, or false when income is not positive.
func (m MonthTotals) Ratio() (float64, bool) {
	if m.Income <= 0 {
		return 0, false
	}
	return m.Expense / m.Income, true
}
