// Package budget classifies a user's monthly budget mode and turns it into a
// suggested budget and saving split.
package budget

import (
	"fmt"
	"time"
)

// Kind is the stable identifier of a Mode.
type Kind string

const (
	KindNormal             Kind = "NORMAL"
	KindEconomicalUnstable Kind = "ECONOMICAL_UNSTABLE"
	KindEconomicalFestival Kind = "ECONOMICAL_FESTIVAL"
	KindCustom             Kind = "CUSTOM"
)

// Mode controls how conservative the suggested budget is. The set of
// implementations is closed: Normal, EconomicalUnstable, EconomicalFestival
// and Custom.
type Mode interface {
	Kind() Kind
	DisplayName() string
	Reason() string
	mode()
}

// Normal is used when spending is stable; the budget follows the user's own
// recent consumption ratio.
type Normal struct{}

// EconomicalUnstable is used after a month with several large expenses.
type EconomicalUnstable struct {
	LargeExpenses int
}

// EconomicalFestival is used when the next month is a festival month.
type EconomicalFestival struct {
	UpcomingMonth time.Month
}

// Custom carries the user's own budget override.
type Custom struct {
	Budget float64
}

func (Normal) Kind() Kind             { return KindNormal }
func (EconomicalUnstable) Kind() Kind { return KindEconomicalUnstable }
func (EconomicalFestival) Kind() Kind { return KindEconomicalFestival }
func (Custom) Kind() Kind             { return KindCustom }

func (Normal) DisplayName() string             { return "Normal" }
func (EconomicalUnstable) DisplayName() string { return "Economical (unstable spending)" }
func (EconomicalFestival) DisplayName() string { return "Economical (festival ahead)" }
func (Custom) DisplayName() string             { return "Custom" }

func (Normal) Reason() string { return "Consumption is stable and predictable now." }
func (EconomicalUnstable) Reason() string {
	return "Several large expenses last month, spending looks unstable."
}
func (EconomicalFestival) Reason() string {
	return "A festival month is coming, save more in advance."
}
func (Custom) Reason() string { return "Using the budget you set yourself." }

func (Normal) mode()             {}
func (EconomicalUnstable) mode() {}
func (EconomicalFestival) mode() {}
func (Custom) mode()             {}

func (m EconomicalUnstable) String() string {
	return fmt.Sprintf("%s(%d large expenses)", m.Kind(), m.LargeExpenses)
}

func (m EconomicalFestival) String() string {
	return fmt.Sprintf("%s(%s)", m.Kind(), m.UpcomingMonth)
}

func (m Custom) String() string {
	return fmt.Sprintf("%s(%.2f)", m.Kind(), m.Budget)
}

func (Normal) String() string { return string(KindNormal) }
