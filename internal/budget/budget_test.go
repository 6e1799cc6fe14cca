package budget_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/finsight/internal/budget"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriod_End(t *testing.T) {
	start := date(2024, time.February, 10)

	assert.Equal(t, date(2024, time.February, 17), budget.PeriodWeekly.End(start))
	assert.Equal(t, date(2024, time.March, 10), budget.PeriodMonthly.End(start))
	assert.Equal(t, date(2025, time.February, 10), budget.PeriodYearly.End(start))
}

func TestBudget_EffectiveEnd(t *testing.T) {
	explicit := date(2024, time.March, 1)

	withEnd := &budget.Budget{Period: budget.PeriodYearly, StartDate: date(2024, time.January, 1), EndDate: &explicit}
	assert.Equal(t, explicit, withEnd.EffectiveEnd())

	derived := &budget.Budget{Period: budget.PeriodWeekly, StartDate: date(2024, time.January, 1)}
	assert.Equal(t, date(2024, time.January, 8), derived.EffectiveEnd())
}

func TestMeasure(t *testing.T) {
	type testCase struct {
		name          string
		amount        string
		threshold     int
		spent         string
		wantRemaining string
		wantPct       int
		wantAlert     bool
		wantExceeded  bool
	}

	tests := []testCase{
		{
			name: "RoundsRatherThanTruncates", amount: "100", threshold: 80, spent: "66.6",
			wantRemaining: "33.4", wantPct: 67,
		},
		{
			name: "Untouched", amount: "250", threshold: 80, spent: "0",
			wantRemaining: "250", wantPct: 0,
		},
		{
			name: "AtThreshold", amount: "100", threshold: 80, spent: "80",
			wantRemaining: "20", wantPct: 80, wantAlert: true,
		},
		{
			name: "ExactlyAtAmount", amount: "100", threshold: 80, spent: "100",
			wantRemaining: "0", wantPct: 100, wantAlert: true,
		},
		{
			name: "Overspent", amount: "100", threshold: 80, spent: "130.25",
			wantRemaining: "-30.25", wantPct: 130, wantAlert: true, wantExceeded: true,
		},
		{
			name: "ZeroAmount", amount: "0", threshold: 80, spent: "10",
			wantRemaining: "-10", wantPct: 0, wantExceeded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &budget.Budget{Amount: dec(tt.amount), AlertThreshold: tt.threshold}
			got := budget.Measure(b, dec(tt.spent))

			assert.True(t, got.Spent.Equal(dec(tt.spent)))
			assert.True(t, got.Remaining.Equal(dec(tt.wantRemaining)), "remaining %s", got.Remaining)
			assert.True(t, got.Remaining.Equal(b.Amount.Sub(got.Spent)))
			assert.Equal(t, tt.wantPct, got.PercentageSpent)
			assert.Equal(t, tt.wantAlert, got.Alert)
			assert.Equal(t, tt.wantExceeded, got.Exceeded)
		})
	}
}
