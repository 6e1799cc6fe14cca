package transaction_test

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/finsight/internal/transaction"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildSummary(t *testing.T) {
	type testCase struct {
		name   string
		totals []transaction.TypeTotal
		want   transaction.Summary
	}

	tests := []testCase{
		{
			name: "Empty",
			want: transaction.Summary{},
		},
		{
			name: "OnlyExpenses",
			totals: []transaction.TypeTotal{
				{Type: transaction.TypeExpense, Total: dec("42.10")},
			},
			want: transaction.Summary{
				TotalIncome:   decimal.Zero,
				TotalExpenses: dec("42.10"),
				Balance:       dec("-42.10"),
			},
		},
		{
			name: "Both",
			totals: []transaction.TypeTotal{
				{Type: transaction.TypeIncome, Total: dec("1500.00")},
				{Type: transaction.TypeExpense, Total: dec("320.55")},
			},
			want: transaction.Summary{
				TotalIncome:   dec("1500.00"),
				TotalExpenses: dec("320.55"),
				Balance:       dec("1179.45"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transaction.BuildSummary(tt.totals)

			assert.True(t, tt.want.TotalIncome.Equal(got.TotalIncome), "income %s", got.TotalIncome)
			assert.True(t, tt.want.TotalExpenses.Equal(got.TotalExpenses), "expenses %s", got.TotalExpenses)
			assert.True(t, tt.want.Balance.Equal(got.Balance), "balance %s", got.Balance)
		})
	}
}

func TestBuildSummary_BalanceIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		var totals []transaction.TypeTotal

		for range rng.IntN(4) {
			typ := transaction.TypeIncome
			if rng.IntN(2) == 0 {
				typ = transaction.TypeExpense
			}

			totals = append(totals, transaction.TypeTotal{
				Type:  typ,
				Total: decimal.New(rng.Int64N(1_000_000), -2),
			})
		}

		s := transaction.BuildSummary(totals)

		require.True(t, s.Balance.Equal(s.TotalIncome.Sub(s.TotalExpenses)))
		require.False(t, s.TotalIncome.IsNegative())
		require.False(t, s.TotalExpenses.IsNegative())
	}
}

func TestBuildMonthlyTrend(t *testing.T) {
	t.Run("NoRows", func(t *testing.T) {
		got := transaction.BuildMonthlyTrend(nil)

		require.Len(t, got, 12)

		for i, m := range got {
			assert.Equal(t, i+1, m.Month)
			assert.True(t, m.Income.IsZero())
			assert.True(t, m.Expense.IsZero())
			assert.True(t, m.Balance.IsZero())
		}
	})

	t.Run("SingleMonth", func(t *testing.T) {
		got := transaction.BuildMonthlyTrend([]transaction.MonthTypeTotal{
			{Month: 3, Type: transaction.TypeExpense, Total: dec("25.00")},
		})

		require.Len(t, got, 12)

		for _, m := range got {
			if m.Month == 3 {
				assert.True(t, m.Expense.Equal(dec("25")))
				assert.True(t, m.Income.IsZero())
				assert.True(t, m.Balance.Equal(dec("-25")))

				continue
			}

			assert.True(t, m.Income.IsZero(), "month %d", m.Month)
			assert.True(t, m.Expense.IsZero(), "month %d", m.Month)
			assert.True(t, m.Balance.IsZero(), "month %d", m.Month)
		}
	})

	t.Run("MixedAndOutOfRange", func(t *testing.T) {
		got := transaction.BuildMonthlyTrend([]transaction.MonthTypeTotal{
			{Month: 1, Type: transaction.TypeIncome, Total: dec("100")},
			{Month: 1, Type: transaction.TypeExpense, Total: dec("40")},
			{Month: 12, Type: transaction.TypeIncome, Total: dec("7.5")},
			{Month: 13, Type: transaction.TypeIncome, Total: dec("999")},
		})

		require.Len(t, got, 12)
		assert.True(t, got[0].Balance.Equal(dec("60")))
		assert.True(t, got[11].Income.Equal(dec("7.5")))
		assert.True(t, got[11].Balance.Equal(dec("7.5")))
	})
}
