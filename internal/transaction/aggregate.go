package transaction

import (
	"github.com/shopspring/decimal"
)

type Summary struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	Balance       decimal.Decimal
}

// TypeTotal is one row of a SUM(amount) GROUP BY type query.
type TypeTotal struct {
	Type  Type
	Total decimal.Decimal
}

// BuildSummary folds per-type sums into a Summary. Absent types count as zero.
func BuildSummary(totals []TypeTotal) Summary {
	var s Summary

	for _, t := range totals {
		switch t.Type {
		case TypeIncome:
			s.TotalIncome = s.TotalIncome.Add(t.Total)
		case TypeExpense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Total)
		}
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)

	return s
}

// MonthTypeTotal is one row of a SUM(amount) GROUP BY month, type query.
type MonthTypeTotal struct {
	Month int
	Type  Type
	Total decimal.Decimal
}

type MonthlyTotal struct {
	Month   int
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// BuildMonthlyTrend maps grouped rows onto months 1 through 12. Months with no
// rows are zero filled, so the result always has twelve entries.
func BuildMonthlyTrend(rows []MonthTypeTotal) []MonthlyTotal {
	trend := make([]MonthlyTotal, 12)
	for i := range trend {
		trend[i].Month = i + 1
	}

	for _, r := range rows {
		if r.Month < 1 || r.Month > 12 {
			continue
		}

		m := &trend[r.Month-1]

		switch r.Type {
		case TypeIncome:
			m.Income = m.Income.Add(r.Total)
		case TypeExpense:
			m.Expense = m.Expense.Add(r.Total)
		}
	}

	for i := range trend {
		trend[i].Balance = trend[i].Income.Sub(trend[i].Expense)
	}

	return trend
}

type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

type CategoryFilter struct {
	Range DateRange
	Type  *Type
}
