package budget

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("budget not found")

const DefaultAlertThreshold = 80

type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

func (p Period) Valid() bool {
	return p == PeriodWeekly || p == PeriodMonthly || p == PeriodYearly
}

// End returns start advanced by one period.
func (p Period) End(start time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return start.AddDate(0, 0, 7)
	case PeriodYearly:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

type Budget struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Category       string
	Amount         decimal.Decimal
	Period         Period
	StartDate      time.Time
	EndDate        *time.Time
	IsActive       bool
	AlertThreshold int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveEnd is the stored end date, or one period after the start.
// The window is half open: [StartDate, EffectiveEnd).
func (b *Budget) EffectiveEnd() time.Time {
	if b.EndDate != nil {
		return *b.EndDate
	}

	return b.Period.End(b.StartDate)
}

type Usage struct {
	Spent           decimal.Decimal
	Remaining       decimal.Decimal
	PercentageSpent int
	Alert           bool
	Exceeded        bool
}

var hundred = decimal.NewFromInt(100)

// Measure derives the usage figures for b given the spent amount. Remaining
// goes negative on overspend; the percentage is rounded, not truncated.
func Measure(b *Budget, spent decimal.Decimal) Usage {
	u := Usage{
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
		Exceeded:  spent.GreaterThan(b.Amount),
	}

	if !b.Amount.IsZero() {
		u.PercentageSpent = int(spent.Div(b.Amount).Mul(hundred).Round(0).IntPart())
	}

	u.Alert = u.PercentageSpent >= b.AlertThreshold

	return u
}

type Tracked struct {
	Budget *Budget
	Usage  Usage
}
