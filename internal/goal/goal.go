package goal

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

var (
	ErrNotFound = errors.New("goal not found")

	ErrTargetDatePast = validate.Field("targetDate", "must be in the future")
)

const DefaultCategory = "General"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusCancelled
}

type Goal struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	Description   string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	TargetDate    time.Time
	Category      string
	Priority      Priority
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var hundred = decimal.NewFromInt(100)

// Progress is round(min(current/target, 1) * 100), kept within [0, 100].
// A non-positive target yields 0.
func Progress(current, target decimal.Decimal) int {
	if !target.IsPositive() {
		return 0
	}

	ratio := decimal.Min(current.Div(target), decimal.NewFromInt(1))
	pct := int(ratio.Mul(hundred).Round(0).IntPart())

	return max(0, min(pct, 100))
}

// Remaining is max(target - current, 0).
func Remaining(current, target decimal.Decimal) decimal.Decimal {
	return decimal.Max(target.Sub(current), decimal.Zero)
}

func (g *Goal) Progress() int {
	return Progress(g.CurrentAmount, g.TargetAmount)
}

func (g *Goal) Remaining() decimal.Decimal {
	return Remaining(g.CurrentAmount, g.TargetAmount)
}

// Reached reports whether the saved amount covers the target.
func (g *Goal) Reached() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Overdue reports whether the target date is before today and the goal is
// neither reached nor completed.
func (g *Goal) Overdue(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return g.TargetDate.Before(today) && g.Status != StatusCompleted && !g.Reached()
}

type Stats struct {
	Total              int
	Active             int
	Completed          int
	Cancelled          int
	TotalTargetAmount  decimal.Decimal
	TotalCurrentAmount decimal.Decimal
	OverallProgress    int
}

// BuildStats counts goals per status and averages their progress.
func BuildStats(goals []*Goal) Stats {
	s := Stats{Total: len(goals)}

	progressSum := 0

	for _, g := range goals {
		switch g.Status {
		case StatusActive:
			s.Active++
		case StatusCompleted:
			s.Completed++
		case StatusCancelled:
			s.Cancelled++
		}

		s.TotalTargetAmount = s.TotalTargetAmount.Add(g.TargetAmount)
		s.TotalCurrentAmount = s.TotalCurrentAmount.Add(g.CurrentAmount)
		progressSum += g.Progress()
	}

	if len(goals) > 0 {
		avg := decimal.NewFromInt(int64(progressSum)).Div(decimal.NewFromInt(int64(len(goals))))
		s.OverallProgress = int(avg.Round(0).IntPart())
	}

	return s
}
