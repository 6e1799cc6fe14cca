package goal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/goal"
)

type goalResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	TargetDate    string          `json:"targetDate"`
	Category      string          `json:"category"`
	Priority      goal.Priority   `json:"priority"`
	Status        goal.Status     `json:"status"`
	Progress      int             `json:"progress"`
	Remaining     decimal.Decimal `json:"remaining"`
	Overdue       bool            `json:"overdue"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func toResponse(g *goal.Goal, now time.Time) goalResponse {
	return goalResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		TargetDate:    g.TargetDate.Format(time.DateOnly),
		Category:      g.Category,
		Priority:      g.Priority,
		Status:        g.Status,
		Progress:      g.Progress(),
		Remaining:     g.Remaining(),
		Overdue:       g.Overdue(now),
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

type statsResponse struct {
	TotalGoals         int             `json:"totalGoals"`
	ActiveGoals        int             `json:"activeGoals"`
	CompletedGoals     int             `json:"completedGoals"`
	CancelledGoals     int             `json:"cancelledGoals"`
	TotalTargetAmount  decimal.Decimal `json:"totalTargetAmount"`
	TotalCurrentAmount decimal.Decimal `json:"totalCurrentAmount"`
	OverallProgress    int             `json:"overallProgress"`
}
