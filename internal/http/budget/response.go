package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/budget"
)

type budgetResponse struct {
	ID              uuid.UUID       `json:"id"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	Period          budget.Period   `json:"period"`
	StartDate       string          `json:"startDate"`
	EndDate         *string         `json:"endDate"`
	IsActive        bool            `json:"isActive"`
	AlertThreshold  int             `json:"alertThreshold"`
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	PercentageSpent int             `json:"percentageSpent"`
	Alert           bool            `json:"alert"`
	Exceeded        bool            `json:"exceeded"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func toResponse(t *budget.Tracked) budgetResponse {
	b := t.Budget

	resp := budgetResponse{
		ID:              b.ID,
		Category:        b.Category,
		Amount:          b.Amount,
		Period:          b.Period,
		StartDate:       b.StartDate.Format(time.DateOnly),
		IsActive:        b.IsActive,
		AlertThreshold:  b.AlertThreshold,
		Spent:           t.Usage.Spent,
		Remaining:       t.Usage.Remaining,
		PercentageSpent: t.Usage.PercentageSpent,
		Alert:           t.Usage.Alert,
		Exceeded:        t.Usage.Exceeded,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}

	if b.EndDate != nil {
		resp.EndDate = new(b.EndDate.Format(time.DateOnly))
	}

	return resp
}
