package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=budget
type Repository interface {
	CreateBudget(ctx context.Context, b *Budget) error
	GetBudget(ctx context.Context, userID, id uuid.UUID) (*Budget, error)
	ListBudgets(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Budget, error)
	UpdateBudget(ctx context.Context, b *Budget) error
	DeleteBudget(ctx context.Context, userID, id uuid.UUID) error
}

// SpentCalculator sums a user's expenses in category with start <= date < end.
type SpentCalculator interface {
	SumExpenses(ctx context.Context, userID uuid.UUID, category string, start, end time.Time) (decimal.Decimal, error)
}

type ListFilter struct {
	Period   *Period
	Category *string
	IsActive *bool
}

type CreateParams struct {
	Category       string
	Amount         decimal.Decimal
	Period         Period
	StartDate      *time.Time
	EndDate        *time.Time
	AlertThreshold *int
}

// UpdateParams holds a partial update; nil fields keep their stored value.
// ClearEndDate drops the stored end date so the window falls back to one
// period after the start.
type UpdateParams struct {
	Category       *string
	Amount         *decimal.Decimal
	Period         *Period
	StartDate      *time.Time
	EndDate        *time.Time
	ClearEndDate   bool
	IsActive       *bool
	AlertThreshold *int
}

// spentWorkers bounds the concurrent spent queries issued by List.
const spentWorkers = 4

type Service struct {
	repo  Repository
	spent SpentCalculator
	now   func() time.Time
}

func NewService(repo Repository, spent SpentCalculator) *Service {
	return &Service{repo: repo, spent: spent, now: time.Now}
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var minAmount = decimal.RequireFromString("0.01")

func check(b *Budget) error {
	var fields []validate.FieldError

	if strings.TrimSpace(b.Category) == "" {
		fields = append(fields, validate.FieldError{Field: "category", Message: "is required"})
	}

	switch {
	case b.Amount.LessThan(minAmount):
		fields = append(fields, validate.FieldError{Field: "amount", Message: "must be at least 0.01"})
	case validate.Money(b.Amount) != "":
		fields = append(fields, validate.FieldError{Field: "amount", Message: validate.Money(b.Amount)})
	}

	if !b.Period.Valid() {
		fields = append(fields, validate.FieldError{Field: "period", Message: "must be one of: weekly, monthly, yearly"})
	}

	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		fields = append(fields, validate.FieldError{Field: "alertThreshold", Message: "must be between 0 and 100"})
	}

	if b.EndDate != nil && !b.EndDate.After(b.StartDate) {
		fields = append(fields, validate.FieldError{Field: "endDate", Message: "must be after startDate"})
	}

	if len(fields) > 0 {
		return &validate.Error{Fields: fields}
	}

	return nil
}

func (s *Service) track(ctx context.Context, b *Budget) (*Tracked, error) {
	spent, err := s.spent.SumExpenses(ctx, b.UserID, b.Category, b.StartDate, b.EffectiveEnd())
	if err != nil {
		return nil, fmt.Errorf("computing spent for budget %s: %w", b.ID, err)
	}

	return &Tracked{Budget: b, Usage: Measure(b, spent)}, nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Tracked, error) {
	b := &Budget{
		UserID:         userID,
		Category:       strings.TrimSpace(params.Category),
		Amount:         params.Amount,
		Period:         params.Period,
		StartDate:      day(s.now()),
		IsActive:       true,
		AlertThreshold: DefaultAlertThreshold,
	}

	if b.Period == "" {
		b.Period = PeriodMonthly
	}

	if params.StartDate != nil {
		b.StartDate = day(*params.StartDate)
	}

	if params.EndDate != nil {
		end := day(*params.EndDate)
		b.EndDate = &end
	}

	if params.AlertThreshold != nil {
		b.AlertThreshold = *params.AlertThreshold
	}

	if err := check(b); err != nil {
		return nil, err
	}

	if err := s.repo.CreateBudget(ctx, b); err != nil {
		return nil, err
	}

	return s.track(ctx, b)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Tracked, error) {
	b, err := s.repo.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return s.track(ctx, b)
}

// List returns the user's budgets with their usage. Spent amounts are
// computed concurrently, one store query per budget.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Tracked, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	out := make([]*Tracked, len(budgets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(spentWorkers)

	for i, b := range budgets {
		g.Go(func() error {
			t, err := s.track(gctx, b)
			if err != nil {
				return err
			}

			out[i] = t

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*Tracked, error) {
	b, err := s.repo.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if params.Category != nil {
		b.Category = strings.TrimSpace(*params.Category)
	}

	if params.Amount != nil {
		b.Amount = *params.Amount
	}

	if params.Period != nil {
		b.Period = *params.Period
	}

	if params.StartDate != nil {
		b.StartDate = day(*params.StartDate)
	}

	switch {
	case params.ClearEndDate && params.EndDate != nil:
		return nil, validate.Field("endDate", "cannot be combined with clearEndDate")
	case params.ClearEndDate:
		b.EndDate = nil
	case params.EndDate != nil:
		end := day(*params.EndDate)
		b.EndDate = &end
	}

	if params.IsActive != nil {
		b.IsActive = *params.IsActive
	}

	if params.AlertThreshold != nil {
		b.AlertThreshold = *params.AlertThreshold
	}

	if err := check(b); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return nil, err
	}

	return s.track(ctx, b)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteBudget(ctx, userID, id)
}
