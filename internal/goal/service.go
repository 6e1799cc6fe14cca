package goal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=goal
type Repository interface {
	CreateGoal(ctx context.Context, g *Goal) error
	GetGoal(ctx context.Context, userID, id uuid.UUID) (*Goal, error)
	ListGoals(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Goal, error)
	UpdateGoal(ctx context.Context, g *Goal) error
	DeleteGoal(ctx context.Context, userID, id uuid.UUID) error
}

type ListFilter struct {
	Status   *Status
	Category *string
	Priority *Priority
}

type CreateParams struct {
	Name          string
	Description   string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	TargetDate    time.Time
	Category      string
	Priority      Priority
}

// UpdateParams holds a partial update; nil fields keep their stored value.
type UpdateParams struct {
	Name          *string
	Description   *string
	TargetAmount  *decimal.Decimal
	CurrentAmount *decimal.Decimal
	TargetDate    *time.Time
	Category      *string
	Priority      *Priority
	Status        *Status
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) today() time.Time {
	return day(s.now())
}

var minTarget = decimal.RequireFromString("0.01")

func savedAmountProblem(d decimal.Decimal) string {
	if d.IsNegative() {
		return "must be greater than or equal to 0"
	}

	return validate.Money(d)
}

func check(g *Goal) error {
	var fields []validate.FieldError

	if strings.TrimSpace(g.Name) == "" {
		fields = append(fields, validate.FieldError{Field: "name", Message: "is required"})
	}

	switch {
	case g.TargetAmount.LessThan(minTarget):
		fields = append(fields, validate.FieldError{Field: "targetAmount", Message: "must be at least 0.01"})
	case validate.Money(g.TargetAmount) != "":
		fields = append(fields, validate.FieldError{Field: "targetAmount", Message: validate.Money(g.TargetAmount)})
	}

	if msg := savedAmountProblem(g.CurrentAmount); msg != "" {
		fields = append(fields, validate.FieldError{Field: "currentAmount", Message: msg})
	}

	if !g.Priority.Valid() {
		fields = append(fields, validate.FieldError{Field: "priority", Message: "must be one of: low, medium, high"})
	}

	if !g.Status.Valid() {
		fields = append(fields, validate.FieldError{Field: "status", Message: "must be one of: active, completed, cancelled"})
	}

	if len(fields) > 0 {
		return &validate.Error{Fields: fields}
	}

	return nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Goal, error) {
	g := &Goal{
		UserID:        userID,
		Name:          strings.TrimSpace(params.Name),
		Description:   params.Description,
		TargetAmount:  params.TargetAmount,
		CurrentAmount: params.CurrentAmount,
		TargetDate:    day(params.TargetDate),
		Category:      strings.TrimSpace(params.Category),
		Priority:      params.Priority,
		Status:        StatusActive,
	}

	if g.Category == "" {
		g.Category = DefaultCategory
	}

	if g.Priority == "" {
		g.Priority = PriorityMedium
	}

	if err := check(g); err != nil {
		return nil, err
	}

	if !g.TargetDate.After(s.today()) {
		return nil, ErrTargetDatePast
	}

	if err := s.repo.CreateGoal(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Goal, error) {
	return s.repo.GetGoal(ctx, userID, id)
}

// List returns the user's goals ordered by target date.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Goal, error) {
	return s.repo.ListGoals(ctx, userID, filter)
}

// Update writes the given fields as is. Unlike UpdateProgress it never
// changes the status on its own.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*Goal, error) {
	g, err := s.repo.GetGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		g.Name = strings.TrimSpace(*params.Name)
	}

	if params.Description != nil {
		g.Description = *params.Description
	}

	if params.TargetAmount != nil {
		g.TargetAmount = *params.TargetAmount
	}

	if params.CurrentAmount != nil {
		g.CurrentAmount = *params.CurrentAmount
	}

	if params.Category != nil {
		g.Category = strings.TrimSpace(*params.Category)
	}

	if params.Priority != nil {
		g.Priority = *params.Priority
	}

	if params.Status != nil {
		g.Status = *params.Status
	}

	if err := check(g); err != nil {
		return nil, err
	}

	if params.TargetDate != nil {
		target := day(*params.TargetDate)
		if !target.After(s.today()) {
			return nil, ErrTargetDatePast
		}

		g.TargetDate = target
	}

	if err := s.repo.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

// UpdateProgress sets the saved amount. An active goal whose amount reaches
// the target becomes completed; other statuses are left alone.
func (s *Service) UpdateProgress(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal) (*Goal, error) {
	if msg := savedAmountProblem(amount); msg != "" {
		return nil, validate.Field("amount", msg)
	}

	g, err := s.repo.GetGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	g.CurrentAmount = amount

	if g.Status == StatusActive && g.Reached() {
		g.Status = StatusCompleted
	}

	if err := s.repo.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteGoal(ctx, userID, id)
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	goals, err := s.repo.ListGoals(ctx, userID, ListFilter{})
	if err != nil {
		return Stats{}, err
	}

	return BuildStats(goals), nil
}
