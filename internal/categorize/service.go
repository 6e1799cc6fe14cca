// Package categorize suggests a category for a transaction description from
// rules the user has taught it.
package categorize

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

var ErrNotFound = errors.New("rule not found")

// Rule maps descriptions containing Pattern (case-insensitive) to Category.
type Rule struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Pattern   string
	Category  string
	CreatedAt time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=categorize
type Repository interface {
	FindCategory(ctx context.Context, userID uuid.UUID, description string) (string, error)
	SaveRule(ctx context.Context, rule *Rule) error
	ListRules(ctx context.Context, userID uuid.UUID) ([]*Rule, error)
	DeleteRule(ctx context.Context, userID, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the category of the longest matching pattern, or "" when no
// rule matches.
func (s *Service) Suggest(ctx context.Context, userID uuid.UUID, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", nil
	}

	return s.repo.FindCategory(ctx, userID, description)
}

// Learn stores a rule. Teaching the same pattern again replaces its category.
func (s *Service) Learn(ctx context.Context, userID uuid.UUID, pattern, category string) (*Rule, error) {
	rule := &Rule{
		UserID:   userID,
		Pattern:  strings.TrimSpace(pattern),
		Category: strings.TrimSpace(category),
	}

	var fields []validate.FieldError

	if rule.Pattern == "" {
		fields = append(fields, validate.FieldError{Field: "pattern", Message: "is required"})
	}

	if rule.Category == "" {
		fields = append(fields, validate.FieldError{Field: "category", Message: "is required"})
	}

	if len(fields) > 0 {
		return nil, &validate.Error{Fields: fields}
	}

	if err := s.repo.SaveRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func (s *Service) Rules(ctx context.Context, userID uuid.UUID) ([]*Rule, error) {
	return s.repo.ListRules(ctx, userID)
}

func (s *Service) Forget(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteRule(ctx, userID, id)
}
