package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/finsight/internal/categorize"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindCategory matches patterns as plain substrings, so '%' and '_' in a
// pattern carry no wildcard meaning.
func (s *Store) FindCategory(ctx context.Context, userID uuid.UUID, description string) (string, error) {
	query := `
		SELECT category
		FROM category_rules
		WHERE user_id = $1 AND POSITION(LOWER(pattern) IN LOWER($2)) > 0
		ORDER BY LENGTH(pattern) DESC, created_at DESC
		LIMIT 1
	`

	var category string

	err := s.db.QueryRowContext(ctx, query, userID, description).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("finding category: %w", err)
	}

	return category, nil
}

func (s *Store) SaveRule(ctx context.Context, rule *categorize.Rule) error {
	query := `
		INSERT INTO category_rules (user_id, pattern, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, LOWER(pattern)) DO UPDATE SET category = EXCLUDED.category
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, rule.UserID, rule.Pattern, rule.Category).
		Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}

	return nil
}

func (s *Store) ListRules(ctx context.Context, userID uuid.UUID) ([]*categorize.Rule, error) {
	query := `
		SELECT id, user_id, pattern, category, created_at
		FROM category_rules
		WHERE user_id = $1
		ORDER BY pattern ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	rules := []*categorize.Rule{}

	for rows.Next() {
		var r categorize.Rule
		if err := rows.Scan(&r.ID, &r.UserID, &r.Pattern, &r.Category, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}

		rules = append(rules, &r)
	}

	return rules, rows.Err()
}

func (s *Store) DeleteRule(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	if n == 0 {
		return categorize.ErrNotFound
	}

	return nil
}
