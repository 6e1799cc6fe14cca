package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/finsight/internal/goal"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order matches selectGoalColumns.
func scanGoal(s scanner) (*goal.Goal, error) {
	var g goal.Goal

	var priority, status string

	var description sql.NullString

	if err := s.Scan(
		&g.ID, &g.UserID, &g.Name, &description, &g.TargetAmount, &g.CurrentAmount,
		&g.TargetDate, &g.Category, &priority, &status, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}

	g.Description = description.String
	g.Priority = goal.Priority(priority)
	g.Status = goal.Status(status)

	return &g, nil
}

const selectGoalColumns = `
	id, user_id, name, description, target_amount, current_amount,
	target_date, category, priority, status, created_at, updated_at
`

func (s *Store) CreateGoal(ctx context.Context, g *goal.Goal) error {
	query := `
		INSERT INTO goals (user_id, name, description, target_amount, current_amount, target_date, category, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		g.UserID,
		g.Name,
		sql.NullString{String: g.Description, Valid: g.Description != ""},
		g.TargetAmount,
		g.CurrentAmount,
		g.TargetDate,
		g.Category,
		g.Priority,
		g.Status,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}

	return nil
}

func (s *Store) GetGoal(ctx context.Context, userID, id uuid.UUID) (*goal.Goal, error) {
	query := `SELECT ` + selectGoalColumns + ` FROM goals WHERE id = $1 AND user_id = $2`

	g, err := scanGoal(s.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goal.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting goal: %w", err)
	}

	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, userID uuid.UUID, filter goal.ListFilter) ([]*goal.Goal, error) {
	query := `SELECT ` + selectGoalColumns + ` FROM goals WHERE user_id = $1`

	args := []any{userID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}

	query += " ORDER BY target_date ASC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	defer rows.Close()

	goals := []*goal.Goal{}

	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}

		goals = append(goals, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating goals: %w", err)
	}

	return goals, nil
}

func (s *Store) UpdateGoal(ctx context.Context, g *goal.Goal) error {
	query := `
		UPDATE goals
		SET name = $1, description = $2, target_amount = $3, current_amount = $4, target_date = $5,
		    category = $6, priority = $7, status = $8, updated_at = NOW()
		WHERE id = $9 AND user_id = $10
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		g.Name,
		sql.NullString{String: g.Description, Valid: g.Description != ""},
		g.TargetAmount,
		g.CurrentAmount,
		g.TargetDate,
		g.Category,
		g.Priority,
		g.Status,
		g.ID,
		g.UserID,
	).Scan(&g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return goal.ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("updating goal: %w", err)
	}

	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting goal: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting goal: %w", err)
	}

	if n == 0 {
		return goal.ErrNotFound
	}

	return nil
}
