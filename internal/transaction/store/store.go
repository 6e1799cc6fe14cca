package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads a row in selectTransactionColumns order. The type map
// decodes the TEXT[] tags column, which database/sql cannot scan on its own.
func scanTransaction(s scanner, m *pgtype.Map) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr string

	var notes sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &typeStr, &tx.Description, &tx.Category, &tx.Date,
		&notes, m.SQLScanner(&tx.Tags),
		&tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Notes = notes.String

	if tx.Tags == nil {
		tx.Tags = []string{}
	}

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.user_id, t.amount, t.type, t.description, t.category, t.date,
	t.notes, t.tags, t.created_at, t.updated_at
`

const insertTransaction = `
	INSERT INTO transactions (user_id, amount, type, description, category, date, notes, tags)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, created_at, updated_at
`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insert(ctx context.Context, q queryRower, tx *transaction.Transaction) error {
	return q.QueryRowContext(ctx, insertTransaction,
		tx.UserID,
		tx.Amount,
		tx.Type,
		tx.Description,
		tx.Category,
		tx.Date,
		nullString(tx.Notes),
		tx.Tags,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if err := insert(ctx, s.db, tx); err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.user_id = $2`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id, userID), pgtype.NewMap())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

// filterClause builds the WHERE clause shared by the list and count queries.
func filterClause(userID uuid.UUID, f transaction.ListFilter) (string, []any) {
	var b strings.Builder

	args := []any{userID}

	b.WriteString(" WHERE t.user_id = $1")

	add := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(&b, " AND "+cond, len(args))
	}

	if f.Range.Start != nil {
		add("t.date >= $%d", *f.Range.Start)
	}

	if f.Range.End != nil {
		add("t.date <= $%d", *f.Range.End)
	}

	if f.Category != nil {
		add("t.category = $%d", *f.Category)
	}

	if f.Type != nil {
		add("t.type = $%d", *f.Type)
	}

	return b.String(), args
}

var sortColumns = map[transaction.SortField]string{
	transaction.SortDate:        "t.date",
	transaction.SortAmount:      "t.amount",
	transaction.SortCategory:    "t.category",
	transaction.SortDescription: "t.description",
	transaction.SortType:        "t.type",
	transaction.SortCreatedAt:   "t.created_at",
}

// orderClause only emits whitelisted columns, never caller text.
func orderClause(f transaction.ListFilter) string {
	col, ok := sortColumns[f.Sort]
	if !ok {
		col = "t.date"
	}

	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}

	return fmt.Sprintf(" ORDER BY %s %s, t.created_at %s, t.id", col, dir, dir)
}

func buildListQuery(userID uuid.UUID, f transaction.ListFilter) (string, string, []any) {
	where, args := filterClause(userID, f)

	count := `SELECT COUNT(*) FROM transactions t` + where

	list := `SELECT ` + selectTransactionColumns + ` FROM transactions t` + where + orderClause(f) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset())

	return list, count, args
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, int, error) {
	list, count, args := buildListQuery(userID, filter)

	var total int
	if err := s.db.QueryRowContext(ctx, count, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting transactions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, list, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()

	txs := []*transaction.Transaction{}

	for rows.Next() {
		tx, err := scanTransaction(rows, m)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, total, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $1, type = $2, description = $3, category = $4, date = $5, notes = $6, tags = $7, updated_at = NOW()
		WHERE id = $8 AND user_id = $9
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.Amount,
		tx.Type,
		tx.Description,
		tx.Category,
		tx.Date,
		nullString(tx.Notes),
		tx.Tags,
		tx.ID,
		tx.UserID,
	).Scan(&tx.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return transaction.ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func rangeClause(r transaction.DateRange, args []any) (string, []any) {
	var clause string

	if r.Start != nil {
		args = append(args, *r.Start)
		clause += fmt.Sprintf(" AND date >= $%d", len(args))
	}

	if r.End != nil {
		args = append(args, *r.End)
		clause += fmt.Sprintf(" AND date <= $%d", len(args))
	}

	return clause, args
}

func (s *Store) SumByType(ctx context.Context, userID uuid.UUID, r transaction.DateRange) ([]transaction.TypeTotal, error) {
	clause, args := rangeClause(r, []any{userID})

	query := `SELECT type, COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1` +
		clause + ` GROUP BY type`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summing by type: %w", err)
	}
	defer rows.Close()

	var totals []transaction.TypeTotal

	for rows.Next() {
		var t transaction.TypeTotal
		if err := rows.Scan(&t.Type, &t.Total); err != nil {
			return nil, fmt.Errorf("scanning type total: %w", err)
		}

		totals = append(totals, t)
	}

	return totals, rows.Err()
}

func (s *Store) SumByMonth(ctx context.Context, userID uuid.UUID, year int) ([]transaction.MonthTypeTotal, error) {
	query := `
		SELECT EXTRACT(MONTH FROM date)::int AS month, type, SUM(amount)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		GROUP BY 1, 2
		ORDER BY 1
	`

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	rows, err := s.db.QueryContext(ctx, query, userID, start, start.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("summing by month: %w", err)
	}
	defer rows.Close()

	var out []transaction.MonthTypeTotal

	for rows.Next() {
		var m transaction.MonthTypeTotal
		if err := rows.Scan(&m.Month, &m.Type, &m.Total); err != nil {
			return nil, fmt.Errorf("scanning month total: %w", err)
		}

		out = append(out, m)
	}

	return out, rows.Err()
}

func (s *Store) SumByCategory(ctx context.Context, userID uuid.UUID, filter transaction.CategoryFilter) ([]transaction.CategoryTotal, error) {
	clause, args := rangeClause(filter.Range, []any{userID})

	if filter.Type != nil {
		args = append(args, *filter.Type)
		clause += fmt.Sprintf(" AND type = $%d", len(args))
	}

	query := `SELECT category, SUM(amount), COUNT(*) FROM transactions WHERE user_id = $1` +
		clause + ` GROUP BY category ORDER BY 2 DESC, category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summing by category: %w", err)
	}
	defer rows.Close()

	out := []transaction.CategoryTotal{}

	for rows.Next() {
		var c transaction.CategoryTotal
		if err := rows.Scan(&c.Category, &c.Total, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning category total: %w", err)
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

// SumExpenses totals the user's expenses in category with start <= date < end.
func (s *Store) SumExpenses(ctx context.Context, userID uuid.UUID, category string, start, end time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND type = 'expense' AND category = $2 AND date >= $3 AND date < $4
	`

	var total decimal.Decimal
	if err := s.db.QueryRowContext(ctx, query, userID, category, start, end).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("summing expenses: %w", err)
	}

	return total, nil
}

func importLockKey(userID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("transactions.import"))
	h.Write(userID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport opens a store transaction holding an advisory lock for userID,
// so overlapping imports by one user run one after the other.
func (s *Store) BeginImport(ctx context.Context, userID uuid.UUID) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(userID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

type lookupKey struct {
	Date        string
	Amount      string
	Type        transaction.Type
	Description string
}

func keyFor(date time.Time, amount decimal.Decimal, typ transaction.Type, desc string) lookupKey {
	return lookupKey{
		Date:        date.Format(time.DateOnly),
		Amount:      amount.StringFixed(2),
		Type:        typ,
		Description: strings.ToLower(strings.TrimSpace(desc)),
	}
}

func (itx *importTx) FindDuplicates(ctx context.Context, userID uuid.UUID, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	minDate := transaction.Day(params[0].Date)
	maxDate := minDate
	keySet := make(map[lookupKey]struct{}, len(params))

	for _, p := range params {
		d := transaction.Day(p.Date)
		if d.Before(minDate) {
			minDate = d
		}

		if d.After(maxDate) {
			maxDate = d
		}

		keySet[keyFor(d, p.Amount, p.Type, p.Description)] = struct{}{}
	}

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.user_id = $1 AND t.date >= $2 AND t.date <= $3
		ORDER BY t.date ASC`

	rows, err := itx.tx.QueryContext(ctx, query, userID, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()

	var duplicates []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows, m)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		if _, found := keySet[keyFor(tx.Date, tx.Amount, tx.Type, tx.Description)]; !found {
			continue
		}

		duplicates = append(duplicates, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		if err := insert(ctx, itx.tx, tx); err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}
