package transaction_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/finsight/internal/transaction"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

// memRepo is an in-memory Repository keyed by owner, used to exercise the
// service end to end without a database.
type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*transaction.Transaction
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]*transaction.Transaction)}
}

func inRange(d time.Time, r transaction.DateRange) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}

	return r.End == nil || !d.After(*r.End)
}

func (m *memRepo) owned(userID uuid.UUID) []*transaction.Transaction {
	var out []*transaction.Transaction

	for _, tx := range m.rows {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}

	return out
}

func (m *memRepo) CreateTransaction(_ context.Context, tx *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx.ID = uuid.New()
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt

	stored := *tx
	m.rows[tx.ID] = &stored

	return nil
}

func (m *memRepo) GetTransaction(_ context.Context, userID, id uuid.UUID) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.rows[id]
	if !ok || tx.UserID != userID {
		return nil, transaction.ErrNotFound
	}

	cp := *tx

	return &cp, nil
}

func (m *memRepo) UpdateTransaction(_ context.Context, tx *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.rows[tx.ID]
	if !ok || cur.UserID != tx.UserID {
		return transaction.ErrNotFound
	}

	stored := *tx
	m.rows[tx.ID] = &stored

	return nil
}

func (m *memRepo) DeleteTransaction(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.rows[id]
	if !ok || tx.UserID != userID {
		return transaction.ErrNotFound
	}

	delete(m.rows, id)

	return nil
}

func (m *memRepo) ListTransactions(_ context.Context, userID uuid.UUID, f transaction.ListFilter) ([]*transaction.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*transaction.Transaction

	for _, tx := range m.owned(userID) {
		if inRange(tx.Date, f.Range) {
			out = append(out, tx)
		}
	}

	return out, len(out), nil
}

func (m *memRepo) SumByType(_ context.Context, userID uuid.UUID, r transaction.DateRange) ([]transaction.TypeTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sums := map[transaction.Type]transaction.TypeTotal{}

	for _, tx := range m.owned(userID) {
		if !inRange(tx.Date, r) {
			continue
		}

		cur := sums[tx.Type]
		cur.Type = tx.Type
		cur.Total = cur.Total.Add(tx.Amount)
		sums[tx.Type] = cur
	}

	var out []transaction.TypeTotal
	for _, v := range sums {
		out = append(out, v)
	}

	return out, nil
}

func (m *memRepo) SumByMonth(_ context.Context, userID uuid.UUID, year int) ([]transaction.MonthTypeTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []transaction.MonthTypeTotal

	for _, tx := range m.owned(userID) {
		if tx.Date.Year() != year {
			continue
		}

		out = append(out, transaction.MonthTypeTotal{Month: int(tx.Date.Month()), Type: tx.Type, Total: tx.Amount})
	}

	return out, nil
}

func (m *memRepo) SumByCategory(_ context.Context, userID uuid.UUID, f transaction.CategoryFilter) ([]transaction.CategoryTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := map[string]int{}

	var out []transaction.CategoryTotal

	for _, tx := range m.owned(userID) {
		if !inRange(tx.Date, f.Range) || (f.Type != nil && tx.Type != *f.Type) {
			continue
		}

		i, ok := idx[tx.Category]
		if !ok {
			i = len(out)
			idx[tx.Category] = i
			out = append(out, transaction.CategoryTotal{Category: tx.Category})
		}

		out[i].Total = out[i].Total.Add(tx.Amount)
		out[i].Count++
	}

	return out, nil
}

func (m *memRepo) BeginImport(_ context.Context, _ uuid.UUID) (transaction.ImportTx, error) {
	return &memImport{repo: m}, nil
}

type memImport struct {
	repo    *memRepo
	pending []*transaction.Transaction
}

func (i *memImport) FindDuplicates(context.Context, uuid.UUID, []transaction.CreateParams) ([]*transaction.Transaction, error) {
	return nil, nil
}

func (i *memImport) CreateTransactions(_ context.Context, txs []*transaction.Transaction) error {
	i.pending = append(i.pending, txs...)
	return nil
}

func (i *memImport) Commit() error {
	for _, tx := range i.pending {
		if err := i.repo.CreateTransaction(context.Background(), tx); err != nil {
			return err
		}
	}

	i.pending = nil

	return nil
}

func (i *memImport) Rollback() error {
	i.pending = nil
	return nil
}

func TestService_UserIsolation(t *testing.T) {
	ctx := context.Background()
	svc := transaction.NewService(newMemRepo())

	alice, bob := uuid.New(), uuid.New()
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, owner := range []uuid.UUID{alice, bob} {
		_, err := svc.Create(ctx, owner, transaction.CreateParams{
			Amount: dec("100.00"), Type: transaction.TypeExpense, Description: "Rent share", Category: "Housing", Date: date,
		})
		require.NoError(t, err)
	}

	aliceOnly, err := svc.Create(ctx, alice, transaction.CreateParams{
		Amount: dec("900.00"), Type: transaction.TypeIncome, Description: "Salary", Category: "Salary", Date: date,
	})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, bob, transaction.DateRange{})
	require.NoError(t, err)
	assert.True(t, summary.TotalIncome.IsZero())
	assert.True(t, summary.TotalExpenses.Equal(dec("100")))

	trend, err := svc.MonthlyTrend(ctx, bob, 2024)
	require.NoError(t, err)
	require.Len(t, trend, 12)
	assert.True(t, trend[2].Income.IsZero())
	assert.True(t, trend[2].Expense.Equal(dec("100")))

	page, err := svc.List(ctx, bob, transaction.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)

	for _, tx := range page.Transactions {
		assert.Equal(t, bob, tx.UserID)
	}

	_, err = svc.Get(ctx, bob, aliceOnly.ID)
	assert.ErrorIs(t, err, transaction.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, bob, aliceOnly.ID), transaction.ErrNotFound)
}

func TestService_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	svc := transaction.NewService(newMemRepo())
	userID := uuid.New()

	created, err := svc.Create(ctx, userID, transaction.CreateParams{
		Amount:      dec("42.42"),
		Type:        transaction.TypeExpense,
		Description: "Books",
		Category:    "Education",
		Date:        time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
		Notes:       "used",
		Tags:        []string{"uni"},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

// A sub-cent amount would be stored rounded, so Get would disagree with Create.
func TestService_CreateThenGet_SubCentNotStored(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	userID := uuid.New()

	_, err := transaction.NewService(repo).Create(ctx, userID, transaction.CreateParams{
		Amount:      dec("12.345"),
		Type:        transaction.TypeExpense,
		Description: "Lunch",
		Category:    "Food",
		Date:        time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
	})

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []validate.FieldError{{Field: "amount", Message: "must have at most 2 decimal places"}}, verr.Fields)
	assert.Empty(t, repo.owned(userID))
}

func TestService_ImportThreeRows(t *testing.T) {
	ctx := context.Background()
	svc := transaction.NewService(newMemRepo())
	userID := uuid.New()
	date := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	params := []transaction.CreateParams{
		{Amount: dec("5"), Type: transaction.TypeExpense, Description: "A", Category: "Misc", Date: date},
		{Amount: dec("6"), Type: transaction.TypeExpense, Description: "B", Category: "Misc", Date: date},
		{Amount: dec("7"), Type: transaction.TypeIncome, Description: "C", Category: "Misc", Date: date},
	}

	_, err := svc.CreateBatch(ctx, userID, params)
	require.NoError(t, err)

	page, err := svc.List(ctx, userID, transaction.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalCount)

	for _, tx := range page.Transactions {
		assert.Equal(t, userID, tx.UserID)
	}

	other, err := svc.List(ctx, uuid.New(), transaction.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, other.TotalCount)
}
