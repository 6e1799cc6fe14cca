package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
	ListTransactions(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, int, error)

	SumByType(ctx context.Context, userID uuid.UUID, r DateRange) ([]TypeTotal, error)
	SumByMonth(ctx context.Context, userID uuid.UUID, year int) ([]MonthTypeTotal, error)
	SumByCategory(ctx context.Context, userID uuid.UUID, filter CategoryFilter) ([]CategoryTotal, error)

	BeginImport(ctx context.Context, userID uuid.UUID) (ImportTx, error)
}

// ImportTx is a store transaction holding the caller's import lock.
type ImportTx interface {
	FindDuplicates(ctx context.Context, userID uuid.UUID, params []CreateParams) ([]*Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SortField string

const (
	SortDate        SortField = "date"
	SortAmount      SortField = "amount"
	SortCategory    SortField = "category"
	SortDescription SortField = "description"
	SortType        SortField = "type"
	SortCreatedAt   SortField = "createdAt"
)

func (f SortField) Valid() bool {
	switch f {
	case SortDate, SortAmount, SortCategory, SortDescription, SortType, SortCreatedAt:
		return true
	}

	return false
}

type ListFilter struct {
	Page     int
	Limit    int
	Range    DateRange
	Category *string
	Type     *Type
	Sort     SortField
	Desc     bool
}

// normalize fills defaults. Sort defaults to date descending.
func (f ListFilter) normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}

	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}

	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}

	if !f.Sort.Valid() {
		f.Sort = SortDate
		f.Desc = true
	}

	return f
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type Page struct {
	Transactions []*Transaction
	TotalCount   int
	TotalPages   int
	CurrentPage  int
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) newTransaction(userID uuid.UUID, p CreateParams) *Transaction {
	date := p.Date
	if date.IsZero() {
		date = s.now()
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return &Transaction{
		UserID:      userID,
		Amount:      p.Amount,
		Type:        p.Type,
		Description: strings.TrimSpace(p.Description),
		Category:    strings.TrimSpace(p.Category),
		Date:        Day(date),
		Notes:       p.Notes,
		Tags:        tags,
	}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tx := s.newTransaction(userID, params)
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) (*Page, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}

	filter = filter.normalize()

	txs, total, err := s.repo.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	return &Page{
		Transactions: txs,
		TotalCount:   total,
		TotalPages:   (total + filter.Limit - 1) / filter.Limit,
		CurrentPage:  filter.Page,
	}, nil
}

// Update applies params to the caller's transaction and stores the result.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	params.apply(tx)
	tx.Date = Day(tx.Date)

	check := CreateParams{Amount: tx.Amount, Type: tx.Type, Description: tx.Description, Category: tx.Category}
	if err := check.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, userID, id)
}

func (s *Service) Summary(ctx context.Context, userID uuid.UUID, r DateRange) (Summary, error) {
	if err := r.Validate(); err != nil {
		return Summary{}, err
	}

	totals, err := s.repo.SumByType(ctx, userID, r)
	if err != nil {
		return Summary{}, err
	}

	return BuildSummary(totals), nil
}

func (s *Service) MonthlyTrend(ctx context.Context, userID uuid.UUID, year int) ([]MonthlyTotal, error) {
	if year < 1900 || year > 9999 {
		return nil, ErrInvalidYear
	}

	rows, err := s.repo.SumByMonth(ctx, userID, year)
	if err != nil {
		return nil, err
	}

	return BuildMonthlyTrend(rows), nil
}

// CategoryBreakdown returns per-category totals, largest first.
func (s *Service) CategoryBreakdown(ctx context.Context, userID uuid.UUID, filter CategoryFilter) ([]CategoryTotal, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}

	return s.repo.SumByCategory(ctx, userID, filter)
}

type ImportResult struct {
	Imported  []*Transaction
	New       []CreateParams
	Conflicts []Conflict
}

type Conflict struct {
	Incoming CreateParams
	Existing *Transaction
}

type dupKey struct {
	Date        string
	Amount      string
	Type        Type
	Description string
}

func keyOf(date time.Time, amount decimal.Decimal, typ Type, desc string) dupKey {
	return dupKey{
		Date:        date.Format(time.DateOnly),
		Amount:      amount.StringFixed(2),
		Type:        typ,
		Description: strings.ToLower(strings.TrimSpace(desc)),
	}
}

// ImportBatch stores params unless any of them matches an existing
// transaction of the user on date, amount, type and description. On a match
// nothing is written and the result lists the conflicts.
func (s *Service) ImportBatch(ctx context.Context, userID uuid.UUID, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	if err := validateBatch(params); err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	lookup := make(map[dupKey]*Transaction, len(duplicates))
	for _, d := range duplicates {
		lookup[keyOf(d.Date, d.Amount, d.Type, d.Description)] = d
	}

	var newParams []CreateParams

	var conflicts []Conflict

	for _, p := range params {
		existing, found := lookup[keyOf(Day(p.Date), p.Amount, p.Type, p.Description)]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	txs := s.paramsToTransactions(userID, newParams)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return &ImportResult{Imported: txs}, nil
}

// CreateBatch stores all params in one store transaction without duplicate
// checks.
func (s *Service) CreateBatch(ctx context.Context, userID uuid.UUID, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	if err := validateBatch(params); err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	txs := s.paramsToTransactions(userID, params)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return txs, nil
}

func validateBatch(params []CreateParams) error {
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return prefixFields(err, fmt.Sprintf("transactions[%d].", i))
		}
	}

	return nil
}

func (s *Service) paramsToTransactions(userID uuid.UUID, params []CreateParams) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = s.newTransaction(userID, p)
	}

	return txs
}

// All returns every transaction in r, oldest first, by walking the pages.
func (s *Service) All(ctx context.Context, userID uuid.UUID, r DateRange) ([]*Transaction, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	filter := ListFilter{Page: 1, Limit: MaxPageSize, Range: r, Sort: SortDate}

	var all []*Transaction

	for {
		txs, total, err := s.repo.ListTransactions(ctx, userID, filter)
		if err != nil {
			return nil, err
		}

		all = append(all, txs...)

		if len(txs) < filter.Limit || len(all) >= total {
			return all, nil
		}

		filter.Page++
	}
}
