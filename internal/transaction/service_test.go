package transaction_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/finsight/internal/transaction"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

func TestService_Create(t *testing.T) {
	userID := uuid.New()

	type args struct {
		params transaction.CreateParams
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantErr   bool
		wantField string
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{
				params: transaction.CreateParams{
					Amount:      dec("10.00"),
					Type:        transaction.TypeExpense,
					Description: " Groceries ",
					Category:    "Food",
					Date:        time.Date(2023, 10, 27, 15, 30, 0, 0, time.UTC),
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, userID, tx.UserID)
						assert.Equal(t, "Groceries", tx.Description)
						assert.Equal(t, time.Date(2023, 10, 27, 0, 0, 0, 0, time.UTC), tx.Date)
						assert.NotNil(t, tx.Tags)
						tx.ID = uuid.New()
						tx.CreatedAt = time.Now()
						return nil
					})
			},
		},
		{
			name: "DefaultsDateToToday",
			args: args{
				params: transaction.CreateParams{
					Amount:      dec("1"),
					Type:        transaction.TypeIncome,
					Description: "Tip",
					Category:    "Other",
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, transaction.Day(time.Now()), tx.Date)
						tx.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name: "ZeroAmount",
			args: args{
				params: transaction.CreateParams{
					Amount:      decimal.Zero,
					Type:        transaction.TypeExpense,
					Description: "Nothing",
					Category:    "Other",
				},
			},
			wantErr:   true,
			wantField: "amount",
		},
		{
			name: "SubCentAmount",
			args: args{
				params: transaction.CreateParams{
					Amount:      dec("12.345"),
					Type:        transaction.TypeExpense,
					Description: "Coffee",
					Category:    "Food",
				},
			},
			wantErr:   true,
			wantField: "amount",
		},
		{
			name: "AmountRoundsToZero",
			args: args{
				params: transaction.CreateParams{
					Amount:      dec("0.004"),
					Type:        transaction.TypeExpense,
					Description: "Fee",
					Category:    "Bank",
				},
			},
			wantErr:   true,
			wantField: "amount",
		},
		{
			name: "DescriptionTooLong",
			args: args{
				params: transaction.CreateParams{
					Amount:      dec("5"),
					Type:        transaction.TypeExpense,
					Description: strings.Repeat("x", transaction.MaxDescriptionLen+1),
					Category:    "Food",
				},
			},
			wantErr:   true,
			wantField: "description",
		},
		{
			name: "RepoError",
			args: args{
				params: transaction.CreateParams{
					Amount:      dec("5"),
					Type:        transaction.TypeExpense,
					Description: "Coffee",
					Category:    "Food",
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo)
			got, err := svc.Create(context.Background(), userID, tt.args.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				if tt.wantField != "" {
					var verr *validate.Error
					require.ErrorAs(t, err, &verr)
					assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				}

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, got)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_List(t *testing.T) {
	userID := uuid.New()
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	type args struct {
		filter transaction.ListFilter
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantPages int
		wantPage  int
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Defaults",
			args: args{filter: transaction.ListFilter{}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), userID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ uuid.UUID, f transaction.ListFilter) ([]*transaction.Transaction, int, error) {
						assert.Equal(t, 1, f.Page)
						assert.Equal(t, transaction.DefaultPageSize, f.Limit)
						assert.Equal(t, transaction.SortDate, f.Sort)
						assert.True(t, f.Desc)
						return []*transaction.Transaction{{ID: uuid.New()}, {ID: uuid.New()}}, 41, nil
					})
			},
			wantPages: 3,
			wantPage:  1,
		},
		{
			name: "LimitCapped",
			args: args{filter: transaction.ListFilter{Page: 2, Limit: 500, Sort: transaction.SortAmount}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), userID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ uuid.UUID, f transaction.ListFilter) ([]*transaction.Transaction, int, error) {
						assert.Equal(t, transaction.MaxPageSize, f.Limit)
						assert.Equal(t, 100, f.Offset())
						assert.False(t, f.Desc)
						return nil, 0, nil
					})
			},
			wantPages: 0,
			wantPage:  2,
		},
		{
			name:    "InvalidRange",
			args:    args{filter: transaction.ListFilter{Range: transaction.DateRange{Start: &start, End: &end}}},
			wantErr: transaction.ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo)
			got, err := svc.List(context.Background(), userID, tt.args.filter)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, got.TotalPages)
			assert.Equal(t, tt.wantPage, got.CurrentPage)
		})
	}
}

func TestService_Update(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()

	t.Run("Partial", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := transaction.NewMockRepository(ctrl)

		existing := &transaction.Transaction{
			ID:          id,
			UserID:      userID,
			Amount:      dec("12.00"),
			Type:        transaction.TypeExpense,
			Description: "Lunch",
			Category:    "Food",
			Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		}

		newAmount := dec("15.50")

		repo.EXPECT().GetTransaction(gomock.Any(), userID, id).Return(existing, nil)
		repo.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil)

		got, err := transaction.NewService(repo).Update(context.Background(), userID, id, transaction.UpdateParams{Amount: &newAmount})
		require.NoError(t, err)

		assert.True(t, got.Amount.Equal(newAmount))
		assert.Equal(t, "Lunch", got.Description)
		assert.Equal(t, "Food", got.Category)
	})

	t.Run("NotOwned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := transaction.NewMockRepository(ctrl)

		repo.EXPECT().GetTransaction(gomock.Any(), userID, id).Return(nil, transaction.ErrNotFound)

		_, err := transaction.NewService(repo).Update(context.Background(), userID, id, transaction.UpdateParams{})
		assert.ErrorIs(t, err, transaction.ErrNotFound)
	})

	t.Run("InvalidType", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := transaction.NewMockRepository(ctrl)

		repo.EXPECT().GetTransaction(gomock.Any(), userID, id).Return(&transaction.Transaction{
			ID: id, UserID: userID, Amount: dec("1"), Type: transaction.TypeIncome, Description: "x", Category: "y",
		}, nil)

		bad := transaction.Type("transfer")

		_, err := transaction.NewService(repo).Update(context.Background(), userID, id, transaction.UpdateParams{Type: &bad})

		var verr *validate.Error
		assert.ErrorAs(t, err, &verr)
	})
}

func TestService_Summary(t *testing.T) {
	userID := uuid.New()

	ctrl := gomock.NewController(t)
	repo := transaction.NewMockRepository(ctrl)

	repo.EXPECT().SumByType(gomock.Any(), userID, transaction.DateRange{}).Return([]transaction.TypeTotal{
		{Type: transaction.TypeIncome, Total: dec("200")},
	}, nil)

	got, err := transaction.NewService(repo).Summary(context.Background(), userID, transaction.DateRange{})
	require.NoError(t, err)

	assert.True(t, got.TotalIncome.Equal(dec("200")))
	assert.True(t, got.TotalExpenses.IsZero())
	assert.True(t, got.Balance.Equal(dec("200")))
}

func TestService_MonthlyTrend(t *testing.T) {
	userID := uuid.New()

	type testCase struct {
		name      string
		year      int
		setupMock func(m *transaction.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "ZeroFilled",
			year: 2024,
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().SumByMonth(gomock.Any(), userID, 2024).Return([]transaction.MonthTypeTotal{
					{Month: 3, Type: transaction.TypeIncome, Total: dec("10")},
				}, nil)
			},
		},
		{
			name:    "YearTooSmall",
			year:    1899,
			wantErr: transaction.ErrInvalidYear,
		},
		{
			name:    "YearTooLarge",
			year:    10000,
			wantErr: transaction.ErrInvalidYear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := transaction.NewMockRepository(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := transaction.NewService(repo).MonthlyTrend(context.Background(), userID, tt.year)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got, 12)
		})
	}
}

func TestService_ImportBatch_NoConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo)

	userID := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []transaction.CreateParams{
		{
			Amount:      dec("10.00"),
			Type:        transaction.TypeExpense,
			Description: "Coffee",
			Category:    "Food",
			Date:        date,
		},
	}

	repo.EXPECT().BeginImport(gomock.Any(), userID).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), userID, params).Return(nil, nil)
	itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), userID, params)
	require.NoError(t, err)
	assert.Len(t, result.Imported, 1)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_ImportBatch_WithConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo)

	userID := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []transaction.CreateParams{
		{
			Amount:      dec("10.00"),
			Type:        transaction.TypeExpense,
			Description: "Coffee",
			Category:    "Food",
			Date:        date,
		},
		{
			Amount:      dec("20.00"),
			Type:        transaction.TypeExpense,
			Description: "Lunch",
			Category:    "Food",
			Date:        date,
		},
	}

	existing := &transaction.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      dec("10"),
		Type:        transaction.TypeExpense,
		Description: "coffee",
		Date:        date,
	}

	repo.EXPECT().BeginImport(gomock.Any(), userID).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), userID, params).Return([]*transaction.Transaction{existing}, nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), userID, params)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Len(t, result.New, 1)
	assert.Len(t, result.Conflicts, 1)
	assert.Equal(t, params[0], result.Conflicts[0].Incoming)
	assert.Equal(t, existing, result.Conflicts[0].Existing)
}

func TestService_ImportBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	result, err := svc.ImportBatch(context.Background(), uuid.New(), []transaction.CreateParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_ImportBatch_InvalidRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	params := []transaction.CreateParams{
		{Amount: dec("1"), Type: transaction.TypeIncome, Description: "ok", Category: "x"},
		{Amount: dec("-3"), Type: transaction.TypeIncome, Description: "bad", Category: "x"},
	}

	_, err := svc.ImportBatch(context.Background(), uuid.New(), params)

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "transactions[1].amount", verr.Fields[0].Field)
}

func TestService_ImportBatch_RowLimits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Rejected before BeginImport, so the mock expects no calls.
	svc := transaction.NewService(transaction.NewMockRepository(ctrl))

	params := []transaction.CreateParams{
		{Amount: dec("1"), Type: transaction.TypeIncome, Description: "ok", Category: "x"},
		{Amount: dec("2"), Type: transaction.TypeIncome, Description: strings.Repeat("é", 256), Category: "x"},
		{Amount: dec("0.001"), Type: transaction.TypeExpense, Description: "fee", Category: "x"},
	}

	_, err := svc.ImportBatch(context.Background(), uuid.New(), params)

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "transactions[1].description", verr.Fields[0].Field)
	assert.Equal(t, "must be at most 255 characters", verr.Fields[0].Message)
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo)

	userID := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []transaction.CreateParams{
		{Amount: dec("10.00"), Type: transaction.TypeExpense, Description: "Coffee", Category: "Food", Date: date},
		{Amount: dec("2500.00"), Type: transaction.TypeIncome, Description: "Salary", Category: "Salary", Date: date},
		{Amount: dec("60.25"), Type: transaction.TypeExpense, Description: "Fuel", Category: "Transport", Date: date},
	}

	repo.EXPECT().BeginImport(gomock.Any(), userID).Return(itx, nil)
	itx.EXPECT().
		CreateTransactions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, txs []*transaction.Transaction) error {
			assert.Len(t, txs, 3)
			return nil
		})
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	txs, err := svc.CreateBatch(context.Background(), userID, params)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	for _, tx := range txs {
		assert.Equal(t, userID, tx.UserID)
	}

	assert.True(t, txs[0].Amount.Equal(dec("10")))
	assert.Equal(t, transaction.TypeIncome, txs[1].Type)
}
