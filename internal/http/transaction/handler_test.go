package transaction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/finsight/internal/auth"
	"github.com/MrJamesThe3rd/finsight/internal/transaction"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

type fixture struct {
	repo   *transaction.MockRepository
	ctrl   *gomock.Controller
	router chi.Router
	userID uuid.UUID
}

func setup(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := transaction.NewMockRepository(ctrl)
	userID := uuid.New()

	h := NewHandler(transaction.NewService(repo))
	h.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	})
	router.Route("/transactions", h.Routes)

	return &fixture{repo: repo, ctrl: ctrl, router: router, userID: userID}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body
}

func TestHandler_Create(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().
		CreateTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
			assert.Equal(t, f.userID, tx.UserID)
			assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), tx.Date)
			tx.CreatedAt = time.Now()
			return nil
		})

	w := f.do(http.MethodPost, "/transactions",
		`{"amount":12.5,"type":"expense","description":"Lunch","category":"Food","date":"2025-03-04","tags":["work"]}`)

	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, 12.5, body["amount"])
	assert.Equal(t, "2025-03-04", body["date"])
	assert.Equal(t, []any{"work"}, body["tags"])
}

func TestHandler_Create_Validation(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/transactions", `{"amount":0,"type":"gift","category":"Food"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, "validation failed", body["error"])

	fields := map[string]bool{}
	for _, fe := range body["fields"].([]any) {
		fields[fe.(map[string]any)["field"].(string)] = true
	}

	assert.True(t, fields["amount"])
	assert.True(t, fields["type"])
	assert.True(t, fields["description"])
}

func TestHandler_Create_WrongContentType(t *testing.T) {
	f := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader("amount=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestHandler_Get(t *testing.T) {
	f := setup(t)
	id := uuid.New()

	f.repo.EXPECT().GetTransaction(gomock.Any(), f.userID, id).Return(nil, transaction.ErrNotFound)

	w := f.do(http.MethodGet, "/transactions/"+id.String(), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "transaction not found", decode(t, w)["error"])

	w = f.do(http.MethodGet, "/transactions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_List(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().
		ListTransactions(gomock.Any(), f.userID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, int, error) {
			assert.Equal(t, 2, filter.Page)
			assert.Equal(t, 5, filter.Limit)
			assert.Equal(t, transaction.SortAmount, filter.Sort)
			assert.False(t, filter.Desc)
			require.NotNil(t, filter.Type)
			assert.Equal(t, transaction.TypeExpense, *filter.Type)
			require.NotNil(t, filter.Range.Start)
			assert.Nil(t, filter.Range.End)

			return []*transaction.Transaction{{ID: uuid.New(), Amount: decimal.NewFromInt(3)}}, 11, nil
		})

	w := f.do(http.MethodGet, "/transactions?page=2&limit=5&sort=amount&order=asc&type=Expense&startDate=2025-01-01", "")

	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(11), body["totalCount"])
	assert.Equal(t, float64(3), body["totalPages"])
	assert.Equal(t, float64(2), body["currentPage"])
	assert.Len(t, body["transactions"], 1)
}

func TestHandler_List_BadQuery(t *testing.T) {
	f := setup(t)

	for _, q := range []string{"sort=password", "order=sideways", "page=x", "startDate=nope", "type=gift"} {
		w := f.do(http.MethodGet, "/transactions?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestHandler_Summary(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().SumByType(gomock.Any(), f.userID, gomock.Any()).Return([]transaction.TypeTotal{
		{Type: transaction.TypeIncome, Total: decimal.RequireFromString("100.50")},
		{Type: transaction.TypeExpense, Total: decimal.RequireFromString("40.25")},
	}, nil)

	w := f.do(http.MethodGet, "/transactions/summary", "")

	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, 100.5, body["totalIncome"])
	assert.Equal(t, 40.25, body["totalExpenses"])
	assert.Equal(t, 60.25, body["balance"])
}

func TestHandler_Summary_InvalidRange(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/transactions/summary?startDate=2025-02-01&endDate=2025-01-01", "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed", decode(t, w)["error"])
}

func TestHandler_Monthly(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().SumByMonth(gomock.Any(), f.userID, 2025).Return([]transaction.MonthTypeTotal{
		{Month: 3, Type: transaction.TypeIncome, Total: decimal.NewFromInt(10)},
	}, nil)

	w := f.do(http.MethodGet, "/transactions/monthly", "")

	require.Equal(t, http.StatusOK, w.Code)

	var months []monthlyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &months))
	require.Len(t, months, 12)
	assert.Equal(t, 3, months[2].Month)
	assert.True(t, months[2].Balance.Equal(decimal.NewFromInt(10)))

	w = f.do(http.MethodGet, "/transactions/monthly?year=10000", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Categories(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().
		SumByCategory(gomock.Any(), f.userID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, filter transaction.CategoryFilter) ([]transaction.CategoryTotal, error) {
			require.NotNil(t, filter.Type)
			assert.Equal(t, transaction.TypeExpense, *filter.Type)
			return []transaction.CategoryTotal{{Category: "Food", Total: decimal.NewFromInt(30), Count: 2}}, nil
		})

	w := f.do(http.MethodGet, "/transactions/categories?type=expense", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"category":"Food","total":30,"count":2}]`, w.Body.String())
}

func TestHandler_ImportJSON(t *testing.T) {
	f := setup(t)

	itx := transaction.NewMockImportTx(f.ctrl)

	f.repo.EXPECT().BeginImport(gomock.Any(), f.userID).Return(itx, nil)
	itx.EXPECT().
		CreateTransactions(gomock.Any(), gomock.Len(2)).
		Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil).AnyTimes()

	w := f.do(http.MethodPost, "/transactions/import", `{"transactions":[
		{"amount":1,"type":"income","description":"a","category":"x","date":"2025-01-01"},
		{"amount":2,"type":"expense","description":"b","category":"y","date":"2025-01-02"}
	]}`)

	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(2), body["imported"])
	assert.Equal(t, "2 transactions imported", body["message"])
}

func TestHandler_ImportJSON_RowValidation(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/transactions/import", `{"transactions":[
		{"amount":1,"type":"income","description":"a","category":"x"},
		{"amount":2,"type":"transfer","description":"b","category":"y"}
	]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)

	fields := decode(t, w)["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "transactions[1].type", fields[0].(map[string]any)["field"])
}

func TestHandler_Delete(t *testing.T) {
	f := setup(t)
	id := uuid.New()

	f.repo.EXPECT().DeleteTransaction(gomock.Any(), f.userID, id).Return(nil)

	w := f.do(http.MethodDelete, "/transactions/"+id.String(), "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_Update(t *testing.T) {
	f := setup(t)
	id := uuid.New()

	existing := &transaction.Transaction{
		ID:          id,
		UserID:      f.userID,
		Amount:      decimal.NewFromInt(5),
		Type:        transaction.TypeExpense,
		Description: "Coffee",
		Category:    "Food",
		Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	f.repo.EXPECT().GetTransaction(gomock.Any(), f.userID, id).Return(existing, nil)
	f.repo.EXPECT().
		UpdateTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
			assert.Equal(t, "Drinks", tx.Category)
			assert.Equal(t, "Coffee", tx.Description)
			return nil
		})

	w := f.do(http.MethodPut, "/transactions/"+id.String(), `{"category":"Drinks"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Drinks", decode(t, w)["category"])
}
