package budget_test

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
	"github.com/MrJamesThe3rd/finsight/internal/budget"
	httpbudget "github.com/MrJamesThe3rd/finsight/internal/http/budget"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

type fixture struct {
	repo   *budget.MockRepository
	spent  *budget.MockSpentCalculator
	router chi.Router
	userID uuid.UUID
}

func setup(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		repo:   budget.NewMockRepository(ctrl),
		spent:  budget.NewMockSpentCalculator(ctrl),
		userID: uuid.New(),
	}

	h := httpbudget.NewHandler(budget.NewService(f.repo, f.spent))

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), f.userID)))
		})
	})
	router.Route("/budgets", h.Routes)
	f.router = router

	return f
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

func sampleBudget(userID uuid.UUID) *budget.Budget {
	return &budget.Budget{
		ID:             uuid.New(),
		UserID:         userID,
		Category:       "Food",
		Amount:         decimal.NewFromInt(300),
		Period:         budget.PeriodMonthly,
		StartDate:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		IsActive:       true,
		AlertThreshold: 80,
	}
}

func TestCreate(t *testing.T) {
	f := setup(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	f.repo.EXPECT().
		CreateBudget(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, b *budget.Budget) error {
			assert.Equal(t, budget.PeriodMonthly, b.Period)
			assert.Equal(t, budget.DefaultAlertThreshold, b.AlertThreshold)
			assert.Equal(t, start, b.StartDate)
			b.ID = uuid.New()
			return nil
		})
	f.spent.EXPECT().
		SumExpenses(gomock.Any(), f.userID, "Food", start, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)).
		Return(decimal.NewFromInt(250), nil)

	w := f.do(http.MethodPost, "/budgets", `{"category":"Food","amount":300,"startDate":"2025-03-01"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(250), body["spent"])
	assert.Equal(t, float64(50), body["remaining"])
	assert.Equal(t, float64(83), body["percentageSpent"])
	assert.Equal(t, true, body["alert"])
	assert.Equal(t, false, body["exceeded"])
	assert.Nil(t, body["endDate"])
}

func TestCreate_Invalid(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/budgets", `{"amount":0,"period":"daily","alertThreshold":150}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	for _, field := range []string{"category", "amount", "period", "alertThreshold"} {
		assert.Contains(t, w.Body.String(), `"field":"`+field+`"`)
	}
}

func TestGet_Exceeded(t *testing.T) {
	f := setup(t)
	b := sampleBudget(f.userID)

	f.repo.EXPECT().GetBudget(gomock.Any(), f.userID, b.ID).Return(b, nil)
	f.spent.EXPECT().SumExpenses(gomock.Any(), f.userID, "Food", gomock.Any(), gomock.Any()).Return(decimal.NewFromInt(360), nil)

	w := f.do(http.MethodGet, "/budgets/"+b.ID.String(), "")

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(-60), body["remaining"])
	assert.Equal(t, float64(120), body["percentageSpent"])
	assert.Equal(t, true, body["exceeded"])
}

func TestGet_NotFound(t *testing.T) {
	f := setup(t)
	id := uuid.New()

	f.repo.EXPECT().GetBudget(gomock.Any(), f.userID, id).Return(nil, budget.ErrNotFound)

	w := f.do(http.MethodGet, "/budgets/"+id.String(), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"budget not found"}`, w.Body.String())
}

func TestList(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().
		ListBudgets(gomock.Any(), f.userID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, filter budget.ListFilter) ([]*budget.Budget, error) {
			require.NotNil(t, filter.IsActive)
			assert.True(t, *filter.IsActive)
			require.NotNil(t, filter.Period)
			assert.Equal(t, budget.PeriodMonthly, *filter.Period)
			return []*budget.Budget{sampleBudget(f.userID), sampleBudget(f.userID)}, nil
		})
	f.spent.EXPECT().SumExpenses(gomock.Any(), f.userID, "Food", gomock.Any(), gomock.Any()).Return(decimal.Zero, nil).Times(2)

	w := f.do(http.MethodGet, "/budgets?isActive=true&period=monthly", "")

	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body, 2)

	for _, q := range []string{"isActive=maybe", "period=daily"} {
		w = f.do(http.MethodGet, "/budgets?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	b := sampleBudget(f.userID)

	f.repo.EXPECT().GetBudget(gomock.Any(), f.userID, b.ID).Return(b, nil)
	f.repo.EXPECT().UpdateBudget(gomock.Any(), b).Return(nil)
	f.spent.EXPECT().
		SumExpenses(gomock.Any(), f.userID, "Food", b.StartDate, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)).
		Return(decimal.Zero, nil)

	w := f.do(http.MethodPut, "/budgets/"+b.ID.String(), `{"period":"weekly","isActive":false}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, b.IsActive)
	assert.Equal(t, budget.PeriodWeekly, b.Period)
}

func TestUpdate_ClearEndDate(t *testing.T) {
	f := setup(t)
	b := sampleBudget(f.userID)
	end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	b.EndDate = &end

	f.repo.EXPECT().GetBudget(gomock.Any(), f.userID, b.ID).Return(b, nil)
	f.repo.EXPECT().UpdateBudget(gomock.Any(), b).Return(nil)
	f.spent.EXPECT().
		SumExpenses(gomock.Any(), f.userID, "Food", b.StartDate, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)).
		Return(decimal.Zero, nil)

	w := f.do(http.MethodPut, "/budgets/"+b.ID.String(), `{"clearEndDate":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, b.EndDate)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body["endDate"])
}

func TestDelete(t *testing.T) {
	f := setup(t)
	id := uuid.New()

	f.repo.EXPECT().DeleteBudget(gomock.Any(), f.userID, id).Return(budget.ErrNotFound)

	w := f.do(http.MethodDelete, "/budgets/"+id.String(), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
