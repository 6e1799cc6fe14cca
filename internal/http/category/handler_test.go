package category_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/finsight/internal/auth"
	"github.com/MrJamesThe3rd/finsight/internal/categorize"
	"github.com/MrJamesThe3rd/finsight/internal/http/category"
)

func setup(t *testing.T) (*categorize.MockRepository, chi.Router, uuid.UUID) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := categorize.NewMockRepository(ctrl)
	userID := uuid.New()

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	})
	router.Route("/categories", category.NewHandler(categorize.NewService(repo)).Routes)

	return repo, router, userID
}

func serve(router chi.Router, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestSuggest(t *testing.T) {
	repo, router, userID := setup(t)

	repo.EXPECT().FindCategory(gomock.Any(), userID, "UBER *TRIP").Return("Transport", nil)
	repo.EXPECT().FindCategory(gomock.Any(), userID, "unknown").Return("", nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/categories/suggest?description=UBER+%2ATRIP", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"category":"Transport"}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/categories/suggest?description=unknown", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"category":null}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/categories/suggest", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLearn(t *testing.T) {
	repo, router, userID := setup(t)

	repo.EXPECT().
		SaveRule(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rule *categorize.Rule) error {
			assert.Equal(t, userID, rule.UserID)
			assert.Equal(t, "uber", rule.Pattern)
			rule.ID = uuid.New()
			return nil
		})

	req := httptest.NewRequest(http.MethodPost, "/categories/rules", strings.NewReader(`{"pattern":" uber ","category":"Transport"}`))
	req.Header.Set("Content-Type", "application/json")

	w := serve(router, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"Transport"`)

	req = httptest.NewRequest(http.MethodPost, "/categories/rules", strings.NewReader(`{"pattern":"uber"}`))
	req.Header.Set("Content-Type", "application/json")

	w = serve(router, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForget(t *testing.T) {
	repo, router, userID := setup(t)
	id := uuid.New()

	repo.EXPECT().DeleteRule(gomock.Any(), userID, id).Return(categorize.ErrNotFound)

	w := serve(router, httptest.NewRequest(http.MethodDelete, "/categories/rules/"+id.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"rule not found"}`, w.Body.String())
}

func TestListRules(t *testing.T) {
	repo, router, userID := setup(t)

	repo.EXPECT().ListRules(gomock.Any(), userID).Return([]*categorize.Rule{
		{ID: uuid.New(), UserID: userID, Pattern: "netflix", Category: "Entertainment"},
	}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/categories/rules", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "["))
	assert.Contains(t, w.Body.String(), `"pattern":"netflix"`)
}
