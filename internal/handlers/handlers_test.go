package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/dashboard"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/render"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/session"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSource implements dashboard.Source for testing
type MockSource struct {
	CurrentWeekErr error
	RecsErr        error
	PerformanceErr error
	HealthErr      error
}

func (m *MockSource) CurrentWeek(ctx context.Context) (*models.WeekInfo, error) {
	if m.CurrentWeekErr != nil {
		return nil, m.CurrentWeekErr
	}
	return &models.WeekInfo{CurrentWeek: 5, TotalWeeks: 18}, nil
}

func (m *MockSource) Week(ctx context.Context, week int) (*models.WeekInfo, error) {
	return &models.WeekInfo{WeekNumber: week}, nil
}

func (m *MockSource) Recommendations(ctx context.Context, week int) ([]models.Recommendation, error) {
	if m.RecsErr != nil {
		return nil, m.RecsErr
	}
	odds := 150
	return []models.Recommendation{{
		ID:               int64(week),
		GameInfo:         "Bills @ Chiefs",
		BetType:          models.BetTypeMoneyline,
		Side:             models.SideHome,
		OddsAtTimeOfBet:  &odds,
		Sportsbook:       "MyBookie",
		Confidence:       0.6,
		RecommendedWager: 100,
		IsTopPick:        true,
	}}, nil
}

func (m *MockSource) Performance(ctx context.Context) (*models.PerformanceSnapshot, error) {
	if m.PerformanceErr != nil {
		return nil, m.PerformanceErr
	}
	return &models.PerformanceSnapshot{
		TotalBets:       20,
		TotalWager:      2000,
		TotalProfitLoss: 150,
		WinRate:         0.55,
	}, nil
}

func (m *MockSource) CheckHealth(ctx context.Context) error {
	return m.HealthErr
}

func newRouter(t *testing.T, source *MockSource) http.Handler {
	t.Helper()

	renderer, err := render.New()
	require.NoError(t, err)

	service := dashboard.NewService(source, 10000)
	sessions := dashboard.NewSessions(service, session.NewMemoryStore(time.Hour))

	r := chi.NewRouter()
	handlers.NewHandler(service, sessions, renderer).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, newRouter(t, &MockSource{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])

	rec = do(t, newRouter(t, &MockSource{HealthErr: errors.New("down")}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetCurrentWeek(t *testing.T) {
	rec := do(t, newRouter(t, &MockSource{}), http.MethodGet, "/api/v1/weeks/current", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info models.WeekInfo
	decode(t, rec, &info)
	assert.Equal(t, 5, info.CurrentWeek)
	assert.Equal(t, 18, info.TotalWeeks)

	rec = do(t, newRouter(t, &MockSource{CurrentWeekErr: errors.New("timeout")}), http.MethodGet, "/api/v1/weeks/current", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var errResp models.ErrorResponse
	decode(t, rec, &errResp)
	assert.Equal(t, http.StatusBadGateway, errResp.Code)
}

func TestGetWeekSummary(t *testing.T) {
	router := newRouter(t, &MockSource{})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"Valid week", "/api/v1/weeks/3/summary", http.StatusOK},
		{"Not a number", "/api/v1/weeks/abc/summary", http.StatusBadRequest},
		{"Zero", "/api/v1/weeks/0/summary", http.StatusBadRequest},
		{"Past season end", "/api/v1/weeks/19/summary", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := do(t, router, http.MethodGet, "/api/v1/weeks/3/summary", "")
	var view models.WeeklyView
	decode(t, rec, &view)
	assert.Equal(t, 3, view.Week)
	require.Len(t, view.Recommendations, 1)
	assert.Equal(t, "Chiefs to Win (+150)", view.Recommendations[0].BetDisplay)

	rec = do(t, newRouter(t, &MockSource{RecsErr: errors.New("boom")}), http.MethodGet, "/api/v1/weeks/3/summary", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetPerformance(t *testing.T) {
	rec := do(t, newRouter(t, &MockSource{}), http.MethodGet, "/api/v1/performance", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view models.AllTimeView
	decode(t, rec, &view)
	require.NotNil(t, view.Bankroll)
	assert.Equal(t, "55% (11-9)", view.Record)

	rec = do(t, newRouter(t, &MockSource{PerformanceErr: errors.New("boom")}), http.MethodGet, "/api/v1/performance", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetDashboard(t *testing.T) {
	rec := do(t, newRouter(t, &MockSource{}), http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view models.DashboardView
	decode(t, rec, &view)
	assert.Equal(t, 5, view.Weekly.Week)
	assert.Empty(t, view.AllTime.Error)

	rec = do(t, newRouter(t, &MockSource{PerformanceErr: errors.New("boom")}), http.MethodGet, "/api/v1/dashboard?week=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	view = models.DashboardView{}
	decode(t, rec, &view)
	assert.Equal(t, 2, view.Weekly.Week)
	assert.Empty(t, view.Weekly.Error)
	assert.Contains(t, view.AllTime.Error, "Failed to load performance")

	rec = do(t, newRouter(t, &MockSource{}), http.MethodGet, "/api/v1/dashboard?week=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDashboardPage(t *testing.T) {
	rec := do(t, newRouter(t, &MockSource{}), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Week 5 of 18")
	assert.Contains(t, body, `id="prevWeekBtn"`)
	assert.Contains(t, body, `id="nextWeekBtn"`)

	rec = do(t, newRouter(t, &MockSource{CurrentWeekErr: errors.New("down")}), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSessions(t *testing.T) {
	router := newRouter(t, &MockSource{})

	rec := do(t, router, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created dashboard.SessionView
	decode(t, rec, &created)
	require.NotNil(t, created.State)
	assert.Equal(t, 5, created.State.CurrentWeek)
	assert.True(t, created.HasPrev)
	assert.True(t, created.HasNext)

	id := created.State.SessionID
	require.NotEmpty(t, id)

	rec = do(t, router, http.MethodGet, "/api/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/navigate", `{"direction": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var moved dashboard.SessionView
	decode(t, rec, &moved)
	assert.Equal(t, 6, moved.State.CurrentWeek)
	assert.Greater(t, moved.Seq, created.Seq)
	require.NotNil(t, moved.Dashboard)
	assert.Equal(t, 6, moved.Dashboard.Weekly.Week)
}

func TestSessions_Errors(t *testing.T) {
	router := newRouter(t, &MockSource{})

	rec := do(t, router, http.MethodGet, "/api/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/sessions/missing/navigate", `{"direction": 1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created dashboard.SessionView
	decode(t, rec, &created)

	rec = do(t, router, http.MethodPost, "/api/v1/sessions/"+created.State.SessionID+"/navigate", `{"direction": 2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/sessions/"+created.State.SessionID+"/navigate", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newRouter(t, &MockSource{CurrentWeekErr: errors.New("down")}), http.MethodPost, "/api/v1/sessions", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
