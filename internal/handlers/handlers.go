package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/dashboard"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/navigation"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/render"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/session"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	"github.com/go-chi/chi/v5"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	service  *dashboard.Service
	sessions *dashboard.Sessions
	renderer *render.Renderer
}

// NewHandler creates a new handler with dependencies
func NewHandler(service *dashboard.Service, sessions *dashboard.Sessions, renderer *render.Renderer) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		renderer: renderer,
	}
}

// RegisterRoutes mounts the dashboard endpoints on r
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/", h.GetDashboardPage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/weeks/current", h.GetCurrentWeek)
		r.Get("/weeks/{week}/summary", h.GetWeekSummary)
		r.Get("/performance", h.GetPerformance)
		r.Get("/dashboard", h.GetDashboard)

		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/navigate", h.NavigateSession)
	})
}

// HealthCheck returns the health status of the service and its source
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.CheckHealth(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "prophet source unhealthy", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "prophet-dashboard",
	})
}

// GetCurrentWeek returns the current week and season length
func (h *Handler) GetCurrentWeek(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	info, err := h.service.CurrentWeek(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to retrieve current week", err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// GetWeekSummary returns the cards and cohort summary of one week
func (h *Handler) GetWeekSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	week, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil || week < 1 {
		respondError(w, http.StatusBadRequest, "week must be a positive integer", nil)
		return
	}

	totalWeeks, ok := h.totalWeeks(ctx, week)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("week %d is out of range", week), nil)
		return
	}

	view, err := h.service.Weekly(ctx, week, totalWeeks)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to retrieve recommendations", err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// GetPerformance returns the all-time summary and bankroll
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	view, err := h.service.AllTime(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to retrieve performance", err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// GetDashboard returns both sections. Query params: week (default current)
// Section failures are reported inside the body, not as an error status.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	week, totalWeeks, status, err := h.resolveWeek(ctx, r)
	if err != nil {
		respondError(w, status, err.Error(), nil)
		return
	}

	respondJSON(w, http.StatusOK, h.service.Dashboard(ctx, week, totalWeeks))
}

// GetDashboardPage renders the HTML dashboard. Query params: week (default current)
func (h *Handler) GetDashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	week, totalWeeks, status, err := h.resolveWeek(ctx, r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	view := h.service.Dashboard(ctx, week, totalWeeks)
	state := navigation.NewViewState("", week, totalWeeks)
	for neighbour, count := range h.service.Neighbours(ctx, week, totalWeeks) {
		state.MarkAvailable(neighbour, count)
	}

	var buf bytes.Buffer
	err = h.renderer.Dashboard(&buf, render.DashboardPage{
		View:    view,
		HasPrev: state.HasPrev(),
		HasNext: state.HasNext(),
	})
	if err != nil {
		fmt.Printf("error rendering dashboard: %v\n", err)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// CreateSession starts a navigation session on the current week
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	view, err := h.sessions.Create(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to create session", err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

// GetSession returns a session's view state
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.sessions.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve session", err)
		return
	}
	if view == nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// NavigateRequest is the body of POST /api/v1/sessions/{id}/navigate
type NavigateRequest struct {
	Direction int `json:"direction"`
}

// NavigateSession moves a session one week back (-1) or forward (+1)
func (h *Handler) NavigateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	view, err := h.sessions.Navigate(ctx, chi.URLParam(r, "id"), req.Direction)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, view)
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session not found", nil)
	case errors.Is(err, navigation.ErrInvalidDirection):
		respondError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, dashboard.ErrSuperseded):
		respondError(w, http.StatusConflict, "superseded", nil)
	default:
		respondError(w, http.StatusInternalServerError, "failed to navigate", err)
	}
}

// resolveWeek reads the optional week query param, defaulting to the
// current week. Returns the HTTP status to use on error.
func (h *Handler) resolveWeek(ctx context.Context, r *http.Request) (week, totalWeeks, status int, err error) {
	if raw := r.URL.Query().Get("week"); raw != "" {
		week, err = strconv.Atoi(raw)
		if err != nil || week < 1 {
			return 0, 0, http.StatusBadRequest, errors.New("week must be a positive integer")
		}
		totalWeeks, ok := h.totalWeeks(ctx, week)
		if !ok {
			return 0, 0, http.StatusNotFound, fmt.Errorf("week %d is out of range", week)
		}
		return week, totalWeeks, http.StatusOK, nil
	}

	info, err := h.service.CurrentWeek(ctx)
	if err != nil {
		fmt.Printf("error: failed to retrieve current week - %v\n", err)
		return 0, 0, http.StatusBadGateway, errors.New("failed to retrieve current week")
	}
	return info.CurrentWeek, info.TotalWeeks, http.StatusOK, nil
}

// totalWeeks returns the season length for a requested week. When the
// current week is unavailable the requested week is trusted.
func (h *Handler) totalWeeks(ctx context.Context, week int) (int, bool) {
	info, err := h.service.CurrentWeek(ctx)
	if err != nil {
		return week, true
	}
	if week > info.TotalWeeks {
		return 0, false
	}
	return info.TotalWeeks, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("error encoding response: %v\n", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := models.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}

	if err != nil {
		fmt.Printf("error: %s - %v\n", message, err)
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		fmt.Printf("error encoding error response: %v\n", err)
	}
}
