package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/retry"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
)

// ErrMalformedResponse is returned when the Prophet API answers with a body
// that cannot be decoded
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx answer from the Prophet API
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prophet api error (status %d) on %s: %s", e.StatusCode, e.Path, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
// Only server-side failures qualify.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// IsRetryable classifies fetch errors: transport failures and 5xx answers
// are retried, client errors and undecodable bodies are not
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// ProphetClient handles HTTP communication with the Prophet analytics API
type ProphetClient struct {
	baseURL    string
	httpClient *http.Client
	retry      *retry.Policy
}

// NewProphetClient creates a new Prophet client. A nil policy makes a single attempt.
func NewProphetClient(baseURL string, httpClient *http.Client, policy *retry.Policy) *ProphetClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	if policy == nil {
		policy = retry.NewPolicy(1, 0, IsRetryable)
	}
	return &ProphetClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		retry:      policy,
	}
}

// CurrentWeek fetches the current NFL week and the season length
func (c *ProphetClient) CurrentWeek(ctx context.Context) (*models.WeekInfo, error) {
	var info models.WeekInfo
	if err := c.getJSON(ctx, "/api/nfl-week/current", &info); err != nil {
		return nil, fmt.Errorf("failed to get current week: %w", err)
	}
	return &info, nil
}

// Week fetches the date range of a week. Returns nil, nil if the week is unknown.
func (c *ProphetClient) Week(ctx context.Context, week int) (*models.WeekInfo, error) {
	var info models.WeekInfo
	err := c.getJSON(ctx, fmt.Sprintf("/api/nfl-week/%d", week), &info)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get week %d: %w", week, err)
	}
	if info.WeekNumber == 0 {
		info.WeekNumber = week
	}
	return &info, nil
}

// Recommendations fetches every recommendation made for a week. A week the
// API does not know yields an empty list.
func (c *ProphetClient) Recommendations(ctx context.Context, week int) ([]models.Recommendation, error) {
	var resp models.RecommendationsResponse
	err := c.getJSON(ctx, fmt.Sprintf("/api/recommendations/week/%d", week), &resp)
	if isNotFound(err) {
		return []models.Recommendation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations for week %d: %w", week, err)
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []models.Recommendation{}
	}
	return resp.Recommendations, nil
}

// Performance fetches the server-side all-time performance snapshot
func (c *ProphetClient) Performance(ctx context.Context) (*models.PerformanceSnapshot, error) {
	var snapshot models.PerformanceSnapshot
	if err := c.getJSON(ctx, "/api/analytics/performance", &snapshot); err != nil {
		return nil, fmt.Errorf("failed to get performance: %w", err)
	}
	return &snapshot, nil
}

// CheckHealth reports whether the Prophet API answers at all
func (c *ProphetClient) CheckHealth(ctx context.Context) error {
	_, err := c.CurrentWeek(ctx)
	return err
}

func (c *ProphetClient) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.doGet(ctx, path, out)
	})
}

func (c *ProphetClient) doGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[ProphetClient] GET %s failed: %v", path, err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[ProphetClient] GET %s returned status %d", path, resp.StatusCode)
		return &APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       truncate(string(body), 200),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
