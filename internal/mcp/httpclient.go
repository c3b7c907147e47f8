package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/nextrep/internal/analytics"
	"github.com/claude/nextrep/internal/models"
	"github.com/claude/nextrep/internal/pipeline"
)

// HTTPClient implements DataSource by calling the NextRep REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// get fetches path and decodes the JSON body into v. A 404 wraps
// models.ErrNotFound.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, models.ErrNotFound)
	default:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Plans(ctx context.Context) ([]models.Workout, error) {
	var plans []models.Workout
	if err := c.get(ctx, "/api/v1/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *HTTPClient) Streak(ctx context.Context) (int, error) {
	var resp struct {
		Streak int `json:"streak"`
	}
	if err := c.get(ctx, "/api/v1/streak", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Streak, nil
}

func (c *HTTPClient) Cards(ctx context.Context) ([]analytics.ProgressCard, error) {
	var cards []analytics.ProgressCard
	if err := c.get(ctx, "/api/v1/progress/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *HTTPClient) Weekly(ctx context.Context) ([]analytics.ChartPoint, error) {
	var points []analytics.ChartPoint
	if err := c.get(ctx, "/api/v1/progress/weekly", nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *HTTPClient) Today(ctx context.Context) (*models.Workout, error) {
	var plan models.Workout
	err := c.get(ctx, "/api/v1/today", nil, &plan)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *HTTPClient) Summary(ctx context.Context, workoutID string) (*pipeline.Session, error) {
	var s pipeline.Session
	if err := c.get(ctx, "/api/v1/workouts/"+url.PathEscape(workoutID)+"/summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) BestVolume(ctx context.Context, exercise string, start, end time.Time) (float64, error) {
	params := url.Values{}
	params.Set("exercise", exercise)
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))

	var resp struct {
		BestVolume float64 `json:"best_volume"`
	}
	if err := c.get(ctx, "/api/v1/progress/best", params, &resp); err != nil {
		return 0, err
	}
	return resp.BestVolume, nil
}
