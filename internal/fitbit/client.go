// Package fitbit fetches intraday heart-rate data from the Fitbit Web API.
package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"heartrate-go/internal/metrics"
	"heartrate-go/pkg/models"
)

const (
	// DefaultBaseURL is the production Web API host.
	DefaultBaseURL = "https://api.fitbit.com"
	// DateLayout is the date format used in API paths.
	DateLayout = "2006-01-02"

	maxResponseBytes = 32 << 20
	maxErrorBody     = 512
)

// ErrFetch marks a failed or unparseable heart-rate request.
var ErrFetch = errors.New("fetch error")

// Client calls the heart-rate endpoint with an authenticated HTTP client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	detailLevel string
	logger      *slog.Logger
}

// NewClient creates a new Client. httpClient must attach the bearer token,
// see auth.OAuthManager.HTTPClient. An empty baseURL means DefaultBaseURL;
// an empty detailLevel uses the API's default resolution.
func NewClient(httpClient *http.Client, baseURL, detailLevel string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		detailLevel: detailLevel,
		logger:      logger,
	}
}

// URL returns the request URL for date.
func (c *Client) URL(date time.Time) string {
	p := "/1/user/-/activities/heart/date/" + date.Format(DateLayout) + "/1d"
	if c.detailLevel != "" {
		p += "/" + url.PathEscape(c.detailLevel)
	}
	return c.baseURL + p + ".json"
}

// FetchRaw returns the undecoded response body for date. A 2xx response
// whose body is not JSON is an ErrFetch.
func (c *Client) FetchRaw(ctx context.Context, date time.Time) ([]byte, error) {
	reqURL := c.URL(date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrFetch, err)
	}

	if remaining := resp.Header.Get("Fitbit-Rate-Limit-Remaining"); remaining != "" {
		c.logger.DebugContext(ctx, "rate limit", "remaining", remaining,
			"reset_seconds", resp.Header.Get("Fitbit-Rate-Limit-Reset"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrFetch, req.URL.Path, resp.StatusCode, truncate(body, maxErrorBody))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s returned a body that is not JSON: %s", ErrFetch, req.URL.Path, truncate(body, maxErrorBody))
	}

	c.logger.InfoContext(ctx, "fetched heart rate", "date", date.Format(DateLayout), "bytes", len(body))
	return body, nil
}

// Fetch returns the parsed intraday readings for date.
func (c *Client) Fetch(ctx context.Context, date time.Time) ([]models.HeartRateReading, error) {
	body, err := c.FetchRaw(ctx, date)
	if err != nil {
		return nil, err
	}
	return ParseIntraday(body)
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
