// Package analytics talks to the wallet analytics provider: profiled perp
// positions, leaderboards and per-token screeners. Every successful call
// spends API credits, tracked by UsageTracker.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider endpoints.
const (
	EndpointLeaderboard     = "/api/v1/perp-leaderboard"
	EndpointWalletPositions = "/api/v1/profiler/perp-positions"
	EndpointTokenPositions  = "/api/v1/tgm/perp-positions"
	EndpointTokenScreener   = "/api/v1/tgm/perp-screener"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.nansen.ai"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Sentinel errors.
var (
	ErrNoAPIKey     = errors.New("analytics: api key not configured")
	ErrUnauthorized = errors.New("analytics: unauthorized")
)

// Client is the analytics provider interface.
type Client interface {
	WalletPositions(ctx context.Context, address string) (*WalletPositions, error)
	Leaderboard(ctx context.Context, q LeaderboardQuery) ([]LeaderboardEntry, error)
	TokenPositions(ctx context.Context, q TokenPositionsQuery) ([]TokenPosition, error)
	MarketScreener(ctx context.Context, q ScreenerQuery) ([]ScreenerRow, error)
}

// HTTPClient implements Client over the provider's JSON POST API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	tracker     *UsageTracker
}

var _ Client = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL overrides the provider base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = url
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithUsageTracker attaches a credit tracker.
func WithUsageTracker(t *UsageTracker) ClientOption {
	return func(c *HTTPClient) {
		c.tracker = t
	}
}

// NewHTTPClient creates a provider client. An empty API key is allowed at
// construction; calls will fail with ErrNoAPIKey.
func NewHTTPClient(apiKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		tracker:     NewUsageTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Usage exposes the attached credit tracker.
func (c *HTTPClient) Usage() *UsageTracker {
	return c.tracker
}

// envelope is the provider response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// post performs one provider call with retries and exponential backoff.
// Auth failures are terminal; 429 and 5xx are retried.
func (c *HTTPClient) post(ctx context.Context, endpoint string, payload interface{}, result interface{}) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("apiKey", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "*/*")

		start := time.Now()
		resp, err := c.client.Do(req)
		elapsed := time.Since(start)
		if err != nil {
			c.tracker.LogCall(endpoint, false, elapsed)
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.tracker.LogCall(endpoint, false, elapsed)
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			// handled below
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			c.tracker.LogCall(endpoint, false, elapsed)
			return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests:
			c.tracker.LogCall(endpoint, false, elapsed)
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		default:
			c.tracker.LogCall(endpoint, false, elapsed)
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var env envelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			c.tracker.LogCall(endpoint, false, elapsed)
			return fmt.Errorf("unmarshal response: %w", err)
		}

		c.tracker.LogCall(endpoint, true, elapsed)

		if result != nil && env.Data != nil {
			if err := json.Unmarshal(env.Data, result); err != nil {
				return fmt.Errorf("unmarshal data: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// WalletPositions retrieves perp positions for one wallet. Cost: 1 credit.
func (c *HTTPClient) WalletPositions(ctx context.Context, address string) (*WalletPositions, error) {
	payload := map[string]interface{}{
		"address": address,
		"order_by": []map[string]string{
			{"field": "position_value_usd", "direction": "DESC"},
		},
	}

	var result WalletPositions
	if err := c.post(ctx, EndpointWalletPositions, payload, &result); err != nil {
		return nil, err
	}
	if result.Address == "" {
		result.Address = address
	}
	return &result, nil
}

// Leaderboard retrieves the top perp traders. Cost: 5 credits.
func (c *HTTPClient) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]LeaderboardEntry, error) {
	if q.DateTo == "" {
		q.DateTo = time.Now().Format("2006-01-02")
	}
	if q.DateFrom == "" {
		q.DateFrom = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	if q.MinAccountValue <= 0 {
		q.MinAccountValue = 1_000_000
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 50
	}

	payload := map[string]interface{}{
		"date":       map[string]string{"from": q.DateFrom, "to": q.DateTo},
		"pagination": map[string]int{"page": q.Page, "per_page": q.PerPage},
		"filters": map[string]interface{}{
			"account_value": map[string]float64{"min": q.MinAccountValue},
		},
		"order_by": []map[string]string{
			{"field": "total_pnl", "direction": "DESC"},
		},
	}

	var result []LeaderboardEntry
	if err := c.post(ctx, EndpointLeaderboard, payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// MarketScreener retrieves per-token aggregates across all tracked traders,
// largest combined exposure first. Cost: 1 credit.
func (c *HTTPClient) MarketScreener(ctx context.Context, q ScreenerQuery) ([]ScreenerRow, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 50
	}

	payload := map[string]interface{}{
		"pagination": map[string]int{"page": q.Page, "per_page": q.PerPage},
		"order_by": []map[string]string{
			{"field": "total_notional", "direction": "DESC"},
		},
	}
	if q.MinTotalNotional > 0 {
		payload["filters"] = map[string]interface{}{
			"total_notional": map[string]float64{"min": q.MinTotalNotional},
		}
	}

	var result []ScreenerRow
	if err := c.post(ctx, EndpointTokenScreener, payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// TokenPositions retrieves open positions for one token, optionally filtered
// by side. Cost: 5 credits.
func (c *HTTPClient) TokenPositions(ctx context.Context, q TokenPositionsQuery) ([]TokenPosition, error) {
	if q.LabelType == "" {
		q.LabelType = "all_traders"
	}
	if q.MinPositionValue <= 0 {
		q.MinPositionValue = 10_000
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 50
	}

	filters := map[string]interface{}{
		"position_value_usd": map[string]float64{"min": q.MinPositionValue},
	}
	if q.Side != "" {
		filters["side"] = []string{q.Side}
	}

	payload := map[string]interface{}{
		"token_symbol": q.TokenSymbol,
		"label_type":   q.LabelType,
		"pagination":   map[string]int{"page": q.Page, "per_page": q.PerPage},
		"filters":      filters,
		"order_by": []map[string]string{
			{"field": "position_value_usd", "direction": "DESC"},
		},
	}

	var result []TokenPosition
	if err := c.post(ctx, EndpointTokenPositions, payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}
