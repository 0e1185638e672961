// Package exchange talks to the derivatives exchange info API: portfolio
// snapshots, trade fills and mid prices. All requests share one global rate
// limiter because the exchange throttles by source IP.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"whale-screener/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.hyperliquid.xyz"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 5

	infoPath = "/info"

	// fillsPageSize is the exchange's hard cap per fills request.
	fillsPageSize = 2000
)

// InfoClient queries the exchange info endpoint.
type InfoClient struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	limiter    *rateLimiter
}

// InfoOption configures InfoClient.
type InfoOption func(*InfoClient)

// WithInfoBaseURL overrides the exchange base URL.
func WithInfoBaseURL(url string) InfoOption {
	return func(c *InfoClient) {
		c.baseURL = url
	}
}

// WithInfoHTTPClient sets custom http.Client.
func WithInfoHTTPClient(client *http.Client) InfoOption {
	return func(c *InfoClient) {
		c.client = client
	}
}

// WithInfoMaxRetries sets maximum retry attempts.
func WithInfoMaxRetries(n int) InfoOption {
	return func(c *InfoClient) {
		c.maxRetries = n
	}
}

// WithRateLimit replaces the shared limiter with a private one, mainly for
// tests.
func WithRateLimit(callsPerSecond int) InfoOption {
	return func(c *InfoClient) {
		c.limiter = newRateLimiter(callsPerSecond)
	}
}

// NewInfoClient creates an exchange info client.
func NewInfoClient(opts ...InfoOption) *InfoClient {
	c := &InfoClient{
		baseURL:    DefaultBaseURL,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		limiter:    globalLimiter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post performs one rate-limited info request with retries. 429 responses
// back off exponentially; other transient failures retry after a short pause.
func (c *InfoClient) post(ctx context.Context, requestType string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+infoPath, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.client.Do(req)
		observability.RecordExchangeCall(requestType, time.Since(start).Seconds())
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			if err := sleep(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			// 2s, 3s, 5s, 9s, ...
			backoff := time.Duration(1<<attempt+1) * time.Second
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			if err := sleep(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Portfolio retrieves the perp/spot breakdown for a user over a period:
// "day", "week", "month" or "allTime". The wire format is a list of
// [periodName, data] pairs.
func (c *InfoClient) Portfolio(ctx context.Context, user, period string) (*PortfolioBreakdown, error) {
	var raw [][]json.RawMessage
	if err := c.post(ctx, "portfolio", map[string]string{"type": "portfolio", "user": user}, &raw); err != nil {
		return nil, err
	}

	periods := make(map[string]*periodData, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		var name string
		if err := json.Unmarshal(pair[0], &name); err != nil {
			continue
		}
		var data periodData
		if err := json.Unmarshal(pair[1], &data); err != nil {
			return nil, fmt.Errorf("parse period %s: %w", name, err)
		}
		periods[name] = &data
	}

	total, ok := periods[period]
	if !ok {
		return nil, fmt.Errorf("period %q not in portfolio response", period)
	}

	perpKey := "perpAllTime"
	if period != "allTime" {
		perpKey = "perp" + strings.ToUpper(period[:1]) + period[1:]
	}

	breakdown := &PortfolioBreakdown{Total: total.metrics()}
	if perp, ok := periods[perpKey]; ok {
		breakdown.Perp = perp.metrics()
	}
	breakdown.Spot = PortfolioMetrics{
		AccountValue: max(0, breakdown.Total.AccountValue-breakdown.Perp.AccountValue),
		PnL:          breakdown.Total.PnL - breakdown.Perp.PnL,
		Volume:       max(0, breakdown.Total.Volume-breakdown.Perp.Volume),
	}
	return breakdown, nil
}

// UserFills retrieves the most recent fills for a user, newest first.
func (c *InfoClient) UserFills(ctx context.Context, user string, limit int) ([]TradeFill, error) {
	var raw []rawFill
	if err := c.post(ctx, "userFills", map[string]string{"type": "userFills", "user": user}, &raw); err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(raw) {
		raw = raw[:limit]
	}
	return convertFills(raw), nil
}

// UserFillsByTime retrieves fills within [start, end]. A zero end means now.
func (c *InfoClient) UserFillsByTime(ctx context.Context, user string, start, end time.Time) ([]TradeFill, error) {
	payload := map[string]interface{}{
		"type":      "userFillsByTime",
		"user":      user,
		"startTime": start.UnixMilli(),
	}
	if !end.IsZero() {
		payload["endTime"] = end.UnixMilli()
	}

	var raw []rawFill
	if err := c.post(ctx, "userFillsByTime", payload, &raw); err != nil {
		return nil, err
	}
	return convertFills(raw), nil
}

// UserFillsPaginated walks fills backwards from end toward start, up to
// maxFills. Each page is capped by the exchange; the next page ends 1ms
// before the oldest fill seen. onProgress, when set, receives the running
// count after each page.
func (c *InfoClient) UserFillsPaginated(ctx context.Context, user string, start, end time.Time, maxFills int, onProgress func(count int)) ([]TradeFill, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if maxFills <= 0 {
		maxFills = 10_000
	}

	var all []TradeFill
	maxPages := maxFills/fillsPageSize + 1

	for page := 0; page < maxPages && len(all) < maxFills; page++ {
		fills, err := c.UserFillsByTime(ctx, user, start, end)
		if err != nil {
			return nil, err
		}
		if len(fills) == 0 {
			break
		}

		all = append(all, fills...)
		if onProgress != nil {
			onProgress(len(all))
		}

		oldest := fills[len(fills)-1].Time
		end = time.UnixMilli(oldest - 1)
		if !end.After(start) {
			break
		}
		if len(fills) < fillsPageSize {
			break
		}
	}

	if len(all) > maxFills {
		all = all[:maxFills]
	}
	return all, nil
}

// AllMids retrieves current mid prices for every listed coin.
func (c *InfoClient) AllMids(ctx context.Context) (map[string]float64, error) {
	var raw map[string]string
	if err := c.post(ctx, "allMids", map[string]string{"type": "allMids"}, &raw); err != nil {
		return nil, err
	}

	mids := make(map[string]float64, len(raw))
	for coin, s := range raw {
		v, err := parseFloat(s)
		if err != nil {
			return nil, fmt.Errorf("parse mid %s: %w", coin, err)
		}
		mids[coin] = v
	}
	return mids, nil
}

func convertFills(raw []rawFill) []TradeFill {
	fills := make([]TradeFill, 0, len(raw))
	for _, r := range raw {
		f, err := r.toFill()
		if err != nil {
			// Malformed rows are skipped, matching provider behavior of
			// occasionally emitting partial fills.
			continue
		}
		fills = append(fills, f)
	}
	return fills
}
