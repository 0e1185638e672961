package stub

import (
	"context"
	"errors"
	"sync"

	"whale-screener/internal/analytics"
)

// ErrNotFound is returned when no positions are registered for an address.
var ErrNotFound = errors.New("not found")

// Client implements analytics.Client for testing. Safe for concurrent use.
type Client struct {
	mu           sync.Mutex
	Positions    map[string]*analytics.WalletPositions
	Entries      []analytics.LeaderboardEntry
	TokenBooks   map[string][]analytics.TokenPosition
	ScreenerRows []analytics.ScreenerRow
	Err          error // returned by every call when set
	CallsByAddr  map[string]int
}

var _ analytics.Client = (*Client)(nil)

// NewClient creates a new stub analytics client.
func NewClient() *Client {
	return &Client{
		Positions:   make(map[string]*analytics.WalletPositions),
		TokenBooks:  make(map[string][]analytics.TokenPosition),
		CallsByAddr: make(map[string]int),
	}
}

// WalletPositions returns registered positions for an address.
func (c *Client) WalletPositions(_ context.Context, address string) (*analytics.WalletPositions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallsByAddr[address]++
	if c.Err != nil {
		return nil, c.Err
	}
	wp, ok := c.Positions[address]
	if !ok {
		return nil, ErrNotFound
	}
	return wp, nil
}

// Calls returns how many times positions were fetched for an address.
func (c *Client) Calls(address string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallsByAddr[address]
}

// Leaderboard returns the registered leaderboard.
func (c *Client) Leaderboard(_ context.Context, _ analytics.LeaderboardQuery) ([]analytics.LeaderboardEntry, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Entries, nil
}

// TokenPositions returns the registered book for a token.
func (c *Client) TokenPositions(_ context.Context, q analytics.TokenPositionsQuery) ([]analytics.TokenPosition, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.TokenBooks[q.TokenSymbol], nil
}

// MarketScreener returns the registered screener rows.
func (c *Client) MarketScreener(_ context.Context, _ analytics.ScreenerQuery) ([]analytics.ScreenerRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.ScreenerRows, nil
}

// AddPositions registers positions for an address.
func (c *Client) AddPositions(wp *analytics.WalletPositions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Positions[wp.Address] = wp
}
