package analytics

import (
	"strings"

	"whale-screener/internal/domain"
)

// PerpPosition is one open perpetual position as reported by the analytics
// provider for a profiled wallet.
type PerpPosition struct {
	TokenSymbol      string  `json:"token_symbol"`
	Side             string  `json:"side"` // "Long" or "Short"
	Size             float64 `json:"position_size"`
	PositionValueUSD float64 `json:"position_value_usd"`
	EntryPrice       float64 `json:"entry_price"`
	MarkPrice        float64 `json:"mark_price"`
	Leverage         float64 `json:"leverage"`
	LiquidationPrice float64 `json:"liquidation_price"`
	MarginUsed       float64 `json:"margin_used"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
}

// ToPosition converts the provider DTO to the domain shape.
func (p *PerpPosition) ToPosition() domain.Position {
	direction := domain.DirectionShort
	if strings.EqualFold(p.Side, "Long") {
		direction = domain.DirectionLong
	}
	return domain.Position{
		Token:            p.TokenSymbol,
		Direction:        direction,
		EntryPrice:       p.EntryPrice,
		MarkPrice:        p.MarkPrice,
		Size:             p.Size,
		Notional:         p.PositionValueUSD,
		Leverage:         p.Leverage,
		LiquidationPrice: p.LiquidationPrice,
		MarginUsed:       p.MarginUsed,
		UnrealizedPnL:    p.UnrealizedPnL,
	}
}

// WalletPositions is the profiler response for one wallet.
type WalletPositions struct {
	Address      string         `json:"address"`
	AccountValue float64        `json:"account_value"`
	Positions    []PerpPosition `json:"positions"`
}

// LeaderboardEntry is one row of the perp trading leaderboard.
type LeaderboardEntry struct {
	Address      string  `json:"trader_address"`
	Label        string  `json:"trader_address_label"`
	AccountValue float64 `json:"account_value"`
	ROI          float64 `json:"roi"`
	TotalPnL     float64 `json:"total_pnl"`
}

// LeaderboardQuery selects a leaderboard page. Zero values fall back to the
// provider defaults applied by the client: last 30 days, $1M minimum account
// value, first page of 50.
type LeaderboardQuery struct {
	DateFrom        string // YYYY-MM-DD
	DateTo          string
	MinAccountValue float64
	Page            int
	PerPage         int
}

// ScreenerRow is one row of the market-wide perp screener: aggregate
// long/short exposure per token across all tracked traders.
type ScreenerRow struct {
	TokenSymbol      string  `json:"token_symbol"`
	LongNotional     float64 `json:"long_notional"`
	ShortNotional    float64 `json:"short_notional"`
	TraderCount      int     `json:"trader_count"`
	UnrealizedProfit float64 `json:"unrealized_pnl_profit"`
	UnrealizedLoss   float64 `json:"unrealized_pnl_loss"`
}

// ScreenerQuery selects market screener rows. Zero values fall back to the
// provider defaults applied by the client: first page of 50, no notional
// floor.
type ScreenerQuery struct {
	MinTotalNotional float64
	Page             int
	PerPage          int
}

// TokenPosition is one row of the per-token position screener.
type TokenPosition struct {
	Address          string  `json:"trader_address"`
	Label            string  `json:"trader_address_label"`
	TokenSymbol      string  `json:"token_symbol"`
	Side             string  `json:"side"`
	PositionValueUSD float64 `json:"position_value_usd"`
	Leverage         float64 `json:"leverage"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
}

// TokenPositionsQuery selects positions for one token.
type TokenPositionsQuery struct {
	TokenSymbol      string
	LabelType        string // defaults to "all_traders"
	Side             string // optional "Long" or "Short" filter
	MinPositionValue float64
	Page             int
	PerPage          int
}
