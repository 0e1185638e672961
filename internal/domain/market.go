package domain

// MarketBias is the market-level sentiment label for one token, derived from
// the aggregate long/short notional ratio across all tracked wallets.
type MarketBias string

const (
	MarketVeryBearish MarketBias = "Very Bearish"
	MarketBearish     MarketBias = "Bearish"
	MarketNeutral     MarketBias = "Neutral"
	MarketBullish     MarketBias = "Bullish"
	MarketVeryBullish MarketBias = "Very Bullish"
)

// MarketAggregate is the derived per-token view across the whole wallet set.
// Recomputed from the full wallet set on every refresh.
type MarketAggregate struct {
	Token            string     `json:"token"`
	LongNotional     float64    `json:"long_notional"`
	ShortNotional    float64    `json:"short_notional"`
	TraderCount      int        `json:"trader_count"`
	UnrealizedProfit float64    `json:"unrealized_pnl_profit"` // Σ of positive uPnL
	UnrealizedLoss   float64    `json:"unrealized_pnl_loss"`   // Σ of |negative uPnL|, positive-valued
	Bias             MarketBias `json:"bias"`
}

// TotalNotional returns combined long and short exposure for the token.
func (m *MarketAggregate) TotalNotional() float64 {
	return m.LongNotional + m.ShortNotional
}
