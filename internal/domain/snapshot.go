package domain

// WalletSnapshot is one persisted row of a wallet's derived summary at a
// refresh instant. Corresponds to wallet_snapshots table in PostgreSQL.
type WalletSnapshot struct {
	SnapshotID       string     `json:"snapshot_id"` // PRIMARY KEY, deterministic hash
	Address          string     `json:"address"`
	CapturedAt       int64      `json:"captured_at"` // Unix timestamp in milliseconds
	Equity           float64    `json:"equity"`
	Bias             Bias       `json:"bias"`
	PositionValue    float64    `json:"position_value"`
	WeightedLeverage float64    `json:"weighted_leverage"`
	UnrealizedPnL    float64    `json:"unrealized_pnl"`
	Cohort           Cohort     `json:"cohort"`
	PositionCount    int        `json:"position_count"`
	Source           DataSource `json:"source"`
	CreatedAt        int64      `json:"created_at"` // record creation timestamp (ms)
}

// MarketAggregatePoint is one persisted market aggregate observation,
// stored in the ClickHouse market_aggregate_history table.
type MarketAggregatePoint struct {
	Token            string     `json:"token"`
	CapturedAt       int64      `json:"captured_at"` // Unix timestamp in milliseconds
	LongNotional     float64    `json:"long_notional"`
	ShortNotional    float64    `json:"short_notional"`
	TraderCount      int        `json:"trader_count"`
	UnrealizedProfit float64    `json:"unrealized_profit"`
	UnrealizedLoss   float64    `json:"unrealized_loss"`
	Bias             MarketBias `json:"bias"`
}
