package reporting

import "time"

// Report represents one rendered screener run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	WalletCount int
	// SyntheticCount is how many wallets were served from generated data.
	SyntheticCount int

	// Totals across the wallet set
	Totals TotalsSection

	// Wallet rows (sorted by equity descending)
	Wallets []WalletRow

	// Breakdowns
	CohortBreakdown []CohortBreakdownRow
	BiasBreakdown   []BiasBreakdownRow

	// Market view (sorted by total notional descending)
	Market []MarketRow
}

// TotalsSection sums portfolio-wide figures.
type TotalsSection struct {
	TotalEquity        float64
	TotalPositionValue float64
	TotalUnrealizedPnL float64
	TotalPositions     int
}

// WalletRow represents one row in the wallet summary table.
type WalletRow struct {
	Address          string
	Label            string
	Entity           string
	Equity           float64
	Bias             string
	PositionValue    float64
	WeightedLeverage float64
	UnrealizedPnL    float64
	Cohort           string
	PositionCount    int
	Source           string
}

// CohortBreakdownRow groups wallets by size cohort.
type CohortBreakdownRow struct {
	Cohort      string
	WalletCount int
	TotalEquity float64
}

// BiasBreakdownRow groups wallets by directional bias.
type BiasBreakdownRow struct {
	Bias        string
	WalletCount int
}

// MarketRow represents one row in the per-token market table.
type MarketRow struct {
	Token            string
	LongNotional     float64
	ShortNotional    float64
	TraderCount      int
	UnrealizedProfit float64
	UnrealizedLoss   float64
	Bias             string
}
