package domain

// Bias is the directional sentiment label derived from the long/short
// notional ratio of a single wallet's open positions.
type Bias string

const (
	BiasExtremelyBearish Bias = "Extremely Bearish"
	BiasBearish          Bias = "Bearish"
	BiasNeutral          Bias = "Neutral"
	BiasBullish          Bias = "Bullish"
	BiasExtremelyBullish Bias = "Extremely Bullish"
)

// Rank returns the ordinal position of the bias label, from most bearish (0)
// to most bullish (4). Unknown labels rank as Neutral.
func (b Bias) Rank() int {
	switch b {
	case BiasExtremelyBearish:
		return 0
	case BiasBearish:
		return 1
	case BiasBullish:
		return 3
	case BiasExtremelyBullish:
		return 4
	default:
		return 2
	}
}

// Cohort is the size tier derived from account equity.
type Cohort string

const (
	CohortFish   Cohort = "Fish"   // < $1M
	CohortShark  Cohort = "Shark"  // >= $1M
	CohortWhale  Cohort = "Whale"  // >= $10M
	CohortKraken Cohort = "Kraken" // >= $50M
)

// DataSource records where a wallet's position data came from.
type DataSource string

const (
	SourceLive      DataSource = "live"
	SourceSynthetic DataSource = "synthetic"
)

// WalletSummary is the derived per-wallet view. It is recomputed entirely
// from the current position list on every refresh; never partially updated.
type WalletSummary struct {
	Address          string     `json:"address"`
	Label            string     `json:"label"`
	Entity           Entity     `json:"entity"`
	Equity           float64    `json:"equity"`
	Bias             Bias       `json:"bias"`
	PositionValue    float64    `json:"position_value"`    // Σ|notional|
	WeightedLeverage float64    `json:"weighted_leverage"` // notional-weighted
	UnrealizedPnL    float64    `json:"unrealized_pnl"`    // signed sum
	Cohort           Cohort     `json:"cohort"`
	Positions        []Position `json:"positions"`
	Source           DataSource `json:"source"`
	FetchedAt        int64      `json:"fetched_at"` // Unix timestamp in milliseconds
}
