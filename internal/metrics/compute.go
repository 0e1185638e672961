package metrics

import (
	"math"

	"whale-screener/internal/domain"
)

// Wallet bias thresholds on the long-notional ratio.
const (
	biasExtremelyBullish = 0.8
	biasBullish          = 0.6
	biasBearish          = 0.4
	biasExtremelyBearish = 0.2
)

// Cohort boundaries in USD of account equity.
const (
	cohortKrakenMin = 50_000_000
	cohortWhaleMin  = 10_000_000
	cohortSharkMin  = 1_000_000
)

// ClassifyBias labels a wallet's directional lean from its open positions.
// The ratio is long notional over total absolute notional; a wallet with no
// positions, or only zero-notional positions, is Neutral.
func ClassifyBias(positions []domain.Position) domain.Bias {
	var long, total float64
	for _, p := range positions {
		n := math.Abs(p.Notional)
		total += n
		if p.Direction == domain.DirectionLong {
			long += n
		}
	}
	if total == 0 {
		return domain.BiasNeutral
	}
	return BiasFromRatio(long / total)
}

// BiasFromRatio maps a long-notional ratio in [0, 1] to a bias label.
// Boundary values land on the stronger label: exactly 0.8 is Extremely
// Bullish, exactly 0.2 is Extremely Bearish.
func BiasFromRatio(ratio float64) domain.Bias {
	switch {
	case ratio >= biasExtremelyBullish:
		return domain.BiasExtremelyBullish
	case ratio >= biasBullish:
		return domain.BiasBullish
	case ratio <= biasExtremelyBearish:
		return domain.BiasExtremelyBearish
	case ratio <= biasBearish:
		return domain.BiasBearish
	default:
		return domain.BiasNeutral
	}
}

// SizeCohort tiers a wallet by account equity. Boundaries belong to the
// larger tier: exactly $1M is a Shark, exactly $50M is a Kraken.
func SizeCohort(equity float64) domain.Cohort {
	switch {
	case equity >= cohortKrakenMin:
		return domain.CohortKraken
	case equity >= cohortWhaleMin:
		return domain.CohortWhale
	case equity >= cohortSharkMin:
		return domain.CohortShark
	default:
		return domain.CohortFish
	}
}

// WeightedLeverage is the notional-weighted mean leverage across positions.
// Returns 0 when there are no positions or total notional is zero, so a
// single position always reports its own leverage.
func WeightedLeverage(positions []domain.Position) float64 {
	var weighted, total float64
	for _, p := range positions {
		n := math.Abs(p.Notional)
		weighted += p.Leverage * n
		total += n
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// PositionValue is the sum of absolute notionals: longs and shorts both add.
func PositionValue(positions []domain.Position) float64 {
	var total float64
	for _, p := range positions {
		total += math.Abs(p.Notional)
	}
	return total
}

// TotalUnrealizedPnL is the signed sum of unrealized PnL across positions.
func TotalUnrealizedPnL(positions []domain.Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.UnrealizedPnL
	}
	return total
}

// BuildWalletSummary assembles the full derived view for one wallet from its
// current position list.
func BuildWalletSummary(w domain.WalletInfo, equity float64, positions []domain.Position, source domain.DataSource, fetchedAt int64) *domain.WalletSummary {
	return &domain.WalletSummary{
		Address:          w.Address,
		Label:            w.Label,
		Entity:           w.Entity,
		Equity:           equity,
		Bias:             ClassifyBias(positions),
		PositionValue:    PositionValue(positions),
		WeightedLeverage: WeightedLeverage(positions),
		UnrealizedPnL:    TotalUnrealizedPnL(positions),
		Cohort:           SizeCohort(equity),
		Positions:        positions,
		Source:           source,
		FetchedAt:        fetchedAt,
	}
}
