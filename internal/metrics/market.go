package metrics

import (
	"math"
	"sort"

	"whale-screener/internal/domain"
)

// Market bias thresholds on the aggregate long-notional ratio. Deliberately
// tighter around neutral than the per-wallet bands: a market needs a clear
// majority before it gets a directional label.
const (
	marketVeryBullish = 0.7
	marketBullish     = 0.55
	marketBearish     = 0.45
	marketVeryBearish = 0.3
)

// MarketBiasFromNotional labels one token's aggregate lean. Zero total
// notional is Neutral.
func MarketBiasFromNotional(longNotional, shortNotional float64) domain.MarketBias {
	total := longNotional + shortNotional
	if total == 0 {
		return domain.MarketNeutral
	}
	ratio := longNotional / total
	switch {
	case ratio >= marketVeryBullish:
		return domain.MarketVeryBullish
	case ratio >= marketBullish:
		return domain.MarketBullish
	case ratio <= marketVeryBearish:
		return domain.MarketVeryBearish
	case ratio <= marketBearish:
		return domain.MarketBearish
	default:
		return domain.MarketNeutral
	}
}

// AggregateMarket folds every tracked wallet's positions into per-token
// aggregates. Each wallet counts at most once per token regardless of how
// many positions it holds there. Results are sorted by total notional
// descending, ties broken by token name for stable output.
func AggregateMarket(summaries []*domain.WalletSummary) []*domain.MarketAggregate {
	byToken := make(map[string]*domain.MarketAggregate)
	seen := make(map[string]map[string]struct{}) // token -> wallet set

	for _, s := range summaries {
		for _, p := range s.Positions {
			agg, ok := byToken[p.Token]
			if !ok {
				agg = &domain.MarketAggregate{Token: p.Token}
				byToken[p.Token] = agg
				seen[p.Token] = make(map[string]struct{})
			}

			n := math.Abs(p.Notional)
			if p.Direction == domain.DirectionLong {
				agg.LongNotional += n
			} else {
				agg.ShortNotional += n
			}
			if p.UnrealizedPnL >= 0 {
				agg.UnrealizedProfit += p.UnrealizedPnL
			} else {
				agg.UnrealizedLoss += -p.UnrealizedPnL
			}

			if _, dup := seen[p.Token][s.Address]; !dup {
				seen[p.Token][s.Address] = struct{}{}
				agg.TraderCount++
			}
		}
	}

	out := make([]*domain.MarketAggregate, 0, len(byToken))
	for _, agg := range byToken {
		agg.Bias = MarketBiasFromNotional(agg.LongNotional, agg.ShortNotional)
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].TotalNotional(), out[j].TotalNotional()
		if ti != tj {
			return ti > tj
		}
		return out[i].Token < out[j].Token
	})
	return out
}
