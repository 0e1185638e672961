package synthetic

import (
	"sort"

	"whale-screener/internal/domain"
	"whale-screener/internal/metrics"
)

// marketTokenCount caps the synthetic market view to the most liquid tokens.
const marketTokenCount = 6

// GenerateMarket produces deterministic per-token aggregates across the
// wallet set, covering the top tokens of the universe. Each wallet
// contributes to a token's long side (15% of account value) or short side
// (10%) based on a draw seeded by address+token, so the same wallet set
// always yields the same market view.
func GenerateMarket(wallets []domain.WalletInfo) []*domain.MarketAggregate {
	out := make([]*domain.MarketAggregate, 0, marketTokenCount)
	for _, token := range Tokens[:marketTokenCount] {
		agg := &domain.MarketAggregate{Token: token}
		for _, w := range wallets {
			rnd := NewRand(w.Address + token)
			if rnd.Float64() > 0.5 {
				agg.LongNotional += w.AccountValue * 0.15
			} else {
				agg.ShortNotional += w.AccountValue * 0.10
			}
		}
		agg.TraderCount = int(float64(len(wallets)) * 0.4)
		agg.UnrealizedProfit = agg.LongNotional * 0.02
		agg.UnrealizedLoss = agg.ShortNotional * 0.015
		agg.Bias = metrics.MarketBiasFromNotional(agg.LongNotional, agg.ShortNotional)
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalNotional() > out[j].TotalNotional()
	})
	return out
}
