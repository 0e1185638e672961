package screener

import "whale-screener/internal/domain"

// ApplyMids returns a copy of the result with position mark prices replaced
// by the given mids and unrealized PnL recomputed. Tokens without a mid keep
// their fetched mark price. The input result is not modified.
func ApplyMids(result *Result, mids map[string]float64) *Result {
	if result == nil || len(mids) == 0 {
		return result
	}

	out := *result
	out.Summaries = make([]*domain.WalletSummary, len(result.Summaries))

	for i, s := range result.Summaries {
		cp := *s
		cp.Positions = make([]domain.Position, len(s.Positions))
		copy(cp.Positions, s.Positions)

		var total float64
		for j := range cp.Positions {
			p := &cp.Positions[j]
			if mid, ok := mids[p.Token]; ok && mid > 0 && p.EntryPrice > 0 {
				p.MarkPrice = mid
				diff := (mid - p.EntryPrice) / p.EntryPrice
				if p.Direction == domain.DirectionShort {
					diff = -diff
				}
				p.UnrealizedPnL = diff * p.Notional
			}
			total += p.UnrealizedPnL
		}
		cp.UnrealizedPnL = total
		out.Summaries[i] = &cp
	}

	return &out
}
