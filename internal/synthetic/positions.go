package synthetic

import (
	"whale-screener/internal/domain"
)

// GeneratePositions produces a deterministic set of plausible perpetual
// positions for a wallet, seeded by its address. Between one and five
// positions; per-position notional is a 10-50% slice of account value
// divided across the book so the total stays inside the account.
func GeneratePositions(address string, accountValue float64) []domain.Position {
	rnd := NewRand(address)

	count := rnd.Intn(5) + 1
	positions := make([]domain.Position, 0, count)
	for i := 0; i < count; i++ {
		token := Tokens[rnd.Intn(len(Tokens))]

		direction := domain.DirectionShort
		if rnd.Float64() > 0.45 {
			direction = domain.DirectionLong
		}

		leverage := float64(rnd.Intn(20) + 1)
		notional := (rnd.Float64()*0.4 + 0.1) / float64(count) * accountValue

		base := ReferencePrices[token]
		size := notional / base
		entry := base * (1 + (rnd.Float64()-0.5)*0.1)
		mark := base * (1 + (rnd.Float64()-0.5)*0.05)

		priceDiff := mark - entry
		if direction == domain.DirectionShort {
			priceDiff = entry - mark
		}
		pnl := priceDiff / entry * notional

		liq := entry * (1 + 1/leverage)
		if direction == domain.DirectionLong {
			liq = entry * (1 - 1/leverage)
		}

		positions = append(positions, domain.Position{
			Token:            token,
			Direction:        direction,
			EntryPrice:       entry,
			MarkPrice:        mark,
			Size:             size,
			Notional:         notional,
			Leverage:         leverage,
			LiquidationPrice: liq,
			MarginUsed:       notional / leverage,
			UnrealizedPnL:    pnl,
		})
	}
	return positions
}
