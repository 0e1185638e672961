package domain

// Direction of a perpetual position.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Position is one open perpetual position for a wallet.
// Positions are replaced wholesale on every fetch; no identity persists
// across fetches.
type Position struct {
	Token            string    `json:"token"`
	Direction        Direction `json:"direction"`
	EntryPrice       float64   `json:"entry_price"`
	MarkPrice        float64   `json:"mark_price"`
	Size             float64   `json:"size"`
	Notional         float64   `json:"notional"` // USD exposure, size × price
	Leverage         float64   `json:"leverage"`
	LiquidationPrice float64   `json:"liquidation_price"`
	MarginUsed       float64   `json:"margin_used"`
	UnrealizedPnL    float64   `json:"unrealized_pnl"`
}
