package domain

// Entity classifies the operator behind a tracked wallet.
type Entity string

const (
	EntityRetail      Entity = "retail"
	EntityVC          Entity = "VCs"
	EntityMarketMaker Entity = "MM"
)

// WalletInfo is static reference data for a tracked whale wallet.
// Loaded once from the embedded registry; never mutated at runtime.
type WalletInfo struct {
	Address      string  `yaml:"address" json:"address"`             // EVM address, lowercase hex
	Label        string  `yaml:"label" json:"label"`                 // display label
	Entity       Entity  `yaml:"entity" json:"entity"`               // retail | VCs | MM
	AccountValue float64 `yaml:"account_value" json:"account_value"` // baseline account value in USD
	ROI          float64 `yaml:"roi" json:"roi"`                     // fractional return, 0.05 = 5%
	TotalPnL     float64 `yaml:"total_pnl" json:"total_pnl"`         // lifetime realized + unrealized PnL
}
