package synthetic

// Tokens is the universe synthetic positions draw from, in draw order.
// Order matters: the generator indexes into this slice.
var Tokens = []string{"BTC", "ETH", "SOL", "ARB", "DOGE", "AVAX", "LINK", "OP", "APT", "SUI"}

// ReferencePrices anchor synthetic entry and mark prices per token.
var ReferencePrices = map[string]float64{
	"BTC":  95000,
	"ETH":  3200,
	"SOL":  180,
	"ARB":  0.85,
	"DOGE": 0.32,
	"AVAX": 35,
	"LINK": 22,
	"OP":   1.8,
	"APT":  8.5,
	"SUI":  3.2,
}
