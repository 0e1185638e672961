package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders wallet rows as CSV string.
func RenderCSV(rows []WalletRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("address,label,entity,equity,bias,position_value,weighted_leverage,")
	sb.WriteString("unrealized_pnl,cohort,position_count,source\n")

	// Rows
	for _, w := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%s,%.6f,%.6f,%.6f,%s,%d,%s\n",
			w.Address,
			csvEscape(w.Label),
			w.Entity,
			w.Equity,
			w.Bias,
			w.PositionValue,
			w.WeightedLeverage,
			w.UnrealizedPnL,
			w.Cohort,
			w.PositionCount,
			w.Source,
		))
	}

	return sb.String()
}

// RenderMarketCSV renders market rows as CSV string.
func RenderMarketCSV(rows []MarketRow) string {
	var sb strings.Builder

	sb.WriteString("token,long_notional,short_notional,trader_count,unrealized_profit,unrealized_loss,bias\n")
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%d,%.6f,%.6f,%s\n",
			m.Token,
			m.LongNotional,
			m.ShortNotional,
			m.TraderCount,
			m.UnrealizedProfit,
			m.UnrealizedLoss,
			m.Bias,
		))
	}

	return sb.String()
}

// csvEscape quotes fields containing commas. Labels are free text.
func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
