package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Whale Screener Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Wallets: %d | Synthetic: %d\n\n", r.WalletCount, r.SyntheticCount))

	// Totals
	sb.WriteString("## Totals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Equity | %.2f |\n", r.Totals.TotalEquity))
	sb.WriteString(fmt.Sprintf("| Total Position Value | %.2f |\n", r.Totals.TotalPositionValue))
	sb.WriteString(fmt.Sprintf("| Total Unrealized PnL | %.2f |\n", r.Totals.TotalUnrealizedPnL))
	sb.WriteString(fmt.Sprintf("| Open Positions | %d |\n", r.Totals.TotalPositions))
	sb.WriteString("\n")

	// Wallets
	sb.WriteString("## Wallets\n\n")
	if len(r.Wallets) > 0 {
		sb.WriteString("| Address | Label | Entity | Equity | Bias | Position Value | Leverage | uPnL | Cohort | Positions | Source |\n")
		sb.WriteString("|---------|-------|--------|--------|------|----------------|----------|------|--------|-----------|--------|\n")
		for _, w := range r.Wallets {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %s | %.2f | %.2fx | %.2f | %s | %d | %s |\n",
				shortAddress(w.Address), w.Label, w.Entity,
				w.Equity, w.Bias, w.PositionValue, w.WeightedLeverage,
				w.UnrealizedPnL, w.Cohort, w.PositionCount, w.Source))
		}
	} else {
		sb.WriteString("No wallet data available.\n")
	}
	sb.WriteString("\n")

	// Cohort breakdown
	sb.WriteString("## Cohort Breakdown\n\n")
	if len(r.CohortBreakdown) > 0 {
		sb.WriteString("| Cohort | Wallets | Total Equity |\n")
		sb.WriteString("|--------|---------|-------------|\n")
		for _, c := range r.CohortBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f |\n", c.Cohort, c.WalletCount, c.TotalEquity))
		}
	} else {
		sb.WriteString("No cohort data available.\n")
	}
	sb.WriteString("\n")

	// Bias breakdown
	sb.WriteString("## Bias Breakdown\n\n")
	if len(r.BiasBreakdown) > 0 {
		sb.WriteString("| Bias | Wallets |\n")
		sb.WriteString("|------|--------|\n")
		for _, b := range r.BiasBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", b.Bias, b.WalletCount))
		}
	} else {
		sb.WriteString("No bias data available.\n")
	}
	sb.WriteString("\n")

	// Market view
	sb.WriteString("## Market View\n\n")
	if len(r.Market) > 0 {
		sb.WriteString("| Token | Long Notional | Short Notional | Traders | uProfit | uLoss | Bias |\n")
		sb.WriteString("|-------|---------------|----------------|---------|---------|-------|------|\n")
		for _, m := range r.Market {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %d | %.2f | %.2f | %s |\n",
				m.Token, m.LongNotional, m.ShortNotional, m.TraderCount,
				m.UnrealizedProfit, m.UnrealizedLoss, m.Bias))
		}
	} else {
		sb.WriteString("No market data available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// shortAddress truncates a hex address for table display.
func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + ".." + addr[len(addr)-4:]
}
