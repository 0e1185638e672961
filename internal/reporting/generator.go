package reporting

import (
	"sort"
	"time"

	"whale-screener/internal/domain"
)

// Generator produces reports from a set of wallet summaries.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report from summaries and market aggregates.
func (g *Generator) Generate(summaries []*domain.WalletSummary, market []*domain.MarketAggregate) *Report {
	return &Report{
		GeneratedAt:     g.now(),
		WalletCount:     len(summaries),
		SyntheticCount:  countSynthetic(summaries),
		Totals:          generateTotals(summaries),
		Wallets:         generateWalletRows(summaries),
		CohortBreakdown: generateCohortBreakdown(summaries),
		BiasBreakdown:   generateBiasBreakdown(summaries),
		Market:          generateMarketRows(market),
	}
}

func countSynthetic(summaries []*domain.WalletSummary) int {
	n := 0
	for _, s := range summaries {
		if s.Source == domain.SourceSynthetic {
			n++
		}
	}
	return n
}

func generateTotals(summaries []*domain.WalletSummary) TotalsSection {
	var t TotalsSection
	for _, s := range summaries {
		t.TotalEquity += s.Equity
		t.TotalPositionValue += s.PositionValue
		t.TotalUnrealizedPnL += s.UnrealizedPnL
		t.TotalPositions += len(s.Positions)
	}
	return t
}

// generateWalletRows builds rows sorted by equity descending.
func generateWalletRows(summaries []*domain.WalletSummary) []WalletRow {
	rows := make([]WalletRow, len(summaries))
	for i, s := range summaries {
		rows[i] = WalletRow{
			Address:          s.Address,
			Label:            s.Label,
			Entity:           string(s.Entity),
			Equity:           s.Equity,
			Bias:             string(s.Bias),
			PositionValue:    s.PositionValue,
			WeightedLeverage: s.WeightedLeverage,
			UnrealizedPnL:    s.UnrealizedPnL,
			Cohort:           string(s.Cohort),
			PositionCount:    len(s.Positions),
			Source:           string(s.Source),
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Equity != rows[j].Equity {
			return rows[i].Equity > rows[j].Equity
		}
		return rows[i].Address < rows[j].Address
	})
	return rows
}

// generateCohortBreakdown groups wallets by cohort, largest cohorts first.
func generateCohortBreakdown(summaries []*domain.WalletSummary) []CohortBreakdownRow {
	order := []domain.Cohort{domain.CohortKraken, domain.CohortWhale, domain.CohortShark, domain.CohortFish}

	byCohort := make(map[domain.Cohort]*CohortBreakdownRow)
	for _, s := range summaries {
		row := byCohort[s.Cohort]
		if row == nil {
			row = &CohortBreakdownRow{Cohort: string(s.Cohort)}
			byCohort[s.Cohort] = row
		}
		row.WalletCount++
		row.TotalEquity += s.Equity
	}

	var rows []CohortBreakdownRow
	for _, c := range order {
		if row := byCohort[c]; row != nil {
			rows = append(rows, *row)
		}
	}
	return rows
}

// generateBiasBreakdown groups wallets by bias, most bullish first.
func generateBiasBreakdown(summaries []*domain.WalletSummary) []BiasBreakdownRow {
	order := []domain.Bias{
		domain.BiasExtremelyBullish,
		domain.BiasBullish,
		domain.BiasNeutral,
		domain.BiasBearish,
		domain.BiasExtremelyBearish,
	}

	byBias := make(map[domain.Bias]int)
	for _, s := range summaries {
		byBias[s.Bias]++
	}

	var rows []BiasBreakdownRow
	for _, b := range order {
		if n := byBias[b]; n > 0 {
			rows = append(rows, BiasBreakdownRow{Bias: string(b), WalletCount: n})
		}
	}
	return rows
}

func generateMarketRows(market []*domain.MarketAggregate) []MarketRow {
	rows := make([]MarketRow, len(market))
	for i, m := range market {
		rows[i] = MarketRow{
			Token:            m.Token,
			LongNotional:     m.LongNotional,
			ShortNotional:    m.ShortNotional,
			TraderCount:      m.TraderCount,
			UnrealizedProfit: m.UnrealizedProfit,
			UnrealizedLoss:   m.UnrealizedLoss,
			Bias:             string(m.Bias),
		}
	}
	return rows
}
