package metrics

import (
	"math"
	"testing"

	"whale-screener/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func long(notional, leverage, pnl float64) domain.Position {
	return domain.Position{Token: "BTC", Direction: domain.DirectionLong, Notional: notional, Leverage: leverage, UnrealizedPnL: pnl}
}

func short(notional, leverage, pnl float64) domain.Position {
	return domain.Position{Token: "BTC", Direction: domain.DirectionShort, Notional: notional, Leverage: leverage, UnrealizedPnL: pnl}
}

func TestClassifyBias(t *testing.T) {
	tests := []struct {
		name      string
		positions []domain.Position
		want      domain.Bias
	}{
		{"no positions", nil, domain.BiasNeutral},
		{"zero notional only", []domain.Position{long(0, 5, 0)}, domain.BiasNeutral},
		{"all long", []domain.Position{long(100, 5, 0)}, domain.BiasExtremelyBullish},
		{"all short", []domain.Position{short(100, 5, 0)}, domain.BiasExtremelyBearish},
		{"ratio exactly 0.8", []domain.Position{long(80, 1, 0), short(20, 1, 0)}, domain.BiasExtremelyBullish},
		{"ratio just under 0.8", []domain.Position{long(79, 1, 0), short(21, 1, 0)}, domain.BiasBullish},
		{"ratio exactly 0.6", []domain.Position{long(60, 1, 0), short(40, 1, 0)}, domain.BiasBullish},
		{"balanced book", []domain.Position{long(50, 1, 0), short(50, 1, 0)}, domain.BiasNeutral},
		{"ratio exactly 0.4", []domain.Position{long(40, 1, 0), short(60, 1, 0)}, domain.BiasBearish},
		{"ratio exactly 0.2", []domain.Position{long(20, 1, 0), short(80, 1, 0)}, domain.BiasExtremelyBearish},
		{"negative notionals use magnitude", []domain.Position{long(-80, 1, 0), short(-20, 1, 0)}, domain.BiasExtremelyBullish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyBias(tt.positions); got != tt.want {
				t.Errorf("ClassifyBias() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBiasFromRatioMonotonic(t *testing.T) {
	prev := -1
	for ratio := 0.0; ratio <= 1.0; ratio += 0.01 {
		rank := BiasFromRatio(ratio).Rank()
		if rank < prev {
			t.Fatalf("bias rank decreased at ratio %.2f: %d -> %d", ratio, prev, rank)
		}
		prev = rank
	}
}

func TestSizeCohort(t *testing.T) {
	tests := []struct {
		equity float64
		want   domain.Cohort
	}{
		{0, domain.CohortFish},
		{999_999.99, domain.CohortFish},
		{1_000_000, domain.CohortShark},
		{9_999_999, domain.CohortShark},
		{10_000_000, domain.CohortWhale},
		{49_999_999, domain.CohortWhale},
		{50_000_000, domain.CohortKraken},
		{120_000_000, domain.CohortKraken},
	}
	for _, tt := range tests {
		if got := SizeCohort(tt.equity); got != tt.want {
			t.Errorf("SizeCohort(%.2f) = %q, want %q", tt.equity, got, tt.want)
		}
	}
}

func TestWeightedLeverage(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := WeightedLeverage(nil); got != 0 {
			t.Errorf("WeightedLeverage(nil) = %v, want 0", got)
		}
	})

	t.Run("single position reports its own leverage", func(t *testing.T) {
		got := WeightedLeverage([]domain.Position{long(12345, 7, 0)})
		if !almostEqual(got, 7) {
			t.Errorf("WeightedLeverage() = %v, want 7", got)
		}
	})

	t.Run("weighted by absolute notional", func(t *testing.T) {
		// 10x on $300 and 2x on $100: (10*300 + 2*100) / 400 = 8.
		got := WeightedLeverage([]domain.Position{long(300, 10, 0), short(100, 2, 0)})
		if !almostEqual(got, 8) {
			t.Errorf("WeightedLeverage() = %v, want 8", got)
		}
	})

	t.Run("zero notional book", func(t *testing.T) {
		if got := WeightedLeverage([]domain.Position{long(0, 20, 0)}); got != 0 {
			t.Errorf("WeightedLeverage() = %v, want 0", got)
		}
	})
}

func TestPositionValue(t *testing.T) {
	got := PositionValue([]domain.Position{long(100, 1, 0), short(250, 1, 0), long(-50, 1, 0)})
	if !almostEqual(got, 400) {
		t.Errorf("PositionValue() = %v, want 400", got)
	}
	if got := PositionValue(nil); got != 0 {
		t.Errorf("PositionValue(nil) = %v, want 0", got)
	}
}

func TestTotalUnrealizedPnL(t *testing.T) {
	got := TotalUnrealizedPnL([]domain.Position{long(100, 1, 150.5), short(100, 1, -70.25)})
	if !almostEqual(got, 80.25) {
		t.Errorf("TotalUnrealizedPnL() = %v, want 80.25", got)
	}
	if got := TotalUnrealizedPnL(nil); got != 0 {
		t.Errorf("TotalUnrealizedPnL(nil) = %v, want 0", got)
	}
}

func TestBuildWalletSummary(t *testing.T) {
	w := domain.WalletInfo{Address: "0xabc", Label: "Test Whale", Entity: domain.EntityVC}
	positions := []domain.Position{long(800, 10, 120), short(200, 5, -20)}

	s := BuildWalletSummary(w, 12_000_000, positions, domain.SourceLive, 1700000000000)

	if s.Address != "0xabc" || s.Label != "Test Whale" || s.Entity != domain.EntityVC {
		t.Errorf("identity fields not carried over: %+v", s)
	}
	if s.Bias != domain.BiasExtremelyBullish {
		t.Errorf("Bias = %q, want %q", s.Bias, domain.BiasExtremelyBullish)
	}
	if s.Cohort != domain.CohortWhale {
		t.Errorf("Cohort = %q, want %q", s.Cohort, domain.CohortWhale)
	}
	if !almostEqual(s.PositionValue, 1000) {
		t.Errorf("PositionValue = %v, want 1000", s.PositionValue)
	}
	if !almostEqual(s.WeightedLeverage, 9) {
		t.Errorf("WeightedLeverage = %v, want 9", s.WeightedLeverage)
	}
	if !almostEqual(s.UnrealizedPnL, 100) {
		t.Errorf("UnrealizedPnL = %v, want 100", s.UnrealizedPnL)
	}
	if s.Source != domain.SourceLive || s.FetchedAt != 1700000000000 {
		t.Errorf("provenance fields wrong: source=%q fetchedAt=%d", s.Source, s.FetchedAt)
	}
}
