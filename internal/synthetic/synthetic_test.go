package synthetic

import (
	"math"
	"reflect"
	"testing"

	"whale-screener/internal/domain"
)

func TestRandDeterministic(t *testing.T) {
	a, b := NewRand("0xdeadbeef"), NewRand("0xdeadbeef")
	for i := 0; i < 100; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("draw %d diverged: %v != %v", i, va, vb)
		}
		if va < 0 || va > 1 {
			t.Fatalf("draw %d out of range: %v", i, va)
		}
	}
}

func TestRandSeedsDiffer(t *testing.T) {
	a, b := NewRand("wallet-a"), NewRand("wallet-b")
	same := 0
	for i := 0; i < 20; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 20 {
		t.Fatal("different seeds produced identical sequences")
	}
}

func TestRandIntnBounds(t *testing.T) {
	r := NewRand("bounds")
	for i := 0; i < 1000; i++ {
		if v := r.Intn(10); v < 0 || v >= 10 {
			t.Fatalf("Intn(10) = %d", v)
		}
	}
}

func TestGeneratePositionsDeterministic(t *testing.T) {
	first := GeneratePositions("0xc2a30212a8ddac9e123944d6e29faddce994e5f2", 25_000_000)
	second := GeneratePositions("0xc2a30212a8ddac9e123944d6e29faddce994e5f2", 25_000_000)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same address and account value produced different positions")
	}
}

func TestGeneratePositionsInvariants(t *testing.T) {
	const accountValue = 10_000_000

	addresses := []string{"0xaaa", "0xbbb", "0xccc", "0xddd", "0xeee"}
	for _, addr := range addresses {
		positions := GeneratePositions(addr, accountValue)
		if len(positions) < 1 || len(positions) > 5 {
			t.Fatalf("%s: %d positions, want 1..5", addr, len(positions))
		}

		var totalNotional float64
		for i, p := range positions {
			if _, ok := ReferencePrices[p.Token]; !ok {
				t.Errorf("%s[%d]: unknown token %q", addr, i, p.Token)
			}
			if p.Leverage < 1 || p.Leverage > 20 {
				t.Errorf("%s[%d]: leverage %v out of 1..20", addr, i, p.Leverage)
			}
			if p.Notional <= 0 {
				t.Errorf("%s[%d]: non-positive notional %v", addr, i, p.Notional)
			}
			totalNotional += p.Notional

			if math.Abs(p.MarginUsed-p.Notional/p.Leverage) > 1e-9 {
				t.Errorf("%s[%d]: margin %v != notional/leverage %v", addr, i, p.MarginUsed, p.Notional/p.Leverage)
			}
			if math.Abs(p.Size-p.Notional/ReferencePrices[p.Token]) > 1e-9 {
				t.Errorf("%s[%d]: size %v inconsistent with notional %v", addr, i, p.Size, p.Notional)
			}

			switch p.Direction {
			case domain.DirectionLong:
				if p.LiquidationPrice >= p.EntryPrice {
					t.Errorf("%s[%d]: long liquidation %v not below entry %v", addr, i, p.LiquidationPrice, p.EntryPrice)
				}
			case domain.DirectionShort:
				if p.LiquidationPrice <= p.EntryPrice {
					t.Errorf("%s[%d]: short liquidation %v not above entry %v", addr, i, p.LiquidationPrice, p.EntryPrice)
				}
			default:
				t.Errorf("%s[%d]: bad direction %q", addr, i, p.Direction)
			}
		}

		// Per-position slices are (10-50%)/count, so the book never exceeds
		// half the account value.
		if totalNotional > accountValue*0.5+1e-6 {
			t.Errorf("%s: total notional %v exceeds half of account value", addr, totalNotional)
		}
	}
}

func TestGenerateMarketDeterministic(t *testing.T) {
	wallets := []domain.WalletInfo{
		{Address: "0xaaa", AccountValue: 50_000_000},
		{Address: "0xbbb", AccountValue: 8_000_000},
		{Address: "0xccc", AccountValue: 1_200_000},
	}
	first := GenerateMarket(wallets)
	second := GenerateMarket(wallets)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same wallet set produced different market aggregates")
	}

	if len(first) != marketTokenCount {
		t.Fatalf("got %d aggregates, want %d", len(first), marketTokenCount)
	}
	for i := 1; i < len(first); i++ {
		if first[i].TotalNotional() > first[i-1].TotalNotional() {
			t.Errorf("aggregates not sorted by total notional at %d", i)
		}
	}
	for _, a := range first {
		if a.TraderCount != int(float64(len(wallets))*0.4) {
			t.Errorf("%s: trader count %d", a.Token, a.TraderCount)
		}
	}
}
