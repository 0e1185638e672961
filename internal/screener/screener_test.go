package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"whale-screener/internal/analytics"
	"whale-screener/internal/analytics/stub"
	"whale-screener/internal/domain"
	"whale-screener/internal/storage/memory"
	"whale-screener/internal/wallets"
)

func testRegistry(t *testing.T) *wallets.Registry {
	t.Helper()
	reg, err := wallets.Default()
	require.NoError(t, err)
	return reg
}

// livePositions builds an 800 long / 200 short book: the long ratio is the
// exact 0.8 double, landing on the Extremely Bullish boundary.
func livePositions(address string, accountValue float64) *analytics.WalletPositions {
	return &analytics.WalletPositions{
		Address:      address,
		AccountValue: accountValue,
		Positions: []analytics.PerpPosition{
			{TokenSymbol: "BTC", Side: "Long", PositionValueUSD: 800, Leverage: 5, UnrealizedPnL: 1000},
			{TokenSymbol: "ETH", Side: "Short", PositionValueUSD: 200, Leverage: 3, UnrealizedPnL: -200},
		},
	}
}

func TestRefreshLive(t *testing.T) {
	reg := testRegistry(t)
	client := stub.NewClient()
	for _, w := range reg.All() {
		client.AddPositions(livePositions(w.Address, w.AccountValue))
	}

	s, err := New(client, reg, Options{})
	require.NoError(t, err)
	require.False(t, s.SyntheticMode())

	result, err := s.Refresh(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, result.Summaries, reg.Len())
	require.Zero(t, result.Synthetic)
	require.Zero(t, result.Errors)

	for _, summary := range result.Summaries {
		require.Equal(t, domain.SourceLive, summary.Source)
		require.Len(t, summary.Positions, 2)
		require.Equal(t, domain.BiasExtremelyBullish, summary.Bias) // ratio exactly 0.8
		require.NotZero(t, summary.FetchedAt)
	}

	// Market view aggregates live positions: every wallet is long BTC.
	require.NotEmpty(t, result.Market)
	require.Equal(t, "BTC", result.Market[0].Token)
	require.Equal(t, reg.Len(), result.Market[0].TraderCount)

	require.Same(t, result, s.Latest())

	done, total := s.Progress()
	require.Equal(t, reg.Len(), done)
	require.Equal(t, reg.Len(), total)
}

func TestRefreshQueryFilters(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(nil, reg, Options{})
	require.NoError(t, err)

	result, err := s.Refresh(context.Background(), Query{Entity: domain.EntityVC})
	require.NoError(t, err)
	require.Len(t, result.Summaries, 3)
	for _, summary := range result.Summaries {
		require.Equal(t, domain.EntityVC, summary.Entity)
	}

	limited, err := s.Refresh(context.Background(), Query{Limit: 5})
	require.NoError(t, err)
	require.Len(t, limited.Summaries, 5)
}

func TestRefreshSyntheticMode(t *testing.T) {
	reg := testRegistry(t)

	// nil client forces synthetic mode
	s, err := New(nil, reg, Options{})
	require.NoError(t, err)
	require.True(t, s.SyntheticMode())

	first, err := s.Refresh(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, first.Summaries, reg.Len())
	require.Equal(t, reg.Len(), first.Synthetic)

	second, err := s.Refresh(context.Background(), Query{})
	require.NoError(t, err)

	// Synthetic data is deterministic across refreshes.
	for i := range first.Summaries {
		require.Equal(t, first.Summaries[i].Positions, second.Summaries[i].Positions)
		require.Equal(t, first.Summaries[i].Bias, second.Summaries[i].Bias)
	}

	// Market view comes from the synthetic generator over the whole registry.
	require.Len(t, first.Market, 6)
	require.Equal(t, first.Market, second.Market)
}

func TestRefreshPrefersProviderMarketScreener(t *testing.T) {
	reg := testRegistry(t)
	client := stub.NewClient()
	for _, w := range reg.All() {
		client.AddPositions(livePositions(w.Address, w.AccountValue))
	}
	client.ScreenerRows = []analytics.ScreenerRow{
		{TokenSymbol: "SOL", LongNotional: 1_000_000, ShortNotional: 4_000_000, TraderCount: 9},
		{TokenSymbol: "BTC", LongNotional: 80_000_000, ShortNotional: 10_000_000, TraderCount: 22},
	}

	s, err := New(client, reg, Options{})
	require.NoError(t, err)

	result, err := s.Refresh(context.Background(), Query{})
	require.NoError(t, err)

	// Provider rows win over local aggregation, sorted by total notional.
	require.Len(t, result.Market, 2)
	require.Equal(t, "BTC", result.Market[0].Token)
	require.Equal(t, 22, result.Market[0].TraderCount)
	require.Equal(t, domain.MarketVeryBullish, result.Market[0].Bias)
	require.Equal(t, domain.MarketVeryBearish, result.Market[1].Bias)
}

func TestRefreshFallsBackPerWallet(t *testing.T) {
	reg := testRegistry(t)
	client := stub.NewClient()

	// Only one wallet has live data; the rest fail and fall back.
	liveAddr := reg.All()[0].Address
	client.AddPositions(livePositions(liveAddr, 50_000_000))

	s, err := New(client, reg, Options{})
	require.NoError(t, err)

	result, err := s.Refresh(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, result.Summaries, reg.Len())
	require.Equal(t, reg.Len()-1, result.Synthetic)
	require.Equal(t, reg.Len()-1, result.Errors)

	var live int
	for _, summary := range result.Summaries {
		if summary.Source == domain.SourceLive {
			live++
			require.Equal(t, liveAddr, summary.Address)
		}
	}
	require.Equal(t, 1, live)

	// Mixed sources aggregate from summaries, not the synthetic generator.
	require.NotEmpty(t, result.Market)
}

func TestRefreshSkipsZeroEquityWallets(t *testing.T) {
	reg := testRegistry(t)
	client := stub.NewClient()
	for i, w := range reg.All() {
		if i == 0 {
			client.AddPositions(&analytics.WalletPositions{Address: w.Address})
			continue
		}
		client.AddPositions(livePositions(w.Address, w.AccountValue))
	}

	s, err := New(client, reg, Options{})
	require.NoError(t, err)

	result, err := s.Refresh(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, result.Summaries, reg.Len()-1)
	require.Equal(t, 1, result.Skipped)
}

func TestRefreshUsesCache(t *testing.T) {
	reg := testRegistry(t)
	client := stub.NewClient()
	for _, w := range reg.All() {
		client.AddPositions(livePositions(w.Address, w.AccountValue))
	}

	s, err := New(client, reg, Options{CacheTTL: time.Minute})
	require.NoError(t, err)

	_, err = s.Refresh(context.Background(), Query{})
	require.NoError(t, err)
	_, err = s.Refresh(context.Background(), Query{})
	require.NoError(t, err)

	// Second refresh is served from the TTL cache.
	for addr, calls := range client.CallsByAddr {
		require.Equal(t, 1, calls, "wallet %s fetched more than once", addr)
	}
}

func TestRefreshContextCancelled(t *testing.T) {
	reg := testRegistry(t)
	client := stub.NewClient()
	client.Err = context.Canceled

	s, err := New(client, reg, Options{})
	require.NoError(t, err)

	_, err = s.Refresh(context.Background(), Query{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPersist(t *testing.T) {
	reg := testRegistry(t)
	s, err := New(nil, reg, Options{})
	require.NoError(t, err)

	result, err := s.Refresh(context.Background(), Query{})
	require.NoError(t, err)

	snapStore := memory.NewSnapshotStore()
	marketStore := memory.NewMarketHistoryStore()
	require.NoError(t, Persist(context.Background(), result, snapStore, marketStore))

	latest, err := snapStore.GetLatest(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, len(result.Summaries))
	for _, snap := range latest {
		require.Equal(t, result.RefreshedAt.UnixMilli(), snap.CapturedAt)
		require.Equal(t, domain.SourceSynthetic, snap.Source)
		require.Len(t, snap.SnapshotID, 64)
	}

	points, err := marketStore.GetByToken(context.Background(), result.Market[0].Token)
	require.NoError(t, err)
	require.Len(t, points, 1)

	// Re-persisting the same result violates append-only snapshots.
	err = Persist(context.Background(), result, snapStore, nil)
	require.Error(t, err)
}

func TestPersistNilStores(t *testing.T) {
	result := &Result{RefreshedAt: time.Now()}
	require.NoError(t, Persist(context.Background(), result, nil, nil))
}

func TestSnapshotsDistinctPerSource(t *testing.T) {
	now := time.Now()
	result := &Result{
		RefreshedAt: now,
		Summaries: []*domain.WalletSummary{
			{Address: "0xaaa", Source: domain.SourceLive},
			{Address: "0xaaa", Source: domain.SourceSynthetic},
		},
	}
	snaps := Snapshots(result)
	require.Len(t, snaps, 2)
	require.NotEqual(t, snaps[0].SnapshotID, snaps[1].SnapshotID)
}

func TestRefreshPropagatesUnexpectedStubError(t *testing.T) {
	reg := testRegistry(t)
	client := stub.NewClient()
	client.Err = errors.New("provider exploded")

	s, err := New(client, reg, Options{})
	require.NoError(t, err)

	// Non-context errors fall back to synthetic instead of failing the run.
	result, err := s.Refresh(context.Background(), Query{Limit: 3})
	require.NoError(t, err)
	require.Equal(t, 3, result.Synthetic)
	require.Equal(t, 3, result.Errors)
}
