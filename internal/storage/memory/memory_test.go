package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"whale-screener/internal/domain"
	"whale-screener/internal/storage"
)

func snapshot(id, address string, capturedAt int64, equity float64) *domain.WalletSnapshot {
	return &domain.WalletSnapshot{
		SnapshotID: id,
		Address:    address,
		CapturedAt: capturedAt,
		Equity:     equity,
		Bias:       domain.BiasNeutral,
		Cohort:     domain.CohortWhale,
		Source:     domain.SourceLive,
	}
}

func TestSnapshotStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	snap := snapshot("id-1", "0xaaa", 1000, 5_000_000)
	require.NoError(t, store.Insert(ctx, snap))

	got, err := store.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, "0xaaa", got.Address)
	require.NotZero(t, got.CreatedAt)

	// Append-only
	require.ErrorIs(t, store.Insert(ctx, snap), storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, store.Insert(ctx, &domain.WalletSnapshot{}), storage.ErrInvalidInput)
}

func TestSnapshotStoreInsertBulkAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	require.NoError(t, store.Insert(ctx, snapshot("id-1", "0xaaa", 1000, 1)))

	err := store.InsertBulk(ctx, []*domain.WalletSnapshot{
		snapshot("id-2", "0xbbb", 1000, 2),
		snapshot("id-1", "0xaaa", 2000, 3), // duplicate
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Nothing from the failed batch is visible.
	_, err = store.GetByID(ctx, "id-2")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotStoreGetByAddress(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	require.NoError(t, store.InsertBulk(ctx, []*domain.WalletSnapshot{
		snapshot("id-1", "0xaaa", 1000, 1),
		snapshot("id-2", "0xaaa", 3000, 1),
		snapshot("id-3", "0xaaa", 2000, 1),
		snapshot("id-4", "0xbbb", 9000, 1),
	}))

	got, err := store.GetByAddress(ctx, "0xaaa", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []int64{3000, 2000, 1000}, []int64{got[0].CapturedAt, got[1].CapturedAt, got[2].CapturedAt})

	limited, err := store.GetByAddress(ctx, "0xaaa", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestSnapshotStoreGetLatest(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	require.NoError(t, store.InsertBulk(ctx, []*domain.WalletSnapshot{
		snapshot("id-1", "0xaaa", 1000, 10_000_000),
		snapshot("id-2", "0xaaa", 2000, 12_000_000),
		snapshot("id-3", "0xbbb", 1500, 60_000_000),
	}))

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	// Largest equity first; only the newest snapshot per wallet.
	require.Equal(t, "0xbbb", latest[0].Address)
	require.Equal(t, "0xaaa", latest[1].Address)
	require.Equal(t, int64(2000), latest[1].CapturedAt)
}

func TestMarketHistoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMarketHistoryStore()

	points := []*domain.MarketAggregatePoint{
		{Token: "BTC", CapturedAt: 2000, LongNotional: 100},
		{Token: "BTC", CapturedAt: 1000, LongNotional: 90},
		{Token: "ETH", CapturedAt: 1000, ShortNotional: 50},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	btc, err := store.GetByToken(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, btc, 2)
	require.Equal(t, int64(1000), btc[0].CapturedAt) // ascending

	ranged, err := store.GetByTimeRange(ctx, "BTC", 1500, 2500)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	require.Equal(t, int64(2000), ranged[0].CapturedAt)

	// Duplicate (token, captured_at) rejects the batch.
	err = store.InsertBulk(ctx, []*domain.MarketAggregatePoint{
		{Token: "SOL", CapturedAt: 1000},
		{Token: "BTC", CapturedAt: 2000},
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	sol, err := store.GetByToken(ctx, "SOL")
	require.NoError(t, err)
	require.Empty(t, sol)
}
