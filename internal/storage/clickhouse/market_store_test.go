package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"whale-screener/internal/domain"
	"whale-screener/internal/storage"
)

func point(token string, capturedAt int64, long, short float64) *domain.MarketAggregatePoint {
	return &domain.MarketAggregatePoint{
		Token:            token,
		CapturedAt:       capturedAt,
		LongNotional:     long,
		ShortNotional:    short,
		TraderCount:      12,
		UnrealizedProfit: long * 0.02,
		UnrealizedLoss:   short * 0.015,
		Bias:             domain.MarketBullish,
	}
}

func TestMarketHistoryStoreRoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMarketHistoryStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.MarketAggregatePoint{
		point("BTC", 2000, 500_000, 200_000),
		point("BTC", 1000, 400_000, 250_000),
		point("ETH", 1000, 100_000, 300_000),
	}))

	btc, err := store.GetByToken(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, btc, 2)
	require.Equal(t, int64(1000), btc[0].CapturedAt)
	require.Equal(t, int64(2000), btc[1].CapturedAt)
	require.Equal(t, 500_000.0, btc[1].LongNotional)
	require.Equal(t, 12, btc[1].TraderCount)
	require.Equal(t, domain.MarketBullish, btc[1].Bias)

	empty, err := store.GetByToken(ctx, "SOL")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMarketHistoryStoreGetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMarketHistoryStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.MarketAggregatePoint{
		point("BTC", 1000, 1, 1),
		point("BTC", 2000, 2, 2),
		point("BTC", 3000, 3, 3),
	}))

	ranged, err := store.GetByTimeRange(ctx, "BTC", 1500, 2500)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	require.Equal(t, int64(2000), ranged[0].CapturedAt)

	// Inclusive bounds.
	ranged, err = store.GetByTimeRange(ctx, "BTC", 1000, 3000)
	require.NoError(t, err)
	require.Len(t, ranged, 3)
}

func TestMarketHistoryStoreRejectsIntraBatchDuplicates(t *testing.T) {
	store := NewMarketHistoryStore(nil)

	err := store.InsertBulk(context.Background(), []*domain.MarketAggregatePoint{
		point("BTC", 1000, 1, 1),
		point("BTC", 1000, 2, 2),
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(context.Background(), []*domain.MarketAggregatePoint{{Token: ""}})
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}
