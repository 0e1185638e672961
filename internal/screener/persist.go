package screener

import (
	"context"
	"fmt"
	"time"

	"whale-screener/internal/domain"
	"whale-screener/internal/idhash"
	"whale-screener/internal/observability"
	"whale-screener/internal/storage"
)

// Snapshots converts a refresh result into append-only snapshot rows.
// All rows share the result's refresh instant as captured_at.
func Snapshots(result *Result) []*domain.WalletSnapshot {
	capturedAt := result.RefreshedAt.UnixMilli()
	snaps := make([]*domain.WalletSnapshot, 0, len(result.Summaries))
	for _, s := range result.Summaries {
		snaps = append(snaps, &domain.WalletSnapshot{
			SnapshotID:       idhash.ComputeSnapshotID(s.Address, capturedAt, s.Source),
			Address:          s.Address,
			CapturedAt:       capturedAt,
			Equity:           s.Equity,
			Bias:             s.Bias,
			PositionValue:    s.PositionValue,
			WeightedLeverage: s.WeightedLeverage,
			UnrealizedPnL:    s.UnrealizedPnL,
			Cohort:           s.Cohort,
			PositionCount:    len(s.Positions),
			Source:           s.Source,
		})
	}
	return snaps
}

// MarketPoints converts a refresh result's market view into history rows.
func MarketPoints(result *Result) []*domain.MarketAggregatePoint {
	capturedAt := result.RefreshedAt.UnixMilli()
	points := make([]*domain.MarketAggregatePoint, 0, len(result.Market))
	for _, m := range result.Market {
		points = append(points, &domain.MarketAggregatePoint{
			Token:            m.Token,
			CapturedAt:       capturedAt,
			LongNotional:     m.LongNotional,
			ShortNotional:    m.ShortNotional,
			TraderCount:      m.TraderCount,
			UnrealizedProfit: m.UnrealizedProfit,
			UnrealizedLoss:   m.UnrealizedLoss,
			Bias:             m.Bias,
		})
	}
	return points
}

// Persist writes a refresh result to the given stores. Either store may be
// nil to skip that sink.
func Persist(ctx context.Context, result *Result, snapshots storage.SnapshotStore, history storage.MarketHistoryStore) error {
	if snapshots != nil {
		rows := Snapshots(result)
		start := time.Now()
		err := snapshots.InsertBulk(ctx, rows)
		observability.RecordDBQuery("postgres", "insert_snapshots", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist snapshots: %w", err)
		}
		observability.RecordSnapshotsStored(len(rows))
	}

	if history != nil {
		points := MarketPoints(result)
		start := time.Now()
		err := history.InsertBulk(ctx, points)
		observability.RecordDBQuery("clickhouse", "insert_market_points", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist market history: %w", err)
		}
	}

	return nil
}
