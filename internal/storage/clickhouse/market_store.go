package clickhouse

import (
	"context"
	"fmt"

	"whale-screener/internal/domain"
	"whale-screener/internal/storage"
)

// MarketHistoryStore implements storage.MarketHistoryStore using ClickHouse.
// The table uses ReplacingMergeTree keyed on (token, captured_at), so
// duplicate points collapse during merges rather than failing the insert;
// the store pre-checks the batch for intra-batch duplicates only.
type MarketHistoryStore struct {
	conn *Conn
}

// NewMarketHistoryStore creates a new MarketHistoryStore.
func NewMarketHistoryStore(conn *Conn) *MarketHistoryStore {
	return &MarketHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MarketHistoryStore = (*MarketHistoryStore)(nil)

// InsertBulk adds multiple points using a native batch.
func (s *MarketHistoryStore) InsertBulk(ctx context.Context, points []*domain.MarketAggregatePoint) error {
	if len(points) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Token == "" {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%d", p.Token, p.CapturedAt)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_aggregate_history (
			token, captured_at, long_notional, short_notional,
			trader_count, unrealized_profit, unrealized_loss, bias
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err := batch.Append(
			p.Token,
			p.CapturedAt,
			p.LongNotional,
			p.ShortNotional,
			int32(p.TraderCount),
			p.UnrealizedProfit,
			p.UnrealizedLoss,
			string(p.Bias),
		)
		if err != nil {
			return fmt.Errorf("append point %s/%d: %w", p.Token, p.CapturedAt, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

const marketColumns = `
	token, captured_at, long_notional, short_notional,
	trader_count, unrealized_profit, unrealized_loss, bias
`

// GetByToken retrieves all points for a token, ordered by captured_at ASC.
func (s *MarketHistoryStore) GetByToken(ctx context.Context, token string) ([]*domain.MarketAggregatePoint, error) {
	query := `
		SELECT ` + marketColumns + `
		FROM market_aggregate_history FINAL
		WHERE token = ?
		ORDER BY captured_at ASC
	`

	rows, err := s.conn.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("get points by token: %w", err)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
func (s *MarketHistoryStore) GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.MarketAggregatePoint, error) {
	query := `
		SELECT ` + marketColumns + `
		FROM market_aggregate_history FINAL
		WHERE token = ? AND captured_at >= ? AND captured_at <= ?
		ORDER BY captured_at ASC
	`

	rows, err := s.conn.Query(ctx, query, token, start, end)
	if err != nil {
		return nil, fmt.Errorf("get points by time range: %w", err)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// rowScanner matches the clickhouse-go rows iterator.
type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanPoints(rows rowScanner) ([]*domain.MarketAggregatePoint, error) {
	var points []*domain.MarketAggregatePoint

	for rows.Next() {
		var p domain.MarketAggregatePoint
		var traderCount int32
		var bias string

		err := rows.Scan(
			&p.Token,
			&p.CapturedAt,
			&p.LongNotional,
			&p.ShortNotional,
			&traderCount,
			&p.UnrealizedProfit,
			&p.UnrealizedLoss,
			&bias,
		)
		if err != nil {
			return nil, fmt.Errorf("scan point row: %w", err)
		}

		p.TraderCount = int(traderCount)
		p.Bias = domain.MarketBias(bias)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate point rows: %w", err)
	}

	return points, nil
}
