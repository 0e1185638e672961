package storage

import (
	"context"

	"whale-screener/internal/domain"
)

// SnapshotStore provides access to wallet_snapshots storage.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.WalletSnapshot) error

	// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, snapshots []*domain.WalletSnapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.WalletSnapshot, error)

	// GetByAddress retrieves snapshots for a wallet, newest first. limit <= 0 means all.
	GetByAddress(ctx context.Context, address string, limit int) ([]*domain.WalletSnapshot, error)

	// GetLatest retrieves the most recent snapshot per wallet, largest equity first.
	GetLatest(ctx context.Context) ([]*domain.WalletSnapshot, error)
}

// MarketHistoryStore provides access to market_aggregate_history storage.
type MarketHistoryStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (token, captured_at).
	InsertBulk(ctx context.Context, points []*domain.MarketAggregatePoint) error

	// GetByToken retrieves all points for a token, ordered by captured_at ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.MarketAggregatePoint, error)

	// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.MarketAggregatePoint, error)
}
