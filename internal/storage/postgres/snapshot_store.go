package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"whale-screener/internal/domain"
	"whale-screener/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	snapshot_id, address, captured_at, equity, bias, position_value,
	weighted_leverage, unrealized_pnl, cohort, position_count, source, created_at
`

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.WalletSnapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallet_snapshots (
			snapshot_id, address, captured_at, equity, bias, position_value,
			weighted_leverage, unrealized_pnl, cohort, position_count, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		snap.SnapshotID,
		snap.Address,
		snap.CapturedAt,
		snap.Equity,
		string(snap.Bias),
		snap.PositionValue,
		snap.WeightedLeverage,
		snap.UnrealizedPnL,
		string(snap.Cohort),
		snap.PositionCount,
		string(snap.Source),
		createdAt(snap),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.WalletSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO wallet_snapshots (
			snapshot_id, address, captured_at, equity, bias, position_value,
			weighted_leverage, unrealized_pnl, cohort, position_count, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for _, snap := range snapshots {
		if snap == nil || snap.SnapshotID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			snap.SnapshotID,
			snap.Address,
			snap.CapturedAt,
			snap.Equity,
			string(snap.Bias),
			snap.PositionValue,
			snap.WeightedLeverage,
			snap.UnrealizedPnL,
			string(snap.Cohort),
			snap.PositionCount,
			string(snap.Source),
			createdAt(snap),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert snapshot %s: %w", snap.SnapshotID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.WalletSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM wallet_snapshots WHERE snapshot_id = $1`

	row := s.pool.QueryRow(ctx, query, snapshotID)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return snap, nil
}

// GetByAddress retrieves snapshots for a wallet, newest first.
func (s *SnapshotStore) GetByAddress(ctx context.Context, address string, limit int) ([]*domain.WalletSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM wallet_snapshots
		WHERE address = $1
		ORDER BY captured_at DESC, snapshot_id ASC
	`
	args := []interface{}{address}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by address: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetLatest retrieves the most recent snapshot per wallet, largest equity first.
func (s *SnapshotStore) GetLatest(ctx context.Context) ([]*domain.WalletSnapshot, error) {
	query := `
		SELECT DISTINCT ON (address) ` + snapshotColumns + `
		FROM wallet_snapshots
		ORDER BY address, captured_at DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get latest snapshots: %w", err)
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}

	// DISTINCT ON orders by address; callers expect largest equity first.
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Equity != snaps[j].Equity {
			return snaps[i].Equity > snaps[j].Equity
		}
		return snaps[i].Address < snaps[j].Address
	})
	return snaps, nil
}

func createdAt(snap *domain.WalletSnapshot) int64 {
	if snap.CreatedAt != 0 {
		return snap.CreatedAt
	}
	return time.Now().UnixMilli()
}

// scanSnapshot scans a single row into a WalletSnapshot.
func scanSnapshot(row pgx.Row) (*domain.WalletSnapshot, error) {
	var snap domain.WalletSnapshot
	var bias, cohort, source string

	err := row.Scan(
		&snap.SnapshotID,
		&snap.Address,
		&snap.CapturedAt,
		&snap.Equity,
		&bias,
		&snap.PositionValue,
		&snap.WeightedLeverage,
		&snap.UnrealizedPnL,
		&cohort,
		&snap.PositionCount,
		&source,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.Bias = domain.Bias(bias)
	snap.Cohort = domain.Cohort(cohort)
	snap.Source = domain.DataSource(source)
	return &snap, nil
}

// scanSnapshots scans multiple rows into a slice of WalletSnapshot.
func scanSnapshots(rows pgx.Rows) ([]*domain.WalletSnapshot, error) {
	var snaps []*domain.WalletSnapshot

	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}
