// Package memory provides in-memory store implementations, used by tests
// and by deployments that run without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"whale-screener/internal/domain"
	"whale-screener/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore in memory.
type SnapshotStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.WalletSnapshot
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{byID: make(map[string]*domain.WalletSnapshot)}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.WalletSnapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}
	s.byID[snap.SnapshotID] = copySnapshot(snap)
	return nil
}

// InsertBulk adds multiple snapshots atomically.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.WalletSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.SnapshotID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.byID[snap.SnapshotID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[snap.SnapshotID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[snap.SnapshotID] = struct{}{}
	}

	for _, snap := range snapshots {
		s.byID[snap.SnapshotID] = copySnapshot(snap)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID.
func (s *SnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.WalletSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.byID[snapshotID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// GetByAddress retrieves snapshots for a wallet, newest first.
func (s *SnapshotStore) GetByAddress(_ context.Context, address string, limit int) ([]*domain.WalletSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.WalletSnapshot
	for _, snap := range s.byID {
		if snap.Address == address {
			out = append(out, copySnapshot(snap))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CapturedAt != out[j].CapturedAt {
			return out[i].CapturedAt > out[j].CapturedAt
		}
		return out[i].SnapshotID < out[j].SnapshotID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// GetLatest retrieves the most recent snapshot per wallet, largest equity first.
func (s *SnapshotStore) GetLatest(_ context.Context) ([]*domain.WalletSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*domain.WalletSnapshot)
	for _, snap := range s.byID {
		cur, ok := latest[snap.Address]
		if !ok || snap.CapturedAt > cur.CapturedAt {
			latest[snap.Address] = snap
		}
	}

	out := make([]*domain.WalletSnapshot, 0, len(latest))
	for _, snap := range latest {
		out = append(out, copySnapshot(snap))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Equity != out[j].Equity {
			return out[i].Equity > out[j].Equity
		}
		return out[i].Address < out[j].Address
	})
	return out, nil
}

func copySnapshot(snap *domain.WalletSnapshot) *domain.WalletSnapshot {
	c := *snap
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	return &c
}
