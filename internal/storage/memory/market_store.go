package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"whale-screener/internal/domain"
	"whale-screener/internal/storage"
)

// MarketHistoryStore implements storage.MarketHistoryStore in memory.
type MarketHistoryStore struct {
	mu      sync.RWMutex
	byToken map[string][]*domain.MarketAggregatePoint
	keys    map[string]struct{} // "token|captured_at"
}

// NewMarketHistoryStore creates an empty in-memory market history store.
func NewMarketHistoryStore() *MarketHistoryStore {
	return &MarketHistoryStore{
		byToken: make(map[string][]*domain.MarketAggregatePoint),
		keys:    make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.MarketHistoryStore = (*MarketHistoryStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (token, captured_at).
func (s *MarketHistoryStore) InsertBulk(_ context.Context, points []*domain.MarketAggregatePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Token == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, p := range points {
		c := *p
		s.byToken[p.Token] = append(s.byToken[p.Token], &c)
		s.keys[pointKey(p)] = struct{}{}
	}
	return nil
}

// GetByToken retrieves all points for a token, ordered by captured_at ASC.
func (s *MarketHistoryStore) GetByToken(_ context.Context, token string) ([]*domain.MarketAggregatePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.byToken[token]
	out := make([]*domain.MarketAggregatePoint, 0, len(points))
	for _, p := range points {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CapturedAt < out[j].CapturedAt
	})
	return out, nil
}

// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
func (s *MarketHistoryStore) GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.MarketAggregatePoint, error) {
	all, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, p := range all {
		if p.CapturedAt >= start && p.CapturedAt <= end {
			out = append(out, p)
		}
	}
	return out, nil
}

func pointKey(p *domain.MarketAggregatePoint) string {
	return fmt.Sprintf("%s|%d", p.Token, p.CapturedAt)
}
