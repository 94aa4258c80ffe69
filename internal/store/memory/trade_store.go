// Package memory provides in-process store implementations used in paper
// mode and in tests, where a database connection is not available.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

// TradeStore implements domain.TradeStore in memory.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[string]domain.Trade
}

var _ domain.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates an empty in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{trades: make(map[string]domain.Trade)}
}

// Insert records a trade. Re-inserting the same id is a no-op.
func (s *TradeStore) Insert(ctx context.Context, trade domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[trade.ID]; ok {
		return nil
	}
	s.trades[trade.ID] = trade
	return nil
}

// GetByID returns the trade with the given id, or domain.ErrNotFound.
func (s *TradeStore) GetByID(ctx context.Context, id string) (domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return domain.Trade{}, fmt.Errorf("memory: trade %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// List returns trades matching the filter, most recent first.
func (s *TradeStore) List(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	s.mu.RLock()
	var out []domain.Trade
	for _, t := range s.trades {
		if filter.EdgeID != "" && t.EdgeID != filter.EdgeID {
			continue
		}
		if filter.Since != nil && t.ExecutedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && t.ExecutedAt.After(*filter.Until) {
			continue
		}
		if filter.ProfitableOnly && t.ProfitLamports <= 0 {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ExecutedAt.After(out[j].ExecutedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListBefore returns trades executed strictly before the cutoff, oldest
// first.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	s.mu.RLock()
	var out []domain.Trade
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ExecutedAt.Before(out[j].ExecutedAt)
	})
	return out, nil
}
