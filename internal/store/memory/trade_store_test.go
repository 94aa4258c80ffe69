package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

func seedTrades(t *testing.T, s *TradeStore, base time.Time) {
	t.Helper()
	trades := []domain.Trade{
		{ID: "t1", EdgeID: "e1", ProfitLamports: 100, ExecutedAt: base},
		{ID: "t2", EdgeID: "e1", ProfitLamports: -50, ExecutedAt: base.Add(time.Minute)},
		{ID: "t3", EdgeID: "e2", ProfitLamports: 200, ExecutedAt: base.Add(2 * time.Minute)},
		{ID: "t4", EdgeID: "e3", ProfitLamports: 0, ExecutedAt: base.Add(3 * time.Minute)},
	}
	for _, tr := range trades {
		if err := s.Insert(context.Background(), tr); err != nil {
			t.Fatalf("Insert %s: %v", tr.ID, err)
		}
	}
}

func TestTradeStoreInsertIdempotent(t *testing.T) {
	s := NewTradeStore()
	ctx := context.Background()

	orig := domain.Trade{ID: "t1", EdgeID: "e1", ProfitLamports: 100}
	if err := s.Insert(ctx, orig); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	dup := orig
	dup.ProfitLamports = 999
	if err := s.Insert(ctx, dup); err != nil {
		t.Fatalf("re-Insert: %v", err)
	}

	got, err := s.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ProfitLamports != 100 {
		t.Fatalf("re-insert overwrote the trade: profit = %d", got.ProfitLamports)
	}
}

func TestTradeStoreGetMissing(t *testing.T) {
	s := NewTradeStore()
	if _, err := s.GetByID(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestTradeStoreListFilters(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	since := base.Add(30 * time.Second)
	until := base.Add(150 * time.Second)

	tests := []struct {
		name   string
		filter domain.TradeFilter
		want   []string
	}{
		{name: "all newest first", want: []string{"t4", "t3", "t2", "t1"}},
		{name: "by edge", filter: domain.TradeFilter{EdgeID: "e1"}, want: []string{"t2", "t1"}},
		{name: "profitable only", filter: domain.TradeFilter{ProfitableOnly: true}, want: []string{"t3", "t1"}},
		{name: "since", filter: domain.TradeFilter{Since: &since}, want: []string{"t4", "t3", "t2"}},
		{name: "until", filter: domain.TradeFilter{Until: &until}, want: []string{"t3", "t2", "t1"}},
		{name: "limit", filter: domain.TradeFilter{Limit: 2}, want: []string{"t4", "t3"}},
		{name: "offset", filter: domain.TradeFilter{Offset: 3}, want: []string{"t1"}},
		{name: "offset past end", filter: domain.TradeFilter{Offset: 10}, want: nil},
		{name: "limit and offset", filter: domain.TradeFilter{Limit: 1, Offset: 1}, want: []string{"t3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTradeStore()
			seedTrades(t, s, base)

			got, err := s.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("listed %d trades, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Fatalf("position %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestTradeStoreListBefore(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := NewTradeStore()
	seedTrades(t, s, base)

	got, err := s.ListBefore(context.Background(), base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("ListBefore: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d trades, want 2", len(got))
	}
	if got[0].ID != "t1" || got[1].ID != "t2" {
		t.Fatalf("order = %s, %s, want oldest first", got[0].ID, got[1].ID)
	}
}
