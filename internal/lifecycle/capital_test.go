package lifecycle

import (
	"errors"
	"sync"
	"testing"

	"github.com/solwatch/arbedge/internal/domain"
)

func TestLedgerReserve(t *testing.T) {
	tests := []struct {
		name    string
		ceiling int64
		setup   func(l *Ledger)
		edgeID  string
		amount  int64
		wantErr bool
		wantUse int64
	}{
		{
			name:    "simple reserve",
			ceiling: 100,
			edgeID:  "a",
			amount:  60,
			wantUse: 60,
		},
		{
			name:    "zero amount is a no-op",
			ceiling: 100,
			edgeID:  "a",
			amount:  0,
			wantUse: 0,
		},
		{
			name:    "negative amount is a no-op",
			ceiling: 100,
			edgeID:  "a",
			amount:  -5,
			wantUse: 0,
		},
		{
			name:    "exactly at ceiling",
			ceiling: 100,
			edgeID:  "a",
			amount:  100,
			wantUse: 100,
		},
		{
			name:    "over ceiling",
			ceiling: 100,
			edgeID:  "a",
			amount:  101,
			wantErr: true,
			wantUse: 0,
		},
		{
			name:    "second reservation crossing ceiling",
			ceiling: 100,
			setup:   func(l *Ledger) { _ = l.Reserve("other", 60) },
			edgeID:  "a",
			amount:  50,
			wantErr: true,
			wantUse: 60,
		},
		{
			name:    "duplicate edge is idempotent",
			ceiling: 100,
			setup:   func(l *Ledger) { _ = l.Reserve("a", 40) },
			edgeID:  "a",
			amount:  40,
			wantUse: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(tt.ceiling)
			if tt.setup != nil {
				tt.setup(l)
			}
			err := l.Reserve(tt.edgeID, tt.amount)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrCapitalExceeded) {
					t.Fatalf("error = %v, want ErrCapitalExceeded", err)
				}
			} else if err != nil {
				t.Fatalf("Reserve: %v", err)
			}
			if got := l.InUse(); got != tt.wantUse {
				t.Fatalf("InUse = %d, want %d", got, tt.wantUse)
			}
		})
	}
}

func TestLedgerRelease(t *testing.T) {
	l := NewLedger(100)
	if err := l.Reserve("a", 70); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	// Unknown release leaves the booking alone.
	l.Release("missing")
	if got := l.InUse(); got != 70 {
		t.Fatalf("InUse = %d after unknown release, want 70", got)
	}

	l.Release("a")
	if got := l.InUse(); got != 0 {
		t.Fatalf("InUse = %d, want 0", got)
	}

	// Double release stays a no-op.
	l.Release("a")
	if got := l.InUse(); got != 0 {
		t.Fatalf("InUse = %d after double release, want 0", got)
	}

	// Freed capital is reusable.
	if err := l.Reserve("b", 100); err != nil {
		t.Fatalf("Reserve after release: %v", err)
	}
}

func TestLedgerCeilingUnderContention(t *testing.T) {
	const (
		ceiling = 1000
		workers = 32
		amount  = 100
	)
	l := NewLedger(ceiling)

	var wg sync.WaitGroup
	granted := make(chan string, workers)
	for i := 0; i < workers; i++ {
		id := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Reserve(id, amount); err == nil {
				granted <- id
			}
		}()
	}
	wg.Wait()
	close(granted)

	var wins int
	for range granted {
		wins++
	}
	if wins != ceiling/amount {
		t.Fatalf("granted %d reservations, want %d", wins, ceiling/amount)
	}
	if got := l.InUse(); got != ceiling {
		t.Fatalf("InUse = %d, want %d", got, ceiling)
	}
	if l.Ceiling() != ceiling {
		t.Fatalf("Ceiling = %d, want %d", l.Ceiling(), ceiling)
	}
}
