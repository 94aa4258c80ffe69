package lifecycle

import (
	"fmt"
	"sync"

	"github.com/solwatch/arbedge/internal/domain"
)

// Ledger is the shared capital admission counter. Every strategy draws from
// the one pool, so total reserved exposure across approved and executing
// edges must never exceed the ceiling. Overshoot is a correctness violation,
// not a display glitch, so all adjustments go through the ledger's lock.
type Ledger struct {
	mu       sync.Mutex
	ceiling  int64
	inUse    int64
	reserved map[string]int64 // edge id -> reserved lamports
}

// NewLedger creates a ledger with the given ceiling in lamports.
func NewLedger(ceiling int64) *Ledger {
	return &Ledger{
		ceiling:  ceiling,
		reserved: make(map[string]int64),
	}
}

// Reserve admits amount lamports of exposure for the edge, failing with
// domain.ErrCapitalExceeded when the ceiling would be crossed. Reserving
// zero succeeds without booking. Reserving twice for the same edge is a
// no-op success.
func (l *Ledger) Reserve(edgeID string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.reserved[edgeID]; ok {
		return nil
	}
	if l.inUse+amount > l.ceiling {
		return fmt.Errorf("reserve %d lamports (in use %d, ceiling %d): %w",
			amount, l.inUse, l.ceiling, domain.ErrCapitalExceeded)
	}
	l.reserved[edgeID] = amount
	l.inUse += amount
	return nil
}

// Release frees the edge's reservation. Releasing an unknown edge is a
// no-op, so terminal transitions can call it unconditionally.
func (l *Ledger) Release(edgeID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount, ok := l.reserved[edgeID]; ok {
		l.inUse -= amount
		delete(l.reserved, edgeID)
	}
}

// InUse returns the currently reserved exposure.
func (l *Ledger) InUse() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}

// Ceiling returns the configured capital ceiling.
func (l *Ledger) Ceiling() int64 {
	return l.ceiling
}
