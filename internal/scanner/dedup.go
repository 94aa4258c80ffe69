package scanner

import (
	"strings"
	"sync"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

// dedup suppresses repeat signals for the same opportunity within a TTL
// window. Strategies re-emit every cycle while a condition holds; without
// this, one graduation band would mint a fresh edge every few seconds.
type dedup struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func newDedup(ttl time.Duration) *dedup {
	return &dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// fingerprint identifies the opportunity, not the signal instance: the same
// strategy on the same route is the same opportunity regardless of the
// signal's UUID.
func fingerprint(sig domain.RawSignal) string {
	parts := []string{sig.Strategy, string(sig.EdgeType), sig.Route.InputMint, sig.Route.OutputMint}
	for _, hop := range sig.Route.Venues {
		parts = append(parts, hop.Venue, hop.PoolAddr)
	}
	return strings.Join(parts, "|")
}

// isDuplicate reports whether the signal's opportunity was seen within the
// TTL window, recording it if not.
func (d *dedup) isDuplicate(sig domain.RawSignal) bool {
	key := fingerprint(sig)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.ttl {
		return true
	}
	d.seen[key] = now
	return false
}

// cleanup drops expired entries to bound memory.
func (d *dedup) cleanup() {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	for key, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, key)
		}
	}
}
