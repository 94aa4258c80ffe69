package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/solwatch/arbedge/internal/domain"
)

type entry struct {
	impl   Strategy
	active bool
}

// Registry manages the named collection of strategies and their activation
// flags. It is safe for concurrent use; ToggleAll is atomic with respect to
// concurrent readers, so List never observes a partial mix mid-call.
//
// Deactivating a strategy only stops it from being selected for future scan
// cycles. Detections already in flight are unaffected.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a strategy under its own name with the given initial
// activation state. An existing strategy with the same name is replaced.
func (r *Registry) Register(s Strategy, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.Name()] = &entry{impl: s, active: active}
}

// List returns all registered strategies with their current activation
// state, sorted by name.
func (r *Registry) List() []domain.BehavioralStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.BehavioralStrategy, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, domain.BehavioralStrategy{
			Name:            name,
			StrategyType:    e.impl.Type(),
			SupportedVenues: append([]domain.VenueType(nil), e.impl.SupportedVenues()...),
			IsActive:        e.active,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Toggle flips exactly one strategy's activation state. Toggling to the
// current value is a no-op success. Unknown names fail with
// domain.ErrNotFound.
func (r *Registry) Toggle(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("strategy %q: %w", name, domain.ErrNotFound)
	}
	e.active = active
	return nil
}

// ToggleAll sets every strategy's activation state in one critical section.
func (r *Registry) ToggleAll(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.active = active
	}
}

// ActiveFor returns the strategies currently active for the given venue
// type, sorted by name. The returned slice is a snapshot: later toggles do
// not affect it.
func (r *Registry) ActiveFor(vt domain.VenueType) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Strategy
	for _, e := range r.entries {
		if !e.active {
			continue
		}
		for _, v := range e.impl.SupportedVenues() {
			if v == vt {
				out = append(out, e.impl)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
