package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/solwatch/arbedge/internal/domain"
)

type fakeStrategy struct {
	name   string
	venues []domain.VenueType
}

func (f *fakeStrategy) Name() string                        { return f.name }
func (f *fakeStrategy) Type() domain.StrategyType           { return domain.StrategyTypeVolumeHunter }
func (f *fakeStrategy) SupportedVenues() []domain.VenueType { return f.venues }
func (f *fakeStrategy) Detect(ctx context.Context, snap domain.VenueSnapshot) ([]domain.RawSignal, error) {
	return nil, nil
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeStrategy{name: "zeta"}, true)
	r.Register(&fakeStrategy{name: "alpha"}, false)
	r.Register(&fakeStrategy{name: "mid"}, true)

	got := r.List()
	if len(got) != 3 {
		t.Fatalf("listed %d strategies, want 3", len(got))
	}
	wantNames := []string{"alpha", "mid", "zeta"}
	for i, want := range wantNames {
		if got[i].Name != want {
			t.Fatalf("position %d = %s, want %s", i, got[i].Name, want)
		}
	}
	if got[0].IsActive || !got[1].IsActive || !got[2].IsActive {
		t.Fatalf("activation flags wrong: %+v", got)
	}
}

func TestRegistryToggle(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeStrategy{name: "alpha"}, true)

	if err := r.Toggle("alpha", false); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if r.List()[0].IsActive {
		t.Fatal("strategy still active after toggle off")
	}

	// Toggling to the current value stays a no-op success.
	if err := r.Toggle("alpha", false); err != nil {
		t.Fatalf("repeat Toggle: %v", err)
	}

	if err := r.Toggle("missing", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown name error = %v, want ErrNotFound", err)
	}
}

func TestRegistryToggleAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeStrategy{name: "a"}, true)
	r.Register(&fakeStrategy{name: "b"}, false)
	r.Register(&fakeStrategy{name: "c"}, true)

	r.ToggleAll(false)
	for _, s := range r.List() {
		if s.IsActive {
			t.Fatalf("strategy %s active after ToggleAll(false)", s.Name)
		}
	}

	r.ToggleAll(true)
	for _, s := range r.List() {
		if !s.IsActive {
			t.Fatalf("strategy %s inactive after ToggleAll(true)", s.Name)
		}
	}
}

func TestRegistryActiveFor(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeStrategy{name: "curve-only", venues: []domain.VenueType{domain.VenueTypeBondingCurve}}, true)
	r.Register(&fakeStrategy{name: "amm-only", venues: []domain.VenueType{domain.VenueTypeAMM}}, true)
	r.Register(&fakeStrategy{name: "both", venues: []domain.VenueType{domain.VenueTypeBondingCurve, domain.VenueTypeAMM}}, true)
	r.Register(&fakeStrategy{name: "inactive", venues: []domain.VenueType{domain.VenueTypeAMM}}, false)

	got := r.ActiveFor(domain.VenueTypeAMM)
	if len(got) != 2 {
		t.Fatalf("ActiveFor(amm) returned %d strategies, want 2", len(got))
	}
	if got[0].Name() != "amm-only" || got[1].Name() != "both" {
		t.Fatalf("got %s, %s", got[0].Name(), got[1].Name())
	}

	got = r.ActiveFor(domain.VenueTypeCLOB)
	if len(got) != 0 {
		t.Fatalf("ActiveFor(clob) returned %d strategies, want 0", len(got))
	}
}
