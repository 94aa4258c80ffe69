package venue

import (
	"context"
	"testing"

	"github.com/solwatch/arbedge/internal/domain"
)

func TestStaticCyclesScript(t *testing.T) {
	script := []domain.VenueSnapshot{
		{Market: domain.MarketContext{GraduationPct: 10}},
		{Market: domain.MarketContext{GraduationPct: 50}},
		{Market: domain.MarketContext{GraduationPct: 90}},
	}
	s := NewStatic("paper-curve", domain.VenueTypeBondingCurve, script)

	if s.Venue() != "paper-curve" {
		t.Fatalf("venue = %q", s.Venue())
	}
	if s.VenueType() != domain.VenueTypeBondingCurve {
		t.Fatalf("venue type = %s", s.VenueType())
	}

	want := []float64{10, 50, 90, 10, 50}
	for i, pct := range want {
		snap, err := s.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot %d: %v", i, err)
		}
		if snap.Market.GraduationPct != pct {
			t.Fatalf("snapshot %d graduation = %v, want %v", i, snap.Market.GraduationPct, pct)
		}
		if snap.Venue != "paper-curve" || snap.VenueType != domain.VenueTypeBondingCurve {
			t.Fatalf("snapshot %d identity = %s/%s", i, snap.Venue, snap.VenueType)
		}
		if snap.CapturedAt.IsZero() || snap.Market.AsOf.IsZero() {
			t.Fatalf("snapshot %d timestamps not filled", i)
		}
	}
}

func TestPaperScriptExercisesStrategies(t *testing.T) {
	script := PaperScript()
	if len(script) < 3 {
		t.Fatalf("script has %d snapshots", len(script))
	}

	var sawSpike, sawBand, sawBuy bool
	for _, snap := range script {
		m := snap.Market
		if m.VolumeBaseline > 0 && float64(m.Volume24hLamports) >= 3*float64(m.VolumeBaseline) {
			sawSpike = true
		}
		if m.GraduationPct >= 85 && m.GraduationPct < 100 {
			sawBand = true
		}
		if len(snap.TrackedWalletBuys) > 0 {
			sawBuy = true
		}
		if len(snap.Pairs) == 0 {
			t.Fatal("scripted snapshot without pairs")
		}
	}
	if !sawSpike {
		t.Error("script never spikes volume")
	}
	if !sawBand {
		t.Error("script never enters the pre-graduation band")
	}
	if !sawBuy {
		t.Error("script never shows a tracked wallet buy")
	}
}
