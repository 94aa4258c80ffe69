package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

func hunterSnapshot(volume, baseline int64) domain.VenueSnapshot {
	return domain.VenueSnapshot{
		Venue:     "raydium",
		VenueType: domain.VenueTypeAMM,
		Market: domain.MarketContext{
			Volume24hLamports: volume,
			VolumeBaseline:    baseline,
		},
		Pairs: []domain.PairQuote{
			{InputMint: "SOL", OutputMint: "mint-x", PoolAddr: "pool-x"},
		},
		CapturedAt: time.Now(),
	}
}

func TestVolumeHunterSpikeThreshold(t *testing.T) {
	s := NewVolumeHunter(VolumeHunterConfig{SpikeRatio: 3, SizeLamports: 150_000_000, EdgeBps: 120})

	tests := []struct {
		name     string
		volume   int64
		baseline int64
		want     int
	}{
		{name: "no spike", volume: 2_000_000_000, baseline: 1_000_000_000, want: 0},
		{name: "at threshold", volume: 3_000_000_000, baseline: 1_000_000_000, want: 1},
		{name: "above threshold", volume: 9_000_000_000, baseline: 1_000_000_000, want: 1},
		{name: "no baseline", volume: 3_000_000_000, baseline: 0, want: 0},
		{name: "no volume", volume: 0, baseline: 1_000_000_000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals, err := s.Detect(context.Background(), hunterSnapshot(tt.volume, tt.baseline))
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if len(signals) != tt.want {
				t.Fatalf("got %d signals, want %d", len(signals), tt.want)
			}
		})
	}
}

func TestVolumeHunterSignalShape(t *testing.T) {
	s := NewVolumeHunter(VolumeHunterConfig{
		SpikeRatio:    3,
		SizeLamports:  150_000_000,
		EdgeBps:       120,
		SignalTTL:     time.Minute,
		ExecutionMode: domain.ExecutionModeManual,
	})

	signals, err := s.Detect(context.Background(), hunterSnapshot(4_000_000_000, 1_000_000_000))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}

	sig := signals[0]
	if sig.EdgeType != domain.EdgeTypeVolumeSpike {
		t.Errorf("edge type = %s", sig.EdgeType)
	}
	if sig.Route.OutputMint != "mint-x" || sig.Route.Venues[0].PoolAddr != "pool-x" {
		t.Errorf("route = %+v", sig.Route)
	}
	if want := int64(150_000_000) * 120 / 10_000; sig.EstimatedProfitLamports != want {
		t.Errorf("profit = %d, want %d", sig.EstimatedProfitLamports, want)
	}
	// Ratio 4x: risk grows with spike magnitude.
	if sig.RiskScore != 33 {
		t.Errorf("risk = %d, want 33", sig.RiskScore)
	}
}

func TestRiskFromSpikeCapped(t *testing.T) {
	if got := riskFromSpike(100); got != 90 {
		t.Fatalf("riskFromSpike(100) = %d, want 90", got)
	}
}
