package swarm

import (
	"testing"

	"github.com/solwatch/arbedge/internal/domain"
)

func TestAgentConfigCoercion(t *testing.T) {
	tests := []struct {
		name string
		in   AgentConfig
		want AgentConfig
	}{
		{
			name: "zero config gets defaults",
			in:   AgentConfig{},
			want: AgentConfig{DegradeAfter: 2, UnhealthyAfter: 4, RecoverAfter: 3},
		},
		{
			name: "unhealthy threshold below degrade is lifted",
			in:   AgentConfig{DegradeAfter: 5, UnhealthyAfter: 3, RecoverAfter: 1},
			want: AgentConfig{DegradeAfter: 5, UnhealthyAfter: 7, RecoverAfter: 1},
		},
		{
			name: "sane config untouched",
			in:   AgentConfig{DegradeAfter: 3, UnhealthyAfter: 6, RecoverAfter: 2},
			want: AgentConfig{DegradeAfter: 3, UnhealthyAfter: 6, RecoverAfter: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAgent("a-1", tt.in)
			if a.cfg != tt.want {
				t.Fatalf("cfg = %+v, want %+v", a.cfg, tt.want)
			}
		})
	}
}

func TestAgentDegradesOnConsecutiveFailures(t *testing.T) {
	a := NewAgent("a-1", AgentConfig{DegradeAfter: 2, UnhealthyAfter: 4, RecoverAfter: 3})

	wantAfter := []domain.AgentHealth{
		domain.AgentHealthy,   // 1 failure
		domain.AgentDegraded,  // 2
		domain.AgentDegraded,  // 3
		domain.AgentUnhealthy, // 4
		domain.AgentUnhealthy, // 5
	}
	for i, want := range wantAfter {
		a.RecordFailure()
		if got := a.Health(); got != want {
			t.Fatalf("after %d failures health = %s, want %s", i+1, got, want)
		}
	}
}

func TestAgentSuccessResetsFailureStreak(t *testing.T) {
	a := NewAgent("a-1", AgentConfig{DegradeAfter: 2, UnhealthyAfter: 4, RecoverAfter: 3})

	a.RecordFailure()
	a.RecordSuccess()
	a.RecordFailure()
	if got := a.Health(); got != domain.AgentHealthy {
		t.Fatalf("health = %s, want healthy after broken streak", got)
	}
}

func TestAgentRecoversOneStateAtATime(t *testing.T) {
	a := NewAgent("a-1", AgentConfig{DegradeAfter: 2, UnhealthyAfter: 4, RecoverAfter: 2})

	for i := 0; i < 4; i++ {
		a.RecordFailure()
	}
	if got := a.Health(); got != domain.AgentUnhealthy {
		t.Fatalf("health = %s, want unhealthy", got)
	}

	a.RecordSuccess()
	if got := a.Health(); got != domain.AgentUnhealthy {
		t.Fatalf("health = %s, want unhealthy after one success", got)
	}
	a.RecordSuccess()
	if got := a.Health(); got != domain.AgentDegraded {
		t.Fatalf("health = %s, want degraded after recovery run", got)
	}
	a.RecordSuccess()
	a.RecordSuccess()
	if got := a.Health(); got != domain.AgentHealthy {
		t.Fatalf("health = %s, want healthy after second recovery run", got)
	}
}

func TestAgentDeadIsPermanent(t *testing.T) {
	a := NewAgent("a-1", DefaultAgentConfig())
	a.RecordFatal()

	for i := 0; i < 10; i++ {
		a.RecordSuccess()
	}
	if got := a.Health(); got != domain.AgentDead {
		t.Fatalf("health = %s, want dead regardless of successes", got)
	}

	a.RecordFailure()
	if got := a.Health(); got != domain.AgentDead {
		t.Fatalf("health = %s, want dead", got)
	}
}
