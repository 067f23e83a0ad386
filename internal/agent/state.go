package agent

import (
	"time"

	"github.com/felixgeelhaar/scout/internal/provider"
	"github.com/google/uuid"
)

// Phase names one step of the research state machine.
type Phase string

const (
	PhaseInit       Phase = "init"
	PhasePlanning   Phase = "planning"
	PhaseActing     Phase = "acting"
	PhaseReflecting Phase = "reflecting"
	PhaseFinalizing Phase = "finalizing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// State is the single mutable record threaded through a run. It is owned
// exclusively by the controller; observers only ever see Snapshots.
type State struct {
	RunID string
	Query string

	// Conversation is the append-only transcript passed to the
	// reasoning gateway.
	Conversation []provider.Message

	// Evidence accumulates notes and deduplicated sources.
	Evidence *Evidence

	Phase          Phase
	CurrentStep    string
	Iteration      int
	ShouldContinue bool

	// FinalReport and Err are mutually exclusive terminal markers:
	// at most one is non-empty when the run ends.
	FinalReport string
	Err         string

	StartedAt time.Time
}

func newState(query string) *State {
	return &State{
		RunID:          uuid.NewString(),
		Query:          query,
		Evidence:       NewEvidence(),
		Phase:          PhaseInit,
		CurrentStep:    string(PhaseInit),
		ShouldContinue: true,
		StartedAt:      time.Now(),
	}
}

// Snapshot is an immutable copy of the run state at one transition,
// delivered to progress sinks.
type Snapshot struct {
	RunID          string
	Query          string
	Phase          Phase
	CurrentStep    string
	Iteration      int
	ShouldContinue bool
	Notes          []string
	Sources        []Source
	FinalReport    string
	Err            string
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		RunID:          s.RunID,
		Query:          s.Query,
		Phase:          s.Phase,
		CurrentStep:    s.CurrentStep,
		Iteration:      s.Iteration,
		ShouldContinue: s.ShouldContinue,
		Notes:          s.Evidence.Notes(),
		Sources:        s.Evidence.Sources(),
		FinalReport:    s.FinalReport,
		Err:            s.Err,
	}
}
