package ui

import "github.com/felixgeelhaar/scout/internal/agent"

// UI renders research progress. Implementations receive every state
// transition through Observe and must return quickly.
type UI interface {
	Observe(u agent.Update)
	Log(msg string)
}

// SilentUI swallows everything, for CI runs and tests.
type SilentUI struct{}

func (SilentUI) Observe(agent.Update) {}
func (SilentUI) Log(string)           {}

// Sink adapts a UI to the agent's progress sink.
func Sink(u UI) agent.Sink {
	return agent.SinkFunc(u.Observe)
}
