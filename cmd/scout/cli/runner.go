package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/felixgeelhaar/scout/internal/agent"
	"github.com/felixgeelhaar/scout/internal/config"
	"github.com/felixgeelhaar/scout/internal/memory"
	"github.com/felixgeelhaar/scout/internal/observe"
	"github.com/felixgeelhaar/scout/internal/policy"
	"github.com/felixgeelhaar/scout/internal/provider"
	"github.com/felixgeelhaar/scout/internal/search"
	"github.com/felixgeelhaar/scout/internal/store"
)

// Runner wires the store, gateways and controller together for one run
// and persists the outcome: run history, research notes, the archived
// report, and a long-term memory summary.
type Runner struct {
	Observer *observe.Observer
	Store    store.Storage
	Provider provider.Provider
	Search   search.Provider
	Settings config.Settings
}

func NewRunner(obs *observe.Observer, s store.Storage, p provider.Provider, sp search.Provider, settings config.Settings) *Runner {
	return &Runner{
		Observer: obs,
		Store:    s,
		Provider: p,
		Search:   sp,
		Settings: settings,
	}
}

func (r *Runner) Run(ctx context.Context, query string, progress agent.Sink) error {
	if progress == nil {
		progress = agent.NopSink{}
	}

	checker := policy.New(policy.Policy{
		MaxIterations:       r.Settings.MaxIterations,
		ReflectionThreshold: r.Settings.ReflectionThreshold,
		ResultsPerSearch:    r.Settings.ResultsPerSearch,
	})

	mem := memory.NewVectorMemory(r.Store, r.Provider)
	toolbox := agent.NewToolbox(r.Search, mem, checker)
	controller := agent.NewController(r.Provider, toolbox, checker, r.Observer)

	// The run id is minted by the controller, so the history row is
	// created on the first progress update.
	recorded := false
	sink := agent.SinkFunc(func(up agent.Update) {
		if !recorded {
			recorded = true
			now := time.Now()
			if err := r.Store.CreateRun(&store.Run{
				ID:        up.State.RunID,
				Query:     query,
				Status:    "running",
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				r.Observer.Log().Warn().Err(err).Msg("failed to record run")
			}
		}
		progress.Notify(up)
	})

	state, runErr := controller.Run(ctx, query, sink)

	status := "done"
	if state.Phase == agent.PhaseFailed {
		status = "failed"
	}
	if err := r.Store.UpdateRun(&store.Run{
		ID:        state.RunID,
		Query:     query,
		Status:    status,
		Report:    state.FinalReport,
		Error:     state.Err,
		UpdatedAt: time.Now(),
	}); err != nil {
		r.Observer.Log().Warn().Err(err).Msg("failed to update run record")
	}

	r.persistNotes(state)

	if runErr != nil {
		return runErr
	}

	r.archiveReport(state)
	r.archiveMemory(ctx, mem, state)

	fmt.Println(state.FinalReport)
	return nil
}

// persistNotes writes the evidence log to the research_notes table, both
// for failed and successful runs; partial evidence is still evidence.
func (r *Runner) persistNotes(state *agent.State) {
	for _, note := range state.Evidence.Notes() {
		if err := r.Store.AddNote(&store.Note{
			Query:     state.Query,
			Note:      note,
			CreatedAt: time.Now(),
		}); err != nil {
			r.Observer.Log().Warn().Err(err).Msg("failed to persist note")
			return
		}
	}
	for _, src := range state.Evidence.Sources() {
		if err := r.Store.AddNote(&store.Note{
			Query:     state.Query,
			Note:      src.Title,
			SourceURL: src.URL,
			CreatedAt: time.Now(),
		}); err != nil {
			r.Observer.Log().Warn().Err(err).Msg("failed to persist source")
			return
		}
	}
}

// archiveReport writes the final report under the report directory and
// registers it. Archive failures are logged, not fatal: the report has
// already been delivered.
func (r *Runner) archiveReport(state *agent.State) {
	content := []byte(state.FinalReport)
	digest := sha256.Sum256(content)
	report := &store.Report{
		ID:        state.RunID,
		RunID:     state.RunID,
		Path:      state.RunID + ".md",
		CreatedAt: time.Now(),
		Digest:    hex.EncodeToString(digest[:]),
	}
	if err := r.Store.SaveReport(report, content); err != nil {
		r.Observer.Log().Warn().Err(err).Msg("failed to archive report")
		return
	}
	r.Observer.Log().Info().Str("path", report.Path).Msg("report archived")
}

// archiveMemory stores a run summary in long-term memory so later runs
// can recall it through search_memory.
func (r *Runner) archiveMemory(ctx context.Context, mem memory.Gateway, state *agent.State) {
	summary := fmt.Sprintf("Research on %q concluded: %s", state.Query, truncate(state.FinalReport, 500))
	_, err := mem.Store(ctx, summary, map[string]string{
		"run_id": state.RunID,
		"kind":   "run_summary",
	})
	if err != nil {
		r.Observer.Log().Warn().Err(err).Msg("failed to archive run summary to memory")
	}
}

// truncate cuts on rune boundaries so multibyte text is never split
// mid-character.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
