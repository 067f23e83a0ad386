package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/scout/internal/observe"
	"github.com/felixgeelhaar/scout/internal/policy"
	"github.com/felixgeelhaar/scout/internal/provider"
)

const systemPrompt = `You are a research assistant. Investigate the user's question thoroughly.

You have three tools:
- web_search: find current information on the web
- store_memory: save important findings for later runs
- search_memory: recall findings from earlier runs

Work iteratively: search, read the results, and decide what to look up next.
Store findings that would be useful beyond this session. When the evidence
is sufficient, answer in plain text without calling any tool.`

const reflectionPrompt = `Before continuing, reflect on the research so far:
assess which findings are solid, which claims still need verification, and
whether any line of inquiry should be abandoned. Then continue researching
or answer if the evidence is sufficient.`

const synthesisPrompt = `Write the final research report for the original question.
Synthesize the collected evidence into a structured answer: lead with the
conclusion, support it with the findings, and cite the sources by URL.
Do not call any tools.`

// recentNoteWindow bounds how many evidence notes are replayed into the
// planning context so long runs do not grow the prompt without bound.
const recentNoteWindow = 20

// Controller drives a research run through the planning, acting,
// reflecting and finalizing phases until the continuation policy says
// stop. It owns the State; everything observers see goes through the
// progress sink as snapshots.
type Controller struct {
	provider provider.Provider
	toolbox  *Toolbox
	checker  *policy.Checker
	obs      *observe.Observer
}

func NewController(p provider.Provider, tb *Toolbox, c *policy.Checker, obs *observe.Observer) *Controller {
	return &Controller{
		provider: p,
		toolbox:  tb,
		checker:  c,
		obs:      obs,
	}
}

// Run executes one research loop for the query and returns the terminal
// state. The returned error is non-nil only when the run ends in the
// failed phase; the state carries the details either way.
func (c *Controller) Run(ctx context.Context, query string, sink Sink) (*State, error) {
	if sink == nil {
		sink = NopSink{}
	}
	state := newState(query)

	ctx, span := c.obs.StartSpan(ctx, "research.run")
	defer span.End()

	c.obs.Log().Info().
		Str("run_id", state.RunID).
		Str("query", query).
		Msg("research run started")

	state.Conversation = append(state.Conversation,
		provider.Message{Role: "system", Content: systemPrompt},
		provider.Message{Role: "user", Content: query},
	)

	lastHadToolCalls := false

	for {
		// Cancellation wins over everything else, including a pending
		// final answer.
		if err := ctx.Err(); err != nil {
			return c.fail(state, sink, fmt.Sprintf("research cancelled: %v", err))
		}

		if v := c.checker.CheckIterations(state.Iteration); v != nil {
			c.obs.Log().Warn().
				Str("run_id", state.RunID).
				Int("iteration", state.Iteration).
				Msg("iteration budget exhausted, forcing synthesis")
			break
		}

		resp, ok := c.plan(ctx, state, sink)
		if !ok {
			// Reasoning failure this iteration; the miss is in the
			// evidence log and the budget still ticks down.
			lastHadToolCalls = true
			c.reflect(state, sink, lastHadToolCalls)
			if !state.ShouldContinue {
				break
			}
			continue
		}

		// Tool calls take precedence: text alongside them is treated as
		// thinking-out-loud, not as the answer.
		if len(resp.ToolCalls) > 0 {
			c.act(ctx, state, sink, resp)
			lastHadToolCalls = true
		} else {
			state.Conversation = append(state.Conversation, provider.Message{
				Role:    "assistant",
				Content: resp.Content,
			})
			lastHadToolCalls = false
		}

		c.reflect(state, sink, lastHadToolCalls)
		if !state.ShouldContinue {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return c.fail(state, sink, fmt.Sprintf("research cancelled: %v", err))
	}

	return c.finalize(ctx, state, sink)
}

// plan runs one reasoning call. A gateway failure is absorbed into the
// evidence log and reported as !ok; the loop decides whether the budget
// allows another attempt.
func (c *Controller) plan(ctx context.Context, state *State, sink Sink) (*provider.Response, bool) {
	ctx, span := c.obs.StartSpan(ctx, "research.plan")
	defer span.End()
	c.transition(state, sink, PhasePlanning, "planning next research step")

	msgs := c.buildContext(state)
	resp, err := c.provider.Complete(ctx, msgs, ToolSpecs())
	if err != nil {
		c.obs.Log().Warn().
			Str("run_id", state.RunID).
			Int("iteration", state.Iteration).
			Err(err).
			Msg("reasoning gateway failure")
		state.Evidence.AppendNote(fmt.Sprintf("reasoning unavailable at iteration %d: %v", state.Iteration, err))
		return nil, false
	}
	return resp, true
}

// buildContext assembles the transcript for one reasoning call: the
// standing conversation, a bounded window of recent evidence, and the
// reflection instruction when the cadence says one is owed.
func (c *Controller) buildContext(state *State) []provider.Message {
	msgs := make([]provider.Message, len(state.Conversation))
	copy(msgs, state.Conversation)

	if notes := state.Evidence.RecentNotes(recentNoteWindow); len(notes) > 0 {
		msgs = append(msgs, provider.Message{
			Role:    "user",
			Content: "Evidence gathered so far:\n- " + strings.Join(notes, "\n- "),
		})
	}

	if c.checker.ReflectionDue(state.Iteration) {
		msgs = append(msgs, provider.Message{Role: "user", Content: reflectionPrompt})
	}

	return msgs
}

// act dispatches the requested tool calls and merges the results back
// into the transcript and the evidence log, in request order.
func (c *Controller) act(ctx context.Context, state *State, sink Sink, resp *provider.Response) {
	ctx, span := c.obs.StartSpan(ctx, "research.act")
	defer span.End()
	c.transition(state, sink, PhaseActing, fmt.Sprintf("executing %d tool call(s)", len(resp.ToolCalls)))

	state.Conversation = append(state.Conversation, provider.Message{
		Role:      "assistant",
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})

	results := c.toolbox.Dispatch(ctx, resp.ToolCalls)
	for _, res := range results {
		state.Conversation = append(state.Conversation, provider.Message{
			Role:       "tool",
			Content:    res.Content,
			ToolCallID: res.Call.ID,
		})
		for _, note := range res.Notes {
			state.Evidence.AppendNote(note)
		}
		for _, src := range res.Sources {
			state.Evidence.AppendSource(src)
		}
		if res.IsError {
			c.obs.Log().Warn().
				Str("run_id", state.RunID).
				Str("tool", res.Call.Name).
				Str("error", res.Content).
				Msg("tool call failed")
		}
	}
}

// reflect closes an iteration: advance the counter and apply the
// continuation policy. Continuing requires budget left, tool activity in
// the last reasoning output, and no recorded run error.
func (c *Controller) reflect(state *State, sink Sink, lastHadToolCalls bool) {
	state.Iteration++
	state.ShouldContinue = c.checker.CheckIterations(state.Iteration) == nil &&
		lastHadToolCalls &&
		state.Err == ""
	c.transition(state, sink, PhaseReflecting,
		fmt.Sprintf("iteration %d complete", state.Iteration))
}

// finalize makes a single synthesis call and ends the run. A synthesis
// failure fails the run; there is no report to fall back on.
func (c *Controller) finalize(ctx context.Context, state *State, sink Sink) (*State, error) {
	c.transition(state, sink, PhaseFinalizing, "synthesizing final report")

	msgs := make([]provider.Message, len(state.Conversation))
	copy(msgs, state.Conversation)
	if sources := state.Evidence.Sources(); len(sources) > 0 {
		var sb strings.Builder
		sb.WriteString("Sources collected:\n")
		for _, s := range sources {
			fmt.Fprintf(&sb, "- %s (%s)\n", s.Title, s.URL)
		}
		msgs = append(msgs, provider.Message{Role: "user", Content: sb.String()})
	}
	msgs = append(msgs, provider.Message{Role: "user", Content: synthesisPrompt})

	resp, err := c.provider.Complete(ctx, msgs, nil)
	if err != nil {
		return c.fail(state, sink, fmt.Sprintf("synthesis failed: %v", err))
	}
	if strings.TrimSpace(resp.Content) == "" {
		return c.fail(state, sink, "synthesis produced an empty report")
	}

	state.FinalReport = resp.Content
	state.Phase = PhaseDone
	state.CurrentStep = string(PhaseDone)
	state.ShouldContinue = false
	sink.Notify(Update{Step: state.Phase, Iteration: state.Iteration, State: state.Snapshot()})

	c.obs.Log().Info().
		Str("run_id", state.RunID).
		Int("iterations", state.Iteration).
		Int("notes", state.Evidence.Len()).
		Msg("research run complete")

	return state, nil
}

// fail ends the run in the failed phase. FinalReport stays empty: a run
// never carries both a report and an error.
func (c *Controller) fail(state *State, sink Sink, reason string) (*State, error) {
	state.Err = reason
	state.FinalReport = ""
	state.Phase = PhaseFailed
	state.CurrentStep = string(PhaseFailed)
	state.ShouldContinue = false
	sink.Notify(Update{Step: state.Phase, Iteration: state.Iteration, State: state.Snapshot()})

	c.obs.Log().Error().
		Str("run_id", state.RunID).
		Str("reason", reason).
		Msg("research run failed")

	return state, fmt.Errorf("research run failed: %s", reason)
}

func (c *Controller) transition(state *State, sink Sink, phase Phase, step string) {
	state.Phase = phase
	state.CurrentStep = step
	sink.Notify(Update{Step: phase, Iteration: state.Iteration, State: state.Snapshot()})
}
