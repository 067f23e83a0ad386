package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/scout/internal/memory"
	"github.com/felixgeelhaar/scout/internal/observe"
	"github.com/felixgeelhaar/scout/internal/policy"
	"github.com/felixgeelhaar/scout/internal/provider"
	"github.com/felixgeelhaar/scout/internal/search"
)

type fakeMemory struct {
	stored []string
	items  []memory.Item
	err    error
}

func (f *fakeMemory) Store(ctx context.Context, content string, metadata map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.stored = append(f.stored, content)
	return fmt.Sprintf("mem_%d", len(f.stored)), nil
}

func (f *fakeMemory) Search(ctx context.Context, query string, k int) ([]memory.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > k {
		return f.items[:k], nil
	}
	return f.items, nil
}

func (f *fakeMemory) Clear(ctx context.Context) (int, error) {
	n := len(f.stored)
	f.stored = nil
	return n, f.err
}

// scriptedSearch fails or succeeds per call, in order.
type scriptedSearch struct {
	script []func() ([]search.Result, error)
	calls  int
}

func (s *scriptedSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if s.calls >= len(s.script) {
		return nil, nil
	}
	fn := s.script[s.calls]
	s.calls++
	return fn()
}

func (s *scriptedSearch) Name() string { return "scripted" }

func newTestController(p provider.Provider, sp search.Provider, pol policy.Policy) (*Controller, *fakeMemory) {
	mem := &fakeMemory{}
	checker := policy.New(pol)
	tb := NewToolbox(sp, mem, checker)
	tb.SetTimeout(5 * time.Second)
	obs := observe.New(io.Discard, false)
	return NewController(p, tb, checker, obs), mem
}

func TestController_Run(t *testing.T) {
	t.Run("full loop ends in done with report", func(t *testing.T) {
		p := provider.NewStubProvider()
		sp := &search.StubProvider{Results: []search.Result{
			{Title: "Background", URL: "https://example.com/a", Snippet: "context"},
		}}
		c, _ := newTestController(p, sp, policy.DefaultPolicy)

		state, err := c.Run(context.Background(), "what is the background?", nil)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if state.Phase != PhaseDone {
			t.Errorf("expected done, got %s", state.Phase)
		}
		if state.FinalReport == "" {
			t.Error("expected a final report")
		}
		if state.Err != "" {
			t.Errorf("done run must not carry an error, got %q", state.Err)
		}
		if state.Iteration != 3 {
			t.Errorf("expected 3 iterations, got %d", state.Iteration)
		}
		if len(sp.Queries) != 1 {
			t.Errorf("expected one web search, got %d", len(sp.Queries))
		}
		if len(state.Evidence.Sources()) != 1 {
			t.Errorf("expected one source, got %d", len(state.Evidence.Sources()))
		}
	})

	t.Run("immediate answer finalizes at iteration one", func(t *testing.T) {
		p := &provider.StubProvider{Responses: []provider.Response{
			{Content: "The capital of France is Paris."},
			{Content: "# Report\n\nThe capital of France is Paris."},
		}}
		c, _ := newTestController(p, &search.StubProvider{}, policy.DefaultPolicy)

		state, err := c.Run(context.Background(), "capital of France?", nil)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if state.Iteration != 1 {
			t.Errorf("expected 1 iteration, got %d", state.Iteration)
		}
		if !strings.Contains(state.FinalReport, "Paris") {
			t.Errorf("unexpected report: %q", state.FinalReport)
		}
		// One planning call plus one synthesis call.
		if len(p.Calls) != 2 {
			t.Errorf("expected 2 reasoning calls, got %d", len(p.Calls))
		}
	})

	t.Run("iteration budget forces synthesis", func(t *testing.T) {
		toolResp := provider.Response{
			Content:   "still digging",
			ToolCalls: []provider.ToolCall{{ID: "c", Name: ToolWebSearch, Args: `{"query": "more"}`}},
		}
		p := &provider.StubProvider{Responses: []provider.Response{
			toolResp, toolResp,
			{Content: "# Report\n\nWhat we know so far."},
		}}
		c, _ := newTestController(p, &search.StubProvider{}, policy.Policy{MaxIterations: 2})

		state, err := c.Run(context.Background(), "open question", nil)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if state.Phase != PhaseDone {
			t.Errorf("expected done, got %s", state.Phase)
		}
		if state.Iteration != 2 {
			t.Errorf("expected the loop to stop at 2 iterations, got %d", state.Iteration)
		}
	})

	t.Run("search failure degrades and the run recovers", func(t *testing.T) {
		sp := &scriptedSearch{script: []func() ([]search.Result, error){
			func() ([]search.Result, error) { return nil, errors.New("connection refused") },
			func() ([]search.Result, error) {
				return []search.Result{{Title: "Found", URL: "https://example.com/b", Snippet: "answer"}}, nil
			},
		}}
		ws := func(id string) provider.Response {
			return provider.Response{ToolCalls: []provider.ToolCall{
				{ID: id, Name: ToolWebSearch, Args: `{"query": "target"}`},
			}}
		}
		p := &provider.StubProvider{Responses: []provider.Response{
			ws("c1"), ws("c2"),
			{Content: "Evidence is sufficient."},
			{Content: "# Report\n\nThe answer, with sources."},
		}}
		c, _ := newTestController(p, sp, policy.DefaultPolicy)

		state, err := c.Run(context.Background(), "flaky gateway", nil)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if state.Phase != PhaseDone {
			t.Errorf("expected done despite gateway failure, got %s", state.Phase)
		}
		var sawFailure bool
		for _, m := range state.Conversation {
			if m.Role == "tool" && strings.Contains(m.Content, "Error:") {
				sawFailure = true
			}
		}
		if !sawFailure {
			t.Error("expected the gateway failure to appear as a tool error result")
		}
		if len(state.Evidence.Sources()) != 1 {
			t.Errorf("expected the recovered search to yield one source, got %d", len(state.Evidence.Sources()))
		}
	})

	t.Run("reasoning failure is absorbed and bounded", func(t *testing.T) {
		p := &failingProvider{err: errors.New("model overloaded")}
		c, _ := newTestController(p, &search.StubProvider{}, policy.Policy{MaxIterations: 2})

		state, err := c.Run(context.Background(), "never answers", nil)
		// Synthesis also fails, so the run fails; it must not loop forever.
		if err == nil {
			t.Fatal("expected a run error when reasoning never succeeds")
		}
		if state.Phase != PhaseFailed {
			t.Errorf("expected failed, got %s", state.Phase)
		}
		if state.Iteration != 2 {
			t.Errorf("expected the budget to bound retries, got %d iterations", state.Iteration)
		}
		notes := state.Evidence.Notes()
		if len(notes) == 0 || !strings.Contains(notes[0], "reasoning unavailable") {
			t.Errorf("expected the failure recorded in evidence, got %v", notes)
		}
	})

	t.Run("cancellation fails the run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := provider.NewStubProvider()
		c, _ := newTestController(p, &search.StubProvider{}, policy.DefaultPolicy)

		state, err := c.Run(ctx, "cancelled before start", nil)
		if err == nil {
			t.Fatal("expected an error for a cancelled run")
		}
		if state.Phase != PhaseFailed {
			t.Errorf("expected failed, got %s", state.Phase)
		}
		if !strings.Contains(state.Err, "research cancelled") {
			t.Errorf("expected a cancellation reason, got %q", state.Err)
		}
		if state.FinalReport != "" {
			t.Error("a failed run must not carry a report")
		}
	})

	t.Run("cancellation mid-run wins over a pending answer", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := &cancellingProvider{cancel: cancel}
		c, _ := newTestController(p, &search.StubProvider{}, policy.DefaultPolicy)

		state, err := c.Run(ctx, "cancelled mid-run", nil)
		if err == nil {
			t.Fatal("expected an error")
		}
		if state.Phase != PhaseFailed || !strings.Contains(state.Err, "research cancelled") {
			t.Errorf("expected cancellation failure, got phase=%s err=%q", state.Phase, state.Err)
		}
	})

	t.Run("parallel tool results merge in request order", func(t *testing.T) {
		p := &provider.StubProvider{Responses: []provider.Response{
			{ToolCalls: []provider.ToolCall{
				{ID: "first", Name: ToolWebSearch, Args: `{"query": "alpha"}`},
				{ID: "second", Name: ToolStoreMemory, Args: `{"content": "beta"}`},
			}},
			{Content: "Enough."},
			{Content: "# Report\n\nDone."},
		}}
		sp := &slowSearch{delay: 50 * time.Millisecond}
		c, _ := newTestController(p, sp, policy.DefaultPolicy)

		state, err := c.Run(context.Background(), "ordering", nil)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		var toolIDs []string
		for _, m := range state.Conversation {
			if m.Role == "tool" {
				toolIDs = append(toolIDs, m.ToolCallID)
			}
		}
		if len(toolIDs) != 2 || toolIDs[0] != "first" || toolIDs[1] != "second" {
			t.Errorf("expected results in request order [first second], got %v", toolIDs)
		}
	})

	t.Run("sink receives the terminal snapshot", func(t *testing.T) {
		p := provider.NewStubProvider()
		c, _ := newTestController(p, &search.StubProvider{}, policy.DefaultPolicy)

		var updates []Update
		sink := SinkFunc(func(u Update) { updates = append(updates, u) })

		if _, err := c.Run(context.Background(), "observed run", sink); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(updates) == 0 {
			t.Fatal("expected progress updates")
		}
		last := updates[len(updates)-1]
		if !last.Step.Terminal() {
			t.Errorf("expected a terminal final update, got %s", last.Step)
		}
		if last.State.FinalReport == "" {
			t.Error("terminal snapshot should carry the report")
		}
		if updates[0].Step != PhasePlanning {
			t.Errorf("expected the run to open with planning, got %s", updates[0].Step)
		}
	})
}

type failingProvider struct {
	err error
}

func (f *failingProvider) Complete(ctx context.Context, messages []provider.Message, tools []provider.ToolSpec) (*provider.Response, error) {
	return nil, f.err
}
func (f *failingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, f.err
}
func (f *failingProvider) Name() string { return "failing" }

// cancellingProvider cancels the run's context from inside the first
// reasoning call and keeps requesting tools.
type cancellingProvider struct {
	cancel context.CancelFunc
}

func (c *cancellingProvider) Complete(ctx context.Context, messages []provider.Message, tools []provider.ToolSpec) (*provider.Response, error) {
	c.cancel()
	return &provider.Response{ToolCalls: []provider.ToolCall{
		{ID: "x", Name: ToolWebSearch, Args: `{"query": "more"}`},
	}}, nil
}
func (c *cancellingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}
func (c *cancellingProvider) Name() string { return "cancelling" }

type slowSearch struct {
	delay time.Duration
}

func (s *slowSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	time.Sleep(s.delay)
	return []search.Result{{Title: "Slow", URL: "https://example.com/slow", Snippet: query}}, nil
}
func (s *slowSearch) Name() string { return "slow" }
