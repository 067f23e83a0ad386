package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/scout/internal/gateway"
	"github.com/felixgeelhaar/scout/internal/memory"
	"github.com/felixgeelhaar/scout/internal/policy"
	"github.com/felixgeelhaar/scout/internal/provider"
	"github.com/felixgeelhaar/scout/internal/search"
)

// The tool set is closed and statically declared. Dispatch is a switch
// over the tool name; unknown names are InvalidRequest, never ignored.
const (
	ToolWebSearch    = "web_search"
	ToolStoreMemory  = "store_memory"
	ToolSearchMemory = "search_memory"
)

// ToolSpecs returns the declared tools offered to the reasoning gateway.
func ToolSpecs() []provider.ToolSpec {
	return []provider.ToolSpec{
		{
			Name:        ToolWebSearch,
			Description: "Search the web for current information on any topic",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "What to search for",
					},
					"max_results": map[string]interface{}{
						"type":        "integer",
						"description": "Number of results to return",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        ToolStoreMemory,
			Description: "Store a piece of information in long-term memory for later retrieval",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"content": map[string]interface{}{
						"type":        "string",
						"description": "The information to remember",
					},
					"metadata": map[string]interface{}{
						"type":        "object",
						"description": "Optional metadata (source, topic, etc.)",
					},
				},
				"required": []string{"content"},
			},
		},
		{
			Name:        ToolSearchMemory,
			Description: "Search through stored memories using semantic similarity",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "What to search for",
					},
					"n_results": map[string]interface{}{
						"type":        "integer",
						"description": "Number of results to return",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// ToolResult is the processed outcome of one tool call, ready to be
// merged back into the transcript and the evidence log.
type ToolResult struct {
	Call    provider.ToolCall
	Content string
	Notes   []string
	Sources []Source
	IsError bool
}

// Toolbox dispatches tool calls to the search and memory gateways.
// Gateway failures become error-text results, never aborts.
type Toolbox struct {
	search  search.Provider
	memory  memory.Gateway
	checker *policy.Checker
	timeout time.Duration
}

func NewToolbox(s search.Provider, m memory.Gateway, c *policy.Checker) *Toolbox {
	return &Toolbox{
		search:  s,
		memory:  m,
		checker: c,
		timeout: 30 * time.Second,
	}
}

// SetTimeout overrides the per-call timeout (useful for tests).
func (t *Toolbox) SetTimeout(d time.Duration) {
	if d > 0 {
		t.timeout = d
	}
}

// Dispatch executes a batch of tool calls. Calls run concurrently since
// they target independent gateways, but results come back in request
// order so transcripts stay reproducible.
func (t *Toolbox) Dispatch(ctx context.Context, calls []provider.ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call provider.ToolCall) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, t.timeout)
			defer cancel()
			results[i] = t.execute(callCtx, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

func (t *Toolbox) execute(ctx context.Context, call provider.ToolCall) ToolResult {
	args, gerr := parseArgs(call)
	if gerr != nil {
		return errorResult(call, gerr)
	}

	switch call.Name {
	case ToolWebSearch:
		return t.webSearch(ctx, call, args)
	case ToolStoreMemory:
		return t.storeMemory(ctx, call, args)
	case ToolSearchMemory:
		return t.searchMemory(ctx, call, args)
	default:
		return errorResult(call, gateway.InvalidRequestf("tool", "unknown tool: %s", call.Name))
	}
}

func (t *Toolbox) webSearch(ctx context.Context, call provider.ToolCall, args map[string]interface{}) ToolResult {
	query, gerr := stringArg(args, "query", call.Name)
	if gerr != nil {
		return errorResult(call, gerr)
	}
	max := intArg(args, "max_results", t.checker.Policy().ResultsPerSearch)

	found, err := t.search.Search(ctx, query, max)
	if err != nil {
		gerr := gateway.Classify("search", err)
		res := errorResult(call, gerr)
		res.Notes = append(res.Notes, fmt.Sprintf("web search failed for: %s (%v)", query, err))
		return res
	}

	if len(found) == 0 {
		// Recorded so the model sees the miss instead of retrying the
		// identical query forever.
		note := "no results for: " + query
		return ToolResult{Call: call, Content: note, Notes: []string{note}}
	}

	var sb strings.Builder
	res := ToolResult{Call: call}
	for _, r := range found {
		if v := t.checker.CheckSource(r.URL); v != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n---\n")
		}
		fmt.Fprintf(&sb, "Title: %s\nURL: %s\nSnippet: %s", r.Title, r.URL, r.Snippet)
		res.Notes = append(res.Notes, fmt.Sprintf("[%s] %s", r.Title, r.Snippet))
		res.Sources = append(res.Sources, Source{Title: r.Title, URL: r.URL})
	}
	if sb.Len() == 0 {
		note := "no results for: " + query
		return ToolResult{Call: call, Content: note, Notes: []string{note}}
	}
	res.Content = sb.String()
	return res
}

func (t *Toolbox) storeMemory(ctx context.Context, call provider.ToolCall, args map[string]interface{}) ToolResult {
	content, gerr := stringArg(args, "content", call.Name)
	if gerr != nil {
		return errorResult(call, gerr)
	}

	meta := map[string]string{}
	if raw, ok := args["metadata"].(map[string]interface{}); ok {
		for k, v := range raw {
			meta[k] = fmt.Sprint(v)
		}
	}

	id, err := t.memory.Store(ctx, content, meta)
	if err != nil {
		return errorResult(call, gateway.Classify("memory", err))
	}
	return ToolResult{Call: call, Content: fmt.Sprintf("Memory stored with ID: %s", id)}
}

func (t *Toolbox) searchMemory(ctx context.Context, call provider.ToolCall, args map[string]interface{}) ToolResult {
	query, gerr := stringArg(args, "query", call.Name)
	if gerr != nil {
		return errorResult(call, gerr)
	}
	k := intArg(args, "n_results", 5)

	items, err := t.memory.Search(ctx, query, k)
	if err != nil {
		return errorResult(call, gateway.Classify("memory", err))
	}

	if len(items) == 0 {
		note := "no memories found for: " + query
		return ToolResult{Call: call, Content: note, Notes: []string{note}}
	}

	var sb strings.Builder
	res := ToolResult{Call: call}
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		fmt.Fprintf(&sb, "Memory: %s (relevance %.2f)", item.Content, item.Similarity)
		res.Notes = append(res.Notes, fmt.Sprintf("(memory) %s", item.Content))
	}
	res.Content = sb.String()
	return res
}

func errorResult(call provider.ToolCall, gerr *gateway.Error) ToolResult {
	return ToolResult{
		Call:    call,
		Content: "Error: " + gerr.Error(),
		IsError: true,
	}
}

// parseArgs decodes the argument map and validates the call against the
// declared schemas. Unknown tool names are caught by the dispatch switch.
func parseArgs(call provider.ToolCall) (map[string]interface{}, *gateway.Error) {
	args := map[string]interface{}{}
	raw := strings.TrimSpace(call.Args)
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, gateway.InvalidRequestf("tool", "malformed arguments for %s: %v", call.Name, err)
	}
	return args, nil
}

func stringArg(args map[string]interface{}, key, toolName string) (string, *gateway.Error) {
	raw, ok := args[key]
	if !ok {
		return "", gateway.InvalidRequestf("tool", "missing required argument %q for %s", key, toolName)
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", gateway.InvalidRequestf("tool", "argument %q for %s must be a non-empty string", key, toolName)
	}
	return s, nil
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	raw, ok := args[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case float64:
		if v >= 1 {
			return int(v)
		}
	case int:
		if v >= 1 {
			return v
		}
	}
	return fallback
}
