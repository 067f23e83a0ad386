package provider

import (
	"context"
	"time"
)

// StubProvider is a scriptable provider for testing. It returns its
// canned responses in order and repeats the final one when exhausted.
type StubProvider struct {
	Responses []Response
	Delay     time.Duration

	// Calls records every transcript passed to Complete, in order.
	Calls [][]Message
}

func NewStubProvider() *StubProvider {
	return &StubProvider{
		Responses: []Response{
			{
				Content: "Searching for background material.",
				ToolCalls: []ToolCall{
					{ID: "call_1", Name: "web_search", Args: `{"query": "background material"}`},
				},
				Usage: Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
			},
			{
				Content: "Checking long-term memory for related findings.",
				ToolCalls: []ToolCall{
					{ID: "call_2", Name: "search_memory", Args: `{"query": "related findings"}`},
				},
				Usage: Usage{PromptTokens: 150, CompletionTokens: 25, TotalTokens: 175},
			},
			{
				Content: "The evidence gathered is sufficient to answer the query.",
				Usage:   Usage{PromptTokens: 200, CompletionTokens: 20, TotalTokens: 220},
			},
			{
				Content: "# Report\n\nFindings synthesized from the collected notes.",
				Usage:   Usage{PromptTokens: 250, CompletionTokens: 40, TotalTokens: 290},
			},
		},
	}
}

func (m *StubProvider) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Response, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	recorded := make([]Message, len(messages))
	copy(recorded, messages)
	m.Calls = append(m.Calls, recorded)

	if len(m.Responses) == 0 {
		return &Response{Content: "No further findings.", Usage: Usage{}}, nil
	}

	resp := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return &resp, nil
}

func (m *StubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *StubProvider) Name() string {
	return "stub"
}
