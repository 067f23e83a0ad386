// Package search provides the web-search gateway. Implementations return
// ranked snippets for a query; ranking itself is the provider's concern.
package search

import "context"

// Result is a single item returned by a Provider.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Provider executes a query and returns at most maxResults results.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
	Name() string
}

// StubProvider is a canned search provider for tests and offline runs.
type StubProvider struct {
	Results []Result
	Err     error

	// Queries records every query received, in order.
	Queries []string
}

func (s *StubProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	s.Queries = append(s.Queries, query)
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Results) > maxResults {
		return s.Results[:maxResults], nil
	}
	return s.Results, nil
}

func (s *StubProvider) Name() string { return "stub" }
