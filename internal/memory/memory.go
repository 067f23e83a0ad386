// Package memory provides the long-term memory gateway: persistent notes
// retrievable by semantic similarity across runs.
package memory

import "context"

// Item represents a unit of memory.
type Item struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float32 // cosine similarity in [0,1], higher = more relevant
}

// Gateway defines the interface for long-term storage and retrieval.
type Gateway interface {
	// Store saves a piece of information and returns its id.
	Store(ctx context.Context, content string, metadata map[string]string) (string, error)

	// Search finds the k most relevant memories for a query.
	Search(ctx context.Context, query string, k int) ([]Item, error)

	// Clear removes all stored memories and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
