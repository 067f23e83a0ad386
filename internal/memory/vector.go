package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/scout/internal/store"
)

// Embedder turns text into a vector. The reasoning provider satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorMemory persists memories in the sqlite store and ranks them by
// cosine similarity of their embeddings.
type VectorMemory struct {
	store    store.Storage
	embedder Embedder
	now      func() time.Time
}

func NewVectorMemory(s store.Storage, e Embedder) *VectorMemory {
	return &VectorMemory{store: s, embedder: e, now: time.Now}
}

func (m *VectorMemory) Store(ctx context.Context, content string, metadata map[string]string) (string, error) {
	vec, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("failed to embed memory: %w", err)
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["timestamp"] = m.now().Format(time.RFC3339)

	id := fmt.Sprintf("mem_%d", m.now().UnixNano())
	if err := m.store.AddMemory(id, content, vec, meta); err != nil {
		return "", fmt.Errorf("failed to store memory: %w", err)
	}
	return id, nil
}

func (m *VectorMemory) Search(ctx context.Context, query string, k int) ([]Item, error) {
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	found, err := m.store.SearchMemory(vec, k)
	if err != nil {
		return nil, fmt.Errorf("memory search failed: %w", err)
	}

	items := make([]Item, len(found))
	for i, f := range found {
		items[i] = Item{
			ID:         f.ID,
			Content:    f.Content,
			Metadata:   f.Metadata,
			Similarity: f.Similarity,
		}
	}
	return items, nil
}

func (m *VectorMemory) Clear(ctx context.Context) (int, error) {
	n, err := m.store.ClearMemory()
	if err != nil {
		return 0, fmt.Errorf("failed to clear memory: %w", err)
	}
	return n, nil
}
