package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/scout/internal/store"
)

type fakeStorage struct {
	store.Storage

	added    map[string]map[string]string
	contents map[string]string
	results  []store.MemoryItem
	cleared  int
	err      error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		added:    make(map[string]map[string]string),
		contents: make(map[string]string),
	}
}

func (f *fakeStorage) AddMemory(id, content string, vector []float32, meta map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.added[id] = meta
	f.contents[id] = content
	return nil
}

func (f *fakeStorage) SearchMemory(vector []float32, limit int) ([]store.MemoryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeStorage) ClearMemory() (int, error) {
	return f.cleared, f.err
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.5}, nil
}

func TestVectorMemory_Store(t *testing.T) {
	t.Run("ids are timestamped and metadata gains a timestamp", func(t *testing.T) {
		fs := newFakeStorage()
		m := NewVectorMemory(fs, &fakeEmbedder{})
		fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return fixed }

		id, err := m.Store(context.Background(), "a finding", map[string]string{"topic": "go"})
		if err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		if !strings.HasPrefix(id, "mem_") {
			t.Errorf("unexpected id format: %s", id)
		}

		meta := fs.added[id]
		if meta["topic"] != "go" {
			t.Errorf("caller metadata lost: %v", meta)
		}
		if meta["timestamp"] != fixed.Format(time.RFC3339) {
			t.Errorf("timestamp not injected: %v", meta)
		}
	})

	t.Run("caller metadata map is not mutated", func(t *testing.T) {
		fs := newFakeStorage()
		m := NewVectorMemory(fs, &fakeEmbedder{})

		original := map[string]string{"topic": "go"}
		if _, err := m.Store(context.Background(), "x", original); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		if _, ok := original["timestamp"]; ok {
			t.Error("the caller's map must not be mutated")
		}
	})

	t.Run("embedding failure surfaces", func(t *testing.T) {
		m := NewVectorMemory(newFakeStorage(), &fakeEmbedder{err: errors.New("model down")})
		if _, err := m.Store(context.Background(), "x", nil); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestVectorMemory_Search(t *testing.T) {
	fs := newFakeStorage()
	fs.results = []store.MemoryItem{
		{ID: "mem_1", Content: "finding", Similarity: 0.9, Metadata: map[string]string{"topic": "go"}},
	}
	m := NewVectorMemory(fs, &fakeEmbedder{})

	items, err := m.Search(context.Background(), "finding", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 1 || items[0].Similarity != 0.9 || items[0].Metadata["topic"] != "go" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestVectorMemory_Clear(t *testing.T) {
	fs := newFakeStorage()
	fs.cleared = 7
	m := NewVectorMemory(fs, &fakeEmbedder{})

	n, err := m.Clear(context.Background())
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
}
