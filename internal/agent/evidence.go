package agent

import "sync"

// Source is a cited origin for a finding. Sources are deduplicated by URL;
// the first title seen for a URL wins.
type Source struct {
	Title string
	URL   string
}

// Evidence is the append-only log of notes and sources gathered during a
// run. Note order is insertion order, most recent last. The log is safe
// for concurrent reads while the controller appends.
type Evidence struct {
	mu      sync.RWMutex
	notes   []string
	sources []Source
	seen    map[string]bool
}

func NewEvidence() *Evidence {
	return &Evidence{seen: make(map[string]bool)}
}

// AppendNote records a free-text finding.
func (e *Evidence) AppendNote(note string) {
	if note == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes = append(e.notes, note)
}

// AppendSource records a source, idempotent on duplicate URL.
func (e *Evidence) AppendSource(s Source) {
	if s.URL == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen[s.URL] {
		return
	}
	e.seen[s.URL] = true
	e.sources = append(e.sources, s)
}

// Notes returns a copy of the note log.
func (e *Evidence) Notes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	notes := make([]string, len(e.notes))
	copy(notes, e.notes)
	return notes
}

// Sources returns a copy of the source list.
func (e *Evidence) Sources() []Source {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sources := make([]Source, len(e.sources))
	copy(sources, e.sources)
	return sources
}

// RecentNotes returns a copy of the last n notes, in order.
func (e *Evidence) RecentNotes(n int) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if n > len(e.notes) {
		n = len(e.notes)
	}
	notes := make([]string, n)
	copy(notes, e.notes[len(e.notes)-n:])
	return notes
}

// Len returns the number of recorded notes.
func (e *Evidence) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.notes)
}
