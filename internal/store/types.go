package store

import "time"

// Run represents one research run from query to report.
type Run struct {
	ID        string
	Query     string
	Status    string // "running", "done", "failed"
	Report    string // final report markdown, empty until DONE
	Error     string // failure reason, empty unless FAILED
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Note is a persisted research note linked to the query that produced it.
type Note struct {
	ID        int64
	Query     string
	Note      string
	SourceURL string
	CreatedAt time.Time
}

// Report is an archived final report on disk, registered in the database.
type Report struct {
	ID        string
	RunID     string
	Path      string // relative path under the report directory
	CreatedAt time.Time
	Digest    string // content hash
}

// MemoryItem is a long-term memory entry returned from similarity search.
type MemoryItem struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float32
}

// Storage defines the interface for persistence
type Storage interface {
	// Run history
	CreateRun(run *Run) error
	GetRun(id string) (*Run, error)
	UpdateRun(run *Run) error
	ListRuns(limit int) ([]*Run, error)

	// Research notes (persisted after a successful run)
	AddNote(note *Note) error
	ListNotes(query string) ([]*Note, error)

	// Report archive: SaveReport persists the metadata and the content
	SaveReport(report *Report, content []byte) error
	GetReport(id string) (*Report, []byte, error)

	// Configuration
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)

	// Long-term memory
	AddMemory(id, content string, vector []float32, meta map[string]string) error
	SearchMemory(vector []float32, limit int) ([]MemoryItem, error)
	ClearMemory() (int, error)

	Close() error
}
