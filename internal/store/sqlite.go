package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db        *sql.DB
	reportDir string
}

func NewSQLiteStore(dbPath, reportDir string) (*SQLiteStore, error) {
	// Ensure directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	if err := os.MkdirAll(reportDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:        db,
		reportDir: reportDir,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT,
			report TEXT,
			error TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS research_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			note TEXT NOT NULL,
			source_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			path TEXT,
			created_at DATETIME,
			digest TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		);`,
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			content TEXT,
			vector BLOB,
			metadata TEXT
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Configuration Implementation

func (s *SQLiteStore) SetConfig(key, value string) error {
	query := `INSERT INTO configuration (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.Exec(query, key, value)
	return err
}

func (s *SQLiteStore) GetConfig(key string) (string, error) {
	query := `SELECT value FROM configuration WHERE key = ?`
	row := s.db.QueryRow(query, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// Run Implementation

func (s *SQLiteStore) CreateRun(run *Run) error {
	query := `INSERT INTO runs (id, query, status, report, error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, run.ID, run.Query, run.Status, run.Report, run.Error, run.CreatedAt, run.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	query := `SELECT id, query, status, report, error, created_at, updated_at FROM runs WHERE id = ?`
	row := s.db.QueryRow(query, id)

	var run Run
	if err := row.Scan(&run.ID, &run.Query, &run.Status, &run.Report, &run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) UpdateRun(run *Run) error {
	query := `UPDATE runs SET status = ?, report = ?, error = ?, updated_at = ? WHERE id = ?`
	_, err := s.db.Exec(query, run.Status, run.Report, run.Error, time.Now(), run.ID)
	return err
}

func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT id, query, status, report, error, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Query, &r.Status, &r.Report, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Note Implementation

func (s *SQLiteStore) AddNote(note *Note) error {
	query := `INSERT INTO research_notes (query, note, source_url, created_at) VALUES (?, ?, ?, ?)`
	res, err := s.db.Exec(query, note.Query, note.Note, note.SourceURL, note.CreatedAt)
	if err != nil {
		return err
	}
	note.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListNotes(queryText string) ([]*Note, error) {
	query := `SELECT id, query, note, source_url, created_at FROM research_notes WHERE query = ? ORDER BY id`
	rows, err := s.db.Query(query, queryText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Query, &n.Note, &n.SourceURL, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// Report Implementation

func (s *SQLiteStore) SaveReport(report *Report, content []byte) error {
	// 1. Save content to filesystem
	fullPath := filepath.Join(s.reportDir, report.Path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write report content: %w", err)
	}

	// 2. Save metadata to DB
	query := `INSERT INTO reports (id, run_id, path, created_at, digest) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, report.ID, report.RunID, report.Path, report.CreatedAt, report.Digest)
	return err
}

func (s *SQLiteStore) GetReport(id string) (*Report, []byte, error) {
	query := `SELECT id, run_id, path, created_at, digest FROM reports WHERE id = ?`
	row := s.db.QueryRow(query, id)

	var report Report
	if err := row.Scan(&report.ID, &report.RunID, &report.Path, &report.CreatedAt, &report.Digest); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("report not found: %s", id)
		}
		return nil, nil, err
	}

	fullPath := filepath.Join(s.reportDir, report.Path)
	content, err := os.ReadFile(fullPath) // #nosec G304
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read report content: %w", err)
	}

	return &report, content, nil
}
