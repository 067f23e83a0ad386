package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/felixgeelhaar/scout/internal/agent"
	"github.com/felixgeelhaar/scout/internal/config"
	"github.com/felixgeelhaar/scout/internal/observe"
	"github.com/felixgeelhaar/scout/internal/provider"
	"github.com/felixgeelhaar/scout/internal/search"
	"github.com/felixgeelhaar/scout/internal/store"
)

func TestRunner(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "cli-test-*")
	defer os.RemoveAll(tmpDir)

	s, err := store.NewSQLiteStore(filepath.Join(tmpDir, "research.db"), filepath.Join(tmpDir, "reports"))
	if err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	defer s.Close()

	p := provider.NewStubProvider()
	sp := &search.StubProvider{Results: []search.Result{
		{Title: "Result", URL: "https://example.com/r", Snippet: "evidence"},
	}}
	o := observe.New(io.Discard, false)

	settings := config.Settings{
		Provider:            "stub",
		MaxIterations:       10,
		ReflectionThreshold: 3,
		ResultsPerSearch:    5,
	}

	r := NewRunner(o, s, p, sp, settings)
	query := "what does the evidence say?"
	if err := r.Run(context.Background(), query, agent.NopSink{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	runs, err := s.ListRuns(5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d (%v)", len(runs), err)
	}
	run := runs[0]
	if run.Status != "done" {
		t.Errorf("expected status done, got %s", run.Status)
	}
	if run.Report == "" {
		t.Error("expected the report persisted on the run")
	}

	notes, err := s.ListNotes(query)
	if err != nil || len(notes) == 0 {
		t.Errorf("expected persisted notes, got %d (%v)", len(notes), err)
	}
	var sawSource bool
	for _, n := range notes {
		if n.SourceURL == "https://example.com/r" {
			sawSource = true
		}
	}
	if !sawSource {
		t.Error("expected the source persisted with its url")
	}

	_, body, err := s.GetReport(run.ID)
	if err != nil {
		t.Fatalf("expected an archived report: %v", err)
	}
	if !strings.Contains(string(body), "Report") {
		t.Errorf("unexpected archived content: %q", body)
	}
}

func TestRunner_FailedRunIsRecorded(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "cli-test-*")
	defer os.RemoveAll(tmpDir)

	s, _ := store.NewSQLiteStore(filepath.Join(tmpDir, "research.db"), filepath.Join(tmpDir, "reports"))
	defer s.Close()

	p := provider.NewStubProvider()
	o := observe.New(io.Discard, false)
	settings := config.Settings{Provider: "stub", MaxIterations: 10, ReflectionThreshold: 3, ResultsPerSearch: 5}
	r := NewRunner(o, s, p, &search.StubProvider{}, settings)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Run(ctx, "doomed", nil); err == nil {
		t.Fatal("expected an error for a cancelled run")
	}

	runs, _ := s.ListRuns(5)
	if len(runs) != 1 || runs[0].Status != "failed" {
		t.Fatalf("expected a failed run recorded, got %+v", runs)
	}
	if runs[0].Error == "" {
		t.Error("expected the failure reason persisted")
	}
	if runs[0].Report != "" {
		t.Error("a failed run must not carry a report")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 57); got != "short" {
		t.Errorf("short strings must pass through, got %q", got)
	}

	// A multibyte query must never be cut mid-rune.
	long := strings.Repeat("研究", 40)
	got := truncate(long, 57)
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got)
	}
	if got != strings.Repeat("研究", 28)+"研..." {
		t.Errorf("expected 57 runes plus ellipsis, got %q", got)
	}
}

func TestBuildProvider_CLIFallback(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "cli-test-*")
	defer os.RemoveAll(tmpDir)

	s, err := store.NewSQLiteStore(filepath.Join(tmpDir, "research.db"), filepath.Join(tmpDir, "reports"))
	if err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	defer s.Close()

	// An explicit binary path in the config table wins over PATH detection.
	if err := s.SetConfig("provider.cli.path", "/usr/local/bin/agent"); err != nil {
		t.Fatalf("SetConfig failed: %v", err)
	}

	p, err := buildProvider(config.Settings{Provider: "cli"}, s)
	if err != nil {
		t.Fatalf("buildProvider failed: %v", err)
	}
	if p.Name() != "cli-/usr/local/bin/agent" {
		t.Errorf("expected the configured binary, got %s", p.Name())
	}
}

func TestCLI_Commands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range RootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"run", "list", "config", "memory"} {
		if !names[want] {
			t.Errorf("missing %s command", want)
		}
	}

	for _, cmd := range RootCmd.Commands() {
		switch cmd.Name() {
		case "config":
			if len(cmd.Commands()) < 2 {
				t.Errorf("expected set and get subcommands for config, got %d", len(cmd.Commands()))
			}
		case "memory":
			if len(cmd.Commands()) < 2 {
				t.Errorf("expected search and clear subcommands for memory, got %d", len(cmd.Commands()))
			}
		}
	}
}
