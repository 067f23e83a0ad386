// Package config holds the process-wide settings for a research run.
// Settings are constructed once at startup and passed by reference to the
// controller and gateway constructors; core logic never reads the
// environment on its own.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrConfiguration marks fatal pre-run configuration failures. A run never
// starts when one of these is returned.
var ErrConfiguration = errors.New("configuration error")

// Settings enumerates everything the runtime needs before the first
// iteration. Defaults mirror the agent settings of the reference setup:
// ten iterations, a reflection pass every third one, five results per
// search.
type Settings struct {
	// Credentials.
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	TavilyAPIKey    string

	// Model settings.
	Provider string
	Model    string

	// Agent settings.
	MaxIterations       int
	ReflectionThreshold int
	ResultsPerSearch    int

	// Storage settings.
	DataDir      string
	DatabasePath string
	ReportDir    string
}

// Load builds Settings from the environment on top of defaults.
// SCOUT_DATA_DIR overrides the default ~/.scout location.
func Load() Settings {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".scout")
	if v := os.Getenv("SCOUT_DATA_DIR"); v != "" {
		dataDir = v
	}

	s := Settings{
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		TavilyAPIKey:        os.Getenv("TAVILY_API_KEY"),
		Provider:            envOr("SCOUT_PROVIDER", "anthropic"),
		Model:               os.Getenv("SCOUT_MODEL"),
		MaxIterations:       envIntOr("SCOUT_MAX_ITERATIONS", 10),
		ReflectionThreshold: envIntOr("SCOUT_REFLECTION_THRESHOLD", 3),
		ResultsPerSearch:    envIntOr("SCOUT_RESULTS_PER_SEARCH", 5),
		DataDir:             dataDir,
		DatabasePath:        filepath.Join(dataDir, "data", "research.db"),
		ReportDir:           filepath.Join(dataDir, "reports"),
	}
	return s
}

// Validate fails fast on settings that would break mid-run. Gateway
// credentials are checked here so a missing key never surfaces as a
// confusing HTTP error on iteration one.
func (s Settings) Validate() error {
	switch s.Provider {
	case "anthropic":
		if s.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrConfiguration)
		}
	case "openai":
		if s.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrConfiguration)
		}
	case "gemini":
		if s.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrConfiguration)
		}
	case "ollama", "cli", "stub":
		// Local providers, no key.
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrConfiguration, s.Provider)
	}

	if s.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1", ErrConfiguration)
	}
	if s.ReflectionThreshold < 1 {
		return fmt.Errorf("%w: reflection threshold must be at least 1", ErrConfiguration)
	}
	if s.ResultsPerSearch < 1 {
		return fmt.Errorf("%w: results per search must be at least 1", ErrConfiguration)
	}
	return nil
}

// Bootstrap creates the directory layout a run expects: the data dir, the
// database parent, and the report archive.
func (s Settings) Bootstrap() error {
	dirs := []string{
		s.DataDir,
		filepath.Dir(s.DatabasePath),
		s.ReportDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0750); err != nil {
			return fmt.Errorf("%w: failed to create %s: %v", ErrConfiguration, d, err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
