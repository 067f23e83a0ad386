package brief

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Brief represents a structured research request loaded from a file,
// replacing a bare command-line query when the caller wants to pin
// focus areas or a custom iteration budget.
type Brief struct {
	Query         string   `json:"query" yaml:"query"`
	FocusAreas    []string `json:"focus_areas" yaml:"focus_areas"`
	Constraints   []string `json:"constraints" yaml:"constraints"`
	MaxIterations int      `json:"max_iterations" yaml:"max_iterations"`
}

// ValidationResult represents the outcome of a linting pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Load reads a research brief from a file (JSON or YAML).
func Load(path string) (*Brief, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read brief file: %w", err)
	}

	var b Brief
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON brief: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML brief: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported brief format: %s (use .json or .yaml)", ext)
	}

	return &b, nil
}

// Validate checks the Brief for completeness and quality.
func (b Brief) Validate() ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}

	if strings.TrimSpace(b.Query) == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "query is required")
	} else if len(b.Query) < 10 {
		res.Warnings = append(res.Warnings, "query is very short; consider adding more detail")
	}

	if b.MaxIterations < 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "max_iterations cannot be negative")
	}

	if len(b.FocusAreas) == 0 {
		res.Warnings = append(res.Warnings, "no focus areas specified; the whole query will be researched broadly")
	}

	return res
}

// Prompt renders the brief as the opening research instruction.
func (b Brief) Prompt() string {
	var sb strings.Builder
	sb.WriteString(b.Query)
	if len(b.FocusAreas) > 0 {
		sb.WriteString("\nFocus areas: ")
		sb.WriteString(strings.Join(b.FocusAreas, ", "))
	}
	if len(b.Constraints) > 0 {
		sb.WriteString("\nConstraints: ")
		sb.WriteString(strings.Join(b.Constraints, ", "))
	}
	return sb.String()
}
