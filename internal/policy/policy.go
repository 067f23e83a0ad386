// Package policy bounds a research run: iteration budget, reflection
// cadence, and which source URLs may enter the evidence log.
package policy

import (
	"net/url"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy defines the limits and scopes for a research run.
type Policy struct {
	MaxIterations       int      `json:"max_iterations"`
	ReflectionThreshold int      `json:"reflection_threshold"`
	ResultsPerSearch    int      `json:"results_per_search"`
	AllowedSourceGlobs  []string `json:"allowed_source_globs"`
	BlockedSourceGlobs  []string `json:"blocked_source_globs"`
}

// DefaultPolicy provides the reference defaults: ten iterations, a
// reflection pass every third one, five results per search, any source.
var DefaultPolicy = Policy{
	MaxIterations:       10,
	ReflectionThreshold: 3,
	ResultsPerSearch:    5,
	AllowedSourceGlobs:  []string{"**"},
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
}

// Checker enforces the policy.
type Checker struct {
	policy Policy
}

func New(p Policy) *Checker {
	if p.MaxIterations < 1 {
		p.MaxIterations = DefaultPolicy.MaxIterations
	}
	if p.ReflectionThreshold < 1 {
		p.ReflectionThreshold = DefaultPolicy.ReflectionThreshold
	}
	if p.ResultsPerSearch < 1 {
		p.ResultsPerSearch = DefaultPolicy.ResultsPerSearch
	}
	if len(p.AllowedSourceGlobs) == 0 {
		p.AllowedSourceGlobs = DefaultPolicy.AllowedSourceGlobs
	}
	return &Checker{policy: p}
}

// Policy returns the checker's current policy configuration.
func (c *Checker) Policy() Policy {
	return c.policy
}

// CheckIterations verifies the iteration budget. The returned violation is
// non-nil once the budget is exhausted.
func (c *Checker) CheckIterations(iterations int) *Violation {
	if iterations >= c.policy.MaxIterations {
		return &Violation{Rule: "max_iterations", Message: "iteration limit reached"}
	}
	return nil
}

// ReflectionDue reports whether a forced reflection pass is owed at the
// given iteration. Iteration zero never reflects.
func (c *Checker) ReflectionDue(iterations int) bool {
	return iterations > 0 && iterations%c.policy.ReflectionThreshold == 0
}

// CheckSource verifies whether a result URL may be recorded as a source.
// Globs match against host/path, e.g. "*.wikipedia.org/**" or "**".
func (c *Checker) CheckSource(rawURL string) *Violation {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return &Violation{Rule: "source_globs", Message: "unparseable source url: " + rawURL}
	}
	target := u.Host + u.Path

	for _, pattern := range c.policy.BlockedSourceGlobs {
		if match, err := doublestar.Match(pattern, target); err == nil && match {
			return &Violation{Rule: "blocked_source_globs", Message: "source blocked: " + rawURL}
		}
	}

	allowed := false
	for _, pattern := range c.policy.AllowedSourceGlobs {
		if match, err := doublestar.Match(pattern, target); err == nil && match {
			allowed = true
			break
		}
	}
	if !allowed {
		return &Violation{Rule: "allowed_source_globs", Message: "source not allowed: " + rawURL}
	}
	return nil
}
