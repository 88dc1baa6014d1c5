// Package core implements the tree-diff/apply/ignore primitives that
// pkg/syncengine composes into archive<->folder synchronization: a simpler
// two-filesystem shallow diff rather than full three-way entry-tree
// reconciliation.
package core

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnores are appended to every ignore list regardless of what the
// folder's .datignore contains.
var defaultIgnores = []string{"/.git", "/.dat"}

// Ignorer holds a parsed, ordered set of ignore patterns.
type Ignorer struct {
	patterns []string
}

// ParseIgnoreFile parses the raw contents of a .datignore file into an
// Ignorer, applying the rule-normalization spec describes: each rule not
// beginning with "/" is prefixed with "**/" so it matches at any depth, "\r"
// is stripped, and /.git and /.dat are always appended.
func ParseIgnoreFile(contents []byte) (*Ignorer, error) {
	text := strings.ReplaceAll(string(contents), "\r", "")
	var patterns []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			line = "**/" + line
		}
		patterns = append(patterns, line)
	}
	patterns = append(patterns, defaultIgnores...)

	for _, p := range patterns {
		trimmed := strings.TrimPrefix(p, "/")
		if _, err := doublestar.Match(trimmed, "a"); err != nil {
			return nil, fmt.Errorf("unable to validate ignore pattern %q: %w", p, err)
		}
	}

	return &Ignorer{patterns: patterns}, nil
}

// Ignored reports whether path (slash-separated, relative to the tree root,
// no leading slash) should be ignored: either path itself matches a rule, or
// any ancestor directory of path does.
func (ig *Ignorer) Ignored(path string) bool {
	if ig == nil {
		return false
	}
	for _, candidate := range ancestorsInclusive(path) {
		for _, pattern := range ig.patterns {
			trimmed := strings.TrimPrefix(pattern, "/")
			if match, _ := doublestar.Match(trimmed, candidate); match {
				return true
			}
		}
	}
	return false
}

// ancestorsInclusive returns path along with every ancestor directory of
// path, root-relative and slash-separated, shallowest first.
func ancestorsInclusive(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	segments := strings.Split(path, "/")
	result := make([]string, 0, len(segments))
	for i := range segments {
		result = append(result, strings.Join(segments[:i+1], "/"))
	}
	return result
}
