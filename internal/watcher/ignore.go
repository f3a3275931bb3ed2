package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Ignore matches project-relative paths against glob patterns. The
// repository's own object store (.git) is always ignored, or the engine
// would loop on its own commits.
type Ignore struct {
	patterns []string
}

// NewIgnore creates a matcher for the given patterns.
func NewIgnore(patterns []string) *Ignore {
	return &Ignore{patterns: patterns}
}

// Match reports whether a project-relative path should be ignored.
func (ig *Ignore) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return true
	}

	for _, pattern := range ig.patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, filepath.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}
