package watcher

import "testing"

func TestIgnoreMatch(t *testing.T) {
	ig := NewIgnore([]string{"*.tmp", "data/**", ".DS_Store"})

	tests := []struct {
		rel  string
		want bool
	}{
		{".git", true},
		{".git/objects/ab/cdef", true},
		{"scratch.tmp", true},
		{"notes/cache.tmp", true},
		{"data/results.csv", true},
		{"data/raw/run1.bin", true},
		{".DS_Store", true},
		{"notes/.DS_Store", true},
		{"notes.md", false},
		{"docs/protocol.md", false},
		{"database.md", false},
	}
	for _, tt := range tests {
		if got := ig.Match(tt.rel); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestIgnoreAlwaysSkipsGitDir(t *testing.T) {
	ig := NewIgnore(nil)

	if !ig.Match(".git/HEAD") {
		t.Error("expected .git contents to be ignored with no patterns")
	}
	if ig.Match("gitnotes.md") {
		t.Error("gitnotes.md should not match the .git rule")
	}
}

func TestIgnoreBasenamePatterns(t *testing.T) {
	ig := NewIgnore([]string{"*.swp"})

	if !ig.Match("deep/nested/dir/.notes.md.swp") {
		t.Error("expected basename pattern to match in subdirectories")
	}
	if ig.Match("deep/nested/dir/notes.md") {
		t.Error("notes.md should not match *.swp")
	}
}
