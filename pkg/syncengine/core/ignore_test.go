package core

import "testing"

func TestParseIgnoreFileNormalizesRelativeRules(t *testing.T) {
	ig, err := ParseIgnoreFile([]byte("node_modules\r\n/explicit-root\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !ig.Ignored("a/b/node_modules") {
		t.Error("expected relative rule to match at any depth")
	}
	if !ig.Ignored("explicit-root") {
		t.Error("expected rooted rule to match at the root")
	}
	if ig.Ignored("a/explicit-root") {
		t.Error("expected rooted rule not to match nested paths")
	}
}

func TestParseIgnoreFileAlwaysIgnoresDotGitAndDotDat(t *testing.T) {
	ig, err := ParseIgnoreFile([]byte(""))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !ig.Ignored(".git") || !ig.Ignored(".dat") {
		t.Error("expected .git and .dat to always be ignored")
	}
}

func TestIgnoredMatchesAncestor(t *testing.T) {
	ig, err := ParseIgnoreFile([]byte("build\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !ig.Ignored("build/output/bundle.js") {
		t.Error("expected descendant of an ignored directory to be ignored")
	}
}

func TestNilIgnorerIgnoresNothing(t *testing.T) {
	var ig *Ignorer
	if ig.Ignored("anything") {
		t.Error("expected nil Ignorer to never report ignored")
	}
}
