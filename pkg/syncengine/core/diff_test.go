package core

import (
	"context"
	"testing"
)

func TestDiffAddModDelete(t *testing.T) {
	ctx := context.Background()
	left := newMemFS()
	right := newMemFS()

	left.set("keep.txt", "same")
	right.set("keep.txt", "same")

	left.set("added.txt", "new")

	left.set("changed.txt", "new-content")
	right.set("changed.txt", "old-content")

	right.set("removed.txt", "gone-soon")

	changes, err := Diff(ctx, left, right, DiffOptions{CompareContent: true})
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}

	byPath := map[string]ChangeKind{}
	for _, c := range changes {
		byPath[c.Path] = c.Kind
	}

	if kind, ok := byPath["added.txt"]; !ok || kind != ChangeAdd {
		t.Errorf("expected added.txt to be an add, got %v (present=%v)", kind, ok)
	}
	if kind, ok := byPath["changed.txt"]; !ok || kind != ChangeModify {
		t.Errorf("expected changed.txt to be a mod, got %v (present=%v)", kind, ok)
	}
	if kind, ok := byPath["removed.txt"]; !ok || kind != ChangeDelete {
		t.Errorf("expected removed.txt to be a del, got %v (present=%v)", kind, ok)
	}
	if _, ok := byPath["keep.txt"]; ok {
		t.Errorf("expected keep.txt to produce no change")
	}
}

func TestDiffRespectsIgnore(t *testing.T) {
	ctx := context.Background()
	left := newMemFS()
	right := newMemFS()
	left.set("vendor/lib.go", "x")
	left.set("main.go", "y")

	ig, err := ParseIgnoreFile([]byte("vendor\n"))
	if err != nil {
		t.Fatalf("parse ignore failed: %v", err)
	}

	changes, err := Diff(ctx, left, right, DiffOptions{Ignore: ig})
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	for _, c := range changes {
		if c.Path == "vendor/lib.go" {
			t.Fatalf("expected vendor/lib.go to be ignored, got change %+v", c)
		}
	}
}

func TestApplyAddOnlyFiltersModAndDelete(t *testing.T) {
	ctx := context.Background()
	left := newMemFS()
	right := newMemFS()

	left.set("new.txt", "hello")
	left.set("changed.txt", "new")
	right.set("changed.txt", "old")
	right.set("stale.txt", "bye")

	changes, err := Diff(ctx, left, right, DiffOptions{})
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}

	if err := Apply(ctx, left, right, changes, ApplyOptions{AddOnly: true}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if got, _ := right.ReadFile(ctx, "new.txt"); string(got) != "hello" {
		t.Errorf("expected new.txt to be added, got %q", got)
	}
	if got, _ := right.ReadFile(ctx, "changed.txt"); string(got) != "old" {
		t.Errorf("expected changed.txt to be left untouched under addOnly, got %q", got)
	}
	if _, err := right.Stat(ctx, "stale.txt"); err != nil {
		t.Errorf("expected stale.txt to survive addOnly apply, got stat error %v", err)
	}
}
