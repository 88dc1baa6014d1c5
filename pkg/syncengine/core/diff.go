package core

import (
	"context"
	"sort"

	"github.com/dhive/dhive/pkg/fsutil"
)

// ChangeKind identifies the kind of change an entry underwent between the
// left and right trees of a Diff.
type ChangeKind int

const (
	ChangeAdd ChangeKind = iota
	ChangeModify
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeModify:
		return "mod"
	case ChangeDelete:
		return "del"
	default:
		return "unknown"
	}
}

// Change describes a single entry difference between two trees, expressed
// from left to right: ChangeAdd means right lacks (or left gained) the
// entry, ChangeDelete means left lacks what right has, ChangeModify means
// both have it but differently.
type Change struct {
	Kind        ChangeKind
	Path        string
	IsDirectory bool
}

// DiffOptions configures Diff's traversal.
type DiffOptions struct {
	// CompareContent requests a content-hash comparison for files that exist
	// on both sides with equal size, rather than trusting size+mtime alone.
	CompareContent bool
	// Shallow stops descending into a directory as soon as it is found to
	// differ, reporting the directory itself as a single Modify rather than
	// walking its children. Non-shallow walks every differing leaf.
	Shallow bool
	// Paths, if non-empty, restricts the diff to these root-relative paths
	// and their descendants.
	Paths []string
	// Ignore, if non-nil, prunes any path Ignored reports true for.
	Ignore *Ignorer
}

// Diff walks left and right from root and returns an ordered list of
// changes needed to make right match left's tree (i.e. changes are
// expressed in the "apply to right" direction).
func Diff(ctx context.Context, left, right fsutil.FS, opts DiffOptions) ([]Change, error) {
	var changes []Change
	roots := opts.Paths
	if len(roots) == 0 {
		roots = []string{""}
	}
	for _, root := range roots {
		walked, err := diffPath(ctx, left, right, root, opts)
		if err != nil {
			return nil, err
		}
		changes = append(changes, walked...)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

func diffPath(ctx context.Context, left, right fsutil.FS, path string, opts DiffOptions) ([]Change, error) {
	if opts.Ignore.Ignored(path) {
		return nil, nil
	}

	leftInfo, leftErr := left.Stat(ctx, path)
	rightInfo, rightErr := right.Stat(ctx, path)
	leftExists := leftErr == nil
	rightExists := rightErr == nil

	switch {
	case leftExists && !rightExists:
		changes := []Change{{Kind: ChangeAdd, Path: path, IsDirectory: leftInfo.IsDir}}
		if leftInfo.IsDir && !opts.Shallow {
			children, err := unionChildren(ctx, left, right, path)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				childChanges, err := diffPath(ctx, left, right, child, opts)
				if err != nil {
					return nil, err
				}
				changes = append(changes, childChanges...)
			}
		}
		return changes, nil
	case !leftExists && rightExists:
		return []Change{{Kind: ChangeDelete, Path: path, IsDirectory: rightInfo.IsDir}}, nil
	case !leftExists && !rightExists:
		return nil, nil
	}

	if leftInfo.IsDir != rightInfo.IsDir {
		return []Change{{Kind: ChangeModify, Path: path, IsDirectory: leftInfo.IsDir}}, nil
	}

	if !leftInfo.IsDir {
		differs, err := filesDiffer(ctx, left, right, path, leftInfo, rightInfo, opts.CompareContent)
		if err != nil {
			return nil, err
		}
		if differs {
			return []Change{{Kind: ChangeModify, Path: path}}, nil
		}
		return nil, nil
	}

	// Both are directories: union their children and recurse, unless this
	// directory already differs and Shallow was requested.
	children, err := unionChildren(ctx, left, right, path)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for _, child := range children {
		childChanges, err := diffPath(ctx, left, right, child, opts)
		if err != nil {
			return nil, err
		}
		if len(childChanges) > 0 && opts.Shallow {
			return []Change{{Kind: ChangeModify, Path: path, IsDirectory: true}}, nil
		}
		changes = append(changes, childChanges...)
	}
	return changes, nil
}

func filesDiffer(ctx context.Context, left, right fsutil.FS, path string, leftInfo, rightInfo *fsutil.Info, compareContent bool) (bool, error) {
	if leftInfo.Size != rightInfo.Size {
		return true, nil
	}
	if !compareContent {
		if leftInfo.ContentID != "" && rightInfo.ContentID != "" {
			return leftInfo.ContentID != rightInfo.ContentID, nil
		}
		return !leftInfo.ModTime.Equal(rightInfo.ModTime), nil
	}

	leftData, err := left.ReadFile(ctx, path)
	if err != nil {
		return false, err
	}
	rightData, err := right.ReadFile(ctx, path)
	if err != nil {
		return false, err
	}
	return string(leftData) != string(rightData), nil
}

func unionChildren(ctx context.Context, left, right fsutil.FS, dir string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	leftChildren, err := left.Readdir(ctx, dir)
	if err == nil {
		for _, c := range leftChildren {
			p := joinPath(dir, c.Name)
			if !seen[p] {
				seen[p] = true
				names = append(names, p)
			}
		}
	}
	rightChildren, err := right.Readdir(ctx, dir)
	if err == nil {
		for _, c := range rightChildren {
			p := joinPath(dir, c.Name)
			if !seen[p] {
				seen[p] = true
				names = append(names, p)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
