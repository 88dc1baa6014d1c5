package core

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dhive/dhive/pkg/fsutil"
)

// ApplyOptions configures Apply's behavior.
type ApplyOptions struct {
	// AddOnly filters out ChangeModify and ChangeDelete entries before
	// applying, used when the destination must remain authoritative over
	// content it already has (an archive's autoPublish=false first pass).
	AddOnly bool
}

// Apply replays changes (as produced by Diff, expressed left-to-right) onto
// right, reading missing/changed content from left.
func Apply(ctx context.Context, left, right fsutil.FS, changes []Change, opts ApplyOptions) error {
	for _, change := range changes {
		if opts.AddOnly && change.Kind != ChangeAdd {
			continue
		}
		if err := applyOne(ctx, left, right, change); err != nil {
			return errors.Wrapf(err, "unable to apply %s change at %q", change.Kind, change.Path)
		}
	}
	return nil
}

func applyOne(ctx context.Context, left, right fsutil.FS, change Change) error {
	switch change.Kind {
	case ChangeDelete:
		if change.IsDirectory {
			return right.Rmdir(ctx, change.Path)
		}
		return right.Unlink(ctx, change.Path)
	case ChangeAdd, ChangeModify:
		if change.IsDirectory {
			return right.Mkdir(ctx, change.Path)
		}
		data, err := left.ReadFile(ctx, change.Path)
		if err != nil {
			return err
		}
		return right.WriteFile(ctx, change.Path, data)
	default:
		return errors.Errorf("unknown change kind %v", change.Kind)
	}
}
