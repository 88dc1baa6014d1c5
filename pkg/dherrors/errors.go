// Package dherrors defines the abstract error kinds from the runtime's
// error-handling design: a sentinel-error enum compared with errors.Is
// (e.g. multiplexing's ErrMultiplexerClosed) rather than a typed
// exception hierarchy.
package dherrors

import "errors"

var (
	// ErrInvalidURL indicates that an archive URL failed grammar validation.
	ErrInvalidURL = errors.New("invalid archive url")
	// ErrInvalidPath indicates a malformed archive-relative path.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidEncoding indicates that single-file diff was attempted against
	// binary content.
	ErrInvalidEncoding = errors.New("invalid encoding for diff")
	// ErrSourceTooLarge indicates that single-file diff was attempted against
	// a file larger than the size cap.
	ErrSourceTooLarge = errors.New("source file too large for diff")
	// ErrInvalidDomainName indicates that name resolution failed against all
	// providers.
	ErrInvalidDomainName = errors.New("invalid domain name")

	// ErrNotWritable indicates a mutation was attempted against an archive
	// for which the secret key is not held.
	ErrNotWritable = errors.New("archive is not writable")
	// ErrProtectedFileNotWritable indicates a userland write was attempted
	// against a protected archive path (e.g. /dat.json).
	ErrProtectedFileNotWritable = errors.New("protected file is not writable")
	// ErrNotAFolder indicates an operation expected a directory.
	ErrNotAFolder = errors.New("not a folder")
	// ErrNotFound indicates a missing archive, path, or record.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded indicates a write exceeded a configured quota.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrPermissionDenied indicates an operation lacked sufficient rights.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUserDenied indicates a user-facing prompt was declined.
	ErrUserDenied = errors.New("user denied")
	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrCycleError indicates a sync diff would require an impossible rename
	// cycle. It is surfaced as an archive-scoped event, never returned to a
	// direct caller of queueSyncEvent.
	ErrCycleError = errors.New("sync requires an impossible change cycle")

	// ErrVersionOutOfRange indicates a requested checkout version exceeds the
	// archive's current version.
	ErrVersionOutOfRange = errors.New("version out of range")
	// ErrNoPreview indicates a preview checkout was requested for an archive
	// with no local-sync binding.
	ErrNoPreview = errors.New("archive has no preview binding")
)
