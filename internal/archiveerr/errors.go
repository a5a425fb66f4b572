// Package archiveerr defines the error taxonomy shared across the archive
// engine's components. Kinds are distinguished with errors.Is, not by type
// name, so callers can classify a wrapped error without importing the
// concrete constructor.
package archiveerr

import "errors"

// Sentinel kinds. Wrap these with fmt.Errorf("...: %w", ErrXxx) to attach
// context while keeping errors.Is classification intact.
var (
	// ErrConfiguration marks a setting or row that is malformed in a way no
	// retry can fix: a blank primary key, a missing column, a non-positive
	// batch parameter, an empty connection string.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransientDatabase marks a database failure that a retry may clear:
	// a deadlock victim, a dropped connection mid-read.
	ErrTransientDatabase = errors.New("transient database error")

	// ErrQueryTimeout marks a query that ran past its command timeout.
	// Structural, not transient — never retried.
	ErrQueryTimeout = errors.New("query execution timeout")

	// ErrFilesystem marks a CSV write failure: permission denied, disk
	// full, an invalid filename token.
	ErrFilesystem = errors.New("filesystem error")

	// ErrCancellation marks cooperative cancellation observed at a
	// suspension point.
	ErrCancellation = errors.New("cancelled")
)

// Kind classifies err against the sentinels above. Returns the zero value
// ("") if err doesn't match any known kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancellation):
		return "cancellation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTransientDatabase):
		return "transient_database"
	case errors.Is(err, ErrQueryTimeout):
		return "query_timeout"
	case errors.Is(err, ErrFilesystem):
		return "filesystem"
	default:
		return ""
	}
}

// Retryable reports whether err's kind should be retried under the default
// classification policy (see retry.DefaultClassifier for the pluggable
// form). Cancellation and configuration errors are never retryable;
// timeouts are deliberately not retryable because they indicate a
// structural problem rather than a transient blip.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransientDatabase) &&
		!errors.Is(err, ErrCancellation)
}
