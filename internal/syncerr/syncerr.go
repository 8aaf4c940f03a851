// Package syncerr collects the sentinel errors the sync engine's components
// classify their failures against, so callers can branch with errors.Is/
// errors.As instead of string-matching. Each sentinel corresponds to one
// failure class a component boundary is expected to catch, count, and log
// without aborting the rest of the run (see internal/syncengine).
package syncerr

import "errors"

var (
	// ErrIdentity is returned when the identity minter exhausts its
	// collision-suffix space or is given a malformed block token.
	ErrIdentity = errors.New("identity: unresolvable id collision or malformed block token")

	// ErrMatch is returned when the assignment solver cannot produce a
	// valid solution for an otherwise well-formed cost matrix. Should not
	// occur on sane input; surfaced rather than silently skipped.
	ErrMatch = errors.New("matcher: assignment solver returned no valid solution")

	// ErrDocNotFound is returned when the file/line recorded for a
	// document task no longer exists.
	ErrDocNotFound = errors.New("document task line not found")

	// ErrDocIOError is returned when a filesystem error occurs writing a
	// document task line.
	ErrDocIOError = errors.New("document store io error")

	// ErrRemNotFound is returned when the reminder record referenced by a
	// link is gone from the reminder service.
	ErrRemNotFound = errors.New("reminder record not found")

	// ErrRemSaveError is returned when the reminder gateway's save call
	// returns a non-success result.
	ErrRemSaveError = errors.New("reminder save failed")

	// ErrAuthDenied is returned when the reminder service rejects
	// credentials. The first occurrence in a run short-circuits all
	// further gateway operations for that run.
	ErrAuthDenied = errors.New("reminder gateway denied authorization")

	// ErrTimeout is returned when a gateway operation does not complete
	// within its bounded wait.
	ErrTimeout = errors.New("reminder gateway operation timed out")

	// ErrLinkStoreIO is returned when reading or writing the link store
	// fails. Unlike per-record errors, this is fatal to the run.
	ErrLinkStoreIO = errors.New("link store io error")

	// ErrConfig is returned during invocation setup when required
	// configuration is missing or invalid. Fatal; raised before any
	// component runs.
	ErrConfig = errors.New("invalid configuration")
)

// Wrap annotates err with additional context while preserving errors.Is
// matching against the given sentinel.
func Wrap(sentinel error, context string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{sentinel: sentinel, context: context, cause: err}
}

type wrapped struct {
	sentinel error
	context  string
	cause    error
}

func (w *wrapped) Error() string {
	return w.context + ": " + w.cause.Error()
}

// Unwrap exposes the underlying cause so errors.Is/As can keep traversing
// past this wrapper (e.g. to an *os.PathError).
func (w *wrapped) Unwrap() error {
	return w.cause
}

// Is reports whether target is this wrapper's sentinel, letting
// errors.Is(err, syncerr.ErrLinkStoreIO) match without also matching the
// unrelated cause chain against other sentinels.
func (w *wrapped) Is(target error) bool {
	return target == w.sentinel
}

// IsFatal reports whether err represents a run-aborting failure class
// (LinkStoreError, ConfigError) as opposed to a per-record failure that
// the caller should count and continue past.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLinkStoreIO) || errors.Is(err, ErrConfig)
}
