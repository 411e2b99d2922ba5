package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFetchFailure marks a failed read against the document store.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrWriteFailure marks a failed progress write against the document store.
	ErrWriteFailure = errors.New("write failure")
	// ErrInconsistentData marks fetched progress referencing ids absent from
	// the module tree. Callers treat the signal as unusable and fall through.
	ErrInconsistentData = errors.New("inconsistent data")
	// ErrLocked marks navigation into content the learner has not unlocked.
	ErrLocked = errors.New("locked")
	// ErrGateIncomplete marks a refused module-completion transition while
	// quiz or question-answer items still lack attempts.
	ErrGateIncomplete = errors.New("assessment gate incomplete")
)
