package scoredef

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by operations on a closed Session.
	ErrSessionClosed = errors.New("scoredef: session closed")

	// ErrNotUnified is returned by Archive before Unify succeeded.
	ErrNotUnified = errors.New("scoredef: definitions not unified")

	// ErrNoArchive is returned by Archive when no archive backend is configured.
	ErrNoArchive = errors.New("scoredef: no archive backend configured")
)

// OutOfMemoryError reports arena exhaustion. It is passed to the fatal
// handler.
//
// The underlying allocator error can be accessed via errors.Unwrap.
type OutOfMemoryError struct {
	TotalMemory int64
	PageSize    int64
	cause       error
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("Out of memory. Please increase SCOREDEF_TOTAL_MEMORY=%d and try again.", e.TotalMemory)
}

func (e *OutOfMemoryError) Unwrap() error { return e.cause }

// UnifyError reports a failed unification. It is passed to the fatal handler.
type UnifyError struct {
	Rank  int
	cause error
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("unification failed on rank %d: %v", e.Rank, e.cause)
}

func (e *UnifyError) Unwrap() error { return e.cause }
