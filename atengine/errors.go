package atengine

import "github.com/pkg/errors"

// Result is the outcome delivered to a work item's completion callback.
// Exactly one of these fires per submitted item (invariant 6, §3).
type Result int

const (
	// Ok indicates the matcher substring was found in the response buffer.
	Ok Result = iota
	// Error indicates the response buffer contained "ERROR" (or a
	// +CME ERROR:/+CMS ERROR: final line) and retries, if any, were exhausted.
	Error
	// Timeout indicates no classification was reached before the per-attempt
	// budget elapsed, and retries, if any, were exhausted.
	Timeout
	// Abort indicates Suspend was called while the item was outstanding, or
	// the item itself was aborted (Handle.Abort, AbortItem or Env.Abort).
	Abort
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "OK"
	case Error:
		return "ERROR"
	case Timeout:
		return "TIMEOUT"
	case Abort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrPoolExhausted is returned by a submit call when the idle pool is
	// empty (§5 "Back-pressure": submission fails immediately, no retry).
	ErrPoolExhausted = errors.New("atengine: work-item pool exhausted")

	// ErrLockTimeout is returned by Do when cmd_lock cannot be
	// acquired before the caller's deadline.
	ErrLockTimeout = errors.New("atengine: command lock acquisition timed out")

	// ErrClosed is returned by any call made after Close.
	ErrClosed = errors.New("atengine: engine closed")

	// ErrNilTransport is returned by New when Config.Transport is nil.
	ErrNilTransport = errors.New("atengine: transport is required")

	// ErrUnknownItem is returned by AbortItem for a handle the engine does
	// not recognize (already completed, or from a different engine).
	ErrUnknownItem = errors.New("atengine: unknown work item")
)

// wrapf annotates err with a message using the corpus's preferred
// stack-aware wrapper instead of bare fmt.Errorf.
func wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}
