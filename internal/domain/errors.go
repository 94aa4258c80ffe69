package domain

import "errors"

var (
	// ErrValidation rejects malformed input before any state change.
	ErrValidation = errors.New("validation failed")
	// ErrStateConflict rejects an operation invalid for the current edge or
	// strategy state. No side effect; safe to retry after re-reading state.
	ErrStateConflict = errors.New("state conflict")
	// ErrNotFound indicates an unknown edge id or strategy name.
	ErrNotFound = errors.New("not found")
	// ErrCapitalExceeded is the admission-control refusal. The edge stays
	// pending_approval and the call may be retried once capital frees up.
	ErrCapitalExceeded = errors.New("capital ceiling exceeded")
	// ErrExecutionFailure is an agent-level fault during a claimed
	// execution. The edge moves to failed and is never retried silently.
	ErrExecutionFailure = errors.New("execution failure")
	// ErrSwarmPaused refuses claims while the supervisor pause is active.
	// The edge itself stays approved.
	ErrSwarmPaused = errors.New("swarm paused")
	// ErrEdgeUnavailable is the benign losing-competitor outcome of the
	// claim race: another agent already holds the edge.
	ErrEdgeUnavailable = errors.New("edge no longer available")
	// ErrLockHeld indicates the distributed claim fence is held elsewhere.
	ErrLockHeld = errors.New("lock already held")
	// ErrIrrecoverable marks an agent fault the agent cannot come back
	// from; the supervisor counts the agent as dead.
	ErrIrrecoverable = errors.New("irrecoverable agent fault")
)

// ErrorKind is the machine-readable classification carried on every failed
// mutating call so clients can branch without parsing message text.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindStateConflict    ErrorKind = "state_conflict"
	KindNotFound         ErrorKind = "not_found"
	KindCapitalExceeded  ErrorKind = "capital_exceeded"
	KindExecutionFailure ErrorKind = "execution_failure"
	KindSwarmPaused      ErrorKind = "swarm_paused"
	KindUnavailable      ErrorKind = "unavailable"
	KindInternal         ErrorKind = "internal"
)

// KindOf maps an error chain to its ErrorKind. Unrecognised errors map to
// KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStateConflict):
		return KindStateConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCapitalExceeded):
		return KindCapitalExceeded
	case errors.Is(err, ErrExecutionFailure):
		return KindExecutionFailure
	case errors.Is(err, ErrSwarmPaused):
		return KindSwarmPaused
	case errors.Is(err, ErrEdgeUnavailable), errors.Is(err, ErrLockHeld):
		return KindUnavailable
	default:
		return KindInternal
	}
}
