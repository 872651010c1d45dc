package orchestrator

import "errors"

var (
	// ErrLifecycleViolation is returned when an operation is called out of
	// order: before Init, Init twice, or after Close. It is also logged at
	// fatal severity, which ends the process unless a non-exiting hook is set.
	ErrLifecycleViolation = errors.New("lifecycle violation")

	// ErrPreconditionFailure is returned when an operation's precondition
	// does not hold. Nothing is mutated and no observer fires.
	ErrPreconditionFailure = errors.New("precondition failure")

	// ErrFormat is returned for malformed reader input
	ErrFormat = errors.New("format error")

	// ErrResource is returned for unreadable or unwritable paths and stores
	ErrResource = errors.New("resource error")
)
