// Package errkind classifies the engine's fatal errors into the kinds
// spec.md §7 names, so the orchestrator and the CLI can decide an exit
// code and whether the cleanup handler must run without inspecting
// error text.
package errkind

import "fmt"

// Kind is one of the closed set of fatal-error categories the engine
// raises. Every fatal error the orchestrator or CLI surfaces carries
// exactly one Kind.
type Kind int

const (
	Usage Kind = iota
	Configuration
	Environment
	Server
	Protocol
	Timeout
	Corruption
	Contention
	Interrupt
	Internal
)

func (k Kind) String() string {
	switch k {
	case Usage:
		return "usage"
	case Configuration:
		return "configuration"
	case Environment:
		return "environment"
	case Server:
		return "server"
	case Protocol:
		return "protocol"
	case Timeout:
		return "timeout"
	case Corruption:
		return "corruption"
	case Contention:
		return "contention"
	case Interrupt:
		return "interrupt"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// ExitCode maps a Kind to the process exit status the CLI returns.
// Usage errors get 2, contention gets 3, everything else fatal gets 1.
func (k Kind) ExitCode() int {
	switch k {
	case Usage:
		return 2
	case Contention:
		return 3
	default:
		return 1
	}
}

// NeedsCleanup reports whether this Kind must run the orchestrator's
// crash-cleanup handler before the process exits. Contention is the
// only kind that bypasses it: a contended lock means no state was
// touched, so there is nothing to roll back.
func (k Kind) NeedsCleanup() bool {
	return k != Contention
}

// Error is a fatal error tagged with a Kind and wrapping its cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a Kind-tagged error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a Kind-tagged error wrapping cause via %w semantics.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// As extracts the Kind of err if it (or something it wraps) is an
// *Error; otherwise it reports Internal, since an error that reached
// the top level without being classified is itself a bug.
func As(err error) Kind {
	var e *Error
	for err != nil {
		if converted, ok := err.(*Error); ok {
			e = converted
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	if e == nil {
		return Internal
	}
	return e.Kind
}
