/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"fmt"
	"syscall"

	"github.com/northrend-labs/subproc/internal/sigerrno"
)

// InitStage classifies which stage of Start produced an InitError
// (spec.md §6)
type InitStage uint8

const (
	StageStdin InitStage = iota + 1
	StageStdout
	StageStderr
	StageFork
	StageExec
)

func (s InitStage) String() string {
	switch s {
	case StageStdin:
		return "Stdin"
	case StageStdout:
		return "Stdout"
	case StageStderr:
		return "Stderr"
	case StageFork:
		return "Fork"
	case StageExec:
		return "Exec"
	default:
		return "Unknown"
	}
}

// ForkExecReason is the classified failure from the fork/exec engine
// (spec.md §4.2)
type ForkExecReason uint8

const (
	ReasonNone ForkExecReason = iota
	ReasonForkFailed
	ReasonChildDup2
	ReasonPipeOpenFailed
	ReasonPipeReadFailed
	ReasonChildPipeCloexec
	ReasonChildExec
)

func (r ForkExecReason) String() string {
	switch r {
	case ReasonForkFailed:
		return "ForkFailed"
	case ReasonChildDup2:
		return "ChildDup2"
	case ReasonPipeOpenFailed:
		return "PipeOpenFailed"
	case ReasonPipeReadFailed:
		return "PipeReadFailed"
	case ReasonChildPipeCloexec:
		return "ChildPipeCloexec"
	case ReasonChildExec:
		return "ChildExec"
	default:
		return "None"
	}
}

// InitError is returned by Start on any failure prior to a running
// child. It carries a (code, message, source) triple suitable for
// display, grounded on pexec.ExitErrorData's parse-once pattern
// (ExitErrorData.ExitErrorString, IsExitError, IsSignalKill)
// generalized from exit-classification to initialization-classification
type InitError struct {
	Stage   InitStage
	Reason  ForkExecReason
	Errno   syscall.Errno
	Message string
	cause   error
}

func (e *InitError) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("%s: %s: %s (errno %d)", e.Stage, e.Reason, e.Message, e.Errno)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Reason, e.Message)
}

func (e *InitError) Unwrap() error { return e.cause }

// IsNoSuchFileOrDirectory reports whether this InitError represents an
// exec failure because the executable path did not exist (spec.md §8
// scenario 7)
func (e *InitError) IsNoSuchFileOrDirectory() bool {
	return e.Stage == StageExec && sigerrno.IsENOENT(e.cause)
}

func newInitError(stage InitStage, reason ForkExecReason, cause error) *InitError {
	return &InitError{
		Stage:   stage,
		Reason:  reason,
		Errno:   sigerrno.Errno(cause),
		Message: cause.Error(),
		cause:   cause,
	}
}

// emptyPathError mirrors pexec.ErrArgsListEmpty: Start requires a
// non-empty executable path
type emptyPathError struct{}

func (emptyPathError) Error() string { return "executable path empty" }

// ErrExecutablePathEmpty is returned when Params.ExecutablePath is ""
var ErrExecutablePathEmpty error = emptyPathError{}
