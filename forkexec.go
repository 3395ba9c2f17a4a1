/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"os"
	"syscall"
	"unicode/utf8"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/plog"
	"github.com/northrend-labs/subproc/internal/sigerrno"
)

// forkExec is the Fork/Exec Engine (spec.md §4.2).
//   - Go's runtime does not let a goroutine call raw fork() and run
//     arbitrary code before execve: every OS thread the runtime manages
//     must either stay fully inside the Go scheduler or exit into a new
//     process image. syscall.ForkExec is the Go runtime's own
//     async-signal-safe child bootstrap — it opens a close-on-exec sync
//     pipe, forks, dup2s stdin/stdout/stderr onto 0/1/2, closes surplus
//     descriptors, resets signal disposition, execves, and on failure
//     writes the errno to the sync pipe before exiting. That is
//     exactly spec.md §4.2 step 6, implemented at the layer the spec
//     explicitly says is "assumed to be implemented in a way
//     appropriate to the chosen runtime" — so forkExec wraps it rather
//     than re-deriving it by hand
//   - the wire-format opcode distinction of spec.md §6 (ChildDup2 vs
//     ChildPipeCloexec vs ChildExec) lives inside that internal
//     bootstrap and is not observable from user code; forkExec
//     recovers an equivalent classification from the returned errno
//     (see classifyForkExecError)
func forkExec(executablePath string, arguments Arguments, environment Environment,
	stdinFD, stdoutFD, stderrFD int) (pid int, initErr *InitError) {

	if executablePath == "" {
		return 0, newInitError(StageFork, ReasonForkFailed, perrs.Errorf("%w", ErrExecutablePathEmpty))
	}

	argv0 := arguments.Argv0
	if argv0 == "" {
		argv0 = executablePath
	}
	var argv = make([]string, 0, len(arguments.Args)+1)
	argv = append(argv, argv0)
	for _, a := range arguments.Args {
		argv = append(argv, string(a.asBytes()))
	}

	var envv = buildEnvv(environment)

	var attr = syscall.ProcAttr{
		Env:   envv,
		Files: []uintptr{uintptr(stdinFD), uintptr(stdoutFD), uintptr(stderrFD)},
	}

	plog.Debug("forkExec: %s argv=%v", executablePath, argv)
	pid, err := syscall.ForkExec(executablePath, argv, &attr)
	if err != nil {
		return 0, classifyForkExecError(err)
	}
	plog.Debug("forkExec: pid=%d", pid)
	return pid, nil
}

// classifyForkExecError maps the error returned by syscall.ForkExec
// into the {ForkFailed, ChildDup2, PipeOpenFailed, PipeReadFailed,
// ChildPipeCloexec, ChildExec} taxonomy of spec.md §4.2 using the
// errno it carries. See forkExec's doc comment and DESIGN.md for why
// this is an errno-based classifier rather than an opcode-based one
func classifyForkExecError(err error) *InitError {
	switch {
	case sigerrno.IsENOENT(err), sigerrno.IsEACCES(err):
		return newInitError(StageExec, ReasonChildExec, err)
	case sigerrno.Errno(err) == syscall.ENOEXEC, sigerrno.Errno(err) == syscall.ETXTBSY:
		return newInitError(StageExec, ReasonChildExec, err)
	case sigerrno.Errno(err) == syscall.EMFILE, sigerrno.Errno(err) == syscall.ENFILE:
		return newInitError(StageFork, ReasonPipeOpenFailed, err)
	case sigerrno.Errno(err) == syscall.EAGAIN, sigerrno.Errno(err) == syscall.ENOMEM:
		return newInitError(StageFork, ReasonForkFailed, err)
	case sigerrno.Errno(err) == syscall.EBADF:
		return newInitError(StageFork, ReasonChildDup2, err)
	default:
		return newInitError(StageExec, ReasonChildExec, err)
	}
}

// buildEnvv realizes spec.md §4.2 step 2.
//   - Inherit(overrides): start from the parent's current environment;
//     remove any key present in overrides that has a valid UTF-8 form
//     (the spec's open question: raw-bytes override keys never match
//     and so never remove an inherited pair — preserved verbatim);
//     append every override as KEY=VALUE; append the remaining
//     inherited pairs
//   - Custom(entries): emit only entries
func buildEnvv(environment Environment) (envv []string) {
	if environment.kind == envCustom {
		envv = make([]string, 0, len(environment.Entries))
		for _, e := range environment.Entries {
			envv = append(envv, string(e.Key)+"="+string(e.Value))
		}
		return envv
	}

	// Inherit
	var removeKeys = make(map[string]bool, len(environment.Overrides))
	for _, o := range environment.Overrides {
		if utf8.Valid(o.Key) {
			removeKeys[string(o.Key)] = true
		}
	}

	var inherited = os.Environ()
	envv = make([]string, 0, len(environment.Overrides)+len(inherited))
	for _, o := range environment.Overrides {
		envv = append(envv, string(o.Key)+"="+string(o.Value))
	}
	for _, kv := range inherited {
		var key = kv
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key = kv[:i]
				break
			}
		}
		if removeKeys[key] {
			continue
		}
		envv = append(envv, kv)
	}
	return envv
}
