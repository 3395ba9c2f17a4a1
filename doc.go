/*
© 2026–present Northrend Labs
ISC License
*/

/*
Package subproc provides a POSIX child-process library: spawning and
controlling external executables, streaming data through pipes,
receiving termination notifications asynchronously, and supporting
cooperative cancellation of callers waiting on a child.

The package is organized around eight collaborating pieces, smallest
first:

  - fdHandle: an owning wrapper over a raw file descriptor with
    idempotent close
  - the fork/exec engine (forkexec.go): builds argv/envv and launches
    the child via syscall.ForkExec
  - pipe configuration (pipeconfig.go, pipebuffer_*.go): non-blocking
    flag and optional Linux pipe-buffer sizing
  - Input: a non-blocking pipe write-end
  - Output: a non-blocking pipe read-end with deferred close
  - the termination watcher (watcher.go): one OS thread per child
    blocked in waitpid
  - Subprocess (subprocess.go): the public coordinator — pid, streams,
    state, waiters
  - Start (init.go): orchestrates the above into a running Subprocess

subproc does not hide blocking: a caller that waits for termination
without draining a pipe the child has filled may deadlock. subproc does
not kill stray children on host shutdown, does not search PATH for bare
executable names, and targets POSIX hosts only.
*/
package subproc
