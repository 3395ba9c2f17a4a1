/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/plog"
	"github.com/northrend-labs/subproc/internal/sigerrno"
)

// watcherCommand is sent on a watcher's control channel to move it
// out of its initial paused state or to abort it before a pid is ever
// assigned (spec.md §4.6: "created paused, resumed once the pid is
// known, or cancelled if fork/exec itself failed")
type watcherCommand struct {
	pid    int
	cancel bool
}

// terminationWatcher owns one dedicated, named goroutine per child
// blocked in waitpid (spec.md §4.6). It never joins: once the exit
// status is reported to the coordinator, the goroutine exits on its
// own and is not waited for by anyone
type terminationWatcher struct {
	commandCh chan watcherCommand
	onExit    func(pid int, exitStatus int32)
}

// newTerminationWatcher starts watchLoop immediately in the paused
// state and returns a handle for resume/cancel
func newTerminationWatcher(onExit func(pid int, exitStatus int32)) *terminationWatcher {
	w := &terminationWatcher{
		commandCh: make(chan watcherCommand, 1),
		onExit:    onExit,
	}
	go w.watchLoop()
	return w
}

// resume provides the pid once fork/exec has succeeded, releasing
// watchLoop to begin waitpid
func (w *terminationWatcher) resume(pid int) { w.commandCh <- watcherCommand{pid: pid} }

// cancel aborts watchLoop before it ever receives a pid — used when
// fork/exec itself failed and no child was ever created
func (w *terminationWatcher) cancel() { w.commandCh <- watcherCommand{cancel: true} }

// sentinelNoChildProcess is the terminal status the watcher reports
// when waitpid can no longer find the child to reap (spec.md §4.6,
// "NoChildProcess; terminate loop with the sentinel status 255")
const sentinelNoChildProcess int32 = 255

// watchLoop is the Termination Watcher body (spec.md §4.6). Its
// status classifier follows the table in spec.md §4.6 exactly:
// WIFEXITED → the non-negative exit code; WIFSIGNALED → the negated
// signal number; EINTR/EAGAIN → retry; ECHILD → sentinelNoChildProcess;
// EINVAL/ESRCH are fatal programmer errors, since they indicate pid
// was never this watcher's own child to begin with.
//   - locks to its OS thread for the lifetime of the blocking wait4
//     call, since a thread can be left in a kernel wait state by the
//     runtime's scheduler otherwise; grounded on the dedicated-thread
//     convention the source's waitpid thread embodies, realized in Go
//     via runtime.LockOSThread
func (w *terminationWatcher) watchLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cmd := <-w.commandCh
	if cmd.cancel {
		return // fork/exec never produced a child; nothing to wait for
	}
	pid := cmd.pid

	var status unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &status, 0, nil)
		if err != nil {
			if sigerrno.IsEINTR(err) || sigerrno.IsEAGAIN(err) {
				continue // transient, retry
			}
			if sigerrno.IsECHILD(err) {
				plog.Debug("watchLoop: pid=%d ECHILD, no child to reap", pid)
				w.report(pid, sentinelNoChildProcess)
				return
			}
			if sigerrno.Errno(err) == unix.EINVAL || sigerrno.IsESRCH(err) {
				panic(perrs.Errorf("watchLoop: pid=%d fatal wait4 error: %w", pid, err))
			}
			plog.Debug("watchLoop: pid=%d wait4 failed: %s", pid, perrs.Short(err))
			w.report(pid, sentinelNoChildProcess)
			return
		}
		if status.Exited() {
			w.report(pid, int32(status.ExitStatus()))
			return
		}
		if status.Signaled() {
			w.report(pid, -int32(status.Signal()))
			return
		}
		// stopped/continued notifications are not termination; keep waiting
	}
}

// report hands the exit status to the coordinator on a freshly
// spawned goroutine so watchLoop itself never blocks on the
// coordinator's termination handling (spec.md §4.6 "must not block the
// waitpid thread on downstream processing")
func (w *terminationWatcher) report(pid int, exitStatus int32) {
	go w.onExit(pid, exitStatus)
}
