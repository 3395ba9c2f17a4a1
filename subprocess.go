/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/plog"
	"github.com/northrend-labs/subproc/internal/sigerrno"
)

// CancellationError is returned by any waiter resumed via on_cancel
// instead of a delivered exit status (spec.md §4.7 waiter protocol)
var CancellationError = perrs.Errorf("subprocess wait cancelled")

// subprocessState is the coordinator's 2-state machine (spec.md §4.7):
// Running, or Terminated with a cached exit status. Packed into an
// atomic so the fast path of wait_for_termination never takes the lock
type subprocessState struct {
	terminated bool
	exitStatus int32
}

// Subprocess is the public handle returned by Start: the Subprocess
// Coordinator of spec.md §4.7. It owns the pid, the three streams, the
// watcher, and the waiter list, and serialises every state transition
// behind mu — an actor, not a set of independently-locked fields
type Subprocess struct {
	pid int

	Stdin  *Input
	Stdout *Output
	Stderr *Output

	watcher *terminationWatcher

	mu      sync.Mutex
	state   atomic.Pointer[subprocessState]
	waiters []*Suspension
}

var runningState = &subprocessState{}

func newSubprocess(pid int, stdin *Input, stdout, stderr *Output) *Subprocess {
	p := &Subprocess{pid: pid, Stdin: stdin, Stdout: stdout, Stderr: stderr}
	p.state.Store(runningState)
	return p
}

// Pid returns the child's process id
func (p *Subprocess) Pid() int { return p.pid }

// IsTerminated reports whether the termination callback has already run
func (p *Subprocess) IsTerminated() (exitStatus int32, terminated bool) {
	s := p.state.Load()
	return s.exitStatus, s.terminated
}

// SendSignal issues kill(pid, sig). Returns false, not an error, if the
// process is already known Terminated or if the kill races a
// just-reaped pid (ESRCH) — spec.md §4.7 "send_signal"
func (p *Subprocess) SendSignal(ctx context.Context, sig Signal) (sent bool, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, perrs.Errorf("send signal: %w", ctxErr)
	}
	if _, terminated := p.IsTerminated(); terminated {
		return false, nil
	}
	err = unix.Kill(p.pid, sig)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, perrs.Errorf("send signal: %w", ctxErr)
	}
	if err == nil {
		return true, nil
	}
	if sigerrno.IsESRCH(err) {
		return false, nil
	}
	return false, perrs.Errorf("send signal: %w", err)
}

// Terminate sends SIGTERM
func (p *Subprocess) Terminate(ctx context.Context) (sent bool, err error) {
	return p.SendSignal(ctx, SIGTERM)
}

// Kill sends SIGKILL
func (p *Subprocess) Kill(ctx context.Context) (sent bool, err error) {
	return p.SendSignal(ctx, SIGKILL)
}

// WaitForTermination blocks until the child has exited (spec.md §4.7
// "wait_for_termination"): cached exitStatus on the fast path,
// otherwise registers a Suspension and waits on it or on ctx
func (p *Subprocess) WaitForTermination(ctx context.Context) (exitStatus int32, err error) {
	if s := p.state.Load(); s.terminated {
		return s.exitStatus, nil
	}

	suspension := newSuspension()
	if !p.onWait(suspension) {
		s := p.state.Load()
		return s.exitStatus, nil
	}

	select {
	case <-suspension.ch():
		exitCode, delivered := suspension.onWait()
		if !delivered {
			return 0, CancellationError
		}
		return exitCode, nil
	case <-ctx.Done():
		p.onCancel(suspension)
		// onCancel may have lost a race against resolve(); re-check
		if exitCode, delivered := suspension.onWait(); delivered {
			return exitCode, nil
		}
		return 0, perrs.Errorf("wait for termination: %w: %w", CancellationError, ctx.Err())
	}
}

// onWait implements step 3 of spec.md §4.7's waiter registration
// protocol under the coordinator lock. Returns false if termination
// had already been recorded between the fast-path check in
// WaitForTermination and this call, meaning the caller should read the
// cached state instead of waiting
func (p *Subprocess) onWait(suspension *Suspension) (registered bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.state.Load(); s.terminated {
		return false
	}
	p.waiters = append(p.waiters, suspension)
	return true
}

// onCancel implements step 4 of spec.md §4.7's waiter registration
// protocol
func (p *Subprocess) onCancel(suspension *Suspension) {
	p.mu.Lock()
	for i, w := range p.waiters {
		if w == suspension {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
	suspension.onCancel()
}

// ReadOutputAndWait drains stdout/stderr concurrently with waiting for
// termination (spec.md §4.7 "read_output_and_wait"). The drainers are
// scheduled before the wait begins: starting them after would risk a
// full pipe buffer blocking the child forever while nothing reads it
func (p *Subprocess) ReadOutputAndWait(ctx context.Context, collectStdout, collectStderr bool) (
	exitStatus int32, stdout, stderr []byte, err error) {

	var wg sync.WaitGroup
	var stdoutErr, stderrErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdout, stdoutErr = drain(ctx, p.Stdout, collectStdout)
	}()
	go func() {
		defer wg.Done()
		stderr, stderrErr = drain(ctx, p.Stderr, collectStderr)
	}()

	exitStatus, err = p.WaitForTermination(ctx)
	wg.Wait()

	if err != nil {
		return exitStatus, stdout, stderr, err
	}
	if stdoutErr != nil {
		return exitStatus, stdout, stderr, stdoutErr
	}
	if stderrErr != nil {
		return exitStatus, stdout, stderr, stderrErr
	}
	return exitStatus, stdout, stderr, nil
}

// drain accumulates or discards one stream, per spec.md §4.7: a
// BadFileDescriptor from a drainer is flattened into an empty result
// rather than surfaced, since it only means the stream had already
// been closed
func drain(ctx context.Context, o *Output, collect bool) (data []byte, err error) {
	if o == nil {
		return nil, nil // stream not configured as a pipe: nothing to drain
	}
	if !collect {
		if derr := o.DiscardAll(ctx); derr != nil && sigerrno.Errno(derr) != unix.EBADF {
			return nil, derr
		}
		return nil, nil
	}
	data, err = o.ReadAll(ctx)
	if err != nil && sigerrno.Errno(err) == unix.EBADF {
		return nil, nil
	}
	return data, err
}

// TerminateAfterOutcome is the {Ok, Cancelled, Err} result of the body
// passed to TerminateAfter (spec.md §4.7 "terminate_after")
type TerminateAfterOutcome[T any] struct {
	Value     T
	Cancelled bool
	Err       error
}

// TerminateAfter runs body, then unconditionally terminates the child
// with sig and waits for it to exit before returning body's captured
// outcome — a scoped resource guaranteeing the process is gone by the
// time this returns (spec.md §4.7 "terminate_after")
func TerminateAfter[T any](ctx context.Context, p *Subprocess, sig Signal, body func(ctx context.Context) (T, error)) (outcome TerminateAfterOutcome[T]) {
	value, err := body(ctx)
	switch {
	case ctx.Err() != nil && err == nil:
		outcome.Cancelled = true
	case err != nil:
		outcome.Err = err
	default:
		outcome.Value = value
	}

	if _, sendErr := p.SendSignal(context.Background(), sig); sendErr != nil {
		plog.Debug("TerminateAfter: terminate signal failed: %s", perrs.Short(sendErr))
	}
	if _, waitErr := p.WaitForTermination(context.Background()); waitErr != nil {
		plog.Debug("TerminateAfter: wait for termination failed: %s", perrs.Short(waitErr))
	}

	if outcome.Err == nil && !outcome.Cancelled {
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.Cancelled = true
		}
	}
	return outcome
}

// onTermination is the watcher's termination callback (spec.md §4.7
// "Termination callback"), invoked exactly once per Subprocess. pid is
// accepted to match terminationWatcher.onExit's signature; p.pid is
// already known and used for logging instead
func (p *Subprocess) onTermination(pid int, exitStatus int32) {
	p.state.Store(&subprocessState{terminated: true, exitStatus: exitStatus})

	// Stdin/Stdout/Stderr are nil whenever the corresponding stream was
	// configured as None/Discard/File rather than a pipe (init.go)
	if p.Stdin != nil {
		if err := p.Stdin.Close(); err != nil {
			plog.Debug("onTermination: pid=%d stdin close: %s", p.pid, perrs.Short(err))
		}
	}
	if p.Stdout != nil {
		p.Stdout.CloseAfterPendingReads()
	}
	if p.Stderr != nil {
		p.Stderr.CloseAfterPendingReads()
	}

	p.mu.Lock()
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, w := range waiters {
		w.resolve(exitStatus)
	}
	plog.Debug("onTermination: pid=%d exitStatus=%d waiters=%s", p.pid, exitStatus, plog.Count(len(waiters)))
}
