/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"sync"

	"github.com/google/uuid"
)

// suspensionState is the 3-state waiter lifecycle of spec.md §4.7:
// Pending (registered, not yet resolved) → Suspended (woken with the
// exit status) or Cancelled (woken by the caller's own context, never
// delivered an exit status)
type suspensionState uint8

const (
	suspensionPending suspensionState = iota
	suspensionSuspended
	suspensionCancelled
)

// Suspension is a single waiter on subprocess termination, grounded on
// the one-shot closing-channel idiom of Awaitable but widened to a
// 3-state outcome (spec.md §4.7 "on_wait"/"on_cancel" pair) instead of
// Awaitable's single open/closed state
//   - each Suspension carries a unique trace id identifying that wait;
//     no log line prints it
type Suspension struct {
	traceID string

	mu        sync.Mutex
	state     suspensionState
	done      chan struct{}
	exitCode  int32
	cancelled bool
}

// newSuspension creates a Pending waiter; Subprocess.onWait registers it
func newSuspension() *Suspension {
	return &Suspension{
		traceID: uuid.NewString(),
		done:    make(chan struct{}),
	}
}

// onWait blocks until resolve or cancel is called for this Suspension,
// then returns the delivered exit status and whether it was delivered
// (false means the Suspension was cancelled instead)
func (s *Suspension) onWait() (exitCode int32, delivered bool) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.state == suspensionSuspended
}

// ch exposes the underlying channel for select-based waiting alongside
// a caller's own context.Done()
func (s *Suspension) ch() <-chan struct{} { return s.done }

// resolve transitions Pending → Suspended, delivering exitCode.
// Idempotent: a second call is a no-op
func (s *Suspension) resolve(exitCode int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != suspensionPending {
		return
	}
	s.state = suspensionSuspended
	s.exitCode = exitCode
	close(s.done)
}

// onCancel transitions Pending → Cancelled. Idempotent: a second call,
// or a call after resolve already ran, is a no-op — spec.md §4.7
// "on_cancel" cannot un-deliver an exit status that already won the
// race
func (s *Suspension) onCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != suspensionPending {
		return
	}
	s.state = suspensionCancelled
	s.cancelled = true
	close(s.done)
}

// isCancelled reports whether this Suspension ended in Cancelled state
func (s *Suspension) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
