/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"context"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/northrend-labs/subproc/internal/perrs"
)

// ErrBadFileDescriptor is returned by fdHandle operations once the
// handle has been closed
var ErrBadFileDescriptor = unix.EBADF

// ErrCancelled is what fdHandle.accessIfNotCancelled wraps when the
// caller's context was cancelled; a context that hit its deadline
// yields context.DeadlineExceeded instead
var ErrCancelled = context.Canceled

// fdHandle owns at most one OS file descriptor.
//   - at most one close ever reaches the OS per handle: double-close is
//     silently absorbed
//   - once closed, accessIfNotCancelled fails with ErrBadFileDescriptor
//   - grounded on parl's idempotent-close idiom (closable-chan.go,
//     closer.go: a sync.Once-guarded close that sets a flag before
//     invoking the underlying close, so a throwing close still
//     prevents further use)
type fdHandle struct {
	fd     int
	closed atomic.Bool
}

// newFDHandle adopts fd, which may have come from opening a path,
// forming one end of a pipe, or a caller-supplied descriptor
func newFDHandle(fd int) *fdHandle { return &fdHandle{fd: fd} }

// accessIfNotCancelled returns fd provided ctx is not done and the
// handle is not closed
func (h *fdHandle) accessIfNotCancelled(ctx context.Context) (fd int, err error) {
	if ctx != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return -1, perrs.Errorf("fd handle: %w", ctxErr)
		}
	}
	if h.closed.Load() {
		return -1, perrs.Errorf("fd handle: %w", ErrBadFileDescriptor)
	}
	return h.fd, nil
}

// rawFD returns the descriptor without checking cancellation, for internal
// callers that already hold equivalent guarantees (e.g. the fork/exec
// engine transferring ownership into the child)
func (h *fdHandle) rawFD() (fd int, closed bool) {
	return h.fd, h.closed.Load()
}

// close is idempotent: the first call marks the handle closed before
// invoking the OS close, so a failing close still prevents further use.
// Only the first call's error is reported; subsequent calls return nil
func (h *fdHandle) close() (err error) {
	if !h.closed.CompareAndSwap(false, true) {
		return nil // already closed: absorbed
	}
	if e := unix.Close(h.fd); e != nil {
		return perrs.Errorf("close fd %d: %w", h.fd, e)
	}
	return nil
}

// isClosed reports whether close has already run, without touching the
// OS descriptor
func (h *fdHandle) isClosed() bool { return h.closed.Load() }
