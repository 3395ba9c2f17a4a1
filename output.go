/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sys/unix"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/plog"
	"github.com/northrend-labs/subproc/internal/sigerrno"
)

// eagainPollInterval is the 500ms sleep ReadAll uses between EAGAIN
// retries. spec.md §9 names this "a known deficiency documented in the
// source" that "a properly engineered implementation should replace...
// with readiness notification"; subproc preserves the polling semantics
// as specified and does not attempt to match latency
const eagainPollInterval = 500 * time.Millisecond

// readAllStagingSize is the staging buffer ReadAll allocates per spec.md
// §4.5 ("allocate a 1 KiB staging buffer")
const readAllStagingSize = 1024

// Output is an actor-like reader around a non-blocking pipe read-end
// (spec.md §4.5). Like Input, all operations are serialized by mu; no
// multi-consumer support is provided.
//
// Output additionally tracks pendingReads so that termination can defer
// closing the descriptor until in-flight reads have drained — otherwise
// a concurrent ReadAll could race a watcher-driven close into a
// BadFileDescriptor failure (spec.md §4.5 "Rationale").
type Output struct {
	handle *fdHandle
	mu     sync.Mutex

	// gate protects pendingReads and deferredClose below
	gate          sync.Mutex
	pendingReads  int
	deferredClose bool
}

func newOutput(fd int) *Output {
	return &Output{handle: newFDHandle(fd)}
}

// Read performs a single non-blocking read into p.
//   - n==0, eof==true means the writing end closed
//   - ok==false means EAGAIN/EWOULDBLOCK: try again later
func (o *Output) Read(ctx context.Context, p []byte) (n int, eof bool, ok bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fd, err := o.handle.accessIfNotCancelled(ctx)
	if err != nil {
		return 0, false, false, err
	}

	n, err = unix.Read(fd, p)
	if err == nil {
		if n == 0 {
			return 0, true, true, nil
		}
		return n, false, true, nil
	}
	if sigerrno.IsEAGAIN(err) {
		return 0, false, false, nil
	}
	return 0, false, false, perrs.Errorf("read: %w", err)
}

// beginRead/endRead bracket every bulk read so a deferred close knows
// when it is safe to proceed — the counting-gate idiom grounded on
// parl.CountingAwaitable, specialized to a single trigger condition
// (count back to zero AND a close was requested) instead of a general
// re-usable semaphore
func (o *Output) beginRead() {
	o.gate.Lock()
	o.pendingReads++
	o.gate.Unlock()
}

func (o *Output) endRead() {
	o.gate.Lock()
	o.pendingReads--
	var shouldClose = o.pendingReads == 0 && o.deferredClose
	o.gate.Unlock()
	if shouldClose {
		o.handle.close()
	}
}

// ReadAll accumulates until EOF, sleeping eagainPollInterval between
// EAGAIN retries (spec.md §4.5, §9)
func (o *Output) ReadAll(ctx context.Context) (data []byte, err error) {
	o.beginRead()
	defer o.endRead()

	var staging = make([]byte, readAllStagingSize)
	for {
		if ctx != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return data, perrs.Errorf("read all: %w", ctxErr)
			}
		}
		n, eof, ok, rerr := o.Read(ctx, staging)
		if rerr != nil {
			if sigerrno.Errno(rerr) == unix.EBADF {
				return data, nil // treated as EOF per spec.md §7(c)
			}
			return data, rerr
		}
		if eof {
			plog.Debug("ReadAll: eof, %s bytes total", plog.Count(len(data)))
			return data, nil
		}
		if !ok {
			select {
			case <-time.After(eagainPollInterval):
			case <-ctxDone(ctx):
				return data, perrs.Errorf("read all: %w", ctx.Err())
			}
			continue
		}
		data = append(data, staging[:n]...)
	}
}

// ReadAllString is ReadAll followed by a UTF-8 decode
func (o *Output) ReadAllString(ctx context.Context) (text string, ok bool, err error) {
	data, err := o.ReadAll(ctx)
	if err != nil {
		return "", false, err
	}
	if !utf8.Valid(data) {
		return "", false, nil
	}
	return string(data), true, nil
}

// DiscardAll is ReadAll's loop with data thrown away instead of
// accumulated, so a caller can drain a stream it does not care about
// without growing an unbounded buffer
func (o *Output) DiscardAll(ctx context.Context) (err error) {
	o.beginRead()
	defer o.endRead()

	var staging = make([]byte, readAllStagingSize)
	for {
		if ctx != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return perrs.Errorf("discard all: %w", ctxErr)
			}
		}
		_, eof, ok, rerr := o.Read(ctx, staging)
		if rerr != nil {
			if sigerrno.Errno(rerr) == unix.EBADF {
				return nil
			}
			return rerr
		}
		if eof {
			return nil
		}
		if !ok {
			select {
			case <-time.After(eagainPollInterval):
			case <-ctxDone(ctx):
				return perrs.Errorf("discard all: %w", ctx.Err())
			}
		}
	}
}

// Close closes immediately and idempotently
func (o *Output) Close() (err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle.close()
}

// CloseAfterPendingReads closes now if no read is in flight, otherwise
// parks the request until the last in-flight read completes (spec.md
// §4.5, §4.7 step 3: "call close_after_pending_reads() on stdout and
// stderr so in-flight reads drain")
func (o *Output) CloseAfterPendingReads() {
	o.gate.Lock()
	if o.pendingReads == 0 {
		o.gate.Unlock()
		o.handle.close()
		return
	}
	o.deferredClose = true
	o.gate.Unlock()
}

func ctxDone(ctx context.Context) <-chan struct{} {
	if ctx == nil {
		return nil
	}
	return ctx.Done()
}
