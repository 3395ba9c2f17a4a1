/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"context"
	"sync"
	"unicode/utf8"

	"golang.org/x/sys/unix"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/sigerrno"
)

// Input is an actor-like writer around a non-blocking pipe write-end
// (spec.md §4.4). All operations are serialized: exactly one concurrent
// caller is expected inside an Input at a time — subproc does not make
// streams multi-producer (spec.md §9 "Design Notes").
type Input struct {
	handle *fdHandle
	mu     sync.Mutex
}

func newInput(fd int) *Input { return &Input{handle: newFDHandle(fd)} }

// Write writes as many bytes of p as the pipe will accept.
//   - n, wrote == false means the write would block (EAGAIN/EWOULDBLOCK)
//   - writes up to PIPE_BUF are atomic; larger writes may be partial —
//     callers chunk if they require whole-message atomicity (spec.md
//     §4.4, the source's PIPE_BUF-chunking TODO is intentionally not
//     auto-chunked here)
func (in *Input) Write(ctx context.Context, p []byte) (n int, wrote bool, err error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	fd, err := in.handle.accessIfNotCancelled(ctx)
	if err != nil {
		return 0, false, err
	}

	n, err = unix.Write(fd, p)
	if err == nil {
		return n, true, nil
	}
	if sigerrno.IsEAGAIN(err) {
		return 0, false, nil
	}
	return 0, false, perrs.Errorf("write: %w", err)
}

// WriteAll writes p in a loop until it would block or is fully written.
// wrote is the number of bytes actually written; ok is false iff the
// very first write attempt would have blocked
func (in *Input) WriteAll(ctx context.Context, p []byte) (wrote int, ok bool, err error) {
	for wrote < len(p) {
		n, didWrite, werr := in.Write(ctx, p[wrote:])
		if werr != nil {
			return wrote, wrote > 0, werr
		}
		if !didWrite {
			return wrote, wrote > 0, nil
		}
		wrote += n
		if n == 0 {
			break
		}
	}
	return wrote, true, nil
}

// ByteSource is an async sequence of bytes, e.g. backed by a channel;
// WriteAllAsync drains it into memory before writing (spec.md §4.4:
// "write_all(async sequence of bytes): drains the sequence into memory
// first, then calls the synchronous variant")
type ByteSource <-chan []byte

// WriteAllAsync drains source into memory, then writes it with WriteAll
func (in *Input) WriteAllAsync(ctx context.Context, source ByteSource) (wrote int, ok bool, err error) {
	var buf []byte
	for {
		select {
		case chunk, more := <-source:
			if !more {
				return in.WriteAll(ctx, buf)
			}
			buf = append(buf, chunk...)
		case <-ctx.Done():
			return 0, false, perrs.Errorf("write all async: %w", ctx.Err())
		}
	}
}

// WriteString encodes text as NUL-terminated UTF-8 and writes it.
// ErrInvalidArgument is returned if text is not valid UTF-8
func (in *Input) WriteString(ctx context.Context, text string) (wrote int, ok bool, err error) {
	if !utf8.ValidString(text) {
		return 0, false, perrs.Errorf("write string: %w", ErrInvalidArgument)
	}
	var p = make([]byte, 0, len(text)+1)
	p = append(p, text...)
	p = append(p, 0)
	return in.WriteAll(ctx, p)
}

// ErrInvalidArgument is returned when text encoding fails
var ErrInvalidArgument = perrs.Errorf("invalid argument")

// Close is idempotent
func (in *Input) Close() (err error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.handle.close()
}
