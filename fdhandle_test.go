/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"context"
	"testing"

	"golang.org/x/sys/unix"
)

func TestFDHandleIdempotentClose(t *testing.T) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		t.Fatalf("Pipe2: %s", err)
	}
	h := newFDHandle(fds[0])
	defer unix.Close(fds[1])

	if err := h.close(); err != nil {
		t.Fatalf("close: %s", err)
	}
	if err := h.close(); err != nil {
		t.Fatalf("second close: %s", err)
	}
	if !h.isClosed() {
		t.Error("isClosed: false after close")
	}
}

func TestFDHandleAccessIfNotCancelled(t *testing.T) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		t.Fatalf("Pipe2: %s", err)
	}
	defer unix.Close(fds[1])
	h := newFDHandle(fds[0])
	defer h.close()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := h.accessIfNotCancelled(ctx); err != nil {
		t.Fatalf("accessIfNotCancelled: %s", err)
	}
	cancel()
	if _, err := h.accessIfNotCancelled(ctx); err == nil {
		t.Error("accessIfNotCancelled: missing error after cancel")
	}
}
