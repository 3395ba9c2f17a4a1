/*
© 2026–present Northrend Labs
ISC License
*/

//go:build linux

package subproc

import (
	"errors"

	"golang.org/x/sys/unix"
)

// setPipeBufferSize applies a size hint to the pipe whose write end is
// writeFD, using F_SETPIPE_SZ.
//   - ResourceBusy (EBUSY, returned when the requested size is below
//     what the kernel already allocated) is swallowed: the kernel
//     already provides at least the requested size (spec.md §4.3)
//   - grounded on the GOOS-split convention of
//     punix/processor-linux.go vs punix/processor.go (the catch-all
//     build tag for non-Linux platforms)
func setPipeBufferSize(writeFD int, bytes int) (err error) {
	if bytes <= 0 {
		return nil
	}
	if _, err = unix.FcntlInt(uintptr(writeFD), unix.F_SETPIPE_SZ, bytes); err != nil {
		if errors.Is(err, unix.EBUSY) {
			return nil // kernel already provides at least bytes
		}
		return err
	}
	return nil
}
