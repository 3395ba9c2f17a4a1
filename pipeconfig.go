/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"golang.org/x/sys/unix"

	"github.com/northrend-labs/subproc/internal/perrs"
)

// setNonblocking reads fd's current status flags, ORs in O_NONBLOCK,
// and writes them back only if the flag was not already set
//   - grounded on the fcntl-based flag idiom used throughout punix and
//     pexec's unix-facing helpers
func setNonblocking(fd int) (err error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return perrs.Errorf("fcntl F_GETFL: %w", err)
	}
	if flags&unix.O_NONBLOCK != 0 {
		return nil // already non-blocking
	}
	if _, err = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		return perrs.Errorf("fcntl F_SETFL O_NONBLOCK: %w", err)
	}
	return nil
}
