/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import "golang.org/x/sys/unix"

// Signal is the set of signals subproc exposes for SendSignal.
//   - grounded on golang.org/x/sys/unix, which is already the teacher's
//     chosen signal-constant source (pexec/exit-error.go references
//     unix.SIGKILL unix.SIGINT unix.SIGTERM)
type Signal = unix.Signal

// The signal set exposed by subproc (spec.md §6)
const (
	SIGINT   Signal = unix.SIGINT
	SIGTERM  Signal = unix.SIGTERM
	SIGSTOP  Signal = unix.SIGSTOP
	SIGCONT  Signal = unix.SIGCONT
	SIGKILL  Signal = unix.SIGKILL
	SIGHUP   Signal = unix.SIGHUP
	SIGQUIT  Signal = unix.SIGQUIT
	SIGUSR1  Signal = unix.SIGUSR1
	SIGUSR2  Signal = unix.SIGUSR2
	SIGALRM  Signal = unix.SIGALRM
	SIGWINCH Signal = unix.SIGWINCH
)
