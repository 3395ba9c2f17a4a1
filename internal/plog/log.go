/*
© 2026–present Northrend Labs
ISC License
*/

// Package plog provides the subproc module's debug logger.
//   - grounded on github.com/haraldrudell/parl/plog and
//     github.com/haraldrudell/parl/plogger: a stdlib log.Logger behind
//     an atomic debug gate, no third-party logging framework
package plog

import (
	"log"
	"os"
	"sync/atomic"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// logger is the shared stderr logger, matching plogger.GetLog(os.Stderr)
var logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)

// isDebug gates Debug output, set via SetDebug
var isDebug atomic.Bool

// numberPrinter renders integers with thousands separators in debug
// lines, mirroring plog's dependency on golang.org/x/text for exactly
// this purpose
var numberPrinter = message.NewPrinter(language.English)

// SetDebug turns subproc's debug logging on or off
func SetDebug(on bool) { isDebug.Store(on) }

// IsThisDebug reports whether debug logging is currently enabled
func IsThisDebug() (on bool) { return isDebug.Load() }

// Debug prints a debug line if debug logging is enabled
//   - mirrors parl.Debug("Start") call sites in pexec.ExecStreamFull
func Debug(format string, a ...any) {
	if !isDebug.Load() {
		return
	}
	logger.Output(2, numberPrinter.Sprintf(format, a...))
}

// Count renders n with thousands separators for inclusion in a Debug
// format string, e.g. plog.Debug("read %s bytes", plog.Count(n))
func Count(n int) string { return numberPrinter.Sprintf("%d", n) }
