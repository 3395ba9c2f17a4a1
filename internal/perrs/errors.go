/*
© 2026–present Northrend Labs
ISC License
*/

// Package perrs provides stack-trace-bearing error wrapping for the
// subproc module.
//   - grounded on github.com/haraldrudell/parl/perrors, trimmed to the
//     subset subproc needs: an error that remembers where it was
//     created and a one-line renderer for log output
package perrs

import (
	"errors"
	"fmt"
	"runtime"
)

// located is an error decorated with the call site that created it
type located struct {
	err  error
	file string
	line int
	fn   string
}

func (l *located) Error() string { return l.err.Error() }
func (l *located) Unwrap() error { return l.err }

// Errorf is like fmt.Errorf but ensures the returned error carries a
// call-site location, unless err already has one
func Errorf(format string, a ...any) (err error) {
	err = fmt.Errorf(format, a...)
	if HasLocation(err) {
		return
	}
	return attachLocation(err, 1)
}

// PackFunc prefixes format with "pkg.Func " of the caller, then behaves
// like Errorf
//   - “subproc.Start: %w”
func PackFunc(format string, a ...any) (err error) {
	var prefix string
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			prefix = shortFuncName(fn.Name()) + "\x20"
		}
	}
	err = fmt.Errorf(prefix+format, a...)
	if HasLocation(err) {
		return
	}
	return attachLocation(err, 1)
}

func attachLocation(err error, skip int) error {
	var l located
	l.err = err
	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		l.file = file
		l.line = line
	}
	if pc, _, _, ok := runtime.Caller(skip + 1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			l.fn = shortFuncName(fn.Name())
		}
	}
	return &l
}

// HasLocation returns true if err's chain already carries a call-site
// location
func HasLocation(err error) (has bool) {
	var l *located
	return errors.As(err, &l)
}

// Short renders a one-line message with location, similar to
// perrors.Short
//   - “write failed at subproc.(*Input).Write-input.go:42”
func Short(err error) (s string) {
	if err == nil {
		return ""
	}
	var l *located
	if errors.As(err, &l) && l.file != "" {
		return fmt.Sprintf("%s at %s-%s:%d", err.Error(), l.fn, base(l.file), l.line)
	}
	return err.Error()
}

func base(path string) (name string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func shortFuncName(full string) (name string) {
	name = full
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			name = name[i+1:]
			break
		}
	}
	return name
}

// Is is sugar for wrapping and testing an error in one line, mirroring
// perrors.Is's call pattern at error checks:
//
//	if err = doIt(); perrs.Is(&err, "doIt failed: %w", err) { … }
func Is(errp *error, format string, a ...any) (isError bool) {
	if *errp == nil {
		return false
	}
	*errp = Errorf(format, a...)
	return true
}
