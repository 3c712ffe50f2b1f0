// Package monitoring holds the diagnostic logger shared by the library
// packages. The solver itself never logs.
package monitoring

import (
	"log"
	"sync/atomic"
)

type logFunc func(format string, v ...interface{})

var (
	logger  atomic.Pointer[logFunc]
	verbose atomic.Bool
)

func init() {
	f := logFunc(log.Printf)
	logger.Store(&f)
}

// Logf writes through the current package logger, log.Printf by default.
// It is safe to call while another goroutine replaces the logger.
func Logf(format string, v ...interface{}) {
	(*logger.Load())(format, v...)
}

// SetLogger replaces the package logger and returns the previous one so
// tests can restore it. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) func(format string, v ...interface{}) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	next := logFunc(f)
	return *logger.Swap(&next)
}

// Verbosef logs only when verbose output was requested with SetVerbose.
func Verbosef(format string, v ...interface{}) {
	if verbose.Load() {
		Logf(format, v...)
	}
}

// SetVerbose turns Verbosef output on or off.
func SetVerbose(on bool) { verbose.Store(on) }
