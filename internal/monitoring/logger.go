// Package monitoring holds the service-wide diagnostic logger used by the
// pipeline engines, the scheduler and the HTTP layer.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// may be swapped with SetLogger, so callers log through one replaceable seam
// instead of importing log directly.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Silence mutes the logger and returns a function that restores the previous
// one. Intended for tests that drive noisy pipeline runs.
func Silence() (restore func()) {
	prev := Logf
	SetLogger(nil)
	return func() { Logf = prev }
}
