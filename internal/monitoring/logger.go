// Package monitoring holds the diagnostic logger shared by the analysis
// pipeline and the CLI.
package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// now is swapped in tests.
var now = time.Now

// Stage logs the start of a named analysis stage and returns a function that
// logs its completion with the elapsed time. Call it with the stage error so
// failures are reported in the same line.
//
//	done := monitoring.Stage("power spectrum")
//	err := compute()
//	done(err)
func Stage(name string) func(err error) {
	start := now()
	Logf("[%s] started", name)
	return func(err error) {
		elapsed := now().Sub(start).Round(time.Microsecond)
		if err != nil {
			Logf("[%s] failed after %v: %v", name, elapsed, err)
			return
		}
		Logf("[%s] done in %v", name, elapsed)
	}
}
