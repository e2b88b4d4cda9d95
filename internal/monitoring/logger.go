package monitoring

import "log"

// Logf is the package-level diagnostic logger, log.Printf unless replaced.
// Embedding callers redirect it into their own sink; tests mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
