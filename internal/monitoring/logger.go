// Package monitoring carries the diagnostic logger and run metrics of the
// stem volume pipeline.
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

// LogStage reports how long a pipeline stage took, e.g.
// "Reading CSV file took 0.012345 seconds".
func LogStage(stage string, d time.Duration) {
	Logf("%s took %.6f seconds", stage, d.Seconds())
}
