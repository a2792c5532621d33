package capflow

// Package-level structured logger. Calculator and simulation workers log
// through this at recovery boundaries rather than returning log lines up the
// call stack.

import (
	"os"

	"github.com/rs/zerolog"
)

var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	With().Timestamp().Logger()

// SetLogLevel adjusts verbosity; callers embedding capflow in a service
// typically wire this to their own config flag.
func SetLogLevel(level zerolog.Level) {
	Log = Log.Level(level)
}
