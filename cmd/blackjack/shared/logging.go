package shared

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// SetupLogger returns a console logger at the named level. Unknown levels
// fall back to info.
func SetupLogger(level string, debug bool) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if debug {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}

// SetupStructuredLogger returns a logfmt logger for machine consumption.
func SetupStructuredLogger(level string) *log.Logger {
	logger := SetupLogger(level, false)
	logger.SetFormatter(log.LogfmtFormatter)
	logger.SetTimeFormat(time.RFC3339Nano)
	return logger
}
