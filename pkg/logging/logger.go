package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New builds the process logger. Setting DEBUG=1 enables debug level
// and caller reporting.
func New() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "filedrop",
	})

	if os.Getenv("DEBUG") == "1" {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
