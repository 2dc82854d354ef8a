package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// New returns the process logger writing to stderr.
// Human readable text when stderr is a terminal, JSON lines otherwise.
func New(verbose bool) *log.Logger {
	return NewWithWriter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), verbose)
}

// NewWithWriter builds a logger on w; interactive selects the text formatter
func NewWithWriter(w io.Writer, interactive, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	formatter := log.JSONFormatter
	if interactive {
		formatter = log.TextFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "ec2-burrow",
	})
}
