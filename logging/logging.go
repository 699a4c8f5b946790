// Package logging builds the [log.Logger] shared by every component.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a [log.Logger] writing to w with timestamps enabled.
//
// The writer defaults to [os.Stderr]. Unknown level names fall back to info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "showsync",
	})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// ParseLevel maps a level name to a [log.Level], defaulting to [log.InfoLevel].
func ParseLevel(level string) log.Level {
	l, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return l
}

// Discard returns a logger that drops everything. Components use it when handed a nil logger.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
