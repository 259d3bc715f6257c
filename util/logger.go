// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

var levelColors = map[string]string{
	"ERR": "\x1b[31m",
	"WRN": "\x1b[33m",
	"INF": "\x1b[32m",
	"VRB": "\x1b[36m",
	"DBG": "\x1b[90m",
}

// Logger writes levelled messages to stderr, each line prefixed with the
// program name.  Level tags are coloured when the output is a terminal.
type Logger struct {
	level      LogLevel
	prefix     string
	output     io.Writer
	mu         sync.Mutex
	timestamps bool // if true, prepend a wall-clock timestamp
	color      bool
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(prefix string, verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		prefix:     prefix,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
	l.SetOutput(os.Stderr)
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.timestamps = on }

// SetOutput overrides the output writer (default: os.Stderr).  Colour is
// re-evaluated for the new writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.color = false
	if f, ok := w.(*os.File); ok {
		l.color = term.IsTerminal(int(f.Fd()))
	}
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("INF", format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("WRN", format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.write("VRB", format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.write("DBG", format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("ERR", format, args...)
}

func (l *Logger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	tag := "[" + level + "]"
	if l.color {
		tag = levelColors[level] + tag + "\x1b[0m"
	}
	if l.timestamps {
		ts := time.Now().Format("15:04:05.000")
		fmt.Fprintf(l.output, "%s: %s %s %s\n", l.prefix, ts, tag, msg)
	} else {
		fmt.Fprintf(l.output, "%s: %s %s\n", l.prefix, tag, msg)
	}
}
