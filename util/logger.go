// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Logger writes levelled messages to a persistent sink (normally the
// log file) and, when an echo sink is set, repeats errors there so the
// operator sees failures on the console.
type Logger struct {
	level      LogLevel
	output     io.Writer
	echo       io.Writer // nil = errors are not echoed
	closer     io.Closer
	mu         sync.Mutex
	timestamps bool // if true, prepend timestamps
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug) to stderr.
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3,
	}
}

// Discard returns a Logger that writes nothing.  Handy in tests.
func Discard() *Logger {
	return &Logger{level: LogQuiet, output: io.Discard}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.timestamps = on }

// SetOutput overrides the persistent sink (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.output = w }

// SetEcho sets the sink that receives a copy of every error entry.
// Pass nil to stop echoing.
func (l *Logger) SetEcho(w io.Writer) { l.echo = w }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// OpenFile appends all further entries to the file at path, with
// timestamps.  If the file cannot be opened, nothing is written to the
// persistent sink any more and errors are echoed to stderr instead, so
// failures are never lost.
func (l *Logger) OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.mu.Lock()
		l.output = io.Discard
		if l.echo == nil {
			l.echo = os.Stderr
		}
		l.mu.Unlock()
		return fmt.Errorf("open log file: %w", err)
	}
	l.mu.Lock()
	l.output = f
	l.closer = f
	l.timestamps = true
	l.mu.Unlock()
	return nil
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.output = io.Discard
	return err
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("INF", false, format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("WRN", false, format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.write("VRB", false, format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.write("DBG", false, format, args...)
	}
}

// Error always prints regardless of verbosity, and is echoed.
// Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("ERR", true, format, args...)
}

func (l *Logger) write(level string, echo bool, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.timestamps {
		ts := time.Now().Format("2006-01-02 15:04:05.000")
		fmt.Fprintf(l.output, "%s [%s] %s\n", ts, level, msg)
	} else {
		fmt.Fprintf(l.output, "[%s] %s\n", level, msg)
	}
	if echo && l.echo != nil {
		fmt.Fprintf(l.echo, "[%s] %s\n", level, msg)
	}
}
