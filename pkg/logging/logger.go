// Package logging provides a small leveled logger used throughout the
// archive runtime. Every subsystem holds its own *Logger, scoped with a
// dotted subsystem prefix, rather than reaching for a package-level global.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// writer is an io.Writer that splits its input stream into lines and
// forwards each completed line to a callback.
type writer struct {
	callback func(string)
	buffer   []byte
}

func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

func (w *writer) Write(buffer []byte) (int, error) {
	w.buffer = append(w.buffer, buffer...)

	var processed int
	remaining := w.buffer
	for {
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}
		w.callback(string(trimCarriageReturn(remaining[:index])))
		processed += index + 1
		remaining = remaining[index+1:]
	}

	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}

	return len(buffer), nil
}

var defaultOutput = log.New(stdout(), "", log.LstdFlags)

// stdout wraps os.Stdout with ANSI translation on platforms that need it
// (Windows consoles without native ANSI support) and leaves it untouched
// when output isn't a terminal.
func stdout() io.Writer {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return colorable.NewColorableStdout()
	}
	return os.Stdout
}

// Logger is the main logger type. A nil *Logger is valid and silently drops
// everything, so subsystems can be constructed with an optional logger
// without special-casing it.
type Logger struct {
	prefix string
	level  Level
	output *log.Logger
}

// RootLogger is the root logger from which all other loggers derive. Its
// level defaults to LevelInfo and it writes to the colorized standard
// output stream.
var RootLogger = &Logger{level: LevelInfo, output: defaultOutput}

// NewRoot creates a root logger at the specified level, writing to the
// colorized standard output stream.
func NewRoot(level Level) *Logger {
	return &Logger{level: level, output: defaultOutput}
}

// NewLogger creates a root logger at the specified level that writes to w
// instead of standard output — used by the daemon to duplicate logging into
// its log file and by tests to capture output.
func NewLogger(level Level, w io.Writer) *Logger {
	return &Logger{level: level, output: log.New(w, "", log.LstdFlags)}
}

// Sublogger creates a new sublogger with the specified name appended to the
// dotted prefix chain.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix, level: l.level, output: l.output}
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.level >= level
}

func (l *Logger) line(level, tag, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s: %s", l.prefix, tag, line)
	} else {
		line = fmt.Sprintf("%s: %s", tag, line)
	}
	out := l.output
	if out == nil {
		out = defaultOutput
	}
	out.Output(4, line)
	_ = level
}

// Error logs at LevelError.
func (l *Logger) Error(v ...interface{}) {
	if l.enabled(LevelError) {
		l.line(LevelError, color.RedString("error"), fmt.Sprint(v...))
	}
}

// Errorf logs at LevelError with format semantics.
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.enabled(LevelError) {
		l.line(LevelError, color.RedString("error"), fmt.Sprintf(format, v...))
	}
}

// Warn logs at LevelWarn.
func (l *Logger) Warn(v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.line(LevelWarn, color.YellowString("warn"), fmt.Sprint(v...))
	}
}

// Warnf logs at LevelWarn with format semantics.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.line(LevelWarn, color.YellowString("warn"), fmt.Sprintf(format, v...))
	}
}

// Info logs at LevelInfo.
func (l *Logger) Info(v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.line(LevelInfo, "info", fmt.Sprint(v...))
	}
}

// Infof logs at LevelInfo with format semantics.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.line(LevelInfo, "info", fmt.Sprintf(format, v...))
	}
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.line(LevelDebug, color.CyanString("debug"), fmt.Sprint(v...))
	}
}

// Debugf logs at LevelDebug with format semantics.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.line(LevelDebug, color.CyanString("debug"), fmt.Sprintf(format, v...))
	}
}

// Writer returns an io.Writer that logs each line it receives at LevelInfo.
// If the logger is nil or LevelInfo is disabled, the writer discards input.
func (l *Logger) Writer() io.Writer {
	if !l.enabled(LevelInfo) {
		return io.Discard
	}
	return &writer{callback: l.Info}
}
