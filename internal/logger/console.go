// Package logger provides logging implementations for eegcat commands.
//
// Loggers write timestamped, level-filtered lines. ConsoleLogger targets a
// terminal or any io.Writer; FileLogger keeps a per-run log file. Both are
// safe for concurrent use, and Tee fans one message out to several of them.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is the levelled logging surface shared by every implementation
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// ConsoleLogger writes log lines to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	// progressOpen is set while an in-place progress line is on screen
	progressOpen bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// logLevel determines the minimum log level for messages to be output.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: IsTerminal(writer),
	}
}

// IsTerminal reports whether w is a file attached to a TTY and colour has not
// been disabled (NO_COLOR, TERM=dumb).
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false
	}
	return !color.NoColor
}

// ColorEnabled reports whether the logger decorates its output
func (cl *ConsoleLogger) ColorEnabled() bool {
	return cl.colorOutput
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// levelEnabled checks if a message at messageLevel passes the configured level
func levelEnabled(configured, messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(configured)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !levelEnabled(cl.logLevel, strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	cl.closeProgressLine()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogProgress shows the state of bar. On a terminal the bar is redrawn in
// place at info level; otherwise a plain line is written at debug level so
// captured output is not flooded.
func (cl *ConsoleLogger) LogProgress(bar *ProgressBar) {
	if cl.writer == nil || bar == nil {
		return
	}

	if !cl.colorOutput {
		cl.LogDebug("Progress: " + bar.Render())
		return
	}
	if !levelEnabled(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	fmt.Fprintf(cl.writer, "\r[%s] %s", timestamp(), bar.Render())
	cl.progressOpen = true
	if bar.Current() >= bar.Total() {
		cl.closeProgressLine()
	}
}

// closeProgressLine terminates an in-place progress line. Caller holds the mutex.
func (cl *ConsoleLogger) closeProgressLine() {
	if cl.progressOpen {
		cl.writer.Write([]byte("\n"))
		cl.progressOpen = false
	}
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(message string) {}
func (n *NoOpLogger) LogDebug(message string) {}
func (n *NoOpLogger) LogInfo(message string) {}
func (n *NoOpLogger) LogWarn(message string) {}
func (n *NoOpLogger) LogError(message string) {}

// Tee returns a Logger that forwards every message to each of loggers
func Tee(loggers ...Logger) Logger {
	return teeLogger(loggers)
}

type teeLogger []Logger

func (t teeLogger) LogTrace(message string) {
	for _, l := range t {
		l.LogTrace(message)
	}
}

func (t teeLogger) LogDebug(message string) {
	for _, l := range t {
		l.LogDebug(message)
	}
}

func (t teeLogger) LogInfo(message string) {
	for _, l := range t {
		l.LogInfo(message)
	}
}

func (t teeLogger) LogWarn(message string) {
	for _, l := range t {
		l.LogWarn(message)
	}
}

func (t teeLogger) LogError(message string) {
	for _, l := range t {
		l.LogError(message)
	}
}
