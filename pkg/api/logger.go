package api

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel controls how much the engine prints.
type LogLevel int

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
)

// String returns the level tag used in log lines.
func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "ERROR"
	case LogWarn:
		return "WARN"
	case LogInfo:
		return "INFO"
	case LogDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging interface used throughout the planner. Embedders can
// plug in their own implementation; the engine never logs through anything else.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level LogLevel)
	GetLevel() LogLevel
}

// DefaultLogger writes leveled, timestamped lines to a single writer.
// Safe for concurrent use.
type DefaultLogger struct {
	mu     sync.Mutex
	level  LogLevel
	output io.Writer
}

// NewDefaultLogger creates a logger writing to stdout.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewDefaultLoggerWithOutput(level, os.Stdout)
}

// NewDefaultLoggerWithOutput creates a logger writing to the given writer.
func NewDefaultLoggerWithOutput(level LogLevel, output io.Writer) *DefaultLogger {
	return &DefaultLogger{level: level, output: output}
}

// SetLevel changes the minimum level that gets written.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum level.
func (l *DefaultLogger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *DefaultLogger) Debug(format string, args ...interface{}) { l.log(LogDebug, format, args...) }
func (l *DefaultLogger) Info(format string, args ...interface{})  { l.log(LogInfo, format, args...) }
func (l *DefaultLogger) Warn(format string, args ...interface{})  { l.log(LogWarn, format, args...) }
func (l *DefaultLogger) Error(format string, args ...interface{}) { l.log(LogError, format, args...) }

func (l *DefaultLogger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	fmt.Fprintf(l.output, "%s [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		level.String(),
		fmt.Sprintf(format, args...))
}

// NoOpLogger discards everything. Used as the default for embedded sessions
// that did not configure logging.
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that discards all output.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Debug(format string, args ...interface{}) {}
func (l *NoOpLogger) Info(format string, args ...interface{})  {}
func (l *NoOpLogger) Warn(format string, args ...interface{})  {}
func (l *NoOpLogger) Error(format string, args ...interface{}) {}
func (l *NoOpLogger) SetLevel(level LogLevel)                  {}
func (l *NoOpLogger) GetLevel() LogLevel                       { return LogError }
