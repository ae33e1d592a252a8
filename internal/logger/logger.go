// Package logger provides a leveled file logger shared by every component.
// The terminal UI owns stdout/stderr, so all diagnostics go to a log file.
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// LogLevel controls which messages are written.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

// ParseLevel converts a string log level to a LogLevel, defaulting to warning.
func ParseLevel(level string) LogLevel {
	switch level {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelWarning
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var (
	mu       sync.Mutex
	std      *log.Logger
	file     *os.File
	minLevel LogLevel = LevelWarning
)

// Init opens the log file and installs the package logger. An empty path
// disables logging entirely.
func Init(path string, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()
	return initLocked(path, level)
}

func initLocked(path string, level LogLevel) error {
	minLevel = level
	if path == "" {
		std = nil
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	file = f
	std = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	return nil
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
		std = nil
	}
}

func emit(level LogLevel, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if std == nil || level < minLevel {
		return
	}
	std.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

// Debug logs a debug-level message.
func Debug(format string, args ...interface{}) {
	emit(LevelDebug, format, args...)
}

// Info logs an info-level message.
func Info(format string, args ...interface{}) {
	emit(LevelInfo, format, args...)
}

// Warning logs a warning-level message.
func Warning(format string, args ...interface{}) {
	emit(LevelWarning, format, args...)
}

// Error logs an error-level message.
func Error(format string, args ...interface{}) {
	emit(LevelError, format, args...)
}

// ErrorWithErr logs an error-level message with the error appended.
func ErrorWithErr(err error, format string, args ...interface{}) {
	emit(LevelError, "%s error=%v", fmt.Sprintf(format, args...), err)
}
