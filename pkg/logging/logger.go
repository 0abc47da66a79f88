// Package logging provides per-component debug logging for Ember.
//
// Every component gets its own *Logger, but all loggers of one process
// append to the same session-scoped file under ~/.ember/logs/. When the
// log directory or file cannot be created the logger degrades to stderr
// instead of failing the caller.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	execID     string
	execIDOnce sync.Once

	logDir     string
	logDirOnce sync.Once
	logDirErr  error
)

// executionID returns the process-wide execution id shared by all loggers.
func executionID() string {
	execIDOnce.Do(func() {
		execID = uuid.New().String()
	})
	return execID
}

func initLogDir() error {
	logDirOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			logDirErr = fmt.Errorf("logging: resolve home directory: %w", err)
			return
		}
		logDir = filepath.Join(home, ".ember", "logs")
		if err := os.MkdirAll(logDir, 0o750); err != nil {
			logDirErr = fmt.Errorf("logging: create log directory: %w", err)
		}
	})
	return logDirErr
}

// Logger writes timestamped, component-tagged entries to the shared
// session log file.
type Logger struct {
	component string
	file      *os.File
	out       *log.Logger
	path      string
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewLogger creates a logger for the named component. On any setup failure
// it returns a stderr-backed logger together with the error so callers can
// note the fallback without aborting.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDir(); err != nil {
		return fallbackLogger(component, err), err
	}

	path := filepath.Join(logDir, executionID()+"-ember.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		err = fmt.Errorf("logging: open log file: %w", err)
		return fallbackLogger(component, err), err
	}

	return &Logger{
		component: component,
		file:      file,
		out:       log.New(file, "", 0),
		path:      path,
	}, nil
}

func fallbackLogger(component string, cause error) *Logger {
	out := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	out.Printf("file logging unavailable, using stderr: %v", cause)
	return &Logger{component: component, out: out}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.out.Printf("[%s] [%s] [%s] %s", ts, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.write("WARN", format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// Printf is an alias for Infof, matching the stdlib logger surface.
func (l *Logger) Printf(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Path returns the log file path, or "" when running on the stderr fallback.
func (l *Logger) Path() string { return l.path }

// Close closes the underlying file. Safe to call more than once.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// ExecutionID returns the process-wide execution id used in log file names.
func ExecutionID() string { return executionID() }
