package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging with verbose mode support
type Logger struct {
	verbose bool
	mu      sync.RWMutex
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = &Logger{
			verbose: false,
		}
	})
	return globalLogger
}

// SetVerbose enables or disables verbose logging
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// IsVerbose returns whether verbose logging is enabled
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// Debug logs a debug message (only when verbose is enabled)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.IsVerbose() {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}

// Debugf is a convenience function for debug logging
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof is a convenience function for info logging
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf is a convenience function for warning logging
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf is a convenience function for error logging
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

// SetVerboseMode is a convenience function to set global verbose mode
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
	if verbose {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	} else {
		log.SetFlags(0)
	}
	log.SetOutput(os.Stderr)
}

// NewComponentLogger returns a *log.Logger writing to stderr with a
// "[Component] " prefix, for components that take an injected logger.
func NewComponentLogger(component string) *log.Logger {
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags)
}

// ENABLE_BACKGROUND_LOGGING toggles the rotating log file used by the watch daemon.
const ENABLE_BACKGROUND_LOGGING = true

// Rotation limits for the background log.
const (
	backgroundLogMaxSizeMB  = 5
	backgroundLogMaxBackups = 3
	backgroundLogMaxAgeDays = 14
)

// BackgroundLogger writes daemon output to a size-rotated file so a
// long-running watch process never grows its log without bound.
type BackgroundLogger struct {
	logger  *log.Logger
	rotator *lumberjack.Logger
	path    string
	enabled bool
}

// NewBackgroundLogger creates a logger writing to
// $XDG_STATE_HOME/cuppasync/watch.log (or ~/.local/state/cuppasync/watch.log).
// When logging is disabled or the directory cannot be created, the returned
// logger discards everything and IsEnabled reports false.
func NewBackgroundLogger() (*BackgroundLogger, error) {
	if !ENABLE_BACKGROUND_LOGGING {
		return &BackgroundLogger{logger: log.New(io.Discard, "", 0)}, nil
	}

	dir, err := backgroundLogDir()
	if err != nil {
		return &BackgroundLogger{logger: log.New(io.Discard, "", 0)}, err
	}
	return NewBackgroundLoggerAt(filepath.Join(dir, "watch.log"))
}

// NewBackgroundLoggerAt creates a rotating background logger at path.
func NewBackgroundLoggerAt(path string) (*BackgroundLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &BackgroundLogger{logger: log.New(io.Discard, "", 0)},
			fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    backgroundLogMaxSizeMB,
		MaxBackups: backgroundLogMaxBackups,
		MaxAge:     backgroundLogMaxAgeDays,
		Compress:   true,
	}

	return &BackgroundLogger{
		logger:  log.New(rotator, fmt.Sprintf("[watch %d] ", os.Getpid()), log.LstdFlags),
		rotator: rotator,
		path:    path,
		enabled: true,
	}, nil
}

func backgroundLogDir() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "cuppasync"), nil
}

// Logger exposes the underlying *log.Logger for injection into components.
func (bl *BackgroundLogger) Logger() *log.Logger {
	return bl.logger
}

// IsEnabled reports whether output reaches a file.
func (bl *BackgroundLogger) IsEnabled() bool {
	return bl != nil && bl.enabled
}

// GetLogPath returns the active log file path ("" when disabled).
func (bl *BackgroundLogger) GetLogPath() string {
	return bl.path
}

// Printf logs a formatted line.
func (bl *BackgroundLogger) Printf(format string, args ...interface{}) {
	bl.logger.Printf(format, args...)
}

// Close flushes and closes the log file. Safe to call more than once.
func (bl *BackgroundLogger) Close() error {
	if bl == nil || bl.rotator == nil {
		return nil
	}
	return bl.rotator.Close()
}
