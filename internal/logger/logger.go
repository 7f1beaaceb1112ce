package logger

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level orders log severities from the most verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// ErrUnknownLevel is returned for level names other than debug, info, warning and error.
var ErrUnknownLevel = errors.New("unknown log level")

// ParseLevel maps a LOG_LEVEL value onto a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
}

// logFiles maps the levels that own a file to its name. Debug output goes to info.log.
var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// FileName returns the log file for a level name, or false if the level has no file.
func FileName(level string) (string, bool) {
	name, ok := logFiles[level]
	return name, ok
}

// Logger provides leveled logging (debug/info/warning/error) to files and stdout/stderr.
type Logger struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	level      Level
	logDir     string
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger writing below logDir, creating the directory when missing.
func NewLogger(logDir string, level Level) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logger := &Logger{
		logDir: logDir,
		level:  level,
	}
	if err := logger.setupLoggers(); err != nil {
		logger.Close()
		return nil, err
	}
	return logger, nil
}

// Discard returns a Logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{
		debugLog:   log.New(io.Discard, "", 0),
		infoLog:    log.New(io.Discard, "", 0),
		warningLog: log.New(io.Discard, "", 0),
		errorLog:   log.New(io.Discard, "", 0),
		level:      LevelError + 1,
	}
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers() error {
	infoFileHandle, err := l.openLogFile(logFiles["info"])
	if err != nil {
		return err
	}
	warningFileHandle, err := l.openLogFile(logFiles["warning"])
	if err != nil {
		return err
	}
	errorFileHandle, err := l.openLogFile(logFiles["error"])
	if err != nil {
		return err
	}

	infoWriter := io.MultiWriter(os.Stdout, infoFileHandle)
	warningWriter := io.MultiWriter(os.Stdout, warningFileHandle)
	errorWriter := io.MultiWriter(os.Stderr, errorFileHandle)

	l.debugLog = log.New(infoWriter, "🔍 DEBUG   ", log.Ldate|log.Ltime|log.Lshortfile)
	l.infoLog = log.New(infoWriter, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
	return nil
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filepath.Join(l.logDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

func (l *Logger) output(logger *log.Logger, level Level, format string, v ...interface{}) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	logger.Output(3, fmt.Sprintf(format, v...))
}

// Debug writes a formatted debug-level log entry when LOG_LEVEL is debug.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.output(l.debugLog, LevelDebug, format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.output(l.infoLog, LevelInfo, format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.output(l.warningLog, LevelWarning, format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.output(l.errorLog, LevelError, format, v...)
}

// Dir returns the directory holding the log files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the log file of the given level.
func (l *Logger) CleanLogs(level string) error {
	fileName, ok := FileName(level)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	if l.logDir == "" {
		return nil
	}

	l.mu.Lock()
	err := os.Truncate(filepath.Join(l.logDir, fileName), 0)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", fileName, err)
	}

	l.Info("%s has been cleared", fileName)
	return nil
}

// Close releases the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	l.files = nil
	return errors.Join(errs...)
}
