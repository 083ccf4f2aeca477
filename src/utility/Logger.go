package utility

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ANSI colors for cli mode
var levelColors = map[LogLevel]string{
	DEBUG: "\033[0;34m",
	INFO:  "\033[0;32m",
	WARN:  "\033[1;33m",
	ERROR: "\033[0;31m",
}

const (
	colorReset = "\033[0m"

	currentLogName = "current.log"
	archiveDirName = "archive"
	maxArchived    = 8
)

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLogLevel converts a config level name to a LogLevel, defaulting to INFO
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger writes leveled printf-style messages.
//
// Modes:
//   - "file": log/current.log, previous runs kept as log/archive/mirror-N.log
//   - "cli": colored lines on stdout
//   - "silent": nothing
type Logger struct {
	level      LogLevel
	logDir     string
	currentLog *os.File
	mu         sync.Mutex
	mode       string
}

var (
	instance *Logger
	once     sync.Once
)

// GetLogger returns the process-wide file logger
func GetLogger() *Logger {
	once.Do(func() {
		instance = NewLogger("file", INFO)
	})
	return instance
}

// NewLogger creates a logger in the given mode
func NewLogger(mode string, level LogLevel) *Logger {
	logger := &Logger{
		level:  level,
		logDir: "log",
		mode:   mode,
	}
	if mode == "file" {
		logger.init()
	}
	return logger
}

// init archives the previous run and opens a fresh current.log. On failure
// the logger falls back to stderr.
func (l *Logger) init() {
	if err := os.MkdirAll(filepath.Join(l.logDir, archiveDirName), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		return
	}

	l.archiveCurrent()

	file, err := os.OpenFile(l.currentPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	l.currentLog = file
}

func (l *Logger) currentPath() string {
	return filepath.Join(l.logDir, currentLogName)
}

func (l *Logger) archivePath(n int) string {
	return filepath.Join(l.logDir, archiveDirName, fmt.Sprintf("mirror-%d.log", n))
}

// archiveCurrent shifts mirror-N.log to mirror-(N+1).log, dropping the
// oldest, and moves current.log to mirror-1.log
func (l *Logger) archiveCurrent() {
	if _, err := os.Stat(l.currentPath()); err != nil {
		return
	}

	os.Remove(l.archivePath(maxArchived))
	for n := maxArchived - 1; n >= 1; n-- {
		os.Rename(l.archivePath(n), l.archivePath(n+1))
	}
	os.Rename(l.currentPath(), l.archivePath(1))
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || l.mode == "silent" {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)

	if l.mode == "cli" {
		fmt.Printf("%s[%s] [%s]%s %s\n", levelColors[level], timestamp, level, colorReset, message)
		return
	}

	line := fmt.Sprintf("[%s] [%s] %s\n", timestamp, level, message)
	if l.currentLog != nil {
		l.currentLog.WriteString(line)
		return
	}
	fmt.Fprint(os.Stderr, line)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentLog == nil {
		return nil
	}
	err := l.currentLog.Close()
	l.currentLog = nil
	return err
}

// ListLogFiles returns current.log followed by the archived logs
func (l *Logger) ListLogFiles() []string {
	var files []string
	if _, err := os.Stat(l.currentPath()); err == nil {
		files = append(files, l.currentPath())
	}

	entries, err := os.ReadDir(filepath.Join(l.logDir, archiveDirName))
	if err != nil {
		return files
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(l.logDir, archiveDirName, entry.Name()))
		}
	}
	return files
}
