package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the fixed-width tag for the level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// color returns the ANSI escape for terminal output.
func (l Level) color() string {
	switch l {
	case DEBUG:
		return "\033[36m" // cyan
	case INFO:
		return "\033[38;5;195m" // pale blue
	case WARN:
		return "\033[33m" // yellow
	case ERROR:
		return "\033[31m" // red
	case FATAL:
		return "\033[35m" // magenta
	default:
		return "\033[0m"
	}
}

// ParseLevel converts a config string to a Level. Unrecognized values
// fall back to INFO.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Config holds logger options.
type Config struct {
	Level       string // "debug", "info", "warn", "error", "fatal"
	Output      io.Writer
	Prefix      string
	EnableColor bool
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Output:      os.Stdout,
		Prefix:      "",
		EnableColor: true,
	}
}

// Logger is a leveled, optionally colored logger. Prefixes scope log
// lines to a subsystem ("MongoDB", "RosterSync", ...).
type Logger struct {
	mu          sync.RWMutex
	level       Level
	prefix      string
	enableColor bool
	out         *log.Logger
}

// New creates a Logger from config.
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Logger{
		level:       ParseLevel(config.Level),
		prefix:      config.Prefix,
		enableColor: config.EnableColor,
		out:         log.New(config.Output, "", 0),
	}
}

// SetLevel changes the minimum level that gets written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput redirects log output.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.SetOutput(w)
}

// IsLevelEnabled reports whether messages at level would be written.
func (l *Logger) IsLevelEnabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// WithPrefix returns a logger that tags lines with the given subsystem
// prefix, nested under any existing prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.prefix != "" {
		prefix = l.prefix + ":" + prefix
	}
	return &Logger{
		level:       l.level,
		prefix:      prefix,
		enableColor: l.enableColor,
		out:         l.out,
	}
}

func (l *Logger) write(level Level, message string) {
	if !l.IsLevelEnabled(level) {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	l.mu.RLock()
	prefix := ""
	if l.prefix != "" {
		prefix = fmt.Sprintf("[%s] ", l.prefix)
	}
	var colorStart, colorEnd string
	if l.enableColor {
		colorStart = level.color()
		colorEnd = "\033[0m"
	}
	l.out.Printf("%s%-5s %s %s%s%s", colorStart, level.String(), timestamp, prefix, message, colorEnd)
	l.mu.RUnlock()

	if level == FATAL {
		os.Exit(1)
	}
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(args ...interface{}) { l.write(DEBUG, fmt.Sprint(args...)) }

// Debugf logs a formatted message at DEBUG level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write(DEBUG, fmt.Sprintf(format, args...))
}

// Info logs at INFO level.
func (l *Logger) Info(args ...interface{}) { l.write(INFO, fmt.Sprint(args...)) }

// Infof logs a formatted message at INFO level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(INFO, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level.
func (l *Logger) Warn(args ...interface{}) { l.write(WARN, fmt.Sprint(args...)) }

// Warnf logs a formatted message at WARN level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write(WARN, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level.
func (l *Logger) Error(args ...interface{}) { l.write(ERROR, fmt.Sprint(args...)) }

// Errorf logs a formatted message at ERROR level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(ERROR, fmt.Sprintf(format, args...))
}

// Fatal logs at FATAL level and exits the process.
func (l *Logger) Fatal(args ...interface{}) { l.write(FATAL, fmt.Sprint(args...)) }

// Fatalf logs a formatted message at FATAL level and exits the process.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.write(FATAL, fmt.Sprintf(format, args...))
}
