// logger.go - Leveled logging with a separate audit trail
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
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
	}
	return "INFO"
}

// ParseLevel maps a config string to a level, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	}
	return INFO
}

// Logger writes leveled messages to the console and, when configured, to a
// log file. Audit events go to their own append-only file as JSON lines.
type Logger struct {
	level     LogLevel
	file      *os.File
	fileLog   *log.Logger
	console   *log.Logger
	auditFile *os.File
}

// NewLogger creates a new logger instance
func NewLogger(level string, logFile string, auditPath string) (*Logger, error) {
	logger := &Logger{
		level:   ParseLevel(level),
		console: log.New(os.Stdout, "", log.LstdFlags),
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.file = file
		logger.fileLog = log.New(file, "", log.LstdFlags)
	}

	if auditPath != "" {
		file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit file: %w", err)
		}
		logger.auditFile = file
	}

	return logger, nil
}

// Close closes the logger's files
func (l *Logger) Close() error {
	if l.auditFile != nil {
		l.auditFile.Close()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	entry := fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...))
	l.console.Print(entry)
	if l.fileLog != nil {
		l.fileLog.Print(entry)
	}
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

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
	os.Exit(1)
}

// Audit records a protocol event in the audit trail. Events are JSON lines
// so the trail can be replayed or grepped.
func (l *Logger) Audit(event string, details map[string]interface{}) {
	if l.auditFile == nil {
		return
	}
	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"event": event,
	}
	for k, v := range details {
		entry[k] = v
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.Error("audit encode failed: %v", err)
		return
	}
	if _, err := l.auditFile.Write(append(data, '\n')); err != nil {
		l.Error("audit write failed: %v", err)
	}
}
