// ==============================================================================
// LOGGER PACKAGE - pkg/logger/logger.go
// ==============================================================================
package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

type Logger interface {
	Info(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Debug(message string, fields map[string]interface{})
	Fatal(message string, fields map[string]interface{})
}

// Level orders log severities; entries below the configured level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type jsonLogger struct {
	serviceName string
	minLevel    Level
	fields      map[string]interface{}
	logger      *log.Logger
}

func New(serviceName string) Logger {
	return NewWithLevel(serviceName, LevelInfo, os.Stdout)
}

// NewWithLevel builds a JSON logger writing to out and dropping entries below min.
func NewWithLevel(serviceName string, min Level, out io.Writer) Logger {
	return &jsonLogger{
		serviceName: serviceName,
		minLevel:    min,
		logger:      log.New(out, "", 0),
	}
}

// With returns a logger that adds fields to every entry. Loggers that are not
// produced by this package are returned unchanged.
func With(l Logger, fields map[string]interface{}) Logger {
	jl, ok := l.(*jsonLogger)
	if !ok {
		return l
	}
	merged := make(map[string]interface{}, len(jl.fields)+len(fields))
	for k, v := range jl.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &jsonLogger{
		serviceName: jl.serviceName,
		minLevel:    jl.minLevel,
		fields:      merged,
		logger:      jl.logger,
	}
}

func (l *jsonLogger) log(level Level, name, message string, fields map[string]interface{}) {
	if level < l.minLevel {
		return
	}
	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"level":     name,
		"service":   l.serviceName,
		"message":   message,
	}

	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	jsonData, _ := json.Marshal(entry)
	l.logger.Println(string(jsonData))
}

func (l *jsonLogger) Info(message string, fields map[string]interface{}) {
	l.log(LevelInfo, "info", message, fields)
}

func (l *jsonLogger) Error(message string, fields map[string]interface{}) {
	l.log(LevelError, "error", message, fields)
}

func (l *jsonLogger) Warn(message string, fields map[string]interface{}) {
	l.log(LevelWarn, "warn", message, fields)
}

func (l *jsonLogger) Debug(message string, fields map[string]interface{}) {
	l.log(LevelDebug, "debug", message, fields)
}

func (l *jsonLogger) Fatal(message string, fields map[string]interface{}) {
	l.log(LevelError+1, "fatal", message, fields)
	os.Exit(1)
}

func NewNop() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (l *nopLogger) Info(message string, fields map[string]interface{})  {}
func (l *nopLogger) Error(message string, fields map[string]interface{}) {}
func (l *nopLogger) Warn(message string, fields map[string]interface{})  {}
func (l *nopLogger) Debug(message string, fields map[string]interface{}) {}
func (l *nopLogger) Fatal(message string, fields map[string]interface{}) {}
