// Package logging provides the leveled, structured logger used by every
// kubediagnose component.
//
// Obtain a named logger once per component and log printf-style or with
// structured fields:
//
//	logger := logging.GetLogger("diagnosis")
//	logger.Info("Debugging pod %s/%s", ns, name)
//	logger.InfoWithFields("request served",
//	    logging.Field("route", route),
//	    logging.Field("status", 200),
//	)
//
// Levels can be overridden per logger name, with "name.*" wildcards:
//
//	logging.Initialize("info", map[string]string{"kube": "debug", "analyzer.*": "warn"})
//
// A logger bound with WithContext adds the OpenTelemetry trace and span IDs
// of the active span and the request ID set by the HTTP middleware.
//
// Output goes to stderr by default so that command output on stdout stays
// machine readable. LOG_TIMESTAMP pins the timestamp for tests.
package logging

import (
	"context"
	"io"
	"os"
	"sync"
)

const rootLoggerName = "kubediagnose"

var (
	globalLogger *Logger
	initOnce     sync.Once

	outputMu sync.Mutex
	output   io.Writer = os.Stderr
)

// Initialize sets the default level and optional per-name overrides
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalLogger = &Logger{level: level, name: rootLoggerName}

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		if err := SetPackageLogLevels(packageLevels[0]); err != nil {
			return err
		}
	}
	return nil
}

// SetOutput redirects all log output. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outputMu.Lock()
	defer outputMu.Unlock()
	prev := output
	output = w
	return prev
}

// GetLogger returns a logger with the given name. The global logger is
// initialized at INFO on first use.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{level: globalLogger.level, name: name}
}

// Logger is an immutable named logger. The With* methods return copies.
type Logger struct {
	level  LogLevel
	name   string
	fields []LogField
	ctx    context.Context
}

// Name returns the logger name used for level overrides
func (l *Logger) Name() string {
	return l.name
}

func (l *Logger) enabled(level LogLevel) bool {
	if pkgLevel := GetPackageLogLevel(l.name); pkgLevel >= 0 {
		return level >= pkgLevel
	}
	return level >= l.level
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.enabled(DEBUG) {
		l.logf(DEBUG, msg, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.enabled(INFO) {
		l.logf(INFO, msg, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.enabled(WARN) {
		l.logf(WARN, msg, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.enabled(ERROR) {
		l.logf(ERROR, msg, args...)
	}
}

// ErrorWithErr logs msg followed by err
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.enabled(ERROR) {
		l.logf(ERROR, msg+" - %v", append(args, err)...)
	}
}

// DebugWithFields logs a debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.enabled(DEBUG) {
		l.write(DEBUG, msg, fields)
	}
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.enabled(INFO) {
		l.write(INFO, msg, fields)
	}
}

// WarnWithFields logs a warning with structured fields
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.enabled(WARN) {
		l.write(WARN, msg, fields)
	}
}

// ErrorWithFields logs an error with structured fields
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.enabled(ERROR) {
		l.write(ERROR, msg, fields)
	}
}

// WithField returns a copy carrying one more persistent field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Field(key, value))
}

// WithFields returns a copy carrying additional persistent fields
func (l *Logger) WithFields(fields ...LogField) *Logger {
	clone := *l
	clone.fields = make([]LogField, 0, len(l.fields)+len(fields))
	clone.fields = append(clone.fields, l.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

// WithContext returns a copy that adds trace, span and request IDs found in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	clone := *l
	clone.ctx = ctx
	return &clone
}
