package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"transcribe-service/pkg/config"
)

// Logger wraps logrus so call sites stay decoupled from the backend.
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var (
	globalMu     sync.RWMutex
	globalLogger = newDefault()
)

func newDefault() *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return &Logger{entry: l}
}

// NewLogger builds a logger from configuration.
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger := &Logger{entry: l}
	if cfg.Log.Output == "file" && cfg.Log.Filename != "" {
		if f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			l.SetOutput(io.MultiWriter(os.Stdout, f))
			logger.file = f
		}
	}

	return logger
}

// SetGlobalLogger swaps the process-wide logger; safe for concurrent use.
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Close flushes and closes any file sink.
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

func (l *Logger) withFields(fields map[string]interface{}) *logrus.Entry {
	if len(fields) == 0 {
		return logrus.NewEntry(l.entry)
	}
	return l.entry.WithFields(logrus.Fields(fields))
}

// Debug logs at debug level with optional structured fields.
func Debug(msg string, fields ...map[string]interface{}) {
	global().withFields(merge(fields)).Debug(msg)
}

// Info logs at info level with optional structured fields.
func Info(msg string, fields ...map[string]interface{}) {
	global().withFields(merge(fields)).Info(msg)
}

// Warn logs at warn level with optional structured fields.
func Warn(msg string, fields ...map[string]interface{}) {
	global().withFields(merge(fields)).Warn(msg)
}

// Error logs at error level with optional structured fields.
func Error(msg string, fields ...map[string]interface{}) {
	global().withFields(merge(fields)).Error(msg)
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) {
	global().entry.Infof(format, args...)
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) {
	global().entry.Debugf(format, args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...interface{}) {
	global().entry.Warnf(format, args...)
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) {
	global().entry.Errorf(format, args...)
}

// Fatal logs the message and exits the process.
func Fatal(msg string) {
	global().entry.Fatal(msg)
}

func merge(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	if len(fields) == 1 {
		return fields[0]
	}
	out := make(map[string]interface{})
	for _, f := range fields {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}
