package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var zapLevels = map[Level]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

// Logger provides structured JSON logging with secret redaction.
type Logger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

var (
	mu            sync.RWMutex
	defaultLogger = mustNew(zapcore.InfoLevel, false)
)

func mustNew(level zapcore.Level, development bool) *Logger {
	l, err := New(level, development)
	if err != nil {
		panic(err)
	}
	return l
}

// New builds a JSON logger writing to stderr at the given level.
func New(level zapcore.Level, development bool) (*Logger, error) {
	atom := zap.NewAtomicLevelAt(level)

	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if development {
		cfg.Sampling = nil
	}

	z, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &Logger{level: atom, sugar: z.Sugar()}, nil
}

// Init replaces the default logger using a level name ("debug", "info", "warn", "error").
func Init(levelName string, development bool) error {
	l, err := New(ParseLevel(levelName), development)
	if err != nil {
		return err
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return nil
}

// ParseLevel converts a level name to a zap level, defaulting to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { current().level.SetLevel(zapLevels[l]) }

// Sync flushes buffered entries of the default logger.
func Sync() error { return current().sugar.Sync() }

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { current().log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { current().log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { current().log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { current().log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	fields = redactFields(fields)
	switch level {
	case DEBUG:
		l.sugar.Debugw(msg, fields...)
	case INFO:
		l.sugar.Infow(msg, fields...)
	case WARN:
		l.sugar.Warnw(msg, fields...)
	default:
		l.sugar.Errorw(msg, fields...)
	}
}

// redactFields masks secret-named values and scrubs api keys embedded in
// strings and errors. Non-string values are passed through untouched.
func redactFields(fields []interface{}) []interface{} {
	out := make([]interface{}, len(fields))
	copy(out, fields)
	for i := 0; i < len(out)-1; i += 2 {
		key := fmt.Sprintf("%v", out[i])
		switch v := out[i+1].(type) {
		case string:
			out[i+1] = redactValue(key, v)
		case error:
			out[i+1] = redactValue(key, v.Error())
		}
	}
	return out
}
