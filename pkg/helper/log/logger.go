// Package log provides the leveled, field-tagged logger used across
// ferrocp's engines, walker, and resilience components. BasicLogger is the
// line-oriented default; StructuredLogger emits one JSON object per line for
// pipelines that parse logs rather than grep them.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// Level orders log severity; lower values are more verbose.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
)

// String returns the level's upper-case name, or "UNKNOWN" for an
// out-of-range value.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	case PanicLevel:
		return "PANIC"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface ferrocp components log through: the Engine, the
// walker's dispatcher, the scheduled sync, and the resilience bulkhead/rate
// limiter all take one of these rather than a concrete type, so tests can
// substitute a buffer-backed logger and callers can swap BasicLogger for a
// StructuredLogger-shaped adapter without touching call sites.
//
// Debug/Info/Warn accept an optional trailing field map; Error/Fatal/Panic
// accept an optional field map after the error, so existing one- and
// two-argument call sites keep compiling as fields are added incrementally.
type Logger interface {
	Debug(message string, fields ...map[string]interface{})
	Info(message string, fields ...map[string]interface{})
	Warn(message string, fields ...map[string]interface{})
	Error(message string, err error, fields ...map[string]interface{})
	Fatal(message string, err error, fields ...map[string]interface{})
	Panic(message string, err error, fields ...map[string]interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	WithContext(ctx context.Context) Logger
}

// BasicLogger writes one logfmt-ish line per call: a timestamp, a level
// tag, the message, and any accumulated fields sorted by key so output is
// deterministic for tests.
type BasicLogger struct {
	level  Level
	writer io.Writer
	fields map[string]interface{}
}

// NewBasicLogger creates a BasicLogger at level writing to stdout.
func NewBasicLogger(level Level) Logger {
	return &BasicLogger{level: level, writer: os.Stdout, fields: map[string]interface{}{}}
}

// NewBasicLoggerWithWriter creates a BasicLogger writing to an arbitrary
// sink, primarily so tests can assert on captured output.
func NewBasicLoggerWithWriter(level Level, writer io.Writer) Logger {
	return &BasicLogger{level: level, writer: writer, fields: map[string]interface{}{}}
}

func (l *BasicLogger) derive() *BasicLogger {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &BasicLogger{level: l.level, writer: l.writer, fields: fields}
}

// WithField returns a child logger carrying one additional field.
func (l *BasicLogger) WithField(key string, value interface{}) Logger {
	child := l.derive()
	child.fields[key] = value
	return child
}

// WithFields returns a child logger carrying the given fields merged on top
// of any it already holds.
func (l *BasicLogger) WithFields(fields map[string]interface{}) Logger {
	child := l.derive()
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

// WithError returns a child logger tagged with err's message. A nil error
// is a no-op so callers can unconditionally chain WithError.
func (l *BasicLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// WithContext is a no-op for BasicLogger; StructuredLogger is the one that
// threads trace/span IDs out of ctx.
func (l *BasicLogger) WithContext(ctx context.Context) Logger {
	return l
}

func (l *BasicLogger) Debug(message string, fields ...map[string]interface{}) {
	l.log(DebugLevel, message, nil, mergeFields(fields))
}

func (l *BasicLogger) Info(message string, fields ...map[string]interface{}) {
	l.log(InfoLevel, message, nil, mergeFields(fields))
}

func (l *BasicLogger) Warn(message string, fields ...map[string]interface{}) {
	l.log(WarnLevel, message, nil, mergeFields(fields))
}

func (l *BasicLogger) Error(message string, err error, fields ...map[string]interface{}) {
	l.log(ErrorLevel, message, err, mergeFields(fields))
}

func (l *BasicLogger) Fatal(message string, err error, fields ...map[string]interface{}) {
	l.log(FatalLevel, message, err, mergeFields(fields))
	os.Exit(1)
}

func (l *BasicLogger) Panic(message string, err error, fields ...map[string]interface{}) {
	l.log(PanicLevel, message, err, mergeFields(fields))
	panic(message)
}

func (l *BasicLogger) log(level Level, message string, err error, extra map[string]interface{}) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(message)

	if err != nil {
		fmt.Fprintf(&b, " error=%s", err.Error())
	}

	all := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range extra {
		all[k] = v
	}
	for _, k := range sortedKeys(all) {
		fmt.Fprintf(&b, " %s=%v", k, all[k])
	}
	b.WriteByte('\n')

	_, _ = l.writer.Write([]byte(b.String()))
}

func sortedKeys(m map[string]interface{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeFields(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	merged := make(map[string]interface{})
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}

// NewLogger creates a BasicLogger at InfoLevel, the default used wherever a
// component is constructed without an explicit logger.
func NewLogger() Logger {
	return NewBasicLogger(InfoLevel)
}

// NewLoggerWithLevel creates a BasicLogger at the given level.
func NewLoggerWithLevel(level Level) Logger {
	return NewBasicLogger(level)
}

// ParseLevel maps a config string (case-insensitive, "warning" accepted as
// an alias for "warn") to a Level, defaulting to InfoLevel for anything it
// doesn't recognize.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	case "panic":
		return PanicLevel
	default:
		return InfoLevel
	}
}
