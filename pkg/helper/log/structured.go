package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"
)

// StructuredLogger emits one JSON object per log call instead of BasicLogger's
// logfmt line, for deployments that ship logs to something that parses JSON
// rather than grep.
type StructuredLogger struct {
	level  Level
	writer io.Writer
	fields map[string]interface{}
}

// entry is the on-wire shape of one structured log line.
type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    *caller                `json:"caller,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Stack     string                 `json:"stack,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
	SpanID    string                 `json:"span_id,omitempty"`
}

type caller struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// NewStructuredLogger creates a StructuredLogger at level writing to stdout.
func NewStructuredLogger(level Level) *StructuredLogger {
	return &StructuredLogger{level: level, writer: os.Stdout, fields: map[string]interface{}{}}
}

// NewStructuredLoggerWithWriter creates a StructuredLogger writing to an
// arbitrary sink.
func NewStructuredLoggerWithWriter(level Level, writer io.Writer) *StructuredLogger {
	return &StructuredLogger{level: level, writer: writer, fields: map[string]interface{}{}}
}

func (l *StructuredLogger) derive(fields map[string]interface{}) *StructuredLogger {
	return &StructuredLogger{level: l.level, writer: l.writer, fields: fields}
}

// WithField returns a child logger carrying one additional field.
func (l *StructuredLogger) WithField(key string, value interface{}) *StructuredLogger {
	merged := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		merged[k] = v
	}
	merged[key] = value
	return l.derive(merged)
}

// WithFields returns a child logger carrying the given fields merged on top
// of any it already holds.
func (l *StructuredLogger) WithFields(fields map[string]interface{}) *StructuredLogger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return l.derive(merged)
}

// WithError returns a child logger tagged with err's message. A nil error
// is a no-op.
func (l *StructuredLogger) WithError(err error) *StructuredLogger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// WithContext promotes a trace/span ID found in ctx into top-level JSON
// fields instead of leaving them buried in the generic fields map.
func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	child := l
	if traceID := traceIDFromContext(ctx); traceID != "" {
		child = child.WithField("trace_id", traceID)
	}
	if spanID := spanIDFromContext(ctx); spanID != "" {
		child = child.WithField("span_id", spanID)
	}
	return child
}

func (l *StructuredLogger) Debug(message string, fields ...map[string]interface{}) {
	l.emit(DebugLevel, message, nil, mergeFields(fields), false)
}

func (l *StructuredLogger) Info(message string, fields ...map[string]interface{}) {
	l.emit(InfoLevel, message, nil, mergeFields(fields), false)
}

func (l *StructuredLogger) Warn(message string, fields ...map[string]interface{}) {
	l.emit(WarnLevel, message, nil, mergeFields(fields), false)
}

func (l *StructuredLogger) Error(message string, err error, fields ...map[string]interface{}) {
	l.emit(ErrorLevel, message, err, mergeFields(fields), false)
}

func (l *StructuredLogger) Fatal(message string, err error, fields ...map[string]interface{}) {
	l.emit(FatalLevel, message, err, mergeFields(fields), true)
	os.Exit(1)
}

func (l *StructuredLogger) Panic(message string, err error, fields ...map[string]interface{}) {
	l.emit(PanicLevel, message, err, mergeFields(fields), true)
	panic(message)
}

func (l *StructuredLogger) emit(level Level, message string, err error, extra map[string]interface{}, forceStack bool) {
	if level < l.level {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     strings.ToLower(level.String()),
		Message:   message,
		Fields:    make(map[string]interface{}, len(l.fields)+len(extra)),
	}

	for k, v := range l.fields {
		e.Fields[k] = v
	}
	for k, v := range extra {
		e.Fields[k] = v
	}

	if err != nil {
		e.Error = err.Error()
	}
	if c := callerAt(3); c != nil {
		e.Caller = c
	}
	if forceStack || level >= ErrorLevel {
		e.Stack = stackTrace()
	}

	if traceID, ok := e.Fields["trace_id"].(string); ok {
		e.TraceID = traceID
		delete(e.Fields, "trace_id")
	}
	if spanID, ok := e.Fields["span_id"].(string); ok {
		e.SpanID = spanID
		delete(e.Fields, "span_id")
	}
	if len(e.Fields) == 0 {
		e.Fields = nil
	}

	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		fallback := fmt.Sprintf("[%s] %s %s", e.Timestamp, strings.ToUpper(e.Level), e.Message)
		if e.Error != "" {
			fallback += fmt.Sprintf(" error=%s", e.Error)
		}
		_, _ = l.writer.Write([]byte(fallback + "\n"))
		return
	}

	_, _ = l.writer.Write(data)
	_, _ = l.writer.Write([]byte("\n"))
}

func callerAt(skip int) *caller {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}

	var funcName string
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcName = fn.Name()
		if i := strings.LastIndex(funcName, "/"); i >= 0 {
			funcName = funcName[i+1:]
		}
	}
	if i := strings.LastIndex(file, "/"); i >= 0 {
		file = file[i+1:]
	}

	return &caller{File: file, Line: line, Function: funcName}
}

func stackTrace() string {
	buf := make([]byte, 8*1024)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// traceIDFromContext and spanIDFromContext are integration points for a
// tracing system; ferrocp doesn't wire one in yet, so they always report
// nothing found.
func traceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return ""
}

func spanIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return ""
}
