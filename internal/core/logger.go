package core

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Logger is the minimal structured logging surface used by the service.
// Key-value pairs follow the message as alternating keys and values.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// WriterLogger emits level-prefixed key=value lines to a writer.
type WriterLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterLogger constructs a logger writing to w.
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w}
}

func (l *WriterLogger) log(level, msg string, kv ...any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" msg=")
	b.WriteString(fmt.Sprintf("%q", msg))
	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteString(fmt.Sprintf(" %v=%v", kv[i], kv[i+1]))
	}
	b.WriteString("\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, b.String())
}

func (l *WriterLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv...) }
func (l *WriterLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv...) }
func (l *WriterLogger) Warn(msg string, kv ...any)  { l.log("WARN", msg, kv...) }
func (l *WriterLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv...) }
