package logger

import (
	"io"
	"log"
	"os"
)

// Logger writes leveled, component-tagged lines on top of the standard log package.
type Logger struct {
	out   *log.Logger
	debug bool
}

// New creates a logger writing to stdout with date/time flags.
func New(debug bool) *Logger {
	return NewWithWriter(os.Stdout, debug)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, debug bool) *Logger {
	return &Logger{
		out:   log.New(w, "", log.LstdFlags),
		debug: debug,
	}
}

// Discard returns a logger that drops everything (used by tests).
func Discard() *Logger {
	return NewWithWriter(io.Discard, false)
}

// OrDefault returns l, or a stdout logger if l is nil.
func OrDefault(l *Logger) *Logger {
	if l == nil {
		return New(false)
	}
	return l
}

func (l *Logger) Info(format string, args ...any) {
	l.out.Printf("INFO  "+format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.out.Printf("WARN  "+format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.out.Printf("ERROR "+format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debug {
		return
	}
	l.out.Printf("DEBUG "+format, args...)
}
