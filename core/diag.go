package core

import (
	"context"
	"fmt"
	"log/slog"
)

// Warning describes a recoverable problem found while reading or writing a
// document. Offset is the byte position the problem was found at, or -1.
type Warning struct {
	Message string
	Offset  int64
}

func (w Warning) String() string {
	if w.Offset < 0 {
		return w.Message
	}
	return fmt.Sprintf("%s (offset %d)", w.Message, w.Offset)
}

// Diagnostics receives warnings. Implementations are called synchronously
// from the goroutine doing the parse.
type Diagnostics interface {
	Warn(w Warning)
}

// WarningList collects warnings in the order they are reported.
type WarningList struct {
	Warnings []Warning
}

// Warn appends w to the list.
func (l *WarningList) Warn(w Warning) {
	l.Warnings = append(l.Warnings, w)
}

type discard struct{}

func (discard) Warn(Warning) {}

// DiscardDiagnostics drops every warning.
var DiscardDiagnostics Diagnostics = discard{}

type logDiagnostics struct {
	logger *slog.Logger
}

func (d logDiagnostics) Warn(w Warning) {
	d.logger.LogAttrs(context.Background(), slog.LevelWarn, w.Message, slog.Int64("offset", w.Offset))
}

// LogDiagnostics forwards warnings to a structured logger. A nil logger
// uses slog.Default().
func LogDiagnostics(logger *slog.Logger) Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return logDiagnostics{logger: logger}
}

// Policy decides whether semantic inconsistencies are fatal and where
// warnings go.
type Policy struct {
	Strict bool
	Diag   Diagnostics
}

// Warn reports a warning regardless of strictness.
func (p Policy) Warn(offset int64, format string, args ...interface{}) {
	if p.Diag == nil {
		return
	}
	p.Diag.Warn(Warning{Message: fmt.Sprintf(format, args...), Offset: offset})
}

// Inconsistent reports a semantic inconsistency. In strict mode it returns
// an error wrapping ErrInconsistent; otherwise it records a warning and
// returns nil so the caller can apply its correction.
func (p Policy) Inconsistent(offset int64, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if p.Strict {
		if offset >= 0 {
			return fmt.Errorf("%w: %s at offset %d", ErrInconsistent, msg, offset)
		}
		return fmt.Errorf("%w: %s", ErrInconsistent, msg)
	}
	p.Warn(offset, "%s", msg)
	return nil
}
