package logging

import (
	"context"

	"github.com/greenfuze/rig/internal/ports"
)

// NoOpLogger discards every log entry. Tests and library consumers that do
// not care about diagnostics use it in place of a real adapter.
type NoOpLogger struct{}

// NewNoOp returns a logger that discards everything.
func NewNoOp() *NoOpLogger { return &NoOpLogger{} }

var _ ports.Logger = (*NoOpLogger)(nil)

// Debug discards the entry.
func (l *NoOpLogger) Debug(context.Context, string, ...interface{}) {}

// Info discards the entry.
func (l *NoOpLogger) Info(context.Context, string, ...interface{}) {}

// Warn discards the entry.
func (l *NoOpLogger) Warn(context.Context, string, ...interface{}) {}

// Error discards the entry.
func (l *NoOpLogger) Error(context.Context, string, ...interface{}) {}

// With returns the logger unchanged.
func (l *NoOpLogger) With(...interface{}) ports.Logger { return l }
