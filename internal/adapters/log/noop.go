package log

import "github.com/bft-labs/pipeship/internal/ports"

// NoopLogger drops every message. The engine and the lifecycle fall back to
// it when they are built without a logger.
type NoopLogger struct{}

var _ ports.Logger = NoopLogger{}

func NewNoopLogger() NoopLogger { return NoopLogger{} }

func (NoopLogger) Debug(string, ...ports.Field) {}
func (NoopLogger) Info(string, ...ports.Field)  {}
func (NoopLogger) Warn(string, ...ports.Field)  {}
func (NoopLogger) Error(string, ...ports.Field) {}
