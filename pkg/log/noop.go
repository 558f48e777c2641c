package log

import logAdapter "github.com/bft-labs/pipeship/internal/adapters/log"

// NewNoopLogger returns a logger that discards all messages.
func NewNoopLogger() Logger {
	return logAdapter.NewNoopLogger()
}
