package log

import (
	"io"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/pipeship/internal/adapters/log"
)

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return logAdapter.NewZerologAdapterWithLogger(logger)
}

// NewConsoleLogger returns a human-readable logger writing to out.
// Debug messages are only written when verbose is set.
func NewConsoleLogger(out io.Writer, verbose bool) Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return logAdapter.NewZerologAdapterWithLogger(logAdapter.NewConsoleLogger(out, level))
}
