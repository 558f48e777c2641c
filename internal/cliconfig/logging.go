package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/pipeship/internal/adapters/log"
)

// Logger returns the CLI logger: console output on stderr at info level, or
// debug level when verbose.
func Logger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return logAdapter.NewConsoleLogger(os.Stderr, level)
}
