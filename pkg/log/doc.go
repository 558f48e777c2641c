// Package log is the logging surface of pipeship.
//
// The engine logs through the small [Logger] interface: peer anomalies
// (non-2xx status, stalled peer, dropped connection) are warnings, retry
// exhaustion and input failures are errors, and routine progress such as
// idle ticks is logged at debug level. The pipeship command uses the console
// logger:
//
//	logger := log.NewConsoleLogger(os.Stderr, verbose)
//
// An existing zerolog logger can be passed through as is:
//
//	logger := log.NewZerologLogger(zl.With().Str("pipe", "audit").Logger())
//
// Any other logging library plugs in by implementing the four methods of
// [Logger] over [Field] values. [NewNoopLogger] is used when no logger is
// given.
package log
