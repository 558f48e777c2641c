package domain

import "errors"

// Domain errors represent error conditions in the pipeship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("pipeship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("pipeship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("pipeship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("pipeship: invalid configuration")

	// ErrMissingDestination is returned when no destination URL is configured.
	ErrMissingDestination = errors.New("pipeship: missing destination, expect an URL")

	// ErrUnsupportedScheme is returned for any destination scheme other than http.
	ErrUnsupportedScheme = errors.New("pipeship: unsupported scheme")

	// ErrRetryExhausted is returned when consecutive failed attempts reach the retry limit.
	ErrRetryExhausted = errors.New("pipeship: connect retry exhausted")

	// ErrInputFatal is returned when the input descriptor fails with a non-transient error.
	ErrInputFatal = errors.New("pipeship: input error")
)
