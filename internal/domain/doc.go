// Package domain contains the core value objects and error taxonomy for pipeship.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (sockets, logging, configuration files) and
// contains only the rules every other layer agrees on.
//
// # Values
//
//   - [Endpoint]: the parsed destination URL (http only, default port 80, default path "/")
//
// # Errors
//
// Errors are grouped by how the engine reacts to them:
//
//   - configuration errors ([ErrMissingDestination], [ErrUnsupportedScheme], [ErrInvalidConfig])
//     are fatal at startup
//   - [ErrInputFatal] means the local source is broken and the process must abort
//   - [ErrRetryExhausted] is the deliberate halt after too many failed exchanges
package domain
