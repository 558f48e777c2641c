package pipeship

import (
	"github.com/bft-labs/pipeship/pkg/header"
	"github.com/bft-labs/pipeship/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// HeaderGenerator builds the request head written in front of every batch.
type HeaderGenerator = header.Generator

// Option configures optional behavior of Pipeship.
type Option func(*options)

// options holds the optional configuration for a Pipeship instance.
type options struct {
	logger       Logger
	header       HeaderGenerator
	eventHandler EventHandler
	plugins      []Plugin
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHeader replaces the default header generator. Config.DeviceID and
// Config.Fields are ignored when a generator is given.
func WithHeader(gen HeaderGenerator) Option {
	return func(o *options) {
		o.header = gen
	}
}

// WithEventHandler sets a handler for pipeship events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Pipeship starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
