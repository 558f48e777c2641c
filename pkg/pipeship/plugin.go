package pipeship

import "context"

// Plugin extends a Pipeship instance with work that runs next to the engine.
// Plugins are initialized by Start in registration order and shut down in
// reverse order when the run ends, whatever the reason.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. A returned error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	Destination string

	// Header is the generator bound to the engine. Fields set here apply
	// from the next batch on.
	Header HeaderGenerator

	Logger Logger
}
