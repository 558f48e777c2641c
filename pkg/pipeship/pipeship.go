package pipeship

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/bft-labs/pipeship/internal/app"
	"github.com/bft-labs/pipeship/internal/domain"
	"github.com/bft-labs/pipeship/internal/pipe"
	"github.com/bft-labs/pipeship/internal/ports"
	"github.com/bft-labs/pipeship/pkg/header"
	"github.com/bft-labs/pipeship/pkg/log"
)

// Errors returned by Pipeship. Check them with errors.Is.
var (
	ErrAlreadyRunning     = domain.ErrAlreadyRunning
	ErrNotRunning         = domain.ErrNotRunning
	ErrShutdownTimeout    = domain.ErrShutdownTimeout
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrMissingDestination = domain.ErrMissingDestination
	ErrUnsupportedScheme  = domain.ErrUnsupportedScheme
	ErrRetryExhausted     = domain.ErrRetryExhausted
	ErrInputFatal         = domain.ErrInputFatal
)

// Pipeship forwards bytes from a descriptor to an HTTP endpoint and can be
// embedded in other applications. Use New() to create an instance, then
// Start() to begin forwarding.
type Pipeship struct {
	config    Config
	lifecycle *app.Lifecycle
	pipe      *pipe.Pipe
	header    HeaderGenerator
	logger    ports.Logger
	plugins   []Plugin

	mu            sync.Mutex
	pluginCancel  context.CancelFunc
	pluginsActive int
}

// New creates a new Pipeship instance with the given configuration.
// The destination host is resolved here, once. The instance is created in
// StateStopped; call Start() to begin forwarding.
func New(cfg Config, opts ...Option) (*Pipeship, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}

	gen := o.header
	if gen == nil {
		gen = defaultHeader(cfg)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	ep, err := domain.ParseEndpoint(cfg.Destination)
	if err != nil {
		return nil, err
	}
	p, err := pipe.New(cfg.engine(), cfg.Input, ep, gen, o.logger, emitter)
	if err != nil {
		return nil, err
	}

	return &Pipeship{
		config:    cfg,
		lifecycle: app.NewLifecycle(o.logger, emitter),
		pipe:      p,
		header:    gen,
		logger:    o.logger,
		plugins:   o.plugins,
	}, nil
}

func defaultHeader(cfg Config) HeaderGenerator {
	opts := []header.Option{
		header.WithHostname(hostname()),
		header.WithOSArch(runtime.GOOS + "/" + runtime.GOARCH),
	}
	if cfg.DeviceID != "" {
		opts = append(opts, header.WithDeviceID(cfg.DeviceID))
	}
	if len(cfg.Fields) > 0 {
		opts = append(opts, header.WithFields(cfg.Fields))
	}
	return header.NewPost(opts...)
}

// Start begins forwarding in the background and returns once the engine
// goroutine runs. A crashed instance may be started again: a batch that
// was in flight is retransmitted.
func (w *Pipeship) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := w.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	if err := w.initPlugins(ctx); err != nil {
		_ = w.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}

	err := w.lifecycle.Go(ctx, func(runCtx context.Context) error {
		defer w.shutdownPlugins()
		return w.pipe.Run(runCtx)
	})
	if err != nil {
		w.shutdownPlugins()
	}
	return err
}

func (w *Pipeship) initPlugins(ctx context.Context) error {
	pluginCtx, cancel := context.WithCancel(ctx)
	w.pluginCancel = cancel
	w.pluginsActive = 0

	cfg := PluginConfig{
		Destination: w.config.Destination,
		Header:      w.header,
		Logger:      w.logger,
	}
	for _, p := range w.plugins {
		if err := p.Initialize(pluginCtx, cfg); err != nil {
			w.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			w.shutdownPlugins()
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		w.pluginsActive++
		w.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}
	return nil
}

// shutdownPlugins stops the initialized plugins in reverse order.
func (w *Pipeship) shutdownPlugins() {
	if w.pluginCancel != nil {
		w.pluginCancel()
	}
	ctx := context.Background()
	for i := w.pluginsActive - 1; i >= 0; i-- {
		p := w.plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			w.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		w.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
	w.pluginsActive = 0
}

// Stop cancels the engine and waits up to 30 seconds for it to return.
// A batch in flight is neither flushed nor discarded.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (w *Pipeship) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	return w.lifecycle.Stop(app.ShutdownTimeout)
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (w *Pipeship) Status() State {
	return convertState(w.lifecycle.State())
}

// Done is closed when the current run ends, by Stop, by the input draining
// or by an error.
func (w *Pipeship) Done() <-chan struct{} {
	return w.lifecycle.Done()
}

// Err returns the error the last run ended with: ErrRetryExhausted,
// ErrInputFatal, or nil.
func (w *Pipeship) Err() error {
	return w.lifecycle.Err()
}

// Header returns the generator bound to the engine.
func (w *Pipeship) Header() HeaderGenerator {
	return w.header
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"log":    {log.Version, log.MinCompatibleVersion},
		"header": {header.Version, header.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
