// Package fieldwatcher keeps extra request header fields in sync with a
// TOML or YAML file. When the file changes, the fields it lists are set on
// the engine's header generator and fields removed from it are cleared.
// Changes apply from the next batch; a batch being retried keeps its head.
package fieldwatcher

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/pipeship/pkg/header"
	"github.com/bft-labs/pipeship/pkg/log"
	"github.com/bft-labs/pipeship/pkg/pipeship"
)

// Plugin watches a fields file and applies it to the header generator.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	header   pipeship.HeaderGenerator
	logger   pipeship.Logger
	applied  map[string]string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the field watcher plugin.
type Config struct {
	// Path is the fields file. The plugin is disabled when empty.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new field watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "fieldwatcher"
}

// Initialize applies the fields file once and starts watching it.
// A file that cannot be loaded at this point fails Start.
func (p *Plugin) Initialize(ctx context.Context, cfg pipeship.PluginConfig) error {
	p.mu.Lock()
	p.header = cfg.Header
	p.logger = cfg.Logger
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("field watcher disabled: no fields file configured")
		return nil
	}

	fields, err := header.LoadFields(p.path)
	if err != nil {
		return err
	}
	p.apply(fields)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("field watcher started",
		log.String("path", p.path),
		log.Int("fields", len(fields)),
	)

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("field watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload applies the file, keeping the current fields when it is invalid.
func (p *Plugin) reload() {
	fields, err := header.LoadFields(p.path)
	if err != nil {
		p.logger.Warn("field watcher: keeping current fields",
			log.String("path", p.path),
			log.Err(err),
		)
		return
	}
	p.apply(fields)
	p.logger.Info("field watcher: fields reloaded", log.Int("fields", len(fields)))
}

func (p *Plugin) apply(fields map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name := range p.applied {
		if _, ok := fields[name]; !ok {
			p.header.SetField(name, "")
		}
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.header.SetField(name, fields[name])
	}
	p.applied = fields
}

// Ensure Plugin implements pipeship.Plugin.
var _ pipeship.Plugin = (*Plugin)(nil)
