package fieldwatcher

import "github.com/bft-labs/pipeship/pkg/pipeship"

// WithFieldWatcher returns a pipeship Option that keeps header fields in
// sync with a file.
//
// Usage:
//
//	w, err := pipeship.New(cfg,
//	    fieldwatcher.WithFieldWatcher(fieldwatcher.Config{
//	        Path:          "/etc/pipeship/fields.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithFieldWatcher(cfg Config) pipeship.Option {
	return pipeship.WithPlugin(New(cfg))
}
