// Package pipeship forwards a byte stream to an HTTP endpoint in batches.
//
// Example usage:
//
//	cfg := pipeship.DefaultConfig()
//	cfg.Destination = "http://collector:8080/ingest"
//	if err := pipeship.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For start/stop control, events and plugins use pkg/pipeship directly.
package pipeship

import (
	"context"

	lib "github.com/bft-labs/pipeship/pkg/pipeship"
)

// Config holds the forwarding configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = lib.Config

// Option configures optional behavior, see pkg/pipeship.
type Option = lib.Option

// Run forwards cfg.Input to cfg.Destination. It blocks until the input is
// drained and every batch acknowledged, the context ends (both return nil),
// or the run fails with ErrRetryExhausted or ErrInputFatal.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	w, err := lib.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-w.Done()
	return w.Err()
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, Destination must be set before calling Run.
func DefaultConfig() Config {
	return lib.DefaultConfig()
}

// Errors returned by Run. Check them with errors.Is.
var (
	ErrRetryExhausted = lib.ErrRetryExhausted
	ErrInputFatal     = lib.ErrInputFatal
)
