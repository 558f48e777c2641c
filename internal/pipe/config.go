package pipe

import (
	"fmt"
	"time"

	"github.com/bft-labs/pipeship/internal/domain"
)

// Default engine configuration values.
const (
	DefaultBufferSize       = 2 * 1024 * 1024
	DefaultRate             = 100000
	DefaultConnectRetry     = 3
	DefaultIdleInterval     = 5 * time.Minute
	DefaultIdleLimit        = 3
	DefaultThrottleInterval = 100 * time.Millisecond

	// ResponseHeadLimit bounds the response head kept per exchange.
	ResponseHeadLimit = 2048

	// maxWait caps a single readiness wait so cancellation is noticed promptly.
	maxWait = 500 * time.Millisecond
)

// Config holds the values consumed by the transfer engine.
type Config struct {
	// BufferSize is the input buffer capacity in bytes.
	BufferSize int

	// Rate is the transfer ceiling in bytes per second. Zero means unlimited.
	Rate int

	// ConnectRetry is the number of consecutive failed attempts after which
	// Run gives up. Zero retries forever.
	ConnectRetry int

	// IdleInterval is the length of one idle tick.
	IdleInterval time.Duration

	// IdleLimit is the number of idle ticks a partial batch may wait.
	IdleLimit int

	// ZipLevel enables compression at levels 1-9. Zero disables it.
	ZipLevel int

	// ThrottleInterval is the write granularity of the rate limiter.
	ThrottleInterval time.Duration

	// Reconnect pacing. Zero values use the defaults.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BufferSize:       DefaultBufferSize,
		Rate:             DefaultRate,
		ConnectRetry:     DefaultConnectRetry,
		IdleInterval:     DefaultIdleInterval,
		IdleLimit:        DefaultIdleLimit,
		ThrottleInterval: DefaultThrottleInterval,
		BackoffInitial:   DefaultBackoffInitial,
		BackoffMax:       DefaultBackoffMax,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.BufferSize <= 0:
		return fmt.Errorf("%w: buffer size must be positive", domain.ErrInvalidConfig)
	case c.Rate < 0:
		return fmt.Errorf("%w: rate must not be negative", domain.ErrInvalidConfig)
	case c.ConnectRetry < 0:
		return fmt.Errorf("%w: connect retry must not be negative", domain.ErrInvalidConfig)
	case c.IdleInterval <= 0:
		return fmt.Errorf("%w: idle interval must be positive", domain.ErrInvalidConfig)
	case c.IdleLimit < 0:
		return fmt.Errorf("%w: idle limit must not be negative", domain.ErrInvalidConfig)
	case c.ZipLevel < 0 || c.ZipLevel > 9:
		return fmt.Errorf("%w: zip level must be between 0 and 9", domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.ThrottleInterval <= 0 {
		c.ThrottleInterval = DefaultThrottleInterval
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = DefaultBackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.BackoffMax < c.BackoffInitial {
		c.BackoffMax = c.BackoffInitial
	}
	return c
}
