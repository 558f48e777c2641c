package pipeship

import (
	"fmt"
	"time"

	"github.com/bft-labs/pipeship/internal/domain"
	"github.com/bft-labs/pipeship/internal/header"
	"github.com/bft-labs/pipeship/internal/pipe"
)

// Config holds the configuration for a Pipeship instance.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// Destination is the URL batches are posted to, http://host[:port]/path.
	// Required.
	Destination string

	// Input is the descriptor bytes are read from. Default: 0 (stdin)
	Input int

	// BufferSize is the batch capacity in bytes. Default: 2 MiB
	BufferSize int

	// Rate caps the send rate in bytes per second, 0 for unlimited.
	// Default: 100000
	Rate int

	// ConnectRetry is the number of consecutive failed attempts after which
	// the run ends with ErrRetryExhausted, 0 to retry forever. Default: 3
	ConnectRetry int

	// IdleInterval is the idle tick length and the stall timeout.
	// Default: 5 minutes
	IdleInterval time.Duration

	// IdleLimit is the number of idle ticks after which a partial batch is
	// sent, 0 to send as soon as input goes quiet. Default: 3
	IdleLimit int

	// ZipLevel enables zlib compression at levels 1-9. Default: 0 (off)
	ZipLevel int

	// DeviceID is sent as X-Device-Id by the default header.
	DeviceID string

	// Fields are extra header fields sent by the default header.
	Fields map[string]string
}

// DefaultConfig returns a Config with default values.
// At minimum, Destination must be set before calling New.
func DefaultConfig() Config {
	d := pipe.DefaultConfig()
	return Config{
		BufferSize:   d.BufferSize,
		Rate:         d.Rate,
		ConnectRetry: d.ConnectRetry,
		IdleInterval: d.IdleInterval,
		IdleLimit:    d.IdleLimit,
	}
}

// SetDefaults fills zero values that have no meaning of their own.
// Rate, ConnectRetry and IdleLimit are left alone: zero is a valid setting.
func (c *Config) SetDefaults() {
	d := pipe.DefaultConfig()
	if c.BufferSize == 0 {
		c.BufferSize = d.BufferSize
	}
	if c.IdleInterval == 0 {
		c.IdleInterval = d.IdleInterval
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := domain.ParseEndpoint(c.Destination); err != nil {
		return err
	}
	if c.Input < 0 {
		return fmt.Errorf("%w: input descriptor %d", domain.ErrInvalidConfig, c.Input)
	}
	for name := range c.Fields {
		if !header.ValidFieldName(name) || header.EngineField(name) {
			return fmt.Errorf("%w: header field %q", domain.ErrInvalidConfig, name)
		}
	}
	return c.engine().Validate()
}

func (c *Config) engine() pipe.Config {
	cfg := pipe.DefaultConfig()
	cfg.BufferSize = c.BufferSize
	cfg.Rate = c.Rate
	cfg.ConnectRetry = c.ConnectRetry
	cfg.IdleInterval = c.IdleInterval
	cfg.IdleLimit = c.IdleLimit
	cfg.ZipLevel = c.ZipLevel
	return cfg
}
