package cliconfig

import (
	"fmt"
	"time"

	"github.com/bft-labs/pipeship/internal/domain"
)

// Default option values.
const (
	DefaultBufferSize   = 2 * 1024 * 1024
	DefaultRate         = 100000
	DefaultConnectRetry = 3
	DefaultIdleInterval = 5 * time.Minute
	DefaultIdleLimit    = 3
)

// Config holds CLI configuration for pipeship.
type Config struct {
	Destination string

	ZipLevel     int
	BufferSize   int
	Rate         int
	ConnectRetry int
	IdleInterval time.Duration
	IdleLimit    int

	DeviceID   string
	FieldsFile string
	Verbose    bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BufferSize:   DefaultBufferSize,
		Rate:         DefaultRate,
		ConnectRetry: DefaultConnectRetry,
		IdleInterval: DefaultIdleInterval,
		IdleLimit:    DefaultIdleLimit,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	switch {
	case c.ZipLevel < 0 || c.ZipLevel > 9:
		return fmt.Errorf("%w: zip level %d, expect 0-9", domain.ErrInvalidConfig, c.ZipLevel)
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
	}
	return nil
}

// Endpoint parses the destination URL.
func (c *Config) Endpoint() (domain.Endpoint, error) {
	return domain.ParseEndpoint(c.Destination)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value from a pointer, zero included.
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setParsed parses value with parse and sets the destination.
// Used for suffixed sizes, rates and plain integers that come as strings.
func (s *configSetter) setParsed(flag, value string, parse func(string) (int, error), dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	n, err := parse(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = n
	return nil
}

// setInterval parses and sets an interval if valid and flag not changed.
func (s *configSetter) setInterval(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := ParseInterval(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
