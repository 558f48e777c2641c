package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but keeps sizes, rates and intervals as strings
// so files accept the same suffixed syntax as flags.
type FileConfig struct {
	Destination  string `toml:"destination" yaml:"destination"`
	ZipLevel     *int   `toml:"zip_level" yaml:"zip_level"`
	BufferSize   string `toml:"buffer_size" yaml:"buffer_size"`
	Rate         string `toml:"rate" yaml:"rate"`
	ConnectRetry *int   `toml:"connect_retry" yaml:"connect_retry"`
	IdleInterval string `toml:"idle_interval" yaml:"idle_interval"`
	IdleLimit    *int   `toml:"idle_limit" yaml:"idle_limit"`
	DeviceID     string `toml:"device_id" yaml:"device_id"`
	FieldsFile   string `toml:"fields_file" yaml:"fields_file"`
	Verbose      *bool  `toml:"verbose" yaml:"verbose"`
}

// LoadFileConfig reads and parses a config file. Files ending in .yaml or
// .yml are YAML, everything else is TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.pipeship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".pipeship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("destination", fc.Destination, &cfg.Destination)
	s.setString("device-id", fc.DeviceID, &cfg.DeviceID)
	s.setString("fields-file", fc.FieldsFile, &cfg.FieldsFile)

	if err := s.setParsed("buffer-size", fc.BufferSize, ParseSize, &cfg.BufferSize); err != nil {
		return err
	}
	if err := s.setParsed("rate", fc.Rate, ParseRate, &cfg.Rate); err != nil {
		return err
	}
	if err := s.setInterval("idle-interval", fc.IdleInterval, &cfg.IdleInterval); err != nil {
		return err
	}

	s.setInt("zip-level", fc.ZipLevel, &cfg.ZipLevel)
	s.setInt("connect-retry", fc.ConnectRetry, &cfg.ConnectRetry)
	s.setInt("idle-limit", fc.IdleLimit, &cfg.IdleLimit)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
