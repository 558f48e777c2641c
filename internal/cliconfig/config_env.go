package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (PIPESHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("destination", os.Getenv("PIPESHIP_DESTINATION"), &cfg.Destination)
	s.setString("device-id", os.Getenv("PIPESHIP_DEVICE_ID"), &cfg.DeviceID)
	s.setString("fields-file", os.Getenv("PIPESHIP_FIELDS_FILE"), &cfg.FieldsFile)

	if err := s.setParsed("zip-level", os.Getenv("PIPESHIP_ZIP_LEVEL"), ParseCount, &cfg.ZipLevel); err != nil {
		return err
	}
	if err := s.setParsed("buffer-size", os.Getenv("PIPESHIP_BUFFER_SIZE"), ParseSize, &cfg.BufferSize); err != nil {
		return err
	}
	if err := s.setParsed("rate", os.Getenv("PIPESHIP_RATE"), ParseRate, &cfg.Rate); err != nil {
		return err
	}
	if err := s.setParsed("connect-retry", os.Getenv("PIPESHIP_CONNECT_RETRY"), ParseCount, &cfg.ConnectRetry); err != nil {
		return err
	}
	if err := s.setInterval("idle-interval", os.Getenv("PIPESHIP_IDLE_INTERVAL"), &cfg.IdleInterval); err != nil {
		return err
	}
	if err := s.setParsed("idle-limit", os.Getenv("PIPESHIP_IDLE_LIMIT"), ParseCount, &cfg.IdleLimit); err != nil {
		return err
	}

	s.setBoolFromString("verbose", os.Getenv("PIPESHIP_VERBOSE"), &cfg.Verbose)

	return nil
}
