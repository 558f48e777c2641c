package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	zero := 0
	nine := 9
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Destination:  "http://collector/ingest",
				ZipLevel:     &nine,
				BufferSize:   "1M",
				Rate:         "50k",
				ConnectRetry: &zero,
				IdleInterval: "30s",
				IdleLimit:    &zero,
				DeviceID:     "a1b2c3",
				FieldsFile:   "/etc/pipeship/fields.toml",
				Verbose:      &trueVal,
			},
			changed: map[string]bool{},
			initial: DefaultConfig(),
			expected: Config{
				Destination:  "http://collector/ingest",
				ZipLevel:     9,
				BufferSize:   1024 * 1024,
				Rate:         50000,
				ConnectRetry: 0,
				IdleInterval: 30 * time.Second,
				IdleLimit:    0,
				DeviceID:     "a1b2c3",
				FieldsFile:   "/etc/pipeship/fields.toml",
				Verbose:      true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Destination: "http://file/",
				Rate:        "1k",
			},
			changed: map[string]bool{"destination": true},
			initial: Config{Destination: "http://flag/", Rate: 5},
			expected: Config{
				Destination: "http://flag/",
				Rate:        1000,
			},
		},
		{
			name:       "empty file keeps defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			expected:   DefaultConfig(),
		},
		{
			name:       "returns error for invalid size",
			fileConfig: FileConfig{BufferSize: "lots"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "returns error for invalid interval",
			fileConfig: FileConfig{IdleInterval: "later"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "config.toml")
	tomlContent := `
destination = "http://collector:8080/ingest"
zip_level = 6
buffer_size = "512k"
rate = "0"
connect_retry = 0
idle_interval = "1m"
`
	if err := os.WriteFile(tomlPath, []byte(tomlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(tomlPath)
	if err != nil {
		t.Fatalf("LoadFileConfig(toml) error = %v", err)
	}
	if fc.Destination != "http://collector:8080/ingest" || fc.BufferSize != "512k" || fc.IdleInterval != "1m" {
		t.Errorf("unexpected toml config: %+v", fc)
	}
	if fc.ZipLevel == nil || *fc.ZipLevel != 6 {
		t.Errorf("ZipLevel = %v, want 6", fc.ZipLevel)
	}
	if fc.ConnectRetry == nil || *fc.ConnectRetry != 0 {
		t.Errorf("ConnectRetry = %v, want explicit 0", fc.ConnectRetry)
	}
	if fc.IdleLimit != nil {
		t.Errorf("IdleLimit = %v, want unset", *fc.IdleLimit)
	}

	yamlPath := filepath.Join(dir, "config.yaml")
	yamlContent := "destination: http://collector/\nidle_limit: 5\nverbose: true\n"
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err = LoadFileConfig(yamlPath)
	if err != nil {
		t.Fatalf("LoadFileConfig(yaml) error = %v", err)
	}
	if fc.Destination != "http://collector/" {
		t.Errorf("Destination = %q", fc.Destination)
	}
	if fc.IdleLimit == nil || *fc.IdleLimit != 5 {
		t.Errorf("IdleLimit = %v, want 5", fc.IdleLimit)
	}
	if fc.Verbose == nil || !*fc.Verbose {
		t.Errorf("Verbose = %v, want true", fc.Verbose)
	}

	badPath := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(badPath, []byte("destination = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(badPath); err == nil {
		t.Error("LoadFileConfig(bad) should fail")
	}

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFileConfig(missing) should fail")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x")
	if FileExists(p) {
		t.Error("FileExists on missing file")
	}
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(p) {
		t.Error("FileExists on present file")
	}
}
