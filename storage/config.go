package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// LoadConfig loads the configuration at path.
// If the file doesn't exist, it returns default configuration.
// If the file is corrupted, it returns an error.
// Missing fields (absent from JSON) are defaulted.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	jsonBytes, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := &Config{}
	if err := json.Unmarshal(jsonBytes, config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	ApplyMissingDefaults(config, detectPresentKeys(jsonBytes))
	return config, nil
}

// SaveConfig saves the configuration atomically
func SaveConfig(fs afero.Fs, path string, config *Config) error {
	return AtomicWriteJSON(fs, path, config)
}

// CreateConfigIfMissing writes a default config when none exists
func CreateConfigIfMissing(fs afero.Fs, path string) error {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return SaveConfig(fs, path, DefaultConfig())
}
