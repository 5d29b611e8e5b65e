// Package storage persists host configuration, cartridge save RAM and save
// state slots under a per-user data directory.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

var appName = "retrohost"

// Init sets the application data directory name.
func Init(dataDirName string) {
	appName = dataDirName
}

const (
	configFile     = "config.json"
	systemDir      = "system"
	savesDir       = "saves"
	statesDir      = "states"
	screenshotDir  = "screenshots"
	coreAssetsDir  = "assets"
	cheatsDir      = "cheats"
	databaseDir    = "database"
	dirPermissions = 0755
)

// GetBaseDir returns the base directory for application data.
// - macOS: ~/Library/Application Support/<appName>
// - Linux: ~/.local/share/<appName>
// - Windows: %APPDATA%/<appName>
func GetBaseDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		baseDir = filepath.Join(appData, appName)
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome != "" {
			baseDir = filepath.Join(dataHome, appName)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			baseDir = filepath.Join(home, ".local", "share", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to config.json
func GetConfigPath() (string, error) {
	baseDir, err := GetBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, configFile), nil
}

// Dirs are the resolved directories the host hands to cores and writes to.
type Dirs struct {
	Base        string
	System      string
	Saves       string
	States      string
	Screenshots string
	CoreAssets  string
	Cheats      string
	Database    string
}

// ResolveDirs fills unset paths in cfg with defaults under base.
func ResolveDirs(base string, paths PathsConfig) Dirs {
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return filepath.Join(base, def)
	}
	return Dirs{
		Base:        base,
		System:      pick(paths.System, systemDir),
		Saves:       pick(paths.Saves, savesDir),
		States:      pick(paths.States, statesDir),
		Screenshots: pick(paths.Screenshots, screenshotDir),
		CoreAssets:  pick(paths.CoreAssets, coreAssetsDir),
		Cheats:      pick(paths.Cheats, cheatsDir),
		Database:    pick(paths.Database, databaseDir),
	}
}

// EnsureDirectories creates every directory in d.
func EnsureDirectories(fs afero.Fs, d Dirs) error {
	for _, dir := range []string{d.Base, d.System, d.Saves, d.States, d.Screenshots, d.CoreAssets, d.Cheats, d.Database} {
		if dir == "" {
			continue
		}
		if err := fs.MkdirAll(dir, dirPermissions); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// atomicWrite writes data to a temporary file and renames it over path,
// so path is never left partially written.
func atomicWrite(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := path + ".tmp"
	if err := afero.WriteFile(fs, tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := fs.Rename(tempFile, path); err != nil {
		fs.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// AtomicWriteJSON writes data to a JSON file atomically.
func AtomicWriteJSON(fs afero.Fs, path string, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return atomicWrite(fs, path, jsonData)
}

// ReadJSON reads and unmarshals a JSON file
func ReadJSON(fs afero.Fs, path string, data any) error {
	jsonData, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(jsonData, data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
