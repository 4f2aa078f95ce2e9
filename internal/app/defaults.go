package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - KATALOG_CONFIG_PATH: config file location (default: ~/.config/katalog.toml)
//   - KATALOG_HOME: base directory for katalog data (default: ~/.local/share/katalog)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path":  configPath,
		"base_dir":     baseDir,
		"log_dir":      filepath.Join(baseDir, "log"),
		"catalog_path": filepath.Join(baseDir, "catalog.katalog"),
	}, nil
}

// getConfigPath returns the config file path, checking KATALOG_CONFIG_PATH
// first, then falling back to ~/.config/katalog.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("KATALOG_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "katalog.toml"), nil
}

// getBaseDir returns the base directory for katalog data, checking
// KATALOG_HOME first, then falling back to the XDG default
// ~/.local/share/katalog.
func getBaseDir() (string, error) {
	if path := os.Getenv("KATALOG_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "katalog"), nil
}
