package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by fic.
const (
	EnvConfigPath = "FIC_CONFIG_PATH"
	EnvHome       = "FIC_HOME"
	EnvPassphrase = "FIC_PASSPHRASE"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - FIC_CONFIG_PATH: config file location (default: ~/.config/fic.toml)
//   - FIC_HOME: base directory for fic data (default: ~/.local/share/fic)
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
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking FIC_CONFIG_PATH first,
// then falling back to the default ~/.config/fic.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "fic.toml"), nil
}

// getBaseDir returns the base directory for fic data, checking FIC_HOME first,
// then falling back to the XDG default ~/.local/share/fic.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "fic"), nil
}
